package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jwebster45206/perec-verify/pkg/storage"
)

// MockPage is a mock implementation of Page for testing. Without overrides
// every probe reports success and every click lands.
type MockPage struct {
	mu sync.Mutex

	NavigateFunc            func(ctx context.Context, url string) error
	ReloadFunc              func(ctx context.Context) error
	LandmarkVisibleFunc     func(ctx context.Context) (bool, error)
	TextVisibleFunc         func(ctx context.Context, fragment string) (bool, error)
	SelectRoomFunc          func(ctx context.Context, displayName string) error
	TriggerInteractionFunc  func(ctx context.Context, label string) error
	AvailableActionsFunc    func(ctx context.Context) ([]string, bool, error)
	ToggleInventoryFunc     func(ctx context.Context) error
	IsInventoryExpandedFunc func(ctx context.Context) (bool, error)
	CaptureFullPageFunc     func(ctx context.Context) ([]byte, error)

	// Track calls for testing
	NavigateCalls           []string
	ReloadCalls             int
	LandmarkCalls           int
	TextVisibleCalls        []string
	SelectRoomCalls         []string
	TriggerInteractionCalls []string
	AvailableActionsCalls   int
	ToggleInventoryCalls    int
	CaptureCalls            int
}

// Ensure MockPage implements Page interface
var _ Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	m.mu.Lock()
	m.NavigateCalls = append(m.NavigateCalls, url)
	m.mu.Unlock()
	if m.NavigateFunc != nil {
		return m.NavigateFunc(ctx, url)
	}
	return nil
}

func (m *MockPage) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.ReloadCalls++
	m.mu.Unlock()
	if m.ReloadFunc != nil {
		return m.ReloadFunc(ctx)
	}
	return nil
}

func (m *MockPage) LandmarkVisible(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.LandmarkCalls++
	m.mu.Unlock()
	if m.LandmarkVisibleFunc != nil {
		return m.LandmarkVisibleFunc(ctx)
	}
	return true, nil
}

func (m *MockPage) TextVisible(ctx context.Context, fragment string) (bool, error) {
	m.mu.Lock()
	m.TextVisibleCalls = append(m.TextVisibleCalls, fragment)
	m.mu.Unlock()
	if m.TextVisibleFunc != nil {
		return m.TextVisibleFunc(ctx, fragment)
	}
	return true, nil
}

func (m *MockPage) SelectRoom(ctx context.Context, displayName string) error {
	m.mu.Lock()
	m.SelectRoomCalls = append(m.SelectRoomCalls, displayName)
	m.mu.Unlock()
	if m.SelectRoomFunc != nil {
		return m.SelectRoomFunc(ctx, displayName)
	}
	return nil
}

func (m *MockPage) TriggerInteraction(ctx context.Context, label string) error {
	m.mu.Lock()
	m.TriggerInteractionCalls = append(m.TriggerInteractionCalls, label)
	m.mu.Unlock()
	if m.TriggerInteractionFunc != nil {
		return m.TriggerInteractionFunc(ctx, label)
	}
	return nil
}

func (m *MockPage) AvailableActions(ctx context.Context) ([]string, bool, error) {
	m.mu.Lock()
	m.AvailableActionsCalls++
	m.mu.Unlock()
	if m.AvailableActionsFunc != nil {
		return m.AvailableActionsFunc(ctx)
	}
	return nil, false, nil
}

func (m *MockPage) ToggleInventory(ctx context.Context) error {
	m.mu.Lock()
	m.ToggleInventoryCalls++
	m.mu.Unlock()
	if m.ToggleInventoryFunc != nil {
		return m.ToggleInventoryFunc(ctx)
	}
	return nil
}

func (m *MockPage) IsInventoryExpanded(ctx context.Context) (bool, error) {
	if m.IsInventoryExpandedFunc != nil {
		return m.IsInventoryExpandedFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ToggleInventoryCalls%2 == 1, nil
}

func (m *MockPage) CaptureFullPage(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	m.CaptureCalls++
	m.mu.Unlock()
	if m.CaptureFullPageFunc != nil {
		return m.CaptureFullPageFunc(ctx)
	}
	return []byte("\x89PNG"), nil
}

// MockSession hands out a fixed page and store.
type MockSession struct {
	MockPage  *MockPage
	MockStore *storage.MockStore

	CloseFunc  func() error
	CloseCalls int
}

var _ Session = (*MockSession)(nil)

// NewMockSession creates a session backed by fresh mocks
func NewMockSession() *MockSession {
	return &MockSession{
		MockPage:  &MockPage{},
		MockStore: storage.NewMockStore(),
	}
}

func (s *MockSession) Page() Page           { return s.MockPage }
func (s *MockSession) Store() storage.Store { return s.MockStore }

func (s *MockSession) Close() error {
	s.CloseCalls++
	if s.CloseFunc != nil {
		return s.CloseFunc()
	}
	return nil
}

// MockLauncher returns Session (or LaunchErr) on every Launch.
type MockLauncher struct {
	Session   Session
	LaunchErr error

	LaunchCalls int
}

var _ Launcher = (*MockLauncher)(nil)

func (l *MockLauncher) Launch(ctx context.Context, logger *slog.Logger) (Session, error) {
	l.LaunchCalls++
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	return l.Session, nil
}
