package storage

import (
	"context"
	"sort"
	"sync"
)

// MockLedger is an in-memory Ledger for testing
type MockLedger struct {
	mu    sync.RWMutex
	runs  map[string][]Record // newest first
	limit int

	RecordFunc func(ctx context.Context, rec Record) error

	// Track calls for testing
	RecordCalls []Record
	CloseCalls  int
}

// Ensure MockLedger implements Ledger interface
var _ Ledger = (*MockLedger)(nil)

// NewMockLedger creates a mock ledger keeping history runs per scenario
func NewMockLedger(history int) *MockLedger {
	return &MockLedger{
		runs:  make(map[string][]Record),
		limit: history,
	}
}

func (m *MockLedger) Record(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordCalls = append(m.RecordCalls, rec)
	if m.RecordFunc != nil {
		if err := m.RecordFunc(ctx, rec); err != nil {
			return err
		}
	}

	runs := append([]Record{rec}, m.runs[rec.Scenario]...)
	if m.limit > 0 && len(runs) > m.limit {
		runs = runs[:m.limit]
	}
	m.runs[rec.Scenario] = runs
	return nil
}

func (m *MockLedger) Latest(ctx context.Context, scenario string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.runs[scenario]
	if len(runs) == 0 {
		return nil, nil
	}
	rec := runs[0]
	return &rec, nil
}

func (m *MockLedger) History(ctx context.Context, scenario string, n int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.runs[scenario]
	if n < len(runs) {
		runs = runs[:max(n, 0)]
	}
	return append([]Record{}, runs...), nil
}

func (m *MockLedger) Scenarios(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.runs))
	for name := range m.runs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MockLedger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}
