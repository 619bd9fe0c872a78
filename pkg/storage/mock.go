package storage

import (
	"context"
	"sync"
)

// MockStore is an in-memory Store for tests
type MockStore struct {
	mu   sync.RWMutex
	data map[string]string

	WriteFunc func(ctx context.Context, key, value string) error
	ClearFunc func(ctx context.Context) error
	ReadFunc  func(ctx context.Context, key string) (string, bool, error)

	// Track calls for testing
	WriteCalls []WriteCall
	ClearCalls int
	ReadCalls  []string
}

// WriteCall records a single Write invocation.
type WriteCall struct {
	Key   string
	Value string
}

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]string),
	}
}

func (m *MockStore) Write(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCalls = append(m.WriteCalls, WriteCall{Key: key, Value: value})
	if m.WriteFunc != nil {
		if err := m.WriteFunc(ctx, key, value); err != nil {
			return err
		}
	}
	m.data[key] = value
	return nil
}

func (m *MockStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ClearCalls++
	if m.ClearFunc != nil {
		if err := m.ClearFunc(ctx); err != nil {
			return err
		}
	}
	m.data = make(map[string]string)
	return nil
}

func (m *MockStore) Read(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadCalls = append(m.ReadCalls, key)
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, key)
	}
	v, ok := m.data[key]
	return v, ok, nil
}

// Set seeds a value without recording a Write call, for simulating data the
// client persisted on its own.
func (m *MockStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}
