package storage

import (
	"context"
	"sync"
)

// Mock is a test double for Storage. It records every statement and answers
// queries through QueryFunc.
type Mock struct {
	sqliteDialect

	// QueryFunc answers Query calls. A nil QueryFunc returns no rows.
	QueryFunc func(ctx context.Context, query string) ([][]string, error)

	mu         sync.Mutex
	queries    []string
	statements []string
	nextID     int64
}

// NewMock creates a new mock storage.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Query(ctx context.Context, query string) ([][]string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	fn := m.QueryFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(ctx, query)
}

func (m *Mock) Insert(_ context.Context, statement, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements = append(m.statements, statement)
	m.nextID++
	return m.nextID, nil
}

func (m *Mock) Exec(_ context.Context, statement string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statements = append(m.statements, statement)
	return nil
}

func (m *Mock) Update(_ context.Context, fn func(Storage) error) error {
	return fn(m)
}

// Test helpers

// Queries returns every query received so far.
func (m *Mock) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// Statements returns every Insert/Exec statement received so far.
func (m *Mock) Statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statements...)
}

// Verify Mock implements Storage at compile time.
var _ Storage = (*Mock)(nil)
