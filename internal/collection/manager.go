package collection

import (
	"errors"
	"slices"
	"sync"

	"github.com/llehouerou/shoal/internal/query"
)

// Manager holds the open collections and queries them together.
type Manager struct {
	mu          sync.RWMutex
	collections []*Collection
}

func NewManager() *Manager {
	return &Manager{}
}

// Add registers c. Adding a collection twice is a no-op.
func (m *Manager) Add(c *Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.collections, c) {
		return
	}
	m.collections = append(m.collections, c)
}

// Remove forgets the collection with the given id without closing it.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = slices.DeleteFunc(m.collections, func(c *Collection) bool {
		return c.ID() == id
	})
}

// Collection returns the collection with the given id, or nil.
func (m *Manager) Collection(id string) *Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.collections {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func (m *Manager) Collections() []*Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.collections)
}

// NewQueryMaker returns a maker over every collection registered now.
func (m *Manager) NewQueryMaker() *AggregateMaker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	makers := make([]query.Maker, len(m.collections))
	for i, c := range m.collections {
		makers[i] = c.NewQueryMaker()
	}
	return NewAggregateMaker(makers...)
}

// Close closes every collection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, c := range m.collections {
		errs = append(errs, c.Close())
	}
	m.collections = nil
	return errors.Join(errs...)
}
