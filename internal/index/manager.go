package index

import (
	"context"
	"log"
	"sort"
	"sync"
)

// Manager owns one Index per container.
type Manager struct {
	store Store

	mu      sync.Mutex
	indexes map[string]*Index
}

// NewManager creates a manager whose indexes persist to store. A nil store
// keeps every index in memory.
func NewManager(store Store) *Manager {
	return &Manager{store: store, indexes: make(map[string]*Index)}
}

// Index returns the index of container, creating it and loading its
// persisted content on first use.
func (m *Manager) Index(ctx context.Context, container string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.indexes[container]; ok {
		return x, nil
	}
	x := New(container, m.store)
	if m.store != nil {
		x.monitor.EnterWrite()
		err := x.Load(ctx)
		x.monitor.ExitWrite()
		if err != nil {
			return nil, err
		}
	}
	m.indexes[container] = x
	return x, nil
}

// Lookup returns the index of container if it was opened before.
func (m *Manager) Lookup(container string) (*Index, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	x, ok := m.indexes[container]
	return x, ok
}

// Indexes returns the open indexes of the given containers, skipping
// containers that have none.
func (m *Manager) Indexes(containers []string) []*Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Index
	for _, c := range containers {
		if x, ok := m.indexes[c]; ok {
			out = append(out, x)
		}
	}
	return out
}

// Containers lists the containers with an open index.
func (m *Manager) Containers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.indexes))
	for c := range m.indexes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Remove forgets the index of container. Persisted content is kept.
func (m *Manager) Remove(container string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexes, container)
}

// MergeAll merges the pending writes of every index that has any. Failures
// are logged and the remaining indexes are still merged; the first error is
// returned.
func (m *Manager) MergeAll(ctx context.Context) error {
	var first error
	for _, c := range m.Containers() {
		x, ok := m.Lookup(c)
		if !ok || !x.HasPendingWrites() {
			continue
		}
		x.monitor.EnterWrite()
		err := x.Merge(ctx)
		x.monitor.ExitWrite()
		if err != nil {
			log.Printf("index: merge failed for %s: %v", c, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
