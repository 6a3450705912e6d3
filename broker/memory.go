package broker

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps attribute id reference counts in process.
type Memory struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemory creates an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int)}
}

func (m *Memory) IncrementAttributeIDRefCount(_ context.Context, attributeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[attributeID]++
	return m.counts[attributeID], nil
}

// DecrementAttributeIDRefCount releases one reference. Counts never go
// below zero and the entry is dropped when it reaches zero.
func (m *Memory) DecrementAttributeIDRefCount(_ context.Context, attributeID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.counts[attributeID] - 1
	if count <= 0 {
		delete(m.counts, attributeID)
		return 0, nil
	}

	m.counts[attributeID] = count
	return count, nil
}

// RefCount returns the current count for attributeID.
func (m *Memory) RefCount(attributeID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[attributeID]
}

// Snapshot returns a copy of all counts.
func (m *Memory) Snapshot() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

// AttributeIDs returns the ids with a non-zero count, sorted.
func (m *Memory) AttributeIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.counts))
	for id := range m.counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
