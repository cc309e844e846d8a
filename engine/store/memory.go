// Package store provides SnapshotStore implementations.
package store

import (
	"sync"

	"github.com/planwell/billing-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory snapshot store (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	snapshots map[string]engine.DeliverySnapshot // plan ID -> snapshot
}

func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string]engine.DeliverySnapshot)}
}

func (m *Memory) Get(planID string) (*engine.DeliverySnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[planID]
	if !ok {
		return nil, false
	}
	return &snap, true
}

// Put implements first-write-wins per key: a snapshot held under the
// same key is kept, a snapshot held under a different key (the campaign
// identity changed) is replaced. The check and the write happen under
// one lock so concurrent captures cannot interleave.
func (m *Memory) Put(snapshot engine.DeliverySnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.snapshots[snapshot.Key.PlanID]
	if ok && existing.Key.Equal(snapshot.Key) {
		return false
	}
	m.snapshots[snapshot.Key.PlanID] = snapshot
	return true
}
