/*
snapshot.go - Delivery schedule snapshot isolation

PURPOSE:
  Delivery reporting must not move after the fact. The first
  successfully computed delivery schedule for a given campaign identity
  is frozen; later recomputes (typically triggered by manual billing
  edits or unrelated state changes) keep returning the frozen value.
  Only a change of identity - different campaign dates or a different
  plan - clears the snapshot and lets a new one be captured.

CONCURRENCY:
  Capture is a check-and-set in the store: the first writer for a key
  wins and later writers for the same key are no-ops, so racing
  recomputes cannot corrupt the snapshot.
*/
package engine

import "time"

// =============================================================================
// SNAPSHOT KEY - Campaign identity
// =============================================================================

// SnapshotKey identifies one campaign configuration. Any change to it
// means delivery must be re-baselined.
type SnapshotKey struct {
	PlanID        string
	CampaignStart Date
	CampaignEnd   Date
}

func (k SnapshotKey) Equal(other SnapshotKey) bool {
	return k.PlanID == other.PlanID &&
		k.CampaignStart.Equal(other.CampaignStart) &&
		k.CampaignEnd.Equal(other.CampaignEnd)
}

// =============================================================================
// DELIVERY SNAPSHOT
// =============================================================================

// DeliverySnapshot is an immutable copy of the first delivery schedule
// computed for a key.
type DeliverySnapshot struct {
	Key     SnapshotKey
	TakenAt time.Time
	Months  Schedule
}

// SnapshotStore persists delivery snapshots, one per plan.
type SnapshotStore interface {
	// Get returns the snapshot held for a plan, if any.
	Get(planID string) (*DeliverySnapshot, bool)

	// Put stores the snapshot unless one with the same key already
	// exists (first write wins). A held snapshot with a DIFFERENT key
	// for the same plan is replaced: the campaign identity changed.
	// Returns true if the snapshot was stored.
	Put(snapshot DeliverySnapshot) bool
}

// =============================================================================
// SNAPSHOT MANAGER
// =============================================================================

// SnapshotManager wraps a store with the capture/resolve rules.
type SnapshotManager struct {
	store SnapshotStore
}

func NewSnapshotManager(store SnapshotStore) *SnapshotManager {
	return &SnapshotManager{store: store}
}

// Capture freezes the given delivery schedule for the key unless a
// snapshot for the same key already exists. The schedule is deep-copied
// so later mutation of the live value cannot leak into the snapshot.
func (m *SnapshotManager) Capture(key SnapshotKey, delivery Schedule) {
	if m == nil || m.store == nil || len(delivery) == 0 {
		return
	}
	m.store.Put(DeliverySnapshot{
		Key:     key,
		TakenAt: time.Now().UTC(),
		Months:  delivery.DeepCopy(),
	})
}

// Resolve returns the schedule reads should use: the snapshot when one
// is held for this exact key, otherwise the live schedule. The snapshot
// is copied on the way out so a caller mutating the result cannot reach
// the frozen value.
func (m *SnapshotManager) Resolve(key SnapshotKey, live Schedule) Schedule {
	if m == nil || m.store == nil {
		return live
	}
	snap, ok := m.store.Get(key.PlanID)
	if !ok || !snap.Key.Equal(key) {
		return live
	}
	return snap.Months.DeepCopy()
}
