/*
planner.go - Campaign-level orchestration of the engine

PURPOSE:
  Ties the pieces together for one campaign: recompute both schedules,
  capture the delivery snapshot, run the Auto/Manual state machine for
  billing, and answer partial-invoice queries. Hosts (the HTTP layer, a
  document generator) talk to a Planner rather than wiring the parts
  themselves.

STATE MACHINE:
  Mode is Auto or Manual. In Auto the billing read returns the latest
  auto-computed schedule; in Manual it returns the editable working
  copy. EnterManualMode and Reset are the only transitions. Delivery
  reads always resolve through the snapshot manager and are unaffected
  by billing mode.

IDEMPOTENCE:
  Recompute, Reset and partial-invoice queries are re-invoked freely by
  user interaction; all are safe to repeat with identical inputs.
*/
package engine

import "github.com/shopspring/decimal"

// Mode is the billing schedule's derivation state.
type Mode int

const (
	ModeAuto Mode = iota
	ModeManual
)

// Planner orchestrates schedule computation for one campaign.
type Planner struct {
	alloc     AllocationInput
	snapshots *SnapshotManager

	key     SnapshotKey
	bursts  []Burst
	lattice []MonthBucket

	auto     Schedules
	warnings []Warning

	mode   Mode
	manual *ManualState
}

// NewPlanner creates a planner over the given lookup data. The snapshot
// store may be nil, in which case delivery reads are always live.
func NewPlanner(alloc AllocationInput, snapshots SnapshotStore) *Planner {
	var manager *SnapshotManager
	if snapshots != nil {
		manager = NewSnapshotManager(snapshots)
	}
	return &Planner{alloc: alloc, snapshots: manager}
}

// Recompute rebuilds both schedules from the campaign's bursts and
// captures the delivery snapshot on first success for this key. A key
// change (dates or plan) invalidates the previous snapshot and exits
// manual mode: the edited copy no longer describes this campaign.
func (p *Planner) Recompute(planID string, bursts []Burst, campaignStart, campaignEnd Date) (Schedules, []Warning) {
	key := SnapshotKey{PlanID: planID, CampaignStart: campaignStart, CampaignEnd: campaignEnd}
	if !key.Equal(p.key) {
		p.mode = ModeAuto
		p.manual = nil
	}
	p.key = key
	p.bursts = bursts
	p.lattice = BuildLattice(campaignStart, campaignEnd)

	p.auto, p.warnings = ComputeSchedules(bursts, campaignStart, campaignEnd, p.alloc)

	if p.snapshots != nil {
		p.snapshots.Capture(key, p.auto.Delivery)
	}
	return p.auto, p.warnings
}

// Warnings returns the problems from the latest recompute.
func (p *Planner) Warnings() []Warning { return p.warnings }

// Lattice returns the campaign's month buckets.
func (p *Planner) Lattice() []MonthBucket { return p.lattice }

// =============================================================================
// SCHEDULE READS
// =============================================================================

// Billing returns the billing schedule for the current mode.
func (p *Planner) Billing() Schedule {
	if p.mode == ModeManual && p.manual != nil {
		return p.manual.Months
	}
	return p.auto.Billing
}

// Delivery returns the delivery schedule for reporting and persistence:
// the frozen snapshot when one is held for this campaign key, otherwise
// the live computation. Manual billing edits never reach this view.
func (p *Planner) Delivery() Schedule {
	if p.snapshots == nil {
		return p.auto.Delivery
	}
	return p.snapshots.Resolve(p.key, p.auto.Delivery)
}

// =============================================================================
// MANUAL MODE
// =============================================================================

// Mode reports the current billing derivation state.
func (p *Planner) Mode() Mode { return p.mode }

// EnterManualMode switches billing to the editable working copy,
// creating it from the current auto schedule if needed. Re-entering
// keeps the existing state and its edits.
func (p *Planner) EnterManualMode() *ManualState {
	if p.manual == nil {
		p.manual = EnterManualMode(p.auto.Billing, p.bursts, p.lattice)
	}
	p.mode = ModeManual
	return p.manual
}

// Manual returns the working copy, or nil in auto mode.
func (p *Planner) Manual() *ManualState {
	if p.mode != ModeManual {
		return nil
	}
	return p.manual
}

// SetCell edits one cell of the manual schedule.
func (p *Planner) SetCell(month MonthKey, row RowRef, value decimal.Decimal) error {
	if p.mode != ModeManual || p.manual == nil {
		return ErrNotInManualMode
	}
	return p.manual.SetCell(month, row, value)
}

// TogglePreBill collapses or restores one row's series. No-op guards
// inside ManualState make repeated toggles safe.
func (p *Planner) TogglePreBill(row RowRef, checked bool) error {
	if p.mode != ModeManual || p.manual == nil {
		return ErrNotInManualMode
	}
	p.manual.TogglePreBill(row, checked)
	return nil
}

// SaveManual validates the manual schedule against the campaign budget.
// On failure the edit state is preserved for adjustment and retry.
func (p *Planner) SaveManual(campaignBudget decimal.Decimal) error {
	if p.mode != ModeManual || p.manual == nil {
		return ErrNotInManualMode
	}
	return p.manual.Validate(campaignBudget)
}

// Reset discards manual state and returns to the latest auto-computed
// schedule. Available after any number of editing rounds.
func (p *Planner) Reset() Schedule {
	p.mode = ModeAuto
	p.manual = nil
	return p.auto.Billing
}

// =============================================================================
// PARTIAL INVOICE
// =============================================================================

// PartialInvoice computes the reduced totals over the selected months
// and enabled channels, always from the snapshot-resolved delivery
// schedule.
func (p *Planner) PartialInvoice(months []MonthKey, enabled map[Channel]bool) PartialInvoice {
	return ComputePartialInvoice(p.Delivery(), months, enabled)
}
