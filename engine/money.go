/*
Package engine implements the billing and delivery schedule engine.

PURPOSE:
  This package contains the pure computation core for media-plan
  financials: it distributes time-bounded spend allocations ("bursts")
  across the calendar months they overlap, splits each contribution into
  media, fee, ad-serving and production components, and folds everything
  into two parallel month-bucketed schedules:

    - Billing schedule:  what will be invoiced to the client
    - Delivery schedule: what media actually ran, independent of who pays

KEY CONCEPTS:
  - Burst:         one contiguous date range with an allocated spend
  - MonthBucket:   one calendar month spanned by the campaign
  - ScheduleMonth: aggregated result for one bucket
  - ManualState:   deep-copied billing schedule under manual edit
  - DeliverySnapshot: frozen first delivery computation per plan key

DESIGN PRINCIPLES:
  1. Purity: every operation is a deterministic function of its inputs;
     the engine performs no I/O and holds no hidden globals.
  2. Precision: decimal.Decimal throughout; rounding to cents happens
     only at display boundaries, never during accumulation.
  3. Conservation: a burst's money and deliverables distributed across
     months always sum back to the burst's input figures.
  4. Degradation: malformed inputs are skipped with warnings; nothing
     in this package is fatal to the host application.

SEE ALSO:
  - lattice.go:  month bucket construction
  - prorate.go:  day-weighted distribution
  - allocate.go: cost component split
  - schedule.go: aggregation into the two schedules
  - manual.go:   manual-override state machine
  - snapshot.go: delivery snapshot isolation
  - partial.go:  partial-invoice (Partial MBA) recomputation
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY HELPERS - decimal.Decimal is the money type everywhere
// =============================================================================

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)
)

// MustMoney parses a decimal literal, returning zero on bad input.
// Intended for configuration and test fixtures.
func MustMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Round2 rounds to cents. Display/DTO boundaries only; never call this
// on values that still participate in accumulation.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Display returns the value rounded to cents as a float64 for JSON.
func Display(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// WithinTolerance reports whether a and b differ by at most tol (absolute).
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}
