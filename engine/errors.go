/*
errors.go - Centralized error and warning types for the engine

PURPOSE:
  All engine failure modes in one place. The engine degrades rather than
  fails: malformed bursts become warnings, rate misses become zero
  rates, and the only user-facing error is a budget mismatch on manual
  save, which preserves the in-progress edit.

ERROR CATEGORIES:
  1. Validation errors - budget mismatch on manual save
  2. State errors      - operations invoked in the wrong mode
  3. Warnings          - per-record normalization problems (non-fatal)

USAGE:
  var mismatch *engine.BudgetMismatchError
  if errors.As(err, &mismatch) {
      display(mismatch.Difference)
  }
*/
package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBudgetMismatch is returned when a manual schedule's grand total
	// falls outside the save tolerance of the campaign budget.
	ErrBudgetMismatch = errors.New("schedule total does not match campaign budget")

	// ErrNotInManualMode is returned when a manual-edit operation is
	// invoked while the planner is in auto mode.
	ErrNotInManualMode = errors.New("not in manual mode")

	// ErrUnknownMonth is returned when a cell edit references a month
	// outside the campaign's lattice.
	ErrUnknownMonth = errors.New("month not in campaign span")

	// ErrUnknownRow is returned when a cell edit references a row that
	// does not exist in the schedule.
	ErrUnknownRow = errors.New("unknown schedule row")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// BudgetMismatchError reports how far a manual schedule's grand total is
// from the campaign budget. Difference is signed: positive means the
// schedule totals more than the budget. The edit state is never
// discarded on this error; the caller adjusts and retries.
type BudgetMismatchError struct {
	Budget     decimal.Decimal
	Total      decimal.Decimal
	Difference decimal.Decimal
	Tolerance  decimal.Decimal
}

func (e *BudgetMismatchError) Error() string {
	return fmt.Sprintf("schedule total %s differs from budget %s by %s (tolerance %s)",
		e.Total.Round(2), e.Budget.Round(2), e.Difference.Round(2), e.Tolerance)
}

func (e *BudgetMismatchError) Unwrap() error { return ErrBudgetMismatch }

// =============================================================================
// WARNINGS - Non-fatal per-record problems
// =============================================================================

// Warning records a recoverable problem with one input record. Dirty
// historical data must still produce a best-effort schedule, so the
// engine reports what it could not compute instead of failing.
type Warning struct {
	LineItemID string
	Field      string
	Message    string
}

func (w Warning) String() string {
	if w.LineItemID == "" {
		return w.Field + ": " + w.Message
	}
	return w.LineItemID + " " + w.Field + ": " + w.Message
}
