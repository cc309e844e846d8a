/*
manual.go - Manual override state machine for the billing schedule

PURPOSE:
  Billing figures sometimes need hand edits: a client negotiates a flat
  invoice, a month is pre-billed, a fee is waived. This file models that
  as an explicit two-state machine:

    Auto   - the schedule always derives from inputs (schedule.go)
    Manual - the schedule derives from a deep copy taken on entry, plus
             explicit edits; the auto schedule is never mutated

  The only transitions are EnterManualMode (Auto -> Manual) and Reset
  (Manual -> Auto). A manual edit is swapped in for persistence only
  after Validate accepts it against the campaign budget.

ROWS:
  Edits address rows: one media row per channel, the fee / ad-serving /
  production aggregate rows, and per-channel line-item breakdown rows
  generated once on entry for display and fine-grained editing.

PRE-BILL:
  Toggling pre-bill on a row snapshots its per-month distribution, then
  collapses the whole series into the first month so it can be invoiced
  early. Toggling off restores the snapshot exactly. The total is
  conserved in both directions.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BudgetTolerance is the absolute amount by which a manually edited
// grand total may differ from the campaign budget and still save.
var BudgetTolerance = decimal.NewFromInt(2)

// =============================================================================
// ROW ADDRESSING
// =============================================================================

type RowKind string

const (
	RowMedia      RowKind = "media"      // one channel's media row
	RowFee        RowKind = "fee"        // aggregate fee row
	RowAdServing  RowKind = "adserving"  // aggregate ad-serving row
	RowProduction RowKind = "production" // aggregate production row
	RowLineItem   RowKind = "line"       // one line-item breakdown row
)

// RowRef addresses one editable row of the manual schedule.
type RowRef struct {
	Kind    RowKind
	Channel Channel // RowMedia, RowLineItem
	Index   int     // RowLineItem: position within the channel's breakdown
}

func (r RowRef) key() string {
	switch r.Kind {
	case RowMedia:
		return fmt.Sprintf("media:%s", r.Channel)
	case RowLineItem:
		return fmt.Sprintf("line:%s:%d", r.Channel, r.Index)
	default:
		return string(r.Kind)
	}
}

// =============================================================================
// LINE-ITEM BREAKDOWN
// =============================================================================

// LineBreakdown is one line item's monthly series within a channel,
// shown and edited in manual mode.
type LineBreakdown struct {
	Header1 string                       `json:"header1"` // line item name
	Header2 string                       `json:"header2"` // burst date range
	Monthly map[MonthKey]decimal.Decimal `json:"monthlyAmounts"`
	Total   decimal.Decimal              `json:"totalAmount"`
}

func (lb *LineBreakdown) recalcTotal() {
	total := decimal.Zero
	for _, v := range lb.Monthly {
		total = total.Add(v)
	}
	lb.Total = total
}

// =============================================================================
// MANUAL STATE
// =============================================================================

// ManualState is the editable working copy of a billing schedule.
type ManualState struct {
	Months    Schedule
	LineItems map[Channel][]*LineBreakdown

	// preBill holds, per row key, the pre-toggle monthly distribution
	// so the toggle can be reversed exactly. One snapshot per row.
	preBill map[string]map[MonthKey]decimal.Decimal
}

// EnterManualMode deep-copies the auto billing schedule as the editable
// baseline and derives the line-item breakdown from the bursts. The
// breakdown is generated once: re-entering manual mode with an existing
// state keeps its breakdown (and its edits) untouched.
func EnterManualMode(auto Schedule, bursts []Burst, lattice []MonthBucket) *ManualState {
	state := &ManualState{
		Months:  auto.DeepCopy(),
		preBill: make(map[string]map[MonthKey]decimal.Decimal),
	}
	state.EnsureBreakdown(bursts, lattice)
	return state
}

// EnsureBreakdown generates the per-channel line-item breakdown if it
// does not exist yet. Idempotent: an existing breakdown is preserved so
// in-progress edits survive repeated entry.
func (s *ManualState) EnsureBreakdown(bursts []Burst, lattice []MonthBucket) {
	if s.LineItems != nil {
		return
	}
	s.LineItems = make(map[Channel][]*LineBreakdown)

	for _, b := range bursts {
		if !b.Valid() {
			continue
		}
		fractions := Distribute(b, lattice)
		if len(fractions) == 0 {
			continue
		}

		lb := &LineBreakdown{
			Header1: b.Label,
			Header2: b.Start.String() + " - " + b.End.String(),
			Monthly: make(map[MonthKey]decimal.Decimal, len(fractions)),
		}

		// Breakdown shows billing-mode media: zero when the client
		// pays for media directly.
		net := b.NetMedia()
		if b.ClientPaysForMedia {
			net = decimal.Zero
		}
		for key, fraction := range fractions {
			lb.Monthly[key] = net.Mul(fraction)
		}
		lb.recalcTotal()

		s.LineItems[b.Channel] = append(s.LineItems[b.Channel], lb)
	}
}

// =============================================================================
// CELL EDITS
// =============================================================================

// SetCell overwrites one cell and recomputes the month's media total
// and total amount from its constituent cells. The original auto
// schedule is never consulted.
func (s *ManualState) SetCell(month MonthKey, row RowRef, value decimal.Decimal) error {
	m := s.Months.Month(month)
	if m == nil {
		return ErrUnknownMonth
	}

	switch row.Kind {
	case RowFee:
		m.FeeTotal = value
	case RowAdServing:
		m.AdServingTotal = value
	case RowProduction:
		m.ProductionTotal = value
	case RowMedia:
		m.MediaCosts[row.Channel] = value
	case RowLineItem:
		lines := s.LineItems[row.Channel]
		if row.Index < 0 || row.Index >= len(lines) {
			return ErrUnknownRow
		}
		lines[row.Index].Monthly[month] = value
		lines[row.Index].recalcTotal()
		// The channel's media cell derives from its line items.
		m.MediaCosts[row.Channel] = s.lineItemMonthTotal(row.Channel, month)
	default:
		return ErrUnknownRow
	}

	m.recalc()
	return nil
}

func (s *ManualState) lineItemMonthTotal(c Channel, month MonthKey) decimal.Decimal {
	total := decimal.Zero
	for _, lb := range s.LineItems[c] {
		total = total.Add(lb.Monthly[month])
	}
	return total
}

// =============================================================================
// PRE-BILL TOGGLE
// =============================================================================

// TogglePreBill collapses a row's whole series into the first month
// (checked) or restores its saved distribution (unchecked). The row
// total is conserved in both directions. Disabling without a prior
// snapshot is a no-op guard.
func (s *ManualState) TogglePreBill(row RowRef, checked bool) {
	key := row.key()

	if checked {
		if _, exists := s.preBill[key]; exists {
			return // already pre-billed; keep the original snapshot
		}
		current := s.rowSeries(row)
		if current == nil {
			return
		}
		s.preBill[key] = current

		total := decimal.Zero
		for _, v := range current {
			total = total.Add(v)
		}
		for i := range s.Months {
			value := decimal.Zero
			if i == 0 {
				value = total
			}
			s.setRowCell(row, s.Months[i].Key, value)
		}
		return
	}

	saved, exists := s.preBill[key]
	if !exists {
		return
	}
	delete(s.preBill, key)
	for i := range s.Months {
		s.setRowCell(row, s.Months[i].Key, saved[s.Months[i].Key])
	}
}

// rowSeries captures a row's current per-month values. Nil when the row
// does not resolve.
func (s *ManualState) rowSeries(row RowRef) map[MonthKey]decimal.Decimal {
	series := make(map[MonthKey]decimal.Decimal, len(s.Months))
	for i := range s.Months {
		m := &s.Months[i]
		switch row.Kind {
		case RowFee:
			series[m.Key] = m.FeeTotal
		case RowAdServing:
			series[m.Key] = m.AdServingTotal
		case RowProduction:
			series[m.Key] = m.ProductionTotal
		case RowMedia:
			series[m.Key] = m.MediaCosts[row.Channel]
		case RowLineItem:
			lines := s.LineItems[row.Channel]
			if row.Index < 0 || row.Index >= len(lines) {
				return nil
			}
			series[m.Key] = lines[row.Index].Monthly[m.Key]
		default:
			return nil
		}
	}
	return series
}

// setRowCell writes one cell through SetCell so month totals stay
// consistent; errors cannot occur for rows rowSeries resolved.
func (s *ManualState) setRowCell(row RowRef, month MonthKey, value decimal.Decimal) {
	_ = s.SetCell(month, row, value)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the manual schedule's grand total against the
// campaign budget within BudgetTolerance. On failure the returned error
// carries the signed difference for display; the state is untouched so
// the caller can adjust and retry.
func (s *ManualState) Validate(campaignBudget decimal.Decimal) error {
	total := s.Months.GrandTotal()
	if WithinTolerance(total, campaignBudget, BudgetTolerance) {
		return nil
	}
	return &BudgetMismatchError{
		Budget:     campaignBudget,
		Total:      total,
		Difference: total.Sub(campaignBudget),
		Tolerance:  BudgetTolerance,
	}
}
