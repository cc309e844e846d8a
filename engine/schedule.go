/*
schedule.go - Aggregation into the billing and delivery schedules

PURPOSE:
  Folds every burst's per-month allocation into two parallel
  month-bucketed schedules. The two schedules are independent instances
  over the same source data: billing reflects what will be invoiced,
  delivery reflects what media ran. They diverge only where per-burst
  billing rules (client pays for media) zero a billing contribution.

LIFECYCLE:
  Both schedules are created fresh on every recompute. Manual edits
  never touch these instances; they operate on a deep copy (manual.go)
  swapped in only on explicit save.

PRECISION:
  All accumulation happens at full decimal precision. Rounding to cents
  is a display concern (money.go Display), applied at DTO boundaries so
  per-burst rounding error cannot compound across many small bursts.
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// SCHEDULE MONTH - Aggregated result for one month bucket
// =============================================================================

// ScheduleMonth holds the aggregated figures for one calendar month.
type ScheduleMonth struct {
	Key             MonthKey                    `json:"monthYear"`
	MediaCosts      map[Channel]decimal.Decimal `json:"mediaCosts"`
	FeeTotal        decimal.Decimal             `json:"feeTotal"`
	AdServingTotal  decimal.Decimal             `json:"adServingTotal"`
	ProductionTotal decimal.Decimal             `json:"productionTotal"`
	TotalAmount     decimal.Decimal             `json:"totalAmount"`
}

func newScheduleMonth(key MonthKey) ScheduleMonth {
	return ScheduleMonth{
		Key:        key,
		MediaCosts: make(map[Channel]decimal.Decimal),
	}
}

// MediaTotal sums the per-channel media costs. Production is excluded
// by construction: it never enters MediaCosts.
func (m *ScheduleMonth) MediaTotal() decimal.Decimal {
	total := decimal.Zero
	for _, v := range m.MediaCosts {
		total = total.Add(v)
	}
	return total
}

// recalc recomputes TotalAmount from the month's constituent cells.
func (m *ScheduleMonth) recalc() {
	m.TotalAmount = m.MediaTotal().
		Add(m.FeeTotal).
		Add(m.AdServingTotal).
		Add(m.ProductionTotal)
}

func (m *ScheduleMonth) addShare(channel Channel, share MonthShare, billing bool) {
	media := share.Media
	if billing {
		media = share.BillableMedia
	}
	if !media.IsZero() || !share.Media.IsZero() {
		m.MediaCosts[channel] = m.MediaCosts[channel].Add(media)
	}
	m.FeeTotal = m.FeeTotal.Add(share.Fee)
	m.AdServingTotal = m.AdServingTotal.Add(share.AdServing)
	m.ProductionTotal = m.ProductionTotal.Add(share.Production)
}

// deepCopy returns an independent copy of the month.
func (m ScheduleMonth) deepCopy() ScheduleMonth {
	costs := make(map[Channel]decimal.Decimal, len(m.MediaCosts))
	for k, v := range m.MediaCosts {
		costs[k] = v
	}
	copied := m
	copied.MediaCosts = costs
	return copied
}

// =============================================================================
// SCHEDULE - Ordered months plus campaign-wide views
// =============================================================================

// Schedule is the month-bucketed result for one mode (billing or
// delivery), ordered chronologically.
type Schedule []ScheduleMonth

// Month returns a pointer to the named month, or nil.
func (s Schedule) Month(key MonthKey) *ScheduleMonth {
	for i := range s {
		if s[i].Key == key {
			return &s[i]
		}
	}
	return nil
}

// GrandTotal is the sum of every month's TotalAmount.
func (s Schedule) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range s {
		total = total.Add(s[i].TotalAmount)
	}
	return total
}

// ChannelTotal sums one channel's media costs across all months.
func (s Schedule) ChannelTotal(c Channel) decimal.Decimal {
	total := decimal.Zero
	for i := range s {
		total = total.Add(s[i].MediaCosts[c])
	}
	return total
}

// Channels returns every channel that appears in the schedule.
func (s Schedule) Channels() []Channel {
	seen := make(map[Channel]bool)
	var channels []Channel
	for i := range s {
		for c := range s[i].MediaCosts {
			if !seen[c] {
				seen[c] = true
				channels = append(channels, c)
			}
		}
	}
	return channels
}

// DeepCopy returns a fully independent copy of the schedule.
func (s Schedule) DeepCopy() Schedule {
	copied := make(Schedule, len(s))
	for i := range s {
		copied[i] = s[i].deepCopy()
	}
	return copied
}

// Schedules pairs the two derived views of one campaign's bursts.
type Schedules struct {
	Billing  Schedule `json:"billing"`
	Delivery Schedule `json:"delivery"`
}

// =============================================================================
// AGGREGATION
// =============================================================================

// ComputeSchedules builds both schedules from scratch. It is a pure
// function of its inputs: identical inputs yield identical output, and
// re-running it any number of times is safe. Bursts that cannot be
// scheduled are skipped and reported as warnings.
func ComputeSchedules(bursts []Burst, campaignStart, campaignEnd Date, in AllocationInput) (Schedules, []Warning) {
	lattice := BuildLattice(campaignStart, campaignEnd)

	billing := make(Schedule, len(lattice))
	delivery := make(Schedule, len(lattice))
	for i, bucket := range lattice {
		billing[i] = newScheduleMonth(bucket.Key)
		delivery[i] = newScheduleMonth(bucket.Key)
	}

	var warnings []Warning
	for _, b := range bursts {
		if !b.Valid() {
			warnings = append(warnings, Warning{
				LineItemID: b.LineItemID,
				Field:      "dates",
				Message:    "burst skipped: missing or inverted dates",
			})
			continue
		}

		shares := Allocate(b, Distribute(b, lattice), in)
		for key, share := range shares {
			if m := billing.Month(key); m != nil {
				m.addShare(b.Channel, share, true)
			}
			if m := delivery.Month(key); m != nil {
				m.addShare(b.Channel, share, false)
			}
		}
	}

	for i := range billing {
		billing[i].recalc()
		delivery[i].recalc()
	}

	return Schedules{Billing: billing, Delivery: delivery}, warnings
}
