package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PARTIAL INVOICE (Partial MBA) - Reduced totals over a month/channel subset
// =============================================================================
//
// A partial invoice covers a caller-selected subset of months and
// channels, recomputed from the delivery schedule (the frozen snapshot
// when one exists). Nothing is cached between calls: disabling a
// channel zeroes its contribution, re-enabling recomputes it fresh, and
// two calls with identical inputs yield identical output.

// PartialInvoice holds the reduced headline totals.
type PartialInvoice struct {
	// MediaTotals holds, per enabled channel, that channel's media
	// costs summed over exactly the selected months.
	MediaTotals map[Channel]decimal.Decimal `json:"mediaTotals"`

	// GrossMedia is the sum of all enabled channels' media totals.
	GrossMedia decimal.Decimal `json:"grossMedia"`

	// Fee, ad-serving and production sum over the selected months and
	// are unaffected by channel toggles.
	AssembledFee decimal.Decimal `json:"assembledFee"`
	AdServing    decimal.Decimal `json:"adServing"`
	Production   decimal.Decimal `json:"production"`

	// The selection that produced these figures.
	Months   []MonthKey       `json:"months"`
	Channels map[Channel]bool `json:"channels"`
}

// ComputePartialInvoice derives the partial totals from the delivery
// schedule. months selects the buckets; enabled maps channels to their
// toggle state (a channel absent from the map counts as disabled, so
// callers pass the full toggle set).
func ComputePartialInvoice(delivery Schedule, months []MonthKey, enabled map[Channel]bool) PartialInvoice {
	selected := make(map[MonthKey]bool, len(months))
	for _, key := range months {
		selected[key] = true
	}

	result := PartialInvoice{
		MediaTotals: make(map[Channel]decimal.Decimal),
		Months:      append([]MonthKey(nil), months...),
		Channels:    copyToggles(enabled),
	}

	for i := range delivery {
		m := &delivery[i]
		if !selected[m.Key] {
			continue
		}

		for channel, cost := range m.MediaCosts {
			if !enabled[channel] {
				continue
			}
			result.MediaTotals[channel] = result.MediaTotals[channel].Add(cost)
		}

		result.AssembledFee = result.AssembledFee.Add(m.FeeTotal)
		result.AdServing = result.AdServing.Add(m.AdServingTotal)
		result.Production = result.Production.Add(m.ProductionTotal)
	}

	for _, total := range result.MediaTotals {
		result.GrossMedia = result.GrossMedia.Add(total)
	}
	return result
}

func copyToggles(enabled map[Channel]bool) map[Channel]bool {
	copied := make(map[Channel]bool, len(enabled))
	for c, on := range enabled {
		copied[c] = on
	}
	return copied
}
