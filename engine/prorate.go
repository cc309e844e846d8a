package engine

import "github.com/shopspring/decimal"

// =============================================================================
// PRORATION - Day-weighted distribution of one burst across month buckets
// =============================================================================
//
// The single most important correctness property of the engine lives
// here: money and deliverables are conserved. A burst's fractions across
// every bucket it overlaps sum to exactly 1 (within decimal division
// precision), so nothing distributed ever exceeds the input amount.

// Fractions maps each overlapped month to the share of the burst that
// falls inside it.
type Fractions map[MonthKey]decimal.Decimal

// Distribute computes the per-month fractions for a burst over the
// campaign lattice. A burst with invalid dates or a non-positive day
// span returns nil and is thereby skipped silently.
func Distribute(b Burst, lattice []MonthBucket) Fractions {
	totalDays := b.TotalDays()
	if totalDays <= 0 {
		return nil
	}

	total := decimal.NewFromInt(int64(totalDays))
	fractions := make(Fractions)

	for _, bucket := range lattice {
		// Intersect [burst.Start, burst.End] with [bucket.Start, bucket.End].
		sliceStart := MaxDate(b.Start, bucket.Start)
		sliceEnd := MinDate(b.End, bucket.End)

		days := DaysInclusive(sliceStart, sliceEnd)
		if days <= 0 {
			continue
		}
		fractions[bucket.Key] = decimal.NewFromInt(int64(days)).Div(total)
	}
	return fractions
}

// Sum adds all fractions. For a burst fully covered by the lattice this
// is 1 within division precision.
func (f Fractions) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, frac := range f {
		sum = sum.Add(frac)
	}
	return sum
}
