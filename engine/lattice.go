package engine

// =============================================================================
// MONTH LATTICE - Ordered calendar-month buckets spanned by a campaign
// =============================================================================

// MonthKey is the stable, human-readable label for one calendar month,
// e.g. "March 2025". It is generated only here and treated as an opaque
// map key everywhere else; nothing outside the lattice builder parses it
// back into a date.
type MonthKey string

const monthKeyLayout = "January 2006"

// MonthBucket is one calendar month within the campaign span.
type MonthBucket struct {
	Key   MonthKey
	Start Date // first day of the month
	End   Date // last day of the month
}

// BuildLattice returns one bucket per calendar month from start's month
// through end's month inclusive, in chronological order. A missing date
// or end before start yields an empty lattice; campaigns without dates
// simply have nothing to schedule, which is not an error.
func BuildLattice(start, end Date) []MonthBucket {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil
	}

	var buckets []MonthBucket
	current := StartOfMonth(start.Year(), start.Month())
	last := StartOfMonth(end.Year(), end.Month())

	for current.BeforeOrEqual(last) {
		buckets = append(buckets, MonthBucket{
			Key:   MonthKey(current.Time.Format(monthKeyLayout)),
			Start: current,
			End:   EndOfMonth(current.Year(), current.Month()),
		})
		current = current.AddMonths(1)
	}
	return buckets
}

// Keys returns the lattice's month keys in order.
func Keys(lattice []MonthBucket) []MonthKey {
	keys := make([]MonthKey, len(lattice))
	for i, b := range lattice {
		keys[i] = b.Key
	}
	return keys
}
