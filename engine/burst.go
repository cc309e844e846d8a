package engine

import "github.com/shopspring/decimal"

// =============================================================================
// BURST - One contiguous time-bounded spend allocation
// =============================================================================

// Channel identifies a media channel. The engine treats channels as
// opaque keys; the plan package defines the concrete channel set and
// the traits (rate class, production flag) the allocator consumes.
type Channel string

// BuyType describes how a burst's media was bought.
type BuyType string

const (
	BuyStandard BuyType = "standard"
	BuyCPM      BuyType = "cpm"
	BuyBonus    BuyType = "bonus"
)

// Burst is the canonical form of one spend allocation on one line item.
// All heterogeneous per-channel record shapes are normalized into this
// before the engine sees them (see normalize.go).
type Burst struct {
	LineItemID string
	Channel    Channel
	Label      string // display header, e.g. line item name

	Start Date // inclusive
	End   Date // inclusive

	// MediaAmount is the raw allocated figure. When BudgetIncludesFees
	// is set it is gross (fee embedded); otherwise it is net media and
	// any fee is added on top.
	MediaAmount        decimal.Decimal
	BuyType            BuyType
	FeePercentage      decimal.Decimal // 0-100
	BudgetIncludesFees bool
	ClientPaysForMedia bool
	NoAdServing        bool
	Deliverables       decimal.Decimal // impressions, spots, etc.
}

// Valid reports whether the burst can be scheduled. Invalid bursts
// contribute nothing; they are skipped with a warning, never an error.
func (b Burst) Valid() bool {
	return !b.Start.IsZero() && !b.End.IsZero() && b.Start.BeforeOrEqual(b.End)
}

// TotalDays is the inclusive day span of the burst.
func (b Burst) TotalDays() int { return DaysInclusive(b.Start, b.End) }

// NetMedia is the media component net of any embedded fee. With
// BudgetIncludesFees the stated amount is gross and the fee percentage
// is carved out; otherwise the stated amount already is net media.
func (b Burst) NetMedia() decimal.Decimal {
	if b.BudgetIncludesFees && b.FeePercentage.IsPositive() {
		return b.MediaAmount.Mul(hundred.Sub(b.FeePercentage)).Div(hundred)
	}
	return b.MediaAmount
}

// FeeAmount is the total fee over the whole burst. Exactly one of the
// two representations applies per burst, so fee is never counted twice:
// embedded fee is the gross-net remainder, added-on fee is a percentage
// on top of net media. The explicit per-burst percentage is
// authoritative; a burst without one carries no fee.
func (b Burst) FeeAmount() decimal.Decimal {
	if !b.FeePercentage.IsPositive() {
		return decimal.Zero
	}
	if b.BudgetIncludesFees {
		return b.MediaAmount.Sub(b.NetMedia())
	}
	return b.MediaAmount.Mul(b.FeePercentage).Div(hundred)
}
