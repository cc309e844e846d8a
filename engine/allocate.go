/*
allocate.go - Cost component split per burst per month

PURPOSE:
  On top of the prorated fractions, splits each burst's monthly
  contribution into media, fee, ad-serving and production components.
  The split depends on per-burst rules (fee representation, who pays for
  media, buy type) and per-channel rules (rate class, production flag),
  supplied as lookup data by the caller.

COMPONENT RULES:
  Media:      net-of-embedded-fee amount, weighted by fraction. Billing
              mode zeroes it when the client pays for media directly;
              delivery mode always reflects actual media.
  Fee:        embedded (gross - net) or added-on (net * pct), never both.
              Fees are always billed, so fee is identical in both modes.
  Ad-serving: channel-class rate from the rate table. CPM buys, and
              bonus buys on audio-class channels, price per 1000
              deliverables; everything else prices per deliverable.
              Bonus/CPM on the digital-audio channel always uses the
              audio rate. A missing rate is a zero rate, not a failure.
  Production: production/consulting bursts accumulate into a dedicated
              per-month production total instead of media costs.
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// RATE TABLE AND CHANNEL TRAITS - Caller-supplied lookup data
// =============================================================================

// RateClass selects which ad-serving rate applies to a channel.
type RateClass string

const (
	RateImpression RateClass = "impression"
	RateVideo      RateClass = "video"
	RateAudio      RateClass = "audio"
	RateDisplay    RateClass = "display"
)

// RateTable maps rate classes to ad-serving unit rates.
type RateTable map[RateClass]decimal.Decimal

// rate looks up a class, defaulting to zero so one missing rate cannot
// block the whole schedule.
func (t RateTable) rate(class RateClass) decimal.Decimal {
	if t == nil {
		return decimal.Zero
	}
	return t[class]
}

// ChannelTraits carries the per-channel rules the allocator needs. The
// plan package defines the traits for the concrete channel set.
type ChannelTraits struct {
	RateClass    RateClass
	DigitalAudio bool // the digital-audio channel has a special rate rule
	Production   bool // production/consulting work, not media
}

// AllocationInput bundles the lookup data for one computation.
type AllocationInput struct {
	Rates  RateTable
	Traits map[Channel]ChannelTraits
}

func (in AllocationInput) traits(c Channel) ChannelTraits {
	if in.Traits == nil {
		return ChannelTraits{RateClass: RateImpression}
	}
	return in.Traits[c]
}

// =============================================================================
// MONTH SHARE - One burst's components in one month
// =============================================================================

// MonthShare is the allocated contribution of one burst to one month.
// Media is the delivery-mode figure; BillableMedia is the billing-mode
// figure (zero when the client pays for media directly).
type MonthShare struct {
	Media         decimal.Decimal
	BillableMedia decimal.Decimal
	Fee           decimal.Decimal
	AdServing     decimal.Decimal
	Production    decimal.Decimal
}

// Allocate splits a burst's contribution across the months it overlaps.
// Returns nil for bursts that cannot be distributed (invalid dates).
func Allocate(b Burst, fractions Fractions, in AllocationInput) map[MonthKey]MonthShare {
	if len(fractions) == 0 {
		return nil
	}

	traits := in.traits(b.Channel)
	netMedia := b.NetMedia()
	feeTotal := b.FeeAmount()

	shares := make(map[MonthKey]MonthShare, len(fractions))
	for key, fraction := range fractions {
		var share MonthShare

		if traits.Production {
			// Production work never enters media costs; it rides the
			// grand total through its own row.
			share.Production = netMedia.Mul(fraction)
		} else {
			share.Media = netMedia.Mul(fraction)
			if !b.ClientPaysForMedia {
				share.BillableMedia = share.Media
			}
		}

		share.Fee = feeTotal.Mul(fraction)
		share.AdServing = adServingCost(b, fraction, traits, in.Rates)

		shares[key] = share
	}
	return shares
}

// adServingCost prices the ad-serving component of one month slice.
func adServingCost(b Burst, fraction decimal.Decimal, traits ChannelTraits, rates RateTable) decimal.Decimal {
	if b.NoAdServing || b.Deliverables.IsZero() {
		return decimal.Zero
	}

	class := traits.RateClass
	perThousand := b.BuyType == BuyCPM || (b.BuyType == BuyBonus && class == RateAudio)

	// Digital audio: bonus and CPM buys always price on the audio rate,
	// whatever class the channel would otherwise resolve to.
	if traits.DigitalAudio && (b.BuyType == BuyBonus || b.BuyType == BuyCPM) {
		class = RateAudio
		perThousand = true
	}

	units := b.Deliverables.Mul(fraction)
	if perThousand {
		units = units.Div(thousand)
	}
	return units.Mul(rates.rate(class))
}
