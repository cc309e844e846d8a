package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwell/billing-engine/engine"
)

func partialFixture() engine.Schedule {
	display := standardBurst(date(2025, time.January, 1), date(2025, time.March, 31), "9000")
	display.FeePercentage = engine.MustMoney("10")

	video := standardBurst(date(2025, time.January, 1), date(2025, time.March, 31), "4500")
	video.Channel = "online_video"

	production := standardBurst(date(2025, time.January, 1), date(2025, time.March, 31), "900")
	production.Channel = "production"

	schedules, _ := engine.ComputeSchedules(
		[]engine.Burst{display, video, production},
		date(2025, time.January, 1), date(2025, time.March, 31),
		testAllocationInput(),
	)
	return schedules.Delivery
}

func allOn() map[engine.Channel]bool {
	return map[engine.Channel]bool{"digital_display": true, "online_video": true}
}

func TestPartialInvoice_SelectedMonthsOnly(t *testing.T) {
	delivery := partialFixture()

	// Jan + Feb out of a 90-day quarter: 59/90 of each series.
	result := engine.ComputePartialInvoice(delivery, []engine.MonthKey{"January 2025", "February 2025"}, allOn())

	fiftyNineNinetieths := decimal.NewFromInt(59).Div(decimal.NewFromInt(90))
	wantDisplay := engine.MustMoney("9000").Mul(fiftyNineNinetieths)
	got := result.MediaTotals["digital_display"]
	if got.Sub(wantDisplay).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("display total = %s, want %s", got, wantDisplay)
	}

	wantGross := wantDisplay.Add(engine.MustMoney("4500").Mul(fiftyNineNinetieths))
	if result.GrossMedia.Sub(wantGross).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("gross media = %s, want %s", result.GrossMedia, wantGross)
	}

	wantFee := engine.MustMoney("900").Mul(fiftyNineNinetieths)
	if result.AssembledFee.Sub(wantFee).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("fee = %s, want %s", result.AssembledFee, wantFee)
	}
	wantProduction := engine.MustMoney("900").Mul(fiftyNineNinetieths)
	if result.Production.Sub(wantProduction).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("production = %s, want %s", result.Production, wantProduction)
	}
}

func TestPartialInvoice_DisabledChannel_ZeroedWithoutAffectingOthers(t *testing.T) {
	delivery := partialFixture()
	months := []engine.MonthKey{"January 2025", "February 2025", "March 2025"}

	toggles := allOn()
	toggles["online_video"] = false
	result := engine.ComputePartialInvoice(delivery, months, toggles)

	if _, present := result.MediaTotals["online_video"]; present {
		t.Error("disabled channel must not appear in media totals")
	}
	if !result.MediaTotals["digital_display"].Sub(engine.MustMoney("9000")).Abs().LessThan(moneyTolerance) {
		t.Errorf("display total = %s, want 9000 untouched", result.MediaTotals["digital_display"])
	}
	if !result.GrossMedia.Sub(engine.MustMoney("9000")).Abs().LessThan(moneyTolerance) {
		t.Errorf("gross media = %s, want 9000 with video disabled", result.GrossMedia)
	}

	// Fee, ad serving, production ignore channel toggles.
	if !result.AssembledFee.Sub(engine.MustMoney("900")).Abs().LessThan(moneyTolerance) {
		t.Errorf("fee = %s, want 900 regardless of toggles", result.AssembledFee)
	}
}

func TestPartialInvoice_ReEnable_RecomputesFreshAndIdempotent(t *testing.T) {
	delivery := partialFixture()
	months := []engine.MonthKey{"January 2025"}

	full := engine.ComputePartialInvoice(delivery, months, allOn())

	toggles := allOn()
	toggles["online_video"] = false
	_ = engine.ComputePartialInvoice(delivery, months, toggles)

	// Re-enable: the channel's figure must come fresh from the delivery
	// schedule, not from anything cached by the disable.
	reEnabled := engine.ComputePartialInvoice(delivery, months, allOn())

	if !reEnabled.GrossMedia.Equal(full.GrossMedia) {
		t.Errorf("re-enabled gross = %s, want %s", reEnabled.GrossMedia, full.GrossMedia)
	}
	for channel, total := range full.MediaTotals {
		if !reEnabled.MediaTotals[channel].Equal(total) {
			t.Errorf("channel %s = %s after re-enable, want %s", channel, reEnabled.MediaTotals[channel], total)
		}
	}

	// And twice with identical inputs is byte-for-byte equal figures.
	again := engine.ComputePartialInvoice(delivery, months, allOn())
	if !again.GrossMedia.Equal(reEnabled.GrossMedia) {
		t.Error("identical inputs must yield identical output")
	}
}
