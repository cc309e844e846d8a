/*
spec_test.go - Executable specification for the schedule engine

PURPOSE:
  Each test documents one guaranteed behavior of the engine and
  validates it end to end. These are the properties downstream
  consumers (invoicing documents, delivery reports) rely on:

  1. Conservation   - distributed money equals the input amount
  2. Idempotence    - identical inputs yield identical output
  3. Delivery invariance under billing mode
  4. Pre-bill round trip
  5. Snapshot stability
  6. Budget tolerance boundary

READING THESE TESTS:
  Each test has GIVEN/WHEN/THEN comments explaining the scenario and
  assertions with explanatory messages. They are intentionally verbose.
*/
package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwell/billing-engine/engine"
	"github.com/planwell/billing-engine/engine/store"
)

var moneyTolerance = engine.MustMoney("0.000001")

// =============================================================================
// 1. CONSERVATION
// =============================================================================

func TestSpec_Conservation_DistributedMoneyEqualsInput(t *testing.T) {
	// GIVEN: a single $3100 burst spanning Jan 16 - Feb 14 (30 days)
	// WHEN: distributed across the Jan and Feb buckets
	// THEN: Jan gets 3100*16/30 = 1653.33, Feb gets 3100*14/30 = 1446.67,
	//       and the two sum back to exactly $3100.00

	b := standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "3100")

	schedules, warnings := engine.ComputeSchedules(
		[]engine.Burst{b},
		date(2025, time.January, 1), date(2025, time.February, 28),
		testAllocationInput(),
	)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	jan := schedules.Billing.Month("January 2025").MediaCosts[b.Channel]
	feb := schedules.Billing.Month("February 2025").MediaCosts[b.Channel]

	if engine.Display(jan) != 1653.33 {
		t.Errorf("January media = %.2f, want 1653.33", engine.Display(jan))
	}
	if engine.Display(feb) != 1446.67 {
		t.Errorf("February media = %.2f, want 1446.67", engine.Display(feb))
	}

	total := jan.Add(feb)
	if total.Sub(engine.MustMoney("3100")).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("distributed total = %s, want 3100: money must be conserved", total)
	}
}

func TestSpec_Conservation_DeliverablesFollowFractions(t *testing.T) {
	// GIVEN: a CPM burst with 3,000,000 impressions over three months
	// THEN: the ad-serving cost equals pricing the full count once
	b := standardBurst(date(2025, time.February, 1), date(2025, time.April, 30), "0")
	b.BuyType = engine.BuyCPM
	b.Deliverables = decimal.NewFromInt(3000000)

	lattice := engine.BuildLattice(b.Start, b.End)
	shares := engine.Allocate(b, engine.Distribute(b, lattice), testAllocationInput())

	total := sumShares(shares, func(s engine.MonthShare) decimal.Decimal { return s.AdServing })
	want := engine.MustMoney("900") // 3,000,000 / 1000 * 0.30
	if total.Sub(want).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("ad serving across months = %s, want %s", total, want)
	}
}

// =============================================================================
// 2. IDEMPOTENCE
// =============================================================================

func TestSpec_Idempotence_RecomputeYieldsEqualOutput(t *testing.T) {
	// GIVEN: a mixed set of bursts
	// WHEN: computing schedules twice with identical inputs
	// THEN: every figure is exactly numerically equal

	bursts := []engine.Burst{
		standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "3100"),
		func() engine.Burst {
			b := standardBurst(date(2025, time.January, 1), date(2025, time.March, 31), "9000")
			b.Channel = "online_video"
			b.FeePercentage = engine.MustMoney("12.5")
			b.BudgetIncludesFees = true
			b.Deliverables = decimal.NewFromInt(500000)
			return b
		}(),
	}
	start, end := date(2025, time.January, 1), date(2025, time.March, 31)

	first, _ := engine.ComputeSchedules(bursts, start, end, testAllocationInput())
	second, _ := engine.ComputeSchedules(bursts, start, end, testAllocationInput())

	for i := range first.Billing {
		a, b := first.Billing[i], second.Billing[i]
		if !a.TotalAmount.Equal(b.TotalAmount) || !a.FeeTotal.Equal(b.FeeTotal) ||
			!a.AdServingTotal.Equal(b.AdServingTotal) {
			t.Errorf("month %s: runs differ", a.Key)
		}
		for channel, cost := range a.MediaCosts {
			if !cost.Equal(b.MediaCosts[channel]) {
				t.Errorf("month %s channel %s: %s vs %s", a.Key, channel, cost, b.MediaCosts[channel])
			}
		}
	}
}

// =============================================================================
// 3. DELIVERY INVARIANCE UNDER BILLING MODE
// =============================================================================

func TestSpec_ClientPaysForMedia_DeliveryUnchangedBillingZero(t *testing.T) {
	// GIVEN: the $3100 Jan-Feb burst with clientPaysForMedia set
	// THEN: billing media is $0 both months, delivery is 1653.33/1446.67

	b := standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "3100")
	b.ClientPaysForMedia = true

	schedules, _ := engine.ComputeSchedules(
		[]engine.Burst{b},
		date(2025, time.January, 1), date(2025, time.February, 28),
		testAllocationInput(),
	)

	for _, key := range []engine.MonthKey{"January 2025", "February 2025"} {
		if got := schedules.Billing.Month(key).MediaCosts[b.Channel]; !got.IsZero() {
			t.Errorf("billing %s media = %s, want 0", key, got)
		}
	}
	if got := engine.Display(schedules.Delivery.Month("January 2025").MediaCosts[b.Channel]); got != 1653.33 {
		t.Errorf("delivery January media = %.2f, want 1653.33", got)
	}
	if got := engine.Display(schedules.Delivery.Month("February 2025").MediaCosts[b.Channel]); got != 1446.67 {
		t.Errorf("delivery February media = %.2f, want 1446.67", got)
	}
}

// =============================================================================
// 4. PRE-BILL ROUND TRIP
// =============================================================================

func TestSpec_PreBill_ToggleOnThenOffRestoresDistribution(t *testing.T) {
	// GIVEN: manual mode over a three-month fee series
	// WHEN: pre-bill is toggled on then off
	// THEN: the original per-month values are restored exactly

	b := standardBurst(date(2025, time.January, 1), date(2025, time.March, 31), "3000")
	b.FeePercentage = engine.MustMoney("10")

	start, end := date(2025, time.January, 1), date(2025, time.March, 31)
	lattice := engine.BuildLattice(start, end)
	schedules, _ := engine.ComputeSchedules([]engine.Burst{b}, start, end, testAllocationInput())

	state := engine.EnterManualMode(schedules.Billing, []engine.Burst{b}, lattice)

	original := make(map[engine.MonthKey]decimal.Decimal)
	for _, m := range state.Months {
		original[m.Key] = m.FeeTotal
	}
	feeTotal := state.Months.GrandTotal()

	row := engine.RowRef{Kind: engine.RowFee}
	state.TogglePreBill(row, true)

	// Collapsed: everything in the first month, total conserved.
	if got := state.Months[0].FeeTotal; got.Sub(engine.MustMoney("300")).Abs().GreaterThan(moneyTolerance) {
		t.Errorf("first month fee after pre-bill = %s, want 300", got)
	}
	for i := 1; i < len(state.Months); i++ {
		if !state.Months[i].FeeTotal.IsZero() {
			t.Errorf("month %s fee = %s, want 0 after pre-bill", state.Months[i].Key, state.Months[i].FeeTotal)
		}
	}
	if !state.Months.GrandTotal().Equal(feeTotal) {
		t.Errorf("grand total changed across pre-bill: %s vs %s", state.Months.GrandTotal(), feeTotal)
	}

	state.TogglePreBill(row, false)

	for _, m := range state.Months {
		if !m.FeeTotal.Equal(original[m.Key]) {
			t.Errorf("month %s fee = %s after round trip, want %s", m.Key, m.FeeTotal, original[m.Key])
		}
	}
}

func TestSpec_PreBill_DisableWithoutSnapshot_NoOp(t *testing.T) {
	// Toggling off with no prior snapshot must never crash or change state.
	b := standardBurst(date(2025, time.January, 1), date(2025, time.February, 28), "1000")
	start, end := date(2025, time.January, 1), date(2025, time.February, 28)
	lattice := engine.BuildLattice(start, end)
	schedules, _ := engine.ComputeSchedules([]engine.Burst{b}, start, end, testAllocationInput())

	state := engine.EnterManualMode(schedules.Billing, []engine.Burst{b}, lattice)
	before := state.Months.GrandTotal()

	state.TogglePreBill(engine.RowRef{Kind: engine.RowMedia, Channel: b.Channel}, false)

	if !state.Months.GrandTotal().Equal(before) {
		t.Error("no-op toggle changed the schedule")
	}
}

// =============================================================================
// 5. SNAPSHOT STABILITY
// =============================================================================

func TestSpec_Snapshot_StableAcrossRecomputes(t *testing.T) {
	// GIVEN: a planner with a snapshot store, delivery captured for key K
	// WHEN: bursts change and schedules are recomputed under the same key
	// THEN: the delivery read still returns the first captured value

	planner := engine.NewPlanner(testAllocationInput(), store.NewMemory())
	start, end := date(2025, time.January, 1), date(2025, time.February, 28)

	first := standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "3100")
	planner.Recompute("plan-1", []engine.Burst{first}, start, end)

	captured := planner.Delivery().GrandTotal()

	changed := standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "9999")
	planner.Recompute("plan-1", []engine.Burst{changed}, start, end)

	if !planner.Delivery().GrandTotal().Equal(captured) {
		t.Errorf("delivery moved after recompute: %s, want frozen %s",
			planner.Delivery().GrandTotal(), captured)
	}
	// Billing is live and does move.
	if planner.Billing().GrandTotal().Equal(captured) {
		t.Error("billing should reflect the recomputed bursts")
	}
}

func TestSpec_Snapshot_KeyChangeProducesNewSnapshot(t *testing.T) {
	// Changing the campaign dates is a new identity: the old snapshot is
	// dropped and the next computation is captured fresh.
	planner := engine.NewPlanner(testAllocationInput(), store.NewMemory())

	b := standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "3100")
	planner.Recompute("plan-1", []engine.Burst{b}, date(2025, time.January, 1), date(2025, time.February, 28))
	old := planner.Delivery().GrandTotal()

	changed := standardBurst(date(2025, time.January, 16), date(2025, time.February, 14), "5000")
	planner.Recompute("plan-1", []engine.Burst{changed}, date(2025, time.January, 1), date(2025, time.March, 31))

	if planner.Delivery().GrandTotal().Equal(old) {
		t.Error("date change must re-baseline the delivery snapshot")
	}
	if !planner.Delivery().GrandTotal().Equal(engine.MustMoney("5000")) {
		t.Errorf("new snapshot total = %s, want 5000", planner.Delivery().GrandTotal())
	}
}

// =============================================================================
// 6. BUDGET TOLERANCE BOUNDARY
// =============================================================================

func TestSpec_BudgetTolerance_TwoDollarsPassesTwoOhOneFails(t *testing.T) {
	b := standardBurst(date(2025, time.January, 1), date(2025, time.January, 31), "1000")
	start, end := date(2025, time.January, 1), date(2025, time.January, 31)
	lattice := engine.BuildLattice(start, end)
	schedules, _ := engine.ComputeSchedules([]engine.Burst{b}, start, end, testAllocationInput())

	state := engine.EnterManualMode(schedules.Billing, []engine.Burst{b}, lattice)

	cases := []struct {
		name   string
		budget string
		ok     bool
		diff   string // signed total - budget on failure
	}{
		{"exact", "1000.00", true, ""},
		{"under by 2.00", "1002.00", true, ""},
		{"over by 2.00", "998.00", true, ""},
		{"under by 2.01", "1002.01", false, "-2.01"},
		{"over by 2.01", "997.99", false, "2.01"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := state.Validate(engine.MustMoney(tc.budget))
			if tc.ok {
				if err != nil {
					t.Fatalf("expected save to validate, got %v", err)
				}
				return
			}
			mismatch, isMismatch := err.(*engine.BudgetMismatchError)
			if !isMismatch {
				t.Fatalf("expected BudgetMismatchError, got %v", err)
			}
			if !mismatch.Difference.Equal(engine.MustMoney(tc.diff)) {
				t.Errorf("difference = %s, want %s", mismatch.Difference, tc.diff)
			}
		})
	}
}
