/*
sqlite_test.go - Persistence round-trip tests

Every test runs against a fresh in-memory database, the same engine the
server runs in production save for the file path.
*/
package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/planwell/billing-engine/engine"
	"github.com/planwell/billing-engine/plan"
)

func mediaCosts(channel, amount string) map[engine.Channel]decimal.Decimal {
	return map[engine.Channel]decimal.Decimal{
		engine.Channel(channel): engine.MustMoney(amount),
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testCampaign() *plan.Campaign {
	return plan.NewCampaign(
		"Acme Beverages", "Summer Launch",
		engine.NewDate(2025, time.January, 16), engine.NewDate(2025, time.February, 14),
		engine.MustMoney("3410"),
	)
}

func TestCampaign_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN: a saved campaign
	c := testCampaign()
	if err := store.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	// WHEN: loading it back
	got, err := store.GetCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// THEN: identity, dates and budget survive intact
	if got.Client != "Acme Beverages" || got.Name != "Summer Launch" {
		t.Errorf("identity = %q / %q", got.Client, got.Name)
	}
	if !got.Start.Equal(c.Start) || !got.End.Equal(c.End) {
		t.Errorf("dates = %s..%s, want %s..%s", got.Start, got.End, c.Start, c.End)
	}
	if !got.Budget.Equal(engine.MustMoney("3410")) {
		t.Errorf("budget = %s, want 3410", got.Budget)
	}
	if got.PlanVersion != 1 {
		t.Errorf("plan version = %d, want 1", got.PlanVersion)
	}
}

func TestCampaign_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCampaign(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	err = store.UpdateCampaign(context.Background(), testCampaign())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update err = %v, want ErrNotFound", err)
	}
}

func TestLineItems_RecordsSurviveVerbatim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCampaign()
	if err := store.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	// GIVEN: a line item whose record uses legacy key spellings
	li := plan.NewLineItem("metro_radio", "Radio burst")
	li.AddRecord(engine.RawRecord{
		"burst_start": "16/01/2025",
		"burst_end":   "14/02/2025",
		"budget":      "$3,100.00",
	})
	if err := store.AddLineItem(ctx, c.ID, li); err != nil {
		t.Fatalf("add line item: %v", err)
	}

	// WHEN: loading the campaign
	got, err := store.GetCampaign(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// THEN: the raw record comes back with its original keys, so the
	// normalizer, not the store, owns interpretation
	if len(got.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1", len(got.LineItems))
	}
	rec := got.LineItems[0].Records[0]
	if rec["budget"] != "$3,100.00" {
		t.Errorf("budget value = %v, want the verbatim string", rec["budget"])
	}

	// AND: the records normalize into a usable burst
	bursts, warnings := got.LineItems[0].Bursts()
	if len(warnings) != 0 {
		t.Fatalf("warnings: %v", warnings)
	}
	if len(bursts) != 1 || !bursts[0].MediaAmount.Equal(engine.MustMoney("3100")) {
		t.Errorf("bursts = %+v, want one 3100 burst", bursts)
	}
}

func TestSnapshots_FirstWriteWinsAcrossConnections(t *testing.T) {
	store := newTestStore(t)

	key := engine.SnapshotKey{
		PlanID:        "plan-1:1",
		CampaignStart: engine.NewDate(2025, time.January, 1),
		CampaignEnd:   engine.NewDate(2025, time.January, 31),
	}
	months := engine.Schedule{{
		Key:         "January 2025",
		MediaCosts:  mediaCosts("digital_display", "1000"),
		TotalAmount: engine.MustMoney("1000"),
	}}

	if !store.Put(engine.DeliverySnapshot{Key: key, TakenAt: time.Now(), Months: months}) {
		t.Fatal("first put must store")
	}
	if store.Put(engine.DeliverySnapshot{Key: key, Months: months}) {
		t.Error("same-key put must be rejected")
	}

	// Key change (dates moved): the held snapshot is replaced.
	changed := key
	changed.CampaignEnd = engine.NewDate(2025, time.February, 28)
	if !store.Put(engine.DeliverySnapshot{Key: changed, Months: months}) {
		t.Error("key change must replace")
	}

	held, ok := store.Get("plan-1:1")
	if !ok {
		t.Fatal("snapshot must be retrievable")
	}
	if !held.Key.Equal(changed) {
		t.Errorf("held key = %+v, want the re-baselined key", held.Key)
	}
	if !held.Months[0].TotalAmount.Equal(engine.MustMoney("1000")) {
		t.Errorf("held total = %s, want 1000", held.Months[0].TotalAmount)
	}
}

func TestSavedSchedules_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCampaign()
	if err := store.CreateCampaign(ctx, c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	months := engine.Schedule{{
		Key:         "January 2025",
		MediaCosts:  mediaCosts("digital_display", "1653.33"),
		FeeTotal:    engine.MustMoney("165.33"),
		TotalAmount: engine.MustMoney("1818.66"),
	}}
	if err := store.SaveSchedule(ctx, c.ID, "billing", months); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.LoadSchedule(ctx, c.ID, "billing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0].Key != "January 2025" {
		t.Fatalf("loaded schedule = %+v", got)
	}
	if !got[0].TotalAmount.Equal(engine.MustMoney("1818.66")) {
		t.Errorf("total = %s, want 1818.66", got[0].TotalAmount)
	}

	// Nothing saved under the other kind yet.
	if _, err := store.LoadSchedule(ctx, c.ID, "delivery"); !errors.Is(err, ErrNotFound) {
		t.Errorf("load missing kind err = %v, want ErrNotFound", err)
	}
}
