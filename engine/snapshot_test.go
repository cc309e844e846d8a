package engine_test

import (
	"sync"
	"testing"
	"time"

	"github.com/planwell/billing-engine/engine"
	"github.com/planwell/billing-engine/engine/store"
)

func deliveryFixture(amount string) engine.Schedule {
	b := standardBurst(date(2025, time.January, 1), date(2025, time.January, 31), amount)
	schedules, _ := engine.ComputeSchedules(
		[]engine.Burst{b}, date(2025, time.January, 1), date(2025, time.January, 31), testAllocationInput(),
	)
	return schedules.Delivery
}

func snapshotKey(planID string) engine.SnapshotKey {
	return engine.SnapshotKey{
		PlanID:        planID,
		CampaignStart: date(2025, time.January, 1),
		CampaignEnd:   date(2025, time.January, 31),
	}
}

func TestSnapshotManager_FirstCaptureWins(t *testing.T) {
	manager := engine.NewSnapshotManager(store.NewMemory())
	key := snapshotKey("plan-1")

	manager.Capture(key, deliveryFixture("1000"))
	manager.Capture(key, deliveryFixture("2000")) // same key: must be ignored

	resolved := manager.Resolve(key, deliveryFixture("3000"))
	if !resolved.GrandTotal().Equal(engine.MustMoney("1000")) {
		t.Errorf("resolved total = %s, want the first capture 1000", resolved.GrandTotal())
	}
}

func TestSnapshotManager_NoSnapshot_ReturnsLive(t *testing.T) {
	manager := engine.NewSnapshotManager(store.NewMemory())

	live := deliveryFixture("750")
	resolved := manager.Resolve(snapshotKey("plan-unseen"), live)
	if !resolved.GrandTotal().Equal(engine.MustMoney("750")) {
		t.Errorf("resolved total = %s, want live 750", resolved.GrandTotal())
	}
}

func TestSnapshotManager_SnapshotIsACopy(t *testing.T) {
	manager := engine.NewSnapshotManager(store.NewMemory())
	key := snapshotKey("plan-1")

	live := deliveryFixture("1000")
	manager.Capture(key, live)

	// Mutating the live schedule after capture must not reach the snapshot.
	live[0].MediaCosts["digital_display"] = engine.MustMoney("0")
	live[0].TotalAmount = engine.MustMoney("0")

	resolved := manager.Resolve(key, live)
	if !resolved.GrandTotal().Equal(engine.MustMoney("1000")) {
		t.Errorf("snapshot was corrupted by live mutation: %s", resolved.GrandTotal())
	}
}

func TestSnapshotManager_ResolvedScheduleIsACopy(t *testing.T) {
	manager := engine.NewSnapshotManager(store.NewMemory())
	key := snapshotKey("plan-1")

	manager.Capture(key, deliveryFixture("1000"))

	// Mutating a resolved schedule must not reach the frozen snapshot.
	resolved := manager.Resolve(key, deliveryFixture("1000"))
	resolved[0].MediaCosts["digital_display"] = engine.MustMoney("0")
	resolved[0].TotalAmount = engine.MustMoney("0")

	fresh := manager.Resolve(key, deliveryFixture("1000"))
	if !fresh.GrandTotal().Equal(engine.MustMoney("1000")) {
		t.Errorf("snapshot was corrupted through a resolved copy: %s", fresh.GrandTotal())
	}
}

func TestMemoryStore_KeyChangeReplaces(t *testing.T) {
	mem := store.NewMemory()

	first := engine.DeliverySnapshot{Key: snapshotKey("plan-1"), Months: deliveryFixture("1000")}
	if !mem.Put(first) {
		t.Fatal("first put must store")
	}

	// Same plan, different dates: identity changed, replace.
	changedKey := snapshotKey("plan-1")
	changedKey.CampaignEnd = date(2025, time.February, 28)
	second := engine.DeliverySnapshot{Key: changedKey, Months: deliveryFixture("2000")}
	if !mem.Put(second) {
		t.Fatal("key change must replace the held snapshot")
	}

	held, ok := mem.Get("plan-1")
	if !ok || !held.Key.Equal(changedKey) {
		t.Error("store should hold the re-baselined snapshot")
	}
}

func TestMemoryStore_ConcurrentPut_ExactlyOneWins(t *testing.T) {
	mem := store.NewMemory()
	key := snapshotKey("plan-1")
	months := deliveryFixture("1000")

	var wg sync.WaitGroup
	wins := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- mem.Put(engine.DeliverySnapshot{Key: key, Months: months})
		}()
	}
	wg.Wait()
	close(wins)

	var count int
	for won := range wins {
		if won {
			count++
		}
	}
	if count != 1 {
		t.Errorf("%d writers won, want exactly 1", count)
	}
}
