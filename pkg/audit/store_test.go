package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"leadforge-hq/saturn/pkg/rates"
)

// newStores returns one of each store implementation for shared tests.
func newStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(&SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "audit.db"),
	})
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	memory := NewMemoryStore()
	t.Cleanup(func() { memory.Close() })

	return map[string]Store{
		"memory": memory,
		"sqlite": sqlite,
	}
}

func event(account, date string, cost float64, at time.Time) *CostEvent {
	return &CostEvent{
		AccountID: account,
		Operation: rates.OpBasicScrape,
		Quantity:  100,
		UnitCost:  cost / 100,
		TotalCost: cost,
		Metadata:  map[string]string{"quality": "standard"},
		Timestamp: at,
		Date:      date,
	}
}

func TestStore_AppendAndQueryCostEvents(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

			seed := []*CostEvent{
				event("acct-1", "2026-08-29", 0.05, base.Add(-24*time.Hour)),
				event("acct-1", "2026-08-30", 0.10, base),
				event("acct-1", "2026-08-30", 0.20, base.Add(time.Hour)),
				event("acct-2", "2026-08-30", 0.99, base),
			}
			for _, e := range seed {
				if err := store.AppendCostEvent(ctx, e); err != nil {
					t.Fatalf("AppendCostEvent failed: %v", err)
				}
				if e.ID == "" {
					t.Error("Expected an ID to be assigned on append")
				}
			}

			events, err := store.CostEvents(ctx, "acct-1", "2026-08-30", "2026-08-30")
			if err != nil {
				t.Fatalf("CostEvents failed: %v", err)
			}
			if len(events) != 2 {
				t.Fatalf("Expected 2 events, got %d", len(events))
			}
			// Ordered by timestamp ascending.
			if events[0].TotalCost != 0.10 || events[1].TotalCost != 0.20 {
				t.Errorf("Events out of order: %v, %v", events[0].TotalCost, events[1].TotalCost)
			}
			if events[0].Operation != rates.OpBasicScrape {
				t.Errorf("Expected operation %s, got %s", rates.OpBasicScrape, events[0].Operation)
			}
			if events[0].Metadata["quality"] != "standard" {
				t.Errorf("Expected metadata to round-trip, got %v", events[0].Metadata)
			}
		})
	}
}

func TestStore_CostEventsRange(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

			for i, date := range []string{"2026-08-28", "2026-08-29", "2026-08-30"} {
				e := event("acct-1", date, 0.01, base.Add(time.Duration(i)*24*time.Hour))
				if err := store.AppendCostEvent(ctx, e); err != nil {
					t.Fatalf("AppendCostEvent failed: %v", err)
				}
			}

			events, err := store.CostEvents(ctx, "acct-1", "2026-08-28", "2026-08-29")
			if err != nil {
				t.Fatalf("CostEvents failed: %v", err)
			}
			if len(events) != 2 {
				t.Errorf("Expected 2 events in range, got %d", len(events))
			}
		})
	}
}

func TestStore_LatestAlert(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

			// No alert recorded yet.
			got, err := store.LatestAlert(ctx, "acct-1", "2026-08-30")
			if err != nil {
				t.Fatalf("LatestAlert failed: %v", err)
			}
			if got != nil {
				t.Fatalf("Expected nil, got %+v", got)
			}

			alerts := []*AlertRecord{
				{AccountID: "acct-1", Level: "caution", Message: "budget 50% used", Timestamp: base, Date: "2026-08-30"},
				{AccountID: "acct-1", Level: "warning", Message: "budget 80% used", Timestamp: base.Add(time.Hour), Date: "2026-08-30"},
				{AccountID: "acct-1", Level: "critical", Message: "old day", Timestamp: base.Add(-24 * time.Hour), Date: "2026-08-29"},
			}
			for _, a := range alerts {
				if err := store.AppendAlert(ctx, a); err != nil {
					t.Fatalf("AppendAlert failed: %v", err)
				}
			}

			got, err = store.LatestAlert(ctx, "acct-1", "2026-08-30")
			if err != nil {
				t.Fatalf("LatestAlert failed: %v", err)
			}
			if got == nil || got.Level != "warning" {
				t.Errorf("Expected latest level warning, got %+v", got)
			}
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now()

			old := event("acct-1", "2026-05-01", 0.05, now.Add(-120*24*time.Hour))
			recent := event("acct-1", now.Format(DateLayout), 0.05, now)
			if err := store.AppendCostEvent(ctx, old); err != nil {
				t.Fatalf("AppendCostEvent failed: %v", err)
			}
			if err := store.AppendCostEvent(ctx, recent); err != nil {
				t.Fatalf("AppendCostEvent failed: %v", err)
			}

			deleted, err := store.Prune(ctx, now.Add(-90*24*time.Hour))
			if err != nil {
				t.Fatalf("Prune failed: %v", err)
			}
			if deleted != 1 {
				t.Errorf("Expected 1 record pruned, got %d", deleted)
			}

			events, err := store.CostEvents(ctx, "acct-1", "2026-01-01", "2099-01-01")
			if err != nil {
				t.Fatalf("CostEvents failed: %v", err)
			}
			if len(events) != 1 {
				t.Errorf("Expected 1 surviving event, got %d", len(events))
			}
		})
	}
}

func TestPruner_DisabledRetention(t *testing.T) {
	store := NewMemoryStore()
	pruner := NewPruner(store, RetentionConfig{RetentionDays: 0})

	e := event("acct-1", "2020-01-01", 0.05, time.Now().Add(-1000*24*time.Hour))
	if err := store.AppendCostEvent(context.Background(), e); err != nil {
		t.Fatalf("AppendCostEvent failed: %v", err)
	}

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected no pruning with retention disabled, got %d", deleted)
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), RetentionConfig{
		RetentionDays: 30,
		PruneSchedule: "not-a-cron-expression",
	})
	s := NewScheduler(pruner)

	if err := s.Start(context.Background()); err == nil {
		t.Error("Expected error for invalid cron schedule")
	}
	if s.IsRunning() {
		t.Error("Scheduler should not be running after a failed start")
	}
}

func TestScheduler_EmptySchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), RetentionConfig{RetentionDays: 30})
	s := NewScheduler(pruner)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("Scheduler should not run with an empty schedule")
	}
}
