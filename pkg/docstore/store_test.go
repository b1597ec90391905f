package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// newBackends returns one of each store implementation for shared tests.
func newBackends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docstore.db"))
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

func TestStore_CreateAndGet(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			doc, err := store.Create(ctx, "accounts", "acct-1", map[string]any{
				"daily_budget": 5.00,
				"tier":         "basic",
			})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if doc.Rev != 1 {
				t.Errorf("Expected rev 1, got %d", doc.Rev)
			}

			got, err := store.Get(ctx, "accounts", "acct-1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Data["tier"] != "basic" {
				t.Errorf("Expected tier basic, got %v", got.Data["tier"])
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "accounts", "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_CreateDuplicate(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Create(ctx, "accounts", "dup", map[string]any{"a": 1}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			_, err := store.Create(ctx, "accounts", "dup", map[string]any{"a": 2})
			if !errors.Is(err, ErrAlreadyExists) {
				t.Errorf("Expected ErrAlreadyExists, got %v", err)
			}
		})
	}
}

func TestStore_CreateGeneratesID(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			doc, err := store.Create(context.Background(), "events", "", map[string]any{"cost": 0.05})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if doc.ID == "" {
				t.Error("Expected generated id, got empty string")
			}
		})
	}
}

func TestStore_UpdateMergesPatch(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Create(ctx, "accounts", "acct-1", map[string]any{
				"daily_budget":  5.00,
				"current_spend": 0.0,
			}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			doc, err := store.Update(ctx, "accounts", "acct-1", map[string]any{
				"current_spend": 0.05,
			}, RevAny)
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if doc.Rev != 2 {
				t.Errorf("Expected rev 2, got %d", doc.Rev)
			}

			got, err := store.Get(ctx, "accounts", "acct-1")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if spend, _ := toFloat(got.Data["current_spend"]); spend != 0.05 {
				t.Errorf("Expected current_spend 0.05, got %v", got.Data["current_spend"])
			}
			// Untouched fields survive the merge.
			if budget, _ := toFloat(got.Data["daily_budget"]); budget != 5.00 {
				t.Errorf("Expected daily_budget 5.00, got %v", got.Data["daily_budget"])
			}
		})
	}
}

func TestStore_UpdateRevisionConflict(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			doc, err := store.Create(ctx, "accounts", "acct-1", map[string]any{"n": 1})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			// First CAS update succeeds.
			if _, err := store.Update(ctx, "accounts", "acct-1", map[string]any{"n": 2}, doc.Rev); err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			// Second update against the stale revision must fail.
			_, err = store.Update(ctx, "accounts", "acct-1", map[string]any{"n": 3}, doc.Rev)
			if !errors.Is(err, ErrRevisionConflict) {
				t.Errorf("Expected ErrRevisionConflict, got %v", err)
			}
		})
	}
}

func TestStore_Query(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			seed := []map[string]any{
				{"account_id": "a", "date": "2026-08-29", "cost": 0.05},
				{"account_id": "a", "date": "2026-08-30", "cost": 0.10},
				{"account_id": "b", "date": "2026-08-30", "cost": 0.20},
			}
			for _, data := range seed {
				if _, err := store.Create(ctx, "events", "", data); err != nil {
					t.Fatalf("Create failed: %v", err)
				}
			}

			docs, err := store.Query(ctx, "events", []Filter{
				{Field: "account_id", Op: OpEqual, Value: "a"},
				{Field: "date", Op: OpGreaterOrEqual, Value: "2026-08-30"},
			})
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(docs) != 1 {
				t.Fatalf("Expected 1 document, got %d", len(docs))
			}
			if cost, _ := toFloat(docs[0].Data["cost"]); cost != 0.10 {
				t.Errorf("Expected cost 0.10, got %v", docs[0].Data["cost"])
			}
		})
	}
}

func TestStore_QueryEmptyCollection(t *testing.T) {
	for name, store := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			docs, err := store.Query(context.Background(), "nothing", nil)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(docs) != 0 {
				t.Errorf("Expected no documents, got %d", len(docs))
			}
		})
	}
}

func TestDocument_DecodeEncode(t *testing.T) {
	type account struct {
		AccountID   string  `json:"account_id"`
		DailyBudget float64 `json:"daily_budget"`
	}

	data, err := Encode(account{AccountID: "acct-1", DailyBudget: 2.50})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	doc := &Document{ID: "acct-1", Data: data}
	var got account
	if err := doc.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.AccountID != "acct-1" || got.DailyBudget != 2.50 {
		t.Errorf("Round-trip mismatch: %+v", got)
	}
}
