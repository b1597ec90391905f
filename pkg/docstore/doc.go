// Package docstore provides the document store used for budget account state.
//
// # Overview
//
// The docstore package implements a small get/create/update/query document
// store over named collections. Documents are schemaless JSON objects with a
// monotonically increasing revision used for compare-and-swap updates.
//
// Two backends are provided:
//
//   - MemoryStore: in-process map, no persistence (default, used in tests)
//   - SQLiteStore: durable single-file storage with WAL journaling
//
// # Usage
//
//	store, err := docstore.NewSQLiteStore("data/saturn.db")
//	if err != nil { ... }
//	defer store.Close()
//
//	doc, err := store.Create(ctx, "budget_accounts", "acct-1", map[string]any{
//	    "daily_budget": 5.00,
//	})
//
//	// Compare-and-swap update: fails with ErrRevisionConflict if the
//	// document changed since the revision was read.
//	_, err = store.Update(ctx, "budget_accounts", "acct-1",
//	    map[string]any{"current_daily_spend": 0.05}, doc.Rev)
package docstore
