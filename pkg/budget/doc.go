// Package budget implements budget-constrained admission control and cost
// accounting for billable lead-generation operations.
//
// # Overview
//
// Every billable action (scraping, enrichment, messaging) is gated against a
// per-account daily and monthly spending ceiling. The package is split along
// the read/write boundary:
//
//   - Ledger: per-account persisted spend state with lazy period rollover
//   - Gate: advisory admission check with 5% headroom, read-only
//   - Recorder: authoritative fail-closed commit of performed cost
//   - Evaluator: alert level classification, debounced to level transitions
//   - Reporter: cost reports over the audit trail
//
// The Engine bundles these behind the interface the orchestrator and
// operator surfaces consume.
//
// # Admission model
//
// The Gate's check and the Recorder's commit are not one atomic transaction.
// The Gate reserves 5% headroom so estimation error or a concurrently
// admitted operation cannot alone push realized spend past the ceiling, and
// the Recorder re-reads state and fails closed, bounding overshoot to at
// most one operation's cost. Commits for one account are serialized through
// a per-account mutex, and the ledger's counter update is revision-guarded
// against the document store.
//
// # Usage
//
//	engine := budget.NewEngine(budget.Config{
//	    Store: docstore.NewMemoryStore(),
//	    Audit: audit.NewMemoryStore(),
//	    Rates: rates.NewTable(),
//	})
//
//	engine.InitializeBudgetControl(ctx, "acct-1", 0.50, 15.00)
//
//	adm, err := engine.CheckAdmission(ctx, "acct-1", rates.OpBasicScrape, 100)
//	if adm.CanProceed {
//	    // ... perform the scrape ...
//	    engine.RecordCost(ctx, "acct-1", rates.OpBasicScrape, 100, budget.Metadata{})
//	}
package budget
