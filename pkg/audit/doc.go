// Package audit provides the append-only audit trail for the budget engine.
//
// Two record kinds are persisted:
//
//   - CostEvent: one per committed billable operation, written by the cost
//     recorder. Events are immutable; the ledger's spend counters must stay
//     consistent with the sum of a day's events.
//   - AlertRecord: one per alert level transition, written by the alert
//     evaluator.
//
// Backends: MemoryStore for tests and SQLiteStore for durable storage.
// Old records are pruned on a cron schedule by the retention Pruner.
package audit
