package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"leadforge-hq/saturn/pkg/audit"
	"leadforge-hq/saturn/pkg/rates"
)

// Recorder commits performed operation costs against the ledger and appends
// them to the audit trail.
//
// Commits for one account are serialized through a per-account mutex so the
// fail-closed check inside the ledger observes a stable counter. The audit
// append happens after the ledger commit and is retried a bounded number of
// times so a transient store error does not leave the spend counters ahead
// of the event trail. If every attempt fails the error is logged and the
// spend stands, since the money was already spent.
type Recorder struct {
	ledger    *Ledger
	rates     *rates.Table
	store     audit.Store
	evaluator *Evaluator
	metrics   Metrics
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// auditAppendRetries bounds retries of the audit append after a committed
// spend.
const auditAppendRetries = 3

// NewRecorder creates a cost recorder. evaluator and metrics may be nil.
func NewRecorder(ledger *Ledger, table *rates.Table, store audit.Store, evaluator *Evaluator, metrics Metrics) *Recorder {
	return &Recorder{
		ledger:    ledger,
		rates:     table,
		store:     store,
		evaluator: evaluator,
		metrics:   metrics,
		logger:    slog.Default().With("component", "budget.recorder"),
		locks:     make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing commits for one account.
func (r *Recorder) accountLock(accountID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[accountID] = lock
	}
	return lock
}

// RecordCost commits the cost of a performed operation.
//
// The cost is unit rate times quantity times the metadata modifier factor.
// Unknown operations commit zero cost with a warning. When the cost would
// overdraw either period's remaining budget, a BudgetExceededError is
// returned and no state changes; the caller must stop issuing operations
// for this account.
func (r *Recorder) RecordCost(ctx context.Context, accountID string, op rates.Operation, quantity int, meta Metadata) (*CommitResult, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative")
	}

	unit, known := r.rates.UnitCost(op)
	if !known {
		r.logger.Warn("recording unknown operation at zero cost",
			"account_id", accountID,
			"operation", op,
			"quantity", quantity,
		)
	}
	effectiveUnit := unit * meta.factor()
	cost := effectiveUnit * float64(quantity)

	lock := r.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	status, err := r.ledger.CommitSpend(ctx, accountID, cost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event := &audit.CostEvent{
		AccountID: accountID,
		Operation: op,
		Quantity:  quantity,
		UnitCost:  effectiveUnit,
		TotalCost: cost,
		Metadata:  meta.toMap(),
		Timestamp: now,
		Date:      now.Format(audit.DateLayout),
	}
	var appendErr error
	for attempt := 0; attempt < auditAppendRetries; attempt++ {
		if appendErr = r.store.AppendCostEvent(ctx, event); appendErr == nil {
			break
		}
	}
	if appendErr != nil {
		r.logger.Error("failed to append cost event",
			"account_id", accountID,
			"operation", op,
			"cost", cost,
			"attempts", auditAppendRetries,
			"error", appendErr,
		)
	}

	if r.evaluator != nil {
		if _, err := r.evaluator.Evaluate(ctx, status); err != nil {
			r.logger.Error("alert evaluation failed",
				"account_id", accountID,
				"error", err,
			)
		}
	}
	if r.metrics != nil {
		r.metrics.RecordCommit(op, cost)
		r.metrics.SetUtilization(accountID, status.DailyUtilization, status.MonthlyUtilization)
	}

	r.logger.Debug("cost recorded",
		"account_id", accountID,
		"operation", op,
		"quantity", quantity,
		"cost", cost,
		"daily_spend", status.Account.CurrentDailySpend,
	)

	return &CommitResult{Cost: cost, Status: status}, nil
}
