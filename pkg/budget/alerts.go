package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leadforge-hq/saturn/pkg/audit"
)

// Evaluator classifies budget utilization into alert levels and records
// level transitions in the audit store.
//
// Alerts are debounced per account and day: staying at one level produces no
// further records, only a change of level does. De-escalations (including
// back to normal after a daily reset) are recorded like escalations so the
// alert history reads as a level timeline.
type Evaluator struct {
	store   audit.Store
	metrics Metrics
	logger  *slog.Logger
}

// NewEvaluator creates an alert evaluator. metrics may be nil.
func NewEvaluator(store audit.Store, metrics Metrics) *Evaluator {
	return &Evaluator{
		store:   store,
		metrics: metrics,
		logger:  slog.Default().With("component", "budget.alerts"),
	}
}

// Evaluate compares the account's current alert level against the last
// recorded level for today and records a transition if they differ.
// Returns the recorded alert, or nil when no transition occurred.
func (e *Evaluator) Evaluate(ctx context.Context, status *Status) (*audit.AlertRecord, error) {
	account := status.Account
	today := time.Now().Format(audit.DateLayout)

	last, err := e.store.LatestAlert(ctx, account.AccountID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest alert: %w", err)
	}

	level := status.AlertLevel
	switch {
	case last == nil && level == AlertNormal:
		// Nothing has happened today and nothing is wrong.
		return nil, nil
	case last != nil && AlertLevel(last.Level) == level:
		return nil, nil
	}

	record := &audit.AlertRecord{
		AccountID:     account.AccountID,
		Level:         string(level),
		Message:       alertMessage(level, status),
		Timestamp:     time.Now(),
		Date:          today,
		DailySpend:    account.CurrentDailySpend,
		DailyBudget:   account.DailyBudget,
		MonthlySpend:  account.CurrentMonthlySpend,
		MonthlyBudget: account.MonthlyBudget,
	}
	if err := e.store.AppendAlert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record alert: %w", err)
	}

	logFn := e.logger.Info
	if level == AlertCritical {
		logFn = e.logger.Warn
	}
	logFn("budget alert level changed",
		"account_id", account.AccountID,
		"level", level,
		"daily_utilization", status.DailyUtilization,
		"monthly_utilization", status.MonthlyUtilization,
	)
	if e.metrics != nil {
		e.metrics.RecordAlertTransition(string(level))
	}

	return record, nil
}

func alertMessage(level AlertLevel, status *Status) string {
	util := status.DailyUtilization
	if status.MonthlyUtilization > util {
		util = status.MonthlyUtilization
	}
	switch level {
	case AlertCritical:
		return fmt.Sprintf("budget nearly exhausted: %.0f%% used", util*100)
	case AlertWarning:
		return fmt.Sprintf("budget %.0f%% used", util*100)
	case AlertCaution:
		return fmt.Sprintf("budget %.0f%% used", util*100)
	default:
		return "budget utilization back to normal"
	}
}
