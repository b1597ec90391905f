package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"leadforge-hq/saturn/pkg/audit"
	"leadforge-hq/saturn/pkg/docstore"
	"leadforge-hq/saturn/pkg/rates"
)

// accountsCollection is the document store collection for budget accounts.
const accountsCollection = "budget_accounts"

// casRetries bounds the revision-conflict retry loop on counter updates.
const casRetries = 3

// Ledger manages persisted per-account budget state.
//
// Reads apply lazy period rollover: when the stored daily or monthly reset
// watermark is behind the current period, the corresponding spend counter is
// zeroed and the watermark advanced before the status is returned.
type Ledger struct {
	store  docstore.Store
	logger *slog.Logger
}

// NewLedger creates a ledger over the given document store.
func NewLedger(store docstore.Store) *Ledger {
	return &Ledger{
		store:  store,
		logger: slog.Default().With("component", "budget.ledger"),
	}
}

// Initialize creates budget control state for an account.
//
// Requested budgets below the floor are clamped up. The tier and the
// per-day lead ceiling are derived from the clamped daily budget.
// Returns ErrAlreadyInitialized if the account already has budget control.
func (l *Ledger) Initialize(ctx context.Context, accountID string, dailyBudget, monthlyBudget float64) (*Account, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}

	if dailyBudget < MinDailyBudget {
		dailyBudget = MinDailyBudget
	}
	if monthlyBudget < MinMonthlyBudget {
		monthlyBudget = MinMonthlyBudget
	}

	tier := rates.TierForDailyBudget(dailyBudget)
	now := time.Now()

	account := &Account{
		AccountID:        accountID,
		DailyBudget:      dailyBudget,
		MonthlyBudget:    monthlyBudget,
		LastResetDate:    now.Format(audit.DateLayout),
		LastMonthlyReset: now.Format(MonthLayout),
		Tier:             tier,
		Settings: Settings{
			PauseWhenBudgetHit: true,
			AlertThresholds:    []float64{cautionThreshold, warningThreshold, criticalThreshold},
			PriorityMode:       "balanced",
			MaxLeadsPerDay:     rates.LimitsForTier(tier).MaxLeadsPerDay,
		},
	}

	data, err := docstore.Encode(account)
	if err != nil {
		return nil, err
	}

	if _, err := l.store.Create(ctx, accountsCollection, accountID, data); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return nil, ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("failed to create budget account: %w", err)
	}

	l.logger.Info("budget control initialized",
		"account_id", accountID,
		"daily_budget", dailyBudget,
		"monthly_budget", monthlyBudget,
		"tier", tier,
	)

	return account, nil
}

// GetStatus returns the account's budget status, applying lazy rollover.
// Returns ErrNotInitialized if budget control was never set up.
func (l *Ledger) GetStatus(ctx context.Context, accountID string) (*Status, error) {
	account, _, err := l.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return buildStatus(account), nil
}

// CommitSpend atomically adds cost to both spend counters, failing closed.
//
// The check and update run in a revision-guarded loop: if either period's
// remaining budget is below the cost, a BudgetExceededError is returned and
// nothing is mutated. This is the authoritative enforcement point, stricter
// than the Gate's advisory headroom check.
func (l *Ledger) CommitSpend(ctx context.Context, accountID string, cost float64) (*Status, error) {
	if cost < 0 {
		return nil, fmt.Errorf("cost cannot be negative")
	}

	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		account, rev, err := l.load(ctx, accountID)
		if err != nil {
			return nil, err
		}

		if account.DailyRemaining() < cost || account.MonthlyRemaining() < cost {
			return nil, &BudgetExceededError{
				AccountID:        accountID,
				Cost:             cost,
				DailyRemaining:   account.DailyRemaining(),
				MonthlyRemaining: account.MonthlyRemaining(),
			}
		}

		account.CurrentDailySpend += cost
		account.CurrentMonthlySpend += cost

		_, err = l.store.Update(ctx, accountsCollection, accountID, map[string]any{
			"current_daily_spend":   account.CurrentDailySpend,
			"current_monthly_spend": account.CurrentMonthlySpend,
		}, rev)
		if err == nil {
			return buildStatus(account), nil
		}
		if !errors.Is(err, docstore.ErrRevisionConflict) {
			return nil, fmt.Errorf("failed to commit spend: %w", err)
		}

		// Another writer advanced the document; re-read and re-check.
		lastErr = err
	}

	return nil, fmt.Errorf("failed to commit spend after %d attempts: %w", casRetries, lastErr)
}

// ListAccounts returns every account with budget control, optionally
// filtered by tier. Counters are returned as stored; rollover is applied
// on per-account reads, not here.
func (l *Ledger) ListAccounts(ctx context.Context, tier rates.Tier) ([]*Account, error) {
	var filters []docstore.Filter
	if tier != "" {
		filters = append(filters, docstore.Filter{
			Field: "tier",
			Op:    docstore.OpEqual,
			Value: string(tier),
		})
	}

	docs, err := l.store.Query(ctx, accountsCollection, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget accounts: %w", err)
	}

	accounts := make([]*Account, 0, len(docs))
	for _, doc := range docs {
		var account Account
		if err := doc.Decode(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID < accounts[j].AccountID
	})
	return accounts, nil
}

// SetEmergencyStop toggles the account's soft-disable flag.
func (l *Ledger) SetEmergencyStop(ctx context.Context, accountID string, stop bool) error {
	account, rev, err := l.load(ctx, accountID)
	if err != nil {
		return err
	}

	account.Settings.EmergencyStop = stop
	settings, err := docstore.Encode(account.Settings)
	if err != nil {
		return err
	}

	if _, err := l.store.Update(ctx, accountsCollection, accountID, map[string]any{
		"settings": settings,
	}, rev); err != nil {
		return fmt.Errorf("failed to update emergency stop: %w", err)
	}

	l.logger.Warn("emergency stop changed", "account_id", accountID, "stopped", stop)
	return nil
}

// load reads an account and applies lazy rollover, persisting any reset.
// Returns the account and the document revision after rollover.
func (l *Ledger) load(ctx context.Context, accountID string) (*Account, int64, error) {
	if accountID == "" {
		return nil, 0, fmt.Errorf("account id cannot be empty")
	}

	doc, err := l.store.Get(ctx, accountsCollection, accountID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, 0, ErrNotInitialized
		}
		return nil, 0, fmt.Errorf("failed to load budget account: %w", err)
	}

	var account Account
	if err := doc.Decode(&account); err != nil {
		return nil, 0, err
	}

	rev := doc.Rev
	now := time.Now()
	patch := make(map[string]any)

	if today := now.Format(audit.DateLayout); account.LastResetDate != today {
		l.logger.Info("daily budget rollover",
			"account_id", accountID,
			"previous_date", account.LastResetDate,
			"previous_spend", account.CurrentDailySpend,
		)
		account.CurrentDailySpend = 0
		account.LastResetDate = today
		patch["current_daily_spend"] = 0.0
		patch["last_reset_date"] = today
	}

	if month := now.Format(MonthLayout); account.LastMonthlyReset != month {
		l.logger.Info("monthly budget rollover",
			"account_id", accountID,
			"previous_month", account.LastMonthlyReset,
			"previous_spend", account.CurrentMonthlySpend,
		)
		account.CurrentMonthlySpend = 0
		account.LastMonthlyReset = month
		patch["current_monthly_spend"] = 0.0
		patch["last_monthly_reset"] = month
	}

	if len(patch) > 0 {
		updated, err := l.store.Update(ctx, accountsCollection, accountID, patch, rev)
		if err != nil {
			// A concurrent reader already performed the rollover; reload.
			if errors.Is(err, docstore.ErrRevisionConflict) {
				return l.load(ctx, accountID)
			}
			return nil, 0, fmt.Errorf("failed to persist rollover: %w", err)
		}
		rev = updated.Rev
	}

	return &account, rev, nil
}

// buildStatus derives the budget status from account state.
func buildStatus(account *Account) *Status {
	var dailyUtil, monthlyUtil float64
	if account.DailyBudget > 0 {
		dailyUtil = account.CurrentDailySpend / account.DailyBudget
	}
	if account.MonthlyBudget > 0 {
		monthlyUtil = account.CurrentMonthlySpend / account.MonthlyBudget
	}

	maxUtil := dailyUtil
	if monthlyUtil > maxUtil {
		maxUtil = monthlyUtil
	}

	return &Status{
		Account:            account,
		DailyRemaining:     account.DailyRemaining(),
		MonthlyRemaining:   account.MonthlyRemaining(),
		DailyUtilization:   dailyUtil,
		MonthlyUtilization: monthlyUtil,
		CanContinue: account.DailyRemaining() > 0 &&
			account.MonthlyRemaining() > 0 &&
			!account.Settings.EmergencyStop,
		AlertLevel: alertLevelFor(maxUtil),
	}
}
