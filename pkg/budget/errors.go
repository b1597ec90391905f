package budget

import (
	"errors"
	"fmt"
)

// Sentinel errors for the budget engine.
var (
	// ErrNotInitialized indicates the account has no budget control record.
	// Callers must initialize budget control first; accounts are never
	// created implicitly.
	ErrNotInitialized = errors.New("budget: account not initialized")

	// ErrAlreadyInitialized indicates budget control was already set up for
	// the account.
	ErrAlreadyInitialized = errors.New("budget: account already initialized")

	// ErrBudgetExceeded is the hard stop at commit time. Wrapped by
	// BudgetExceededError, which carries the remaining-budget figures.
	ErrBudgetExceeded = errors.New("budget: budget exceeded")
)

// BudgetExceededError is returned by the Recorder when a commit would
// overdraw either period's budget. No state is mutated when it is returned.
type BudgetExceededError struct {
	// AccountID is the account the commit was attempted against.
	AccountID string

	// Cost is the rejected operation cost in USD.
	Cost float64

	// DailyRemaining and MonthlyRemaining are the unspent budgets at the
	// time of rejection, for user-facing messaging.
	DailyRemaining   float64
	MonthlyRemaining float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf(
		"budget exceeded for account %s: operation cost $%.4f, daily remaining $%.4f, monthly remaining $%.4f",
		e.AccountID, e.Cost, e.DailyRemaining, e.MonthlyRemaining,
	)
}

// Unwrap lets errors.Is(err, ErrBudgetExceeded) match.
func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded
}
