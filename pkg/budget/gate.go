package budget

import (
	"context"
	"fmt"
	"log/slog"

	"leadforge-hq/saturn/pkg/rates"
)

// Gate performs the advisory pre-flight admission check.
//
// The check is read-only and reserves nothing. It projects the operation's
// base cost onto the current daily spend and admits only when the projection
// stays under 95% of the daily budget. Cost modifiers are ignored here; they
// apply at commit time in the Recorder.
type Gate struct {
	ledger  *Ledger
	rates   *rates.Table
	metrics Metrics
	logger  *slog.Logger
}

// NewGate creates an admission gate. metrics may be nil.
func NewGate(ledger *Ledger, table *rates.Table, metrics Metrics) *Gate {
	return &Gate{
		ledger:  ledger,
		rates:   table,
		metrics: metrics,
		logger:  slog.Default().With("component", "budget.gate"),
	}
}

// CheckAdmission decides whether an operation of the given quantity may
// proceed. Unknown operations cost zero and are admitted with a warning.
// Returns ErrNotInitialized when the account has no budget control.
func (g *Gate) CheckAdmission(ctx context.Context, accountID string, op rates.Operation, quantity int) (*Admission, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity cannot be negative")
	}

	status, err := g.ledger.GetStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account := status.Account

	if _, ok := g.rates.UnitCost(op); !ok {
		g.logger.Warn("unknown operation in admission check",
			"account_id", accountID,
			"operation", op,
		)
	}
	cost := g.rates.Cost(op, quantity)

	projected := account.CurrentDailySpend + cost
	adm := &Admission{
		CurrentSpend:    account.CurrentDailySpend,
		OperationCost:   cost,
		ProjectedSpend:  projected,
		RemainingBudget: status.DailyRemaining,
		UtilizationPct:  projected / account.DailyBudget * 100,
		Tier:            account.Tier,
	}

	switch {
	case !status.CanContinue && account.Settings.EmergencyStop:
		adm.Reason = "account is emergency stopped"
	case !status.CanContinue:
		adm.Reason = "budget exhausted"
	case projected > account.DailyBudget*headroomFactor:
		adm.Reason = fmt.Sprintf(
			"projected spend $%.4f exceeds %.0f%% of daily budget $%.2f",
			projected, headroomFactor*100, account.DailyBudget,
		)
	default:
		adm.CanProceed = true
	}

	if !adm.CanProceed {
		g.logger.Info("admission denied",
			"account_id", accountID,
			"operation", op,
			"quantity", quantity,
			"reason", adm.Reason,
			"projected_spend", projected,
		)
	}
	if g.metrics != nil {
		g.metrics.RecordAdmission(op, adm.CanProceed)
	}

	return adm, nil
}
