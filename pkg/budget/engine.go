package budget

import (
	"context"

	"leadforge-hq/saturn/pkg/audit"
	"leadforge-hq/saturn/pkg/docstore"
	"leadforge-hq/saturn/pkg/rates"
)

// Config configures the budget engine.
type Config struct {
	// Store persists per-account budget state. Required.
	Store docstore.Store

	// Audit receives cost events and alert records. Required.
	Audit audit.Store

	// Rates provides per-operation unit costs. Required.
	Rates *rates.Table

	// Metrics receives engine telemetry. Optional.
	Metrics Metrics
}

// Engine bundles the ledger, gate, recorder, evaluator, intensity controller
// and reporter behind one entry point. It is safe for concurrent use.
type Engine struct {
	ledger     *Ledger
	gate       *Gate
	recorder   *Recorder
	controller *Controller
	reporter   *Reporter
}

// NewEngine wires the engine components together.
func NewEngine(cfg Config) *Engine {
	ledger := NewLedger(cfg.Store)
	evaluator := NewEvaluator(cfg.Audit, cfg.Metrics)

	return &Engine{
		ledger:     ledger,
		gate:       NewGate(ledger, cfg.Rates, cfg.Metrics),
		recorder:   NewRecorder(ledger, cfg.Rates, cfg.Audit, evaluator, cfg.Metrics),
		controller: NewController(ledger),
		reporter:   NewReporter(cfg.Audit),
	}
}

// InitializeBudgetControl sets up budget control for an account.
func (e *Engine) InitializeBudgetControl(ctx context.Context, accountID string, dailyBudget, monthlyBudget float64) (*Account, error) {
	return e.ledger.Initialize(ctx, accountID, dailyBudget, monthlyBudget)
}

// CheckAdmission runs the advisory pre-flight check for an operation.
func (e *Engine) CheckAdmission(ctx context.Context, accountID string, op rates.Operation, quantity int) (*Admission, error) {
	return e.gate.CheckAdmission(ctx, accountID, op, quantity)
}

// RecordCost commits the cost of a performed operation.
func (e *Engine) RecordCost(ctx context.Context, accountID string, op rates.Operation, quantity int, meta Metadata) (*CommitResult, error) {
	return e.recorder.RecordCost(ctx, accountID, op, quantity, meta)
}

// GetStatus returns the account's budget status after lazy rollover.
func (e *Engine) GetStatus(ctx context.Context, accountID string) (*Status, error) {
	return e.ledger.GetStatus(ctx, accountID)
}

// SetIntensity computes the operational profile for an intensity level.
func (e *Engine) SetIntensity(ctx context.Context, accountID string, level Intensity) (*IntensityProfile, error) {
	return e.controller.SetIntensity(ctx, accountID, level)
}

// ListAccounts returns every account with budget control, optionally
// filtered by tier.
func (e *Engine) ListAccounts(ctx context.Context, tier rates.Tier) ([]*Account, error) {
	return e.ledger.ListAccounts(ctx, tier)
}

// SetEmergencyStop toggles the account's soft-disable flag.
func (e *Engine) SetEmergencyStop(ctx context.Context, accountID string, stop bool) error {
	return e.ledger.SetEmergencyStop(ctx, accountID, stop)
}

// GenerateCostReport aggregates cost events over an inclusive date range.
func (e *Engine) GenerateCostReport(ctx context.Context, accountID, startDate, endDate string) (*CostReport, error) {
	return e.reporter.GenerateCostReport(ctx, accountID, startDate, endDate)
}
