package budget

import (
	"leadforge-hq/saturn/pkg/rates"
)

// Budget floors applied at account creation. Requested budgets below the
// floor are clamped up, never rejected.
const (
	MinDailyBudget   = 0.50
	MinMonthlyBudget = 10.00
)

// headroomFactor is the fraction of the daily budget the advisory admission
// check admits against. The reserved 5% absorbs estimation error and a
// second concurrently admitted operation (see package doc).
const headroomFactor = 0.95

// MonthLayout is the year-month format for the monthly reset watermark.
const MonthLayout = "2006-01"

// Settings contains per-account budget behavior settings.
type Settings struct {
	// PauseWhenBudgetHit stops new operations once the daily budget is spent.
	PauseWhenBudgetHit bool `json:"pause_when_budget_hit"`

	// AlertThresholds are the utilization fractions that define alert levels.
	AlertThresholds []float64 `json:"alert_thresholds"`

	// PriorityMode selects what to optimize for ("speed", "quality", "balanced").
	PriorityMode string `json:"priority_mode"`

	// MaxLeadsPerDay is the lead ceiling, derived from the account tier.
	MaxLeadsPerDay int `json:"max_leads_per_day"`

	// AutoScale allows the platform to raise intensity while under budget.
	AutoScale bool `json:"auto_scale"`

	// EmergencyStop soft-disables the account. Accounts are never deleted.
	EmergencyStop bool `json:"emergency_stop"`
}

// Account is the persisted budget state for one account.
type Account struct {
	// AccountID identifies the account.
	AccountID string `json:"account_id"`

	// DailyBudget and MonthlyBudget are the spending ceilings in USD.
	DailyBudget   float64 `json:"daily_budget"`
	MonthlyBudget float64 `json:"monthly_budget"`

	// CurrentDailySpend and CurrentMonthlySpend are the running spend
	// counters, reset on period rollover.
	CurrentDailySpend   float64 `json:"current_daily_spend"`
	CurrentMonthlySpend float64 `json:"current_monthly_spend"`

	// LastResetDate is the date the daily counter was last reset (2006-01-02).
	LastResetDate string `json:"last_reset_date"`

	// LastMonthlyReset is the month the monthly counter was last reset (2006-01).
	LastMonthlyReset string `json:"last_monthly_reset"`

	// Tier is the budget tier, derived from DailyBudget.
	Tier rates.Tier `json:"tier"`

	// Settings contains the account's budget behavior settings.
	Settings Settings `json:"settings"`
}

// DailyRemaining returns the unspent daily budget, floored at zero.
func (a *Account) DailyRemaining() float64 {
	if r := a.DailyBudget - a.CurrentDailySpend; r > 0 {
		return r
	}
	return 0
}

// MonthlyRemaining returns the unspent monthly budget, floored at zero.
func (a *Account) MonthlyRemaining() float64 {
	if r := a.MonthlyBudget - a.CurrentMonthlySpend; r > 0 {
		return r
	}
	return 0
}

// AlertLevel classifies budget utilization.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertCaution  AlertLevel = "caution"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// Alert level utilization thresholds.
const (
	cautionThreshold  = 0.50
	warningThreshold  = 0.80
	criticalThreshold = 0.95
)

// alertLevelFor buckets a utilization fraction into an alert level.
func alertLevelFor(utilization float64) AlertLevel {
	switch {
	case utilization >= criticalThreshold:
		return AlertCritical
	case utilization >= warningThreshold:
		return AlertWarning
	case utilization >= cautionThreshold:
		return AlertCaution
	default:
		return AlertNormal
	}
}

// Status is the derived budget status returned by the ledger.
type Status struct {
	// Account is the account state after lazy rollover.
	Account *Account

	// DailyRemaining and MonthlyRemaining are the unspent budgets, floored at zero.
	DailyRemaining   float64
	MonthlyRemaining float64

	// DailyUtilization and MonthlyUtilization are spend/budget fractions.
	DailyUtilization   float64
	MonthlyUtilization float64

	// CanContinue is true when both periods have budget remaining and the
	// account is not emergency-stopped.
	CanContinue bool

	// AlertLevel classifies max(daily, monthly) utilization.
	AlertLevel AlertLevel
}

// Admission is the advisory decision returned by the Gate.
// It does not reserve budget; the Recorder's commit is authoritative.
type Admission struct {
	// CanProceed is true when the projected spend fits under the headroom.
	CanProceed bool

	// Reason explains a denial.
	Reason string

	// CurrentSpend is the daily spend at check time in USD.
	CurrentSpend float64

	// OperationCost is the projected cost of the operation in USD.
	OperationCost float64

	// ProjectedSpend is CurrentSpend + OperationCost.
	ProjectedSpend float64

	// RemainingBudget is the unspent daily budget in USD.
	RemainingBudget float64

	// UtilizationPct is the projected daily utilization in percent.
	UtilizationPct float64

	// Tier is the account's budget tier.
	Tier rates.Tier
}

// Metadata carries commit-time cost modifiers.
// Modifiers multiply the base rate and are applied only at commit, never
// during the advisory admission check.
type Metadata struct {
	// Quality is "standard" (default) or "premium" (x1.5).
	Quality string `json:"quality,omitempty"`

	// Speed is "normal" (default) or "urgent" (x2).
	Speed string `json:"speed,omitempty"`
}

// Modifier values recognized in Metadata.
const (
	QualityPremium = "premium"
	SpeedUrgent    = "urgent"
)

// Cost modifier factors.
const (
	premiumFactor = 1.5
	urgentFactor  = 2.0
)

// factor returns the multiplicative cost modifier for the metadata.
func (m Metadata) factor() float64 {
	f := 1.0
	if m.Quality == QualityPremium {
		f *= premiumFactor
	}
	if m.Speed == SpeedUrgent {
		f *= urgentFactor
	}
	return f
}

// toMap converts the metadata to the audit event representation.
func (m Metadata) toMap() map[string]string {
	out := make(map[string]string, 2)
	if m.Quality != "" {
		out["quality"] = m.Quality
	}
	if m.Speed != "" {
		out["speed"] = m.Speed
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CommitResult is returned by the Recorder on a successful commit.
type CommitResult struct {
	// Cost is the committed cost in USD, modifiers applied.
	Cost float64

	// Status is the account status after the commit.
	Status *Status
}

// Metrics receives engine telemetry. Implementations must be safe for
// concurrent use; a nil Metrics disables instrumentation.
type Metrics interface {
	// RecordAdmission counts an admission decision.
	RecordAdmission(op rates.Operation, allowed bool)

	// RecordCommit records a committed operation cost.
	RecordCommit(op rates.Operation, cost float64)

	// RecordAlertTransition counts an alert level transition.
	RecordAlertTransition(level string)

	// SetUtilization publishes an account's current utilization fractions.
	SetUtilization(accountID string, daily, monthly float64)
}
