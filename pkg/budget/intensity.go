package budget

import (
	"context"
	"fmt"
	"log/slog"
)

// Intensity selects how aggressively the platform generates leads for an
// account. Higher levels unlock more source classes and deeper enrichment
// at a higher cost per lead.
type Intensity string

const (
	IntensityLow     Intensity = "low"
	IntensityMedium  Intensity = "medium"
	IntensityHigh    Intensity = "high"
	IntensityMaximum Intensity = "maximum"
)

// IntensityProfile is the operational plan derived from an intensity level
// and the account's budget.
type IntensityProfile struct {
	// Intensity is the selected level.
	Intensity Intensity `json:"intensity"`

	// LeadsPerHour is the generation pace ceiling.
	LeadsPerHour int `json:"leads_per_hour"`

	// EnrichmentDepth is "basic", "standard", or "deep".
	EnrichmentDepth string `json:"enrichment_depth"`

	// Sources are the source classes the level enables.
	Sources []string `json:"sources"`

	// CostMultiplier is the fraction of the daily budget the level plans
	// to spend.
	CostMultiplier float64 `json:"cost_multiplier"`

	// EstimatedDailyCost is DailyBudget times CostMultiplier in USD.
	EstimatedDailyCost float64 `json:"estimated_daily_cost"`

	// EstimatedLeadsPerDay is the expected daily lead volume, capped at the
	// account's MaxLeadsPerDay.
	EstimatedLeadsPerDay int `json:"estimated_leads_per_day"`
}

// levelParams is the static shape of one intensity level.
type levelParams struct {
	leadsPerHour   int
	depth          string
	sources        []string
	costMultiplier float64
	avgCostPerLead float64
}

var levelTable = map[Intensity]levelParams{
	IntensityLow: {
		leadsPerHour:   10,
		depth:          "basic",
		sources:        []string{"directories"},
		costMultiplier: 0.25,
		avgCostPerLead: 0.004,
	},
	IntensityMedium: {
		leadsPerHour:   25,
		depth:          "standard",
		sources:        []string{"directories", "social"},
		costMultiplier: 0.50,
		avgCostPerLead: 0.008,
	},
	IntensityHigh: {
		leadsPerHour:   50,
		depth:          "standard",
		sources:        []string{"directories", "social", "maps"},
		costMultiplier: 0.75,
		avgCostPerLead: 0.012,
	},
	IntensityMaximum: {
		leadsPerHour:   100,
		depth:          "deep",
		sources:        []string{"directories", "social", "maps", "custom"},
		costMultiplier: 1.0,
		avgCostPerLead: 0.018,
	},
}

// Controller turns intensity selections into budget-scaled profiles.
type Controller struct {
	ledger *Ledger
	logger *slog.Logger
}

// NewController creates an intensity controller.
func NewController(ledger *Ledger) *Controller {
	return &Controller{
		ledger: ledger,
		logger: slog.Default().With("component", "budget.intensity"),
	}
}

// SetIntensity computes the operational profile for the given level, scaled
// to the account's daily budget and capped at its lead ceiling.
// Returns an error for unknown levels or uninitialized accounts.
func (c *Controller) SetIntensity(ctx context.Context, accountID string, level Intensity) (*IntensityProfile, error) {
	params, ok := levelTable[level]
	if !ok {
		return nil, fmt.Errorf("unknown intensity level %q", level)
	}

	status, err := c.ledger.GetStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account := status.Account

	estimatedCost := account.DailyBudget * params.costMultiplier
	estimatedLeads := int(estimatedCost / params.avgCostPerLead)
	if max := account.Settings.MaxLeadsPerDay; max > 0 && estimatedLeads > max {
		estimatedLeads = max
	}

	profile := &IntensityProfile{
		Intensity:            level,
		LeadsPerHour:         params.leadsPerHour,
		EnrichmentDepth:      params.depth,
		Sources:              append([]string(nil), params.sources...),
		CostMultiplier:       params.costMultiplier,
		EstimatedDailyCost:   estimatedCost,
		EstimatedLeadsPerDay: estimatedLeads,
	}

	c.logger.Info("intensity profile computed",
		"account_id", accountID,
		"intensity", level,
		"estimated_daily_cost", estimatedCost,
		"estimated_leads_per_day", estimatedLeads,
	)

	return profile, nil
}
