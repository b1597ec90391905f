package budget

import (
	"context"
	"fmt"
	"log/slog"

	"leadforge-hq/saturn/pkg/audit"
	"leadforge-hq/saturn/pkg/rates"
)

// CostReport aggregates the audit trail over a date range.
type CostReport struct {
	// AccountID identifies the account.
	AccountID string `json:"account_id"`

	// StartDate and EndDate bound the report, inclusive (2006-01-02).
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// TotalCost is the summed cost of all events in range, in USD.
	TotalCost float64 `json:"total_cost"`

	// OperationBreakdown maps operation to its summed cost.
	OperationBreakdown map[rates.Operation]float64 `json:"operation_breakdown"`

	// DailyBreakdown maps date to its summed cost.
	DailyBreakdown map[string]float64 `json:"daily_breakdown"`

	// LeadsGenerated is the total quantity across scraping operations.
	LeadsGenerated int `json:"leads_generated"`

	// AvgCostPerLead is TotalCost / LeadsGenerated, zero when no leads.
	AvgCostPerLead float64 `json:"avg_cost_per_lead"`
}

// Reporter builds cost reports from the audit store.
type Reporter struct {
	store  audit.Store
	logger *slog.Logger
}

// NewReporter creates a cost reporter.
func NewReporter(store audit.Store) *Reporter {
	return &Reporter{
		store:  store,
		logger: slog.Default().With("component", "budget.report"),
	}
}

// GenerateCostReport aggregates cost events for the account over the
// inclusive date range.
func (r *Reporter) GenerateCostReport(ctx context.Context, accountID, startDate, endDate string) (*CostReport, error) {
	if startDate > endDate {
		return nil, fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}

	events, err := r.store.CostEvents(ctx, accountID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load cost events: %w", err)
	}

	report := &CostReport{
		AccountID:          accountID,
		StartDate:          startDate,
		EndDate:            endDate,
		OperationBreakdown: make(map[rates.Operation]float64),
		DailyBreakdown:     make(map[string]float64),
	}

	for _, e := range events {
		report.TotalCost += e.TotalCost
		report.OperationBreakdown[e.Operation] += e.TotalCost
		report.DailyBreakdown[e.Date] += e.TotalCost
		if e.Operation.Category() == rates.CategoryScraping {
			report.LeadsGenerated += e.Quantity
		}
	}
	if report.LeadsGenerated > 0 {
		report.AvgCostPerLead = report.TotalCost / float64(report.LeadsGenerated)
	}

	return report, nil
}
