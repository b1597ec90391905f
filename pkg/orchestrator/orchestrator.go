package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"leadforge-hq/saturn/pkg/budget"
	"leadforge-hq/saturn/pkg/rates"
)

// SourceClass groups sources by the daily budget they require.
type SourceClass string

const (
	ClassDirectories SourceClass = "directories"
	ClassSocial      SourceClass = "social"
	ClassMaps        SourceClass = "maps"
	ClassCustom      SourceClass = "custom"
)

// Daily budget thresholds that unlock source classes.
const (
	socialMinDailyBudget = 2.00
	mapsMinDailyBudget   = 10.00
)

// Source produces leads from one upstream provider.
type Source interface {
	// Name identifies the source in logs and results.
	Name() string

	// Class is the source's budget class.
	Class() SourceClass

	// Operation is the billable operation charged per fetched lead.
	Operation() rates.Operation

	// Fetch returns up to limit leads. It may return fewer.
	Fetch(ctx context.Context, limit int) ([]Lead, error)
}

// RunResult is the outcome of one orchestration run.
type RunResult struct {
	// Leads are the validated, deduplicated leads in fetch order.
	Leads []Lead

	// TotalCost is the committed cost of the run in USD.
	TotalCost float64

	// SourcesRun names the sources that fetched.
	SourcesRun []string

	// SourcesSkipped names sources skipped by class gating or fetch failure.
	SourcesSkipped []string

	// Stopped is true when a budget denial ended the run early.
	Stopped bool

	// StopReason explains the early stop.
	StopReason string

	// Duplicates counts leads dropped by deduplication.
	Duplicates int

	// Invalid counts leads dropped for having no contact channel.
	Invalid int
}

// Orchestrator runs lead sources under admission control.
type Orchestrator struct {
	engine  *budget.Engine
	sources []Source
	logger  *slog.Logger
}

// New creates an orchestrator over the given sources. Sources run in the
// order given.
func New(engine *budget.Engine, sources []Source) *Orchestrator {
	return &Orchestrator{
		engine:  engine,
		sources: sources,
		logger:  slog.Default().With("component", "orchestrator"),
	}
}

// classAllowed reports whether the class is unlocked at the daily budget.
func classAllowed(class SourceClass, dailyBudget float64) bool {
	switch class {
	case ClassDirectories:
		return true
	case ClassSocial:
		return dailyBudget >= socialMinDailyBudget
	case ClassMaps, ClassCustom:
		return dailyBudget >= mapsMinDailyBudget
	default:
		return false
	}
}

// Run fetches leads from each eligible source, up to perSourceLimit leads
// per source, until the sources are exhausted or the budget engine denies
// admission. The result always carries the leads collected so far; an error
// is returned only when the account state itself cannot be read.
func (o *Orchestrator) Run(ctx context.Context, accountID string, perSourceLimit int) (*RunResult, error) {
	if perSourceLimit <= 0 {
		return nil, fmt.Errorf("per-source limit must be positive")
	}

	// One snapshot decides class eligibility for the whole run, so a budget
	// change mid-run cannot unlock sources the run started without.
	status, err := o.engine.GetStatus(ctx, accountID)
	if err != nil {
		return nil, err
	}
	dailyBudget := status.Account.DailyBudget

	result := &RunResult{}
	seen := make(map[string]struct{})

	for _, src := range o.sources {
		if !classAllowed(src.Class(), dailyBudget) {
			o.logger.Debug("source class locked",
				"account_id", accountID,
				"source", src.Name(),
				"class", src.Class(),
				"daily_budget", dailyBudget,
			)
			result.SourcesSkipped = append(result.SourcesSkipped, src.Name())
			continue
		}

		adm, err := o.engine.CheckAdmission(ctx, accountID, src.Operation(), perSourceLimit)
		if err != nil {
			return nil, err
		}
		if !adm.CanProceed {
			result.Stopped = true
			result.StopReason = adm.Reason
			o.logger.Info("run stopped by admission check",
				"account_id", accountID,
				"source", src.Name(),
				"reason", adm.Reason,
			)
			break
		}

		leads, err := src.Fetch(ctx, perSourceLimit)
		if err != nil {
			o.logger.Error("source fetch failed",
				"account_id", accountID,
				"source", src.Name(),
				"error", err,
			)
			result.SourcesSkipped = append(result.SourcesSkipped, src.Name())
			continue
		}

		// Charge what was actually fetched, not the requested limit.
		commit, err := o.engine.RecordCost(ctx, accountID, src.Operation(), len(leads), budget.Metadata{})
		if err != nil {
			if errors.Is(err, budget.ErrBudgetExceeded) {
				result.Stopped = true
				result.StopReason = err.Error()
				o.logger.Warn("run stopped by budget ceiling",
					"account_id", accountID,
					"source", src.Name(),
				)
				break
			}
			return nil, err
		}
		result.TotalCost += commit.Cost
		result.SourcesRun = append(result.SourcesRun, src.Name())

		for _, lead := range leads {
			if lead.Source == "" {
				lead.Source = src.Name()
			}
			if !lead.Valid() {
				result.Invalid++
				continue
			}
			key := keyOf(lead)
			if _, dup := seen[key]; dup {
				result.Duplicates++
				continue
			}
			seen[key] = struct{}{}
			result.Leads = append(result.Leads, lead)
		}
	}

	o.logger.Info("orchestration run finished",
		"account_id", accountID,
		"leads", len(result.Leads),
		"duplicates", result.Duplicates,
		"invalid", result.Invalid,
		"total_cost", result.TotalCost,
		"stopped", result.Stopped,
	)

	return result, nil
}
