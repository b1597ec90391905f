package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls pruning of old audit records.
type RetentionConfig struct {
	// RetentionDays is how many days of records to keep.
	// Default: 90. Zero disables pruning.
	RetentionDays int

	// PruneSchedule is a cron expression for when to prune.
	// Default: "0 3 * * *" (daily at 3 AM). Empty disables the scheduler.
	PruneSchedule string
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner deletes audit records past the retention window.
type Pruner struct {
	store  Store
	config RetentionConfig
	logger *slog.Logger
}

// NewPruner creates a new retention pruner.
func NewPruner(store Store, config RetentionConfig) *Pruner {
	return &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "audit.pruner"),
	}
}

// Prune deletes records older than the retention window.
// Returns the number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int, error) {
	if p.config.RetentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}

	return deleted, nil
}

// Scheduler runs the pruner at scheduled intervals using cron syntax.
type Scheduler struct {
	pruner  *Pruner
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a new retention scheduler.
func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		cron:   cron.New(),
		logger: slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled pruning based on the configured cron expression.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//
// If PruneSchedule is empty, the scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pruner.config.PruneSchedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	// Validate cron expression
	if _, err := cron.ParseStandard(s.pruner.config.PruneSchedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w",
			s.pruner.config.PruneSchedule, err)
	}

	_, err := s.cron.AddFunc(s.pruner.config.PruneSchedule, func() {
		s.runPruning(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.pruner.config.PruneSchedule,
		"retention_days", s.pruner.config.RetentionDays,
	)

	// Wait for context cancellation in background
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runPruning executes a pruning cycle.
func (s *Scheduler) runPruning(ctx context.Context) {
	deleted, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("scheduled pruning completed", "deleted_count", deleted)
	} else {
		s.logger.Debug("scheduled pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
