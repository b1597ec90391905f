package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store using in-memory slices.
// Intended for tests and for deployments where the audit trail
// does not need to survive restarts.
type MemoryStore struct {
	events []*CostEvent
	alerts []*AlertRecord
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendCostEvent persists a cost event.
func (m *MemoryStore) AppendCostEvent(ctx context.Context, event *CostEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *event
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.events = append(m.events, &cp)

	// Propagate the assigned ID to the caller.
	event.ID = cp.ID
	return nil
}

// CostEvents returns an account's events within a date range, ordered by time.
func (m *MemoryStore) CostEvents(ctx context.Context, accountID, startDate, endDate string) ([]*CostEvent, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*CostEvent
	for _, e := range m.events {
		if e.AccountID != accountID {
			continue
		}
		if e.Date < startDate || e.Date > endDate {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// AppendAlert persists an alert record.
func (m *MemoryStore) AppendAlert(ctx context.Context, record *AlertRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.AccountID == "" {
		return fmt.Errorf("account id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *record
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.alerts = append(m.alerts, &cp)

	record.ID = cp.ID
	return nil
}

// LatestAlert returns the most recent alert for an account on a date.
func (m *MemoryStore) LatestAlert(ctx context.Context, accountID, date string) (*AlertRecord, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *AlertRecord
	for _, a := range m.alerts {
		if a.AccountID != accountID || a.Date != date {
			continue
		}
		if latest == nil || a.Timestamp.After(latest.Timestamp) {
			latest = a
		}
	}

	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

// Prune deletes records older than the cutoff.
func (m *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0

	kept := m.events[:0]
	for _, e := range m.events {
		if e.Timestamp.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept

	keptAlerts := m.alerts[:0]
	for _, a := range m.alerts {
		if a.Timestamp.Before(olderThan) {
			deleted++
			continue
		}
		keptAlerts = append(keptAlerts, a)
	}
	m.alerts = keptAlerts

	return deleted, nil
}

// Close releases any resources held by the store.
func (m *MemoryStore) Close() error {
	return nil
}

// validateEvent checks the required cost event fields.
func validateEvent(event *CostEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.AccountID == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if event.Date == "" {
		return fmt.Errorf("event date cannot be empty")
	}
	return nil
}
