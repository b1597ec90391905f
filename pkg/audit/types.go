package audit

import (
	"context"
	"time"

	"leadforge-hq/saturn/pkg/rates"
)

// DateLayout is the calendar-date format used for event bucketing.
const DateLayout = "2006-01-02"

// CostEvent records the cost of one committed billable operation.
// Events are write-once; nothing in the engine mutates a stored event.
type CostEvent struct {
	// ID is the unique event identifier (UUID, assigned on append).
	ID string `json:"id"`

	// AccountID is the account the cost was charged to.
	AccountID string `json:"account_id"`

	// Operation is the billable operation, as "category.type".
	Operation rates.Operation `json:"operation"`

	// Quantity is the number of units performed.
	Quantity int `json:"quantity"`

	// UnitCost is the per-unit cost applied, after modifiers, in USD.
	UnitCost float64 `json:"unit_cost"`

	// TotalCost is the committed cost in USD.
	TotalCost float64 `json:"total_cost"`

	// Metadata carries the quality/speed modifiers applied at commit.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Timestamp is when the cost was committed.
	Timestamp time.Time `json:"timestamp"`

	// Date is the calendar date of the commit (DateLayout).
	Date string `json:"date"`
}

// AlertRecord records one alert level transition for an account.
type AlertRecord struct {
	// ID is the unique record identifier (UUID, assigned on append).
	ID string `json:"id"`

	// AccountID is the account the alert belongs to.
	AccountID string `json:"account_id"`

	// Level is the alert level entered ("normal", "caution", "warning", "critical").
	Level string `json:"level"`

	// Message is the human-readable alert text.
	Message string `json:"message"`

	// Timestamp is when the transition happened.
	Timestamp time.Time `json:"timestamp"`

	// Date is the calendar date of the transition (DateLayout).
	Date string `json:"date"`

	// Spend/budget snapshot at the time of the alert.
	DailySpend    float64 `json:"daily_spend"`
	DailyBudget   float64 `json:"daily_budget"`
	MonthlySpend  float64 `json:"monthly_spend"`
	MonthlyBudget float64 `json:"monthly_budget"`
}

// Store is the audit trail persistence interface.
// Implementations must be safe for concurrent use.
type Store interface {
	// AppendCostEvent persists a cost event. An empty ID is assigned.
	AppendCostEvent(ctx context.Context, event *CostEvent) error

	// CostEvents returns an account's events with startDate <= date <= endDate
	// (both DateLayout), ordered by timestamp ascending.
	CostEvents(ctx context.Context, accountID, startDate, endDate string) ([]*CostEvent, error)

	// AppendAlert persists an alert record. An empty ID is assigned.
	AppendAlert(ctx context.Context, record *AlertRecord) error

	// LatestAlert returns the most recent alert for an account on a date,
	// or nil if none was recorded.
	LatestAlert(ctx context.Context, accountID, date string) (*AlertRecord, error)

	// Prune deletes records older than the cutoff.
	// Returns the number of records deleted.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
