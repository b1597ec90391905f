package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"leadforge-hq/saturn/pkg/rates"
)

// SQLiteConfig contains configuration for the SQLite audit store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite audit store.
// It initializes the schema and enables WAL mode.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d",
		config.Path, int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("audit storage initialized",
		"path", config.Path,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initSchema creates the audit tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cost_events (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		operation TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_cost REAL NOT NULL,
		total_cost REAL NOT NULL,
		metadata TEXT,
		timestamp INTEGER NOT NULL,
		date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cost_events_account_date
		ON cost_events(account_id, date);
	CREATE INDEX IF NOT EXISTS idx_cost_events_timestamp
		ON cost_events(timestamp);

	CREATE TABLE IF NOT EXISTS alert_records (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		date TEXT NOT NULL,
		daily_spend REAL NOT NULL,
		daily_budget REAL NOT NULL,
		monthly_spend REAL NOT NULL,
		monthly_budget REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alert_records_account_date
		ON alert_records(account_id, date);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	return nil
}

// AppendCostEvent persists a cost event.
func (s *SQLiteStore) AppendCostEvent(ctx context.Context, event *CostEvent) error {
	if err := validateEvent(event); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_events (id, account_id, operation, quantity, unit_cost, total_cost, metadata, timestamp, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.AccountID,
		string(event.Operation),
		event.Quantity,
		event.UnitCost,
		event.TotalCost,
		string(metadataJSON),
		event.Timestamp.UnixNano(),
		event.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to append cost event: %w", err)
	}

	return nil
}

// CostEvents returns an account's events within a date range, ordered by time.
func (s *SQLiteStore) CostEvents(ctx context.Context, accountID, startDate, endDate string) ([]*CostEvent, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, operation, quantity, unit_cost, total_cost, metadata, timestamp, date
		FROM cost_events
		WHERE account_id = ? AND date >= ? AND date <= ?
		ORDER BY timestamp ASC`,
		accountID, startDate, endDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost events: %w", err)
	}
	defer rows.Close()

	var events []*CostEvent
	for rows.Next() {
		var (
			e            CostEvent
			operation    string
			metadataJSON string
			timestamp    int64
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &operation, &e.Quantity, &e.UnitCost,
			&e.TotalCost, &metadataJSON, &timestamp, &e.Date); err != nil {
			return nil, fmt.Errorf("failed to scan cost event: %w", err)
		}

		e.Operation = rates.Operation(operation)
		e.Timestamp = time.Unix(0, timestamp)

		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
			}
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cost events: %w", err)
	}

	return events, nil
}

// AppendAlert persists an alert record.
func (s *SQLiteStore) AppendAlert(ctx context.Context, record *AlertRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if record.AccountID == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_records (id, account_id, level, message, timestamp, date,
			daily_spend, daily_budget, monthly_spend, monthly_budget)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.AccountID,
		record.Level,
		record.Message,
		record.Timestamp.UnixNano(),
		record.Date,
		record.DailySpend,
		record.DailyBudget,
		record.MonthlySpend,
		record.MonthlyBudget,
	)
	if err != nil {
		return fmt.Errorf("failed to append alert record: %w", err)
	}

	return nil
}

// LatestAlert returns the most recent alert for an account on a date.
func (s *SQLiteStore) LatestAlert(ctx context.Context, accountID, date string) (*AlertRecord, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, level, message, timestamp, date,
			daily_spend, daily_budget, monthly_spend, monthly_budget
		FROM alert_records
		WHERE account_id = ? AND date = ?
		ORDER BY timestamp DESC
		LIMIT 1`,
		accountID, date,
	)

	var (
		r         AlertRecord
		timestamp int64
	)
	err := row.Scan(&r.ID, &r.AccountID, &r.Level, &r.Message, &timestamp, &r.Date,
		&r.DailySpend, &r.DailyBudget, &r.MonthlySpend, &r.MonthlyBudget)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest alert: %w", err)
	}

	r.Timestamp = time.Unix(0, timestamp)
	return &r, nil
}

// Prune deletes records older than the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, table := range []string{"cost_events", "alert_records"} {
		result, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE timestamp < ?", table),
			olderThan.UnixNano(),
		)
		if err != nil {
			return deleted, fmt.Errorf("failed to prune %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted += int(n)
	}

	return deleted, nil
}

// Close releases any resources held by the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
