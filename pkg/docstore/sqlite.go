package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
// This backend provides durable storage and is suitable for single-instance
// deployments where account state must survive restarts.
//
// SQLiteStore uses a write-ahead log (WAL) for better concurrent performance
// and automatic checkpointing to balance write performance with durability.
type SQLiteStore struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	// preparedStatements contains pre-compiled SQL statements for performance
	getStmt    *sql.Stmt
	insertStmt *sql.Stmt
	updateStmt *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a new SQLite document store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{
		DBPath:             dbPath,
		CheckpointInterval: 5 * time.Minute,
		BusyTimeout:        5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig creates a new SQLite store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	// Apply defaults
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// Open database with WAL mode and busy timeout
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Prepare statements
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	// Start background checkpoint goroutine
	go store.checkpointLoop()

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		rev INTEGER NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT id, rev, data, created_at, updated_at
		FROM documents
		WHERE collection = ? AND id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO documents (collection, id, rev, data, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.updateStmt, err = s.db.Prepare(`
		UPDATE documents
		SET rev = rev + 1, data = ?, updated_at = ?
		WHERE collection = ? AND id = ? AND rev = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update statement: %w", err)
	}

	return nil
}

// Get retrieves a document by collection and id.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getLocked(ctx, collection, id)
}

// getLocked loads a document. Caller must hold at least a read lock.
func (s *SQLiteStore) getLocked(ctx context.Context, collection, id string) (*Document, error) {
	var (
		rev       int64
		dataJSON  string
		createdAt int64
		updatedAt int64
	)

	err := s.getStmt.QueryRowContext(ctx, collection, id).Scan(
		&id, &rev, &dataJSON, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %q: %w", id, err)
	}

	return &Document{
		ID:        id,
		Rev:       rev,
		Data:      data,
		CreatedAt: time.Unix(createdAt, 0),
		UpdatedAt: time.Unix(updatedAt, 0),
	}, nil
}

// Create inserts a new document. If id is empty, one is generated.
func (s *SQLiteStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection cannot be empty")
	}
	if id == "" {
		id = generateID()
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	_, err = s.insertStmt.ExecContext(ctx, collection, id, string(dataJSON), now.Unix(), now.Unix())
	if err != nil {
		// The primary key constraint is the only one on this table.
		if isConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return &Document{
		ID:        id,
		Rev:       1,
		Data:      copyData(data),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Update merges patch into an existing document and bumps its revision.
// The read-merge-write runs under the store's write lock, and the UPDATE
// itself is revision-guarded, so concurrent writers cannot lose updates.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, patch map[string]any, expectedRev int64) (*Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.getLocked(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	if expectedRev != RevAny && doc.Rev != expectedRev {
		return nil, ErrRevisionConflict
	}

	for k, v := range patch {
		doc.Data[k] = v
	}

	dataJSON, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	now := time.Now()
	result, err := s.updateStmt.ExecContext(ctx, string(dataJSON), now.Unix(), collection, id, doc.Rev)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrRevisionConflict
	}

	doc.Rev++
	doc.UpdatedAt = now

	return doc, nil
}

// Query returns all documents in a collection matching every filter.
// Filters are applied via json_extract on the stored document body.
func (s *SQLiteStore) Query(ctx context.Context, collection string, filters []Filter) ([]*Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection cannot be empty")
	}

	query := `
		SELECT id, rev, data, created_at, updated_at
		FROM documents
		WHERE collection = ?
	`
	args := []any{collection}

	for _, f := range filters {
		op, ok := sqlOp(f.Op)
		if !ok {
			return nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		query += fmt.Sprintf(" AND json_extract(data, '$.' || ?) %s ?", op)
		args = append(args, f.Field, f.Value)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var (
			id        string
			rev       int64
			dataJSON  string
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&id, &rev, &dataJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %q: %w", id, err)
		}

		docs = append(docs, &Document{
			ID:        id,
			Rev:       rev,
			Data:      data,
			CreatedAt: time.Unix(createdAt, 0),
			UpdatedAt: time.Unix(updatedAt, 0),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return docs, nil
}

// Close releases any resources held by the store.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		// Signal checkpoint goroutine to stop
		close(s.done)

		// Close prepared statements
		if s.getStmt != nil {
			s.getStmt.Close()
		}
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if s.updateStmt != nil {
			s.updateStmt.Close()
		}

		// Close database
		if s.db != nil {
			// Run final checkpoint
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}

// sqlOp maps a FilterOp to its SQL operator.
func sqlOp(op FilterOp) (string, bool) {
	switch op {
	case OpEqual:
		return "=", true
	case OpGreaterOrEqual:
		return ">=", true
	case OpLessOrEqual:
		return "<=", true
	default:
		return "", false
	}
}

// isConstraintError reports whether err is a SQLite constraint violation.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// modernc.org/sqlite reports constraint violations in the error string;
	// the driver does not expose a typed error for them.
	msg := err.Error()
	return strings.Contains(msg, "constraint") || strings.Contains(msg, "UNIQUE")
}
