package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrAlreadyExists indicates a Create collided with an existing document.
	ErrAlreadyExists = errors.New("docstore: document already exists")

	// ErrRevisionConflict indicates an Update was made against a stale revision.
	ErrRevisionConflict = errors.New("docstore: revision conflict")
)

// RevAny disables the revision check on Update.
const RevAny int64 = 0

// Store is the document store interface consumed by the budget engine.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a document by collection and id.
	// Returns ErrNotFound if no document exists.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Create inserts a new document. If id is empty, one is generated.
	// Returns ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error)

	// Update merges patch into an existing document and bumps its revision.
	// If expectedRev is not RevAny, the update fails with ErrRevisionConflict
	// when the stored revision differs. Returns the updated document.
	Update(ctx context.Context, collection, id string, patch map[string]any, expectedRev int64) (*Document, error)

	// Query returns all documents in a collection matching every filter.
	Query(ctx context.Context, collection string, filters []Filter) ([]*Document, error)

	// Close releases any resources held by the store.
	Close() error
}

// Document is a stored JSON object with revision metadata.
type Document struct {
	// ID is the document identifier, unique within its collection.
	ID string

	// Rev is the revision number, starting at 1 and incremented on every update.
	Rev int64

	// Data is the document body.
	Data map[string]any

	// CreatedAt is when the document was first created.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time
}

// Decode unmarshals the document body into out via a JSON round-trip.
func (d *Document) Decode(out any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal document %q: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document %q: %w", d.ID, err)
	}
	return nil
}

// Encode converts a struct into a document body via a JSON round-trip.
func Encode(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return data, nil
}

// FilterOp is a comparison operator for Query filters.
type FilterOp string

const (
	// OpEqual matches documents whose field equals the filter value.
	OpEqual FilterOp = "=="

	// OpGreaterOrEqual matches documents whose field is >= the filter value.
	OpGreaterOrEqual FilterOp = ">="

	// OpLessOrEqual matches documents whose field is <= the filter value.
	OpLessOrEqual FilterOp = "<="
)

// Filter constrains a Query to documents matching a field comparison.
type Filter struct {
	// Field is the top-level field name in the document body.
	Field string

	// Op is the comparison operator.
	Op FilterOp

	// Value is the comparand.
	Value any
}

// matches reports whether a document body satisfies the filter.
func (f Filter) matches(data map[string]any) bool {
	got, ok := data[f.Field]
	if !ok {
		return false
	}

	switch f.Op {
	case OpEqual:
		return compareValues(got, f.Value) == 0
	case OpGreaterOrEqual:
		return compareValues(got, f.Value) >= 0
	case OpLessOrEqual:
		return compareValues(got, f.Value) <= 0
	default:
		return false
	}
}

// compareValues compares two JSON scalar values.
// Numbers compare numerically, everything else compares as strings.
func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// toFloat converts numeric types (including JSON-decoded float64) to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// generateID returns a new document id.
func generateID() string {
	return uuid.NewString()
}
