package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory maps.
// This is the default backend and provides fast access with no persistence.
// All data is lost when the process exits.
//
// MemoryStore is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryStore struct {
	// collections maps collection name to id -> document.
	collections map[string]map[string]*Document

	// mu protects access to collections.
	mu sync.RWMutex
}

// NewMemoryStore creates a new in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
	}
}

// Get retrieves a document by collection and id.
func (m *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := docs[id]
	if !ok {
		return nil, ErrNotFound
	}

	return copyDocument(doc), nil
}

// Create inserts a new document. If id is empty, one is generated.
func (m *MemoryStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection cannot be empty")
	}
	if id == "" {
		id = generateID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]*Document)
		m.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return nil, ErrAlreadyExists
	}

	now := time.Now()
	doc := &Document{
		ID:        id,
		Rev:       1,
		Data:      copyData(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	docs[id] = doc

	return copyDocument(doc), nil
}

// Update merges patch into an existing document and bumps its revision.
func (m *MemoryStore) Update(ctx context.Context, collection, id string, patch map[string]any, expectedRev int64) (*Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if expectedRev != RevAny && doc.Rev != expectedRev {
		return nil, ErrRevisionConflict
	}

	for k, v := range patch {
		doc.Data[k] = v
	}
	doc.Rev++
	doc.UpdatedAt = time.Now()

	return copyDocument(doc), nil
}

// Query returns all documents in a collection matching every filter.
func (m *MemoryStore) Query(ctx context.Context, collection string, filters []Filter) ([]*Document, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Document
	for _, doc := range m.collections[collection] {
		matched := true
		for _, f := range filters {
			if !f.matches(doc.Data) {
				matched = false
				break
			}
		}
		if matched {
			results = append(results, copyDocument(doc))
		}
	}

	return results, nil
}

// Close releases any resources held by the store.
func (m *MemoryStore) Close() error {
	return nil
}

// Size returns the number of documents in a collection.
// This is useful for monitoring and testing.
func (m *MemoryStore) Size(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// validateKey checks collection and id are non-empty.
func validateKey(collection, id string) error {
	if collection == "" {
		return fmt.Errorf("collection cannot be empty")
	}
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	return nil
}

// copyDocument returns a shallow copy of a document with a copied body map,
// so callers cannot mutate stored state through the returned pointer.
func copyDocument(doc *Document) *Document {
	cp := *doc
	cp.Data = copyData(doc.Data)
	return &cp
}

// copyData copies a document body map.
func copyData(data map[string]any) map[string]any {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}
