package rates

import (
	"strings"
	"sync"
)

// Operation identifies a billable operation as "category.type".
type Operation string

// The closed set of billable operations.
const (
	// Directory scraping
	OpBasicScrape    Operation = "scraping.basicScrape"
	OpDetailedScrape Operation = "scraping.detailedScrape"

	// Contact and company enrichment
	OpContactEnrichment Operation = "enrichment.contactEnrichment"
	OpCompanyEnrichment Operation = "enrichment.companyEnrichment"
	OpEmailVerification Operation = "enrichment.emailVerification"

	// Outbound messaging
	OpEmailSend     Operation = "messaging.emailSend"
	OpSMSSend       Operation = "messaging.smsSend"
	OpSocialMessage Operation = "messaging.socialMessage"
)

// Operation categories.
const (
	CategoryScraping   = "scraping"
	CategoryEnrichment = "enrichment"
	CategoryMessaging  = "messaging"
)

// Operations returns every operation in the closed set.
func Operations() []Operation {
	return []Operation{
		OpBasicScrape,
		OpDetailedScrape,
		OpContactEnrichment,
		OpCompanyEnrichment,
		OpEmailVerification,
		OpEmailSend,
		OpSMSSend,
		OpSocialMessage,
	}
}

// Category returns the category part of the operation key.
func (o Operation) Category() string {
	if i := strings.IndexByte(string(o), '.'); i >= 0 {
		return string(o)[:i]
	}
	return string(o)
}

// Type returns the type part of the operation key.
func (o Operation) Type() string {
	if i := strings.IndexByte(string(o), '.'); i >= 0 {
		return string(o)[i+1:]
	}
	return string(o)
}

// ParseOperation resolves a bare type name or full "category.type" key to an
// operation in the closed set. Returns ok=false for unrecognized keys.
func ParseOperation(key string) (Operation, bool) {
	for _, op := range Operations() {
		if string(op) == key || op.Type() == key {
			return op, true
		}
	}
	return Operation(key), false
}

// defaultUnitCosts contains the built-in per-unit cost in USD for each operation.
func defaultUnitCosts() map[Operation]float64 {
	return map[Operation]float64{
		OpBasicScrape:       0.0005,
		OpDetailedScrape:    0.002,
		OpContactEnrichment: 0.01,
		OpCompanyEnrichment: 0.015,
		OpEmailVerification: 0.001,
		OpEmailSend:         0.0002,
		OpSMSSend:           0.0075,
		OpSocialMessage:     0.005,
	}
}

// Table holds unit costs per operation and the fixed tier limits.
// It is thread-safe and supports hot-reload of the unit cost overrides.
type Table struct {
	// unitCosts maps operation to cost per unit in USD.
	unitCosts map[Operation]float64

	// mu protects the table for concurrent access.
	mu sync.RWMutex
}

// NewTable creates a rate table with the built-in default unit costs.
func NewTable() *Table {
	return &Table{
		unitCosts: defaultUnitCosts(),
	}
}

// UnitCost returns the per-unit cost for an operation.
// ok is false when the operation is not in the table; callers treat such
// operations as zero-cost rather than failing.
func (t *Table) UnitCost(op Operation) (cost float64, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cost, ok = t.unitCosts[op]
	return cost, ok
}

// Cost returns the total cost for qty units of an operation.
// Unknown operations cost zero.
func (t *Table) Cost(op Operation, qty int) float64 {
	if qty <= 0 {
		return 0
	}
	unit, ok := t.UnitCost(op)
	if !ok {
		return 0
	}
	return unit * float64(qty)
}

// SetUnitCosts replaces unit cost entries (hot-reload support).
// Operations absent from overrides keep their current cost. This is
// thread-safe and can be called while the table is in use.
func (t *Table) SetUnitCosts(overrides map[Operation]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for op, cost := range overrides {
		t.unitCosts[op] = cost
	}
}

// UnitCosts returns a copy of the current unit cost map.
func (t *Table) UnitCosts() map[Operation]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Operation]float64, len(t.unitCosts))
	for op, cost := range t.unitCosts {
		out[op] = cost
	}
	return out
}
