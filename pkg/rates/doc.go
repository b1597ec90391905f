// Package rates provides the static rate table mapping billable operations
// to unit costs and budget tiers to their capability limits.
//
// The Table is constructed once at startup and shared read-only across all
// accounts. Unit costs can be overridden from a YAML file and hot-reloaded
// through a debounced file watcher; tier brackets and limits are fixed.
//
// Operations form a closed set of "category.type" constants. A lookup for an
// operation outside the set reports ok=false so callers can treat it as
// zero-cost during rollout of new operation types instead of failing.
package rates
