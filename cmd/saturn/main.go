// Saturn is a budget-constrained admission control and cost accounting
// engine for lead-generation workloads.
//
// Every billable operation (scraping, enrichment, messaging) is checked
// against per-account daily and monthly budgets before it runs, and its
// realized cost is recorded to a durable audit trail afterwards.
//
// Usage:
//
//	# Start the admin server with default configuration
//	saturn run
//
//	# Start with a custom configuration file
//	saturn run --config /path/to/config.yaml
//
//	# Show version information
//	saturn version
package main

func main() {
	Execute()
}
