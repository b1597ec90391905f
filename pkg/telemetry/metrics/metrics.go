// Package metrics provides Prometheus instrumentation for the budget engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadforge-hq/saturn/pkg/rates"
)

// namespace prefixes every metric name.
const namespace = "saturn"

// BudgetMetrics tracks budget engine activity.
//
// Metrics:
//   - saturn_admissions_total: Admission decisions by operation and outcome
//   - saturn_cost_total: Committed cost in USD by operation category and type
//   - saturn_cost_per_commit: Cost distribution per commit (histogram)
//   - saturn_alert_transitions_total: Alert level transitions by level
//   - saturn_budget_utilization: Current utilization fraction per account and period
type BudgetMetrics struct {
	registry *prometheus.Registry

	admissions       *prometheus.CounterVec
	costTotal        *prometheus.CounterVec
	costPerCommit    *prometheus.HistogramVec
	alertTransitions *prometheus.CounterVec
	utilization      *prometheus.GaugeVec
}

// New creates and registers the budget metrics on a fresh registry.
func New() *BudgetMetrics {
	registry := prometheus.NewRegistry()

	bm := &BudgetMetrics{
		registry: registry,

		admissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admissions_total",
				Help:      "Admission decisions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_total",
				Help:      "Committed cost in USD by operation category and type",
			},
			[]string{"category", "type"},
		),

		costPerCommit: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cost_per_commit",
				Help:      "Cost distribution per commit in USD",
				// Per-unit rates run from $0.0002 to $0.015, so batch commits
				// land between fractions of a cent and a few dollars.
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"category"},
		),

		alertTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alert_transitions_total",
				Help:      "Alert level transitions by level",
			},
			[]string{"level"},
		),

		utilization: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "budget_utilization",
				Help:      "Current budget utilization fraction per account and period",
			},
			[]string{"account_id", "period"},
		),
	}

	registry.MustRegister(
		bm.admissions,
		bm.costTotal,
		bm.costPerCommit,
		bm.alertTransitions,
		bm.utilization,
	)

	return bm
}

// RecordAdmission counts an admission decision.
func (bm *BudgetMetrics) RecordAdmission(op rates.Operation, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	bm.admissions.WithLabelValues(string(op), outcome).Inc()
}

// RecordCommit records a committed operation cost.
func (bm *BudgetMetrics) RecordCommit(op rates.Operation, cost float64) {
	bm.costTotal.WithLabelValues(op.Category(), op.Type()).Add(cost)
	bm.costPerCommit.WithLabelValues(op.Category()).Observe(cost)
}

// RecordAlertTransition counts an alert level transition.
func (bm *BudgetMetrics) RecordAlertTransition(level string) {
	bm.alertTransitions.WithLabelValues(level).Inc()
}

// SetUtilization publishes an account's current utilization fractions.
func (bm *BudgetMetrics) SetUtilization(accountID string, daily, monthly float64) {
	bm.utilization.WithLabelValues(accountID, "daily").Set(daily)
	bm.utilization.WithLabelValues(accountID, "monthly").Set(monthly)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (bm *BudgetMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(bm.registry, promhttp.HandlerOpts{})
}
