// Package metrics exposes Prometheus counters for the write path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BillsCreated counts bills created, labeled by split method.
	BillsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_bills_created_total",
		Help: "Number of bills created.",
	}, []string{"split_method"})

	// EditsApplied counts bill edits that were accepted.
	EditsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_edits_applied_total",
		Help: "Number of bill edits applied.",
	}, []string{"kind"})

	// PaymentsRecorded counts payment events appended to bills.
	PaymentsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_payments_recorded_total",
		Help: "Number of payment events recorded.",
	})

	// VersionConflicts counts writes rejected by the optimistic version check.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_version_conflicts_total",
		Help: "Number of writes rejected because the bill version was stale.",
	})

	// BillsCompleted counts bills that reached the completed status.
	BillsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_bills_completed_total",
		Help: "Number of bills fully settled.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
