package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// StockAlertsTotal counts low-stock alert confirmations by outcome.
	StockAlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watermonitor",
		Subsystem: "alerts",
		Name:      "stock_alerts_total",
		Help:      "Low-stock alert confirmations, labeled by result (sent, suppressed, transport_error, persistence_error).",
	}, []string{"result"})

	// IssuesTotal counts issue submissions by outcome.
	IssuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watermonitor",
		Subsystem: "issues",
		Name:      "submissions_total",
		Help:      "Issue submissions, labeled by result (sent, invalid, transport_error, persistence_error).",
	}, []string{"result"})

	// DatasetRefreshTotal counts dataset cache refreshes by outcome.
	DatasetRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watermonitor",
		Subsystem: "dataset",
		Name:      "refresh_total",
		Help:      "Site dataset refreshes, labeled by result (ok, error).",
	}, []string{"result"})

	// DatasetSites is the number of sites in the cached dataset.
	DatasetSites = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "watermonitor",
		Subsystem: "dataset",
		Name:      "sites",
		Help:      "Number of sites in the cached dataset.",
	})
)

// Result labels.
const (
	ResultSent             = "sent"
	ResultSuppressed       = "suppressed"
	ResultStale            = "stale"
	ResultInvalid          = "invalid"
	ResultTransportError   = "transport_error"
	ResultPersistenceError = "persistence_error"
	ResultOK               = "ok"
	ResultError            = "error"
)

// Register registers the monitor metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			StockAlertsTotal,
			IssuesTotal,
			DatasetRefreshTotal,
			DatasetSites,
		)
	})
}
