package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outcomeSkipped labels rows that never reached the dispatcher because they
// could not be rendered. It exists only as a metric label; skipped rows
// produce no Announcement.
const outcomeSkipped = "skipped"

// Metrics provides observability for watcher runs. Methods are nil-safe so
// tests and library callers can leave metrics off.
type Metrics struct {
	// Run durations by outcome ("ok", "error")
	RunDuration *prometheus.HistogramVec

	// Records newly captured and expired out of the window
	RecordsNew     prometheus.Counter
	RecordsExpired prometheus.Counter

	// Current ledger size after save
	LedgerRecords prometheus.Gauge

	// Announcement outcomes by disposition
	Announcements *prometheus.CounterVec

	// Attempts needed per dispatch cycle
	DispatchAttempts prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics on the default
// registry. Call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pacwatch_run_duration_seconds",
			Help:    "Duration of complete watcher runs by outcome",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		RecordsNew: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pacwatch_records_new_total",
			Help: "Total expenditure records captured as new",
		}),

		RecordsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pacwatch_records_expired_total",
			Help: "Total ledger records dropped by the retention window",
		}),

		LedgerRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pacwatch_ledger_records",
			Help: "Ledger size after the most recent save",
		}),

		Announcements: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pacwatch_announcements_total",
			Help: "Total announcement rows by outcome",
		}, []string{"outcome"}), // outcome: "delivered", "failed", "dry-run", "skipped"

		DispatchAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pacwatch_dispatch_attempts",
			Help:    "Attempts spent per dispatch cycle",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
	}
}

// ObserveRun records one run's duration under its outcome.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m != nil {
		m.RunDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// ObserveLedger records the ledger movement of one successful save.
func (m *Metrics) ObserveLedger(newRecords, expired, size int) {
	if m != nil {
		m.RecordsNew.Add(float64(newRecords))
		m.RecordsExpired.Add(float64(expired))
		m.LedgerRecords.Set(float64(size))
	}
}

// IncrementAnnouncement counts one announcement row outcome.
func (m *Metrics) IncrementAnnouncement(outcome string) {
	if m != nil {
		m.Announcements.WithLabelValues(outcome).Inc()
	}
}

// ObserveDispatchAttempts records how many attempts one dispatch cycle took.
func (m *Metrics) ObserveDispatchAttempts(attempts int) {
	if m != nil {
		m.DispatchAttempts.Observe(float64(attempts))
	}
}
