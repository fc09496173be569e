package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction metrics
	TransactionsSeen *prometheus.CounterVec
	EntryFailures    *prometheus.CounterVec

	// Batch metrics
	BatchesProcessed prometheus.Counter
	BatchDuration    prometheus.Histogram
	BatchEntries     prometheus.Histogram

	// Account metrics
	AccountsLocked prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TransactionsSeen: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_transactions_total",
				Help: "Total number of transactions read, by type",
			},
			[]string{"type"},
		),
		EntryFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "txengine_entry_failures_total",
				Help: "Total number of rejected batch entries, by reason",
			},
			[]string{"reason"},
		),

		BatchesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_batches_processed_total",
			Help: "Total number of batches processed",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txengine_batch_duration_seconds",
			Help:    "Duration of batch processing",
			Buckets: prometheus.DefBuckets,
		}),
		BatchEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "txengine_batch_entries",
			Help:    "Number of entries per batch",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),

		AccountsLocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "txengine_accounts_locked_total",
			Help: "Total number of accounts left locked at the end of a batch",
		}),
	}
}

// TransactionSeen implements usecase.Recorder.
func (m *Metrics) TransactionSeen(txType string) {
	m.TransactionsSeen.WithLabelValues(txType).Inc()
}

// EntryFailed implements usecase.Recorder.
func (m *Metrics) EntryFailed(reason string) {
	m.EntryFailures.WithLabelValues(reason).Inc()
}

// BatchCompleted implements usecase.Recorder.
func (m *Metrics) BatchCompleted(duration time.Duration, entries, failures, lockedAccounts int) {
	m.BatchesProcessed.Inc()
	m.BatchDuration.Observe(duration.Seconds())
	m.BatchEntries.Observe(float64(entries))
	m.AccountsLocked.Add(float64(lockedAccounts))
}
