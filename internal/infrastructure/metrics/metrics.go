package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction metrics
	TransactionsCreated prometheus.Counter
	TransactionsUpdated *prometheus.CounterVec
	TransactionsDeleted prometheus.Counter
	TransactionAmount   *prometheus.HistogramVec
	TransactionErrors   *prometheus.CounterVec

	// Wallet metrics
	WalletsCreated   prometheus.Counter
	WalletsDeleted   prometheus.Counter
	WalletOperations *prometheus.CounterVec

	// Cascade metrics
	CascadeDeleted  prometheus.Counter
	CascadeFailures prometheus.Counter

	// Store metrics
	StoreConflicts prometheus.Counter
	StoreDuration  *prometheus.HistogramVec

	// Upload metrics
	Uploads        *prometheus.CounterVec
	UploadDuration prometheus.Histogram

	// Stats cache metrics
	StatsCache *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationDrift prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Transaction metrics
		TransactionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_transactions_created_total",
			Help: "Total number of transactions created",
		}),
		TransactionsUpdated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_transactions_updated_total",
				Help: "Total number of transactions updated, by whether balances were rebalanced",
			},
			[]string{"mode"},
		),
		TransactionsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_transactions_deleted_total",
			Help: "Total number of transactions deleted",
		}),
		TransactionAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenseledger_transaction_amount",
				Help:    "Transaction amounts",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"type"},
		),
		TransactionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_transaction_errors_total",
				Help: "Total number of transaction errors by kind",
			},
			[]string{"error_type"},
		),

		// Wallet metrics
		WalletsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_wallets_created_total",
			Help: "Total number of wallets created",
		}),
		WalletsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_wallets_deleted_total",
			Help: "Total number of wallets deleted",
		}),
		WalletOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_wallet_operations_total",
				Help: "Total wallet balance operations by type",
			},
			[]string{"operation"},
		),

		// Cascade metrics
		CascadeDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_cascade_deleted_total",
			Help: "Total transactions removed by wallet cascade deletes",
		}),
		CascadeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_cascade_failures_total",
			Help: "Total wallet cascade deletes that stopped before completion",
		}),

		// Store metrics
		StoreConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_store_conflicts_total",
			Help: "Total store transactions aborted by a concurrent modification",
		}),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenseledger_store_duration_seconds",
				Help:    "Document store operation duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Upload metrics
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_uploads_total",
				Help: "Total image uploads by status",
			},
			[]string{"status"},
		),
		UploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "expenseledger_upload_duration_seconds",
			Help:    "Image upload duration",
			Buckets: prometheus.DefBuckets,
		}),

		// Stats cache metrics
		StatsCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_stats_cache_total",
				Help: "Statistics cache lookups by result",
			},
			[]string{"result"},
		),

		// Reconciliation metrics
		ReconciliationDrift: factory.NewCounter(prometheus.CounterOpts{
			Name: "expenseledger_reconciliation_drift_total",
			Help: "Total wallets found out of sync with their transactions",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expenseledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expenseledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}
