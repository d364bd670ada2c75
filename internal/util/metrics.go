package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsCommittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_transactions_committed_total",
		Help: "Total number of transactions confirmed by the gateway",
	})

	TransactionsOfflineTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_transactions_offline_total",
		Help: "Total number of transactions persisted to the offline queue",
	})

	TransactionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_transactions_rejected_total",
		Help: "Total number of rejected checkout attempts",
	}, []string{"reason"})

	TransactionsReconciledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_transactions_reconciled_total",
		Help: "Total number of offline transactions later accepted by the gateway",
	})

	CheckoutLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pos_checkout_latency_seconds",
		Help:    "Latency of the full checkout flow",
		Buckets: prometheus.DefBuckets,
	})

	GatewayAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_gateway_attempts_total",
		Help: "Total number of gateway commit attempts including retries",
	})

	CatalogRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_catalog_refresh_total",
		Help: "Total number of catalog cache refreshes",
	}, []string{"result"})

	OfflineQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_offline_queue_depth",
		Help: "Current number of transactions awaiting reconciliation",
	})

	AuditEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_audit_entries_total",
		Help: "Total number of audit entries written",
	}, []string{"category"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
