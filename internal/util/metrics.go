package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CompaniesChangedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companies_changed_total",
		Help: "Company table lifecycle operations",
	}, []string{"op"})

	ExportsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exports_created_total",
		Help: "Total number of exports persisted",
	})

	ExportsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_rejected_total",
		Help: "Total number of rejected exports",
	}, []string{"reason"})

	ExportLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "export_latency_seconds",
		Help:    "Latency of the full export flow",
		Buckets: prometheus.DefBuckets,
	})

	StockDecrementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrement_failures_total",
		Help: "Per-item stock updates that failed after an export was persisted",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_notifications_total",
		Help: "Export notifications by outcome",
	}, []string{"outcome"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	AuditSinkFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_sink_failures_total",
		Help: "Audit writes that failed per sink",
	}, []string{"sink"})

	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backups_total",
		Help: "Database backups by type and status",
	}, []string{"type", "status"})

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
