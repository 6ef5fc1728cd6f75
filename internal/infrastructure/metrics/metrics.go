package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/welth/internal/domain"
	"github.com/iho/welth/internal/usecase"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Transaction metrics
	TransactionOperations *prometheus.CounterVec
	TransactionAmount     *prometheus.HistogramVec

	// Job metrics
	JobRuns        *prometheus.CounterVec
	JobDuration    *prometheus.HistogramVec
	JobEntities    *prometheus.CounterVec
	JobRetries     *prometheus.CounterVec
	JobLastSuccess *prometheus.GaugeVec

	// Notification metrics
	NotificationsSent *prometheus.CounterVec

	// Classifier metrics
	ReceiptScans *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Transaction metrics
		TransactionOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_transaction_operations_total",
				Help: "Transaction writes by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		TransactionAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "welth_transaction_amount",
				Help:    "Amounts of created transactions",
				Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 100000},
			},
			[]string{"type"},
		),

		// Job metrics
		JobRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_job_runs_total",
				Help: "Background job runs by job and outcome",
			},
			[]string{"job", "status"},
		),
		JobDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "welth_job_duration_seconds",
				Help:    "Background job run duration",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 300},
			},
			[]string{"job"},
		),
		JobEntities: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_job_entities_total",
				Help: "Entities handled by background jobs by outcome",
			},
			[]string{"job", "status"},
		),
		JobRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_job_retries_total",
				Help: "Scheduled retries of failed job runs",
			},
			[]string{"job"},
		),
		JobLastSuccess: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "welth_job_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run per job",
			},
			[]string{"job"},
		),

		// Notification metrics
		NotificationsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_notifications_total",
				Help: "Notifications by template and outcome",
			},
			[]string{"template", "status"},
		),

		// Classifier metrics
		ReceiptScans: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_receipt_scans_total",
				Help: "Receipt classification calls by outcome",
			},
			[]string{"status"},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welth_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}
}

// ObserveJobRun records one finished job run.
func (m *Metrics) ObserveJobRun(job string, report *usecase.JobReport, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else if report != nil && report.Failed > 0 {
		status = "partial"
	}
	m.JobRuns.WithLabelValues(job, status).Inc()

	if report == nil {
		return
	}

	m.JobDuration.WithLabelValues(job).Observe(report.Duration().Seconds())
	m.JobEntities.WithLabelValues(job, string(usecase.EntityProcessed)).Add(float64(report.Processed))
	m.JobEntities.WithLabelValues(job, string(usecase.EntitySkipped)).Add(float64(report.Skipped))
	m.JobEntities.WithLabelValues(job, string(usecase.EntityFailed)).Add(float64(report.Failed))
	if err == nil {
		m.JobLastSuccess.WithLabelValues(job).Set(float64(report.FinishedAt.Unix()))
	}
}

// ObserveJobRetry records a scheduled retry of a failed run.
func (m *Metrics) ObserveJobRetry(job string, _ int, _ time.Duration) {
	m.JobRetries.WithLabelValues(job).Inc()
}

// ObserveNotification records a notification attempt.
func (m *Metrics) ObserveNotification(template string, err error) {
	m.NotificationsSent.WithLabelValues(template, outcome(err)).Inc()
}

// ObserveTransaction records a transaction write.
func (m *Metrics) ObserveTransaction(operation string, t *domain.Transaction, err error) {
	m.TransactionOperations.WithLabelValues(operation, outcome(err)).Inc()
	if err == nil && t != nil && operation == "create" {
		m.TransactionAmount.WithLabelValues(string(t.Type)).Observe(t.Amount.Float64())
	}
}

// ObserveReceiptScan records a classifier call.
func (m *Metrics) ObserveReceiptScan(err error) {
	status := outcome(err)
	if errors.Is(err, domain.ErrClassification) {
		status = "unparseable"
	}
	m.ReceiptScans.WithLabelValues(status).Inc()
}

// ObserveRateLimited records a rejected request.
func (m *Metrics) ObserveRateLimited(route string) {
	m.RateLimitHits.WithLabelValues(route).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
