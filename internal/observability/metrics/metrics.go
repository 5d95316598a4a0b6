package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "condo_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	chargeIssueTotal   *prometheus.CounterVec
	chargeIssueLatency *prometheus.HistogramVec

	paymentRecordTotal   *prometheus.CounterVec
	paymentRecordLatency *prometheus.HistogramVec
	paymentVerifyTotal   *prometheus.CounterVec
	paymentVerifyLatency *prometheus.HistogramVec

	reportBuildTotal   *prometheus.CounterVec
	reportBuildLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	overdueSweepTotal       *prometheus.CounterVec
	overdueSweepTransitions prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		chargeIssueTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "charge_issue_total",
				Help: "Total charge issue operations by result",
			},
			[]string{"result"},
		)
		chargeIssueLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "charge_issue_latency_seconds",
				Help:    "Charge issue latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		paymentRecordTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_record_total",
				Help: "Total payment submissions by result",
			},
			[]string{"result"},
		)
		paymentRecordLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_record_latency_seconds",
				Help:    "Payment submission latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		paymentVerifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_verify_total",
				Help: "Total payment verifications by result",
			},
			[]string{"result"},
		)
		paymentVerifyLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_verify_latency_seconds",
				Help:    "Payment verification latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportBuildTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_build_total",
				Help: "Total report builds by kind and result",
			},
			[]string{"kind", "result"},
		)
		reportBuildLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "report_build_latency_seconds",
				Help:    "Report build latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total document exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Document export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		overdueSweepTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "overdue_sweep_total",
				Help: "Total overdue sweeps by result",
			},
			[]string{"result"},
		)
		overdueSweepTransitions = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "overdue_sweep_transitions_total",
				Help: "Total allocations marked overdue by sweeps",
			},
		)

		prometheus.MustRegister(
			chargeIssueTotal,
			chargeIssueLatency,
			paymentRecordTotal,
			paymentRecordLatency,
			paymentVerifyTotal,
			paymentVerifyLatency,
			reportBuildTotal,
			reportBuildLatency,
			exportTotal,
			exportLatency,
			overdueSweepTotal,
			overdueSweepTransitions,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveChargeIssue records issue latency and result.
func ObserveChargeIssue(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if chargeIssueTotal != nil {
		chargeIssueTotal.WithLabelValues(result).Inc()
	}
	if chargeIssueLatency != nil {
		chargeIssueLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObservePaymentRecord records payment submission latency and result.
func ObservePaymentRecord(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if paymentRecordTotal != nil {
		paymentRecordTotal.WithLabelValues(result).Inc()
	}
	if paymentRecordLatency != nil {
		paymentRecordLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObservePaymentVerify records verification latency and result.
func ObservePaymentVerify(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if paymentVerifyTotal != nil {
		paymentVerifyTotal.WithLabelValues(result).Inc()
	}
	if paymentVerifyLatency != nil {
		paymentVerifyLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReportBuild records report build latency and result.
func ObserveReportBuild(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if reportBuildTotal != nil {
		reportBuildTotal.WithLabelValues(kind, result).Inc()
	}
	if reportBuildLatency != nil {
		reportBuildLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveOverdueSweep records a sweep run and how many allocations moved.
func ObserveOverdueSweep(result string, transitions int) {
	if result == "" {
		result = resultSuccess
	}
	if overdueSweepTotal != nil {
		overdueSweepTotal.WithLabelValues(result).Inc()
	}
	if transitions > 0 && overdueSweepTransitions != nil {
		overdueSweepTransitions.Add(float64(transitions))
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
