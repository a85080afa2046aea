package metrics

import (
	"database/sql"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "autosense_"

	resultSuccess  = "success"
	resultInvalid  = "invalid"
	resultNotFound = "not_found"
	resultError    = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	stationOps       *prometheus.CounterVec
	stationOpLatency *prometheus.HistogramVec

	exportsTotal *prometheus.CounterVec

	tokensIssued prometheus.Counter
	authFailures *prometheus.CounterVec
)

// Init registers service metrics and DB-backed gauges.
func Init(db *sql.DB, logger hclog.Logger) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		stationOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_operations_total",
				Help: "Total station service operations by result",
			},
			[]string{"op", "result"},
		)
		stationOpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "station_operation_duration_seconds",
				Help:    "Station service operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		)

		exportsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "station_exports_total",
				Help: "Total station exports by format and result",
			},
			[]string{"format", "result"},
		)

		tokensIssued = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "tokens_issued_total",
				Help: "Total issued access tokens",
			},
		)
		authFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "auth_failures_total",
				Help: "Total rejected requests by reason",
			},
			[]string{"reason"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			stationOps,
			stationOpLatency,
			exportsTotal,
			tokensIssued,
			authFailures,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// ObserveStationOp records a station service operation.
func ObserveStationOp(op, result string, duration time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if stationOps != nil {
		stationOps.WithLabelValues(op, result).Inc()
	}
	if stationOpLatency != nil {
		stationOpLatency.WithLabelValues(op).Observe(duration.Seconds())
	}
}

// IncExport increments the export counter.
func IncExport(format, result string) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportsTotal != nil {
		exportsTotal.WithLabelValues(format, result).Inc()
	}
}

// IncTokenIssued increments the issued token counter.
func IncTokenIssued() {
	if tokensIssued != nil {
		tokensIssued.Inc()
	}
}

// IncAuthFailure increments the auth failure counter.
func IncAuthFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if authFailures != nil {
		authFailures.WithLabelValues(reason).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess  = resultSuccess
	ResultInvalid  = resultInvalid
	ResultNotFound = resultNotFound
	ResultError    = resultError
)
