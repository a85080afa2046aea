package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

const countTimeout = 2 * time.Second

func registerDBMetrics(db *sql.DB, logger hclog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "stations",
			Help: "Stored stations",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM stations")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "pumps",
			Help: "Stored pumps, orphans included",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM pumps")
		},
	))
}

func queryCount(db *sql.DB, logger hclog.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), countTimeout)
	defer cancel()
	var count int64
	if err := db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		if logger != nil {
			logger.Warn("metrics query failed", "query", query, "error", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
