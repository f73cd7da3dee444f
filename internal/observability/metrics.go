// Package observability provides metrics and tracing.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// MessagesCreated counts warbles posted.
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_messages_created_total",
		Help: "Total number of messages posted",
	})

	// SignupsTotal counts accounts created.
	SignupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warbler_signups_total",
		Help: "Total number of accounts created",
	})

	// LoginAttempts counts login attempts by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_login_attempts_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"})

	// SocialEdges counts follow and like mutations by kind and action.
	SocialEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_social_edges_total",
		Help: "Follow and like mutations by kind and action",
	}, []string{"kind", "action"})
)

const metricsStartKey = "metrics:start"

// RegisterGormMetrics installs GORM callbacks that observe query latency
// into DatabaseQueryLatency.
func RegisterGormMetrics(db *gorm.DB) error {
	before := func(tx *gorm.DB) {
		tx.InstanceSet(metricsStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(metricsStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
		}
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("metrics:before_create", before),
		cb.Create().After("gorm:create").Register("metrics:after_create", after("create")),
		cb.Query().Before("gorm:query").Register("metrics:before_query", before),
		cb.Query().After("gorm:query").Register("metrics:after_query", after("query")),
		cb.Update().Before("gorm:update").Register("metrics:before_update", before),
		cb.Update().After("gorm:update").Register("metrics:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("metrics:before_delete", before),
		cb.Delete().After("gorm:delete").Register("metrics:after_delete", after("delete")),
		cb.Raw().Before("gorm:raw").Register("metrics:before_raw", before),
		cb.Raw().After("gorm:raw").Register("metrics:after_raw", after("raw")),
	)
}
