package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database query tracing
type DBTracingConfig struct {
	Enabled          bool
	LogFullSQL       bool          // include bind variables in spans, dev only
	SlowQueryThresh  time.Duration // queries above this get a slow_query event
	DBSystem         string
	WithoutVariables bool
}

// DefaultDBTracingConfig returns the secure defaults: tracing off, bind
// variables stripped
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin wires otelgorm into a GORM DB and layers slow query
// detection on top of the spans it produces. Every repository query then
// shows up under its request span with table, row count and timing.
type DBTracingPlugin struct {
	config DBTracingConfig
	log    *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, log *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, log: log}
}

// RegisterOtelGorm installs the otelgorm plugin and the timing callbacks on
// the GORM DB. A disabled config is a no-op.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.log.Debug("database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		// Bind variables can carry amounts and descriptions; keep them out
		// of the span payload unless explicitly requested.
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.log.Info("database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerTimingCallbacks hooks every GORM operation with a start-time
// stamp before and span enrichment after
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []func() error{
		func() error {
			return cb.Create().Before("gorm:create").Register("db_tracing:before_create", markQueryStart)
		},
		func() error {
			return cb.Create().After("gorm:create").Register("db_tracing:after_create", p.finishQuerySpan)
		},
		func() error {
			return cb.Query().Before("gorm:query").Register("db_tracing:before_query", markQueryStart)
		},
		func() error {
			return cb.Query().After("gorm:query").Register("db_tracing:after_query", p.finishQuerySpan)
		},
		func() error {
			return cb.Update().Before("gorm:update").Register("db_tracing:before_update", markQueryStart)
		},
		func() error {
			return cb.Update().After("gorm:update").Register("db_tracing:after_update", p.finishQuerySpan)
		},
		func() error {
			return cb.Delete().Before("gorm:delete").Register("db_tracing:before_delete", markQueryStart)
		},
		func() error {
			return cb.Delete().After("gorm:delete").Register("db_tracing:after_delete", p.finishQuerySpan)
		},
		func() error {
			return cb.Row().Before("gorm:row").Register("db_tracing:before_row", markQueryStart)
		},
		func() error {
			return cb.Row().After("gorm:row").Register("db_tracing:after_row", p.finishQuerySpan)
		},
		func() error {
			return cb.Raw().Before("gorm:raw").Register("db_tracing:before_raw", markQueryStart)
		},
		func() error {
			return cb.Raw().After("gorm:raw").Register("db_tracing:after_raw", p.finishQuerySpan)
		},
	}

	for _, hook := range hooks {
		if err := hook(); err != nil {
			return err
		}
	}
	return nil
}

// markQueryStart stamps the statement context so finishQuerySpan can
// measure elapsed time
func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// finishQuerySpan enriches the active span with row count, table, errors
// and a slow_query event when the threshold is exceeded
func (p *DBTracingPlugin) finishQuerySpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// Not-found is an expected outcome of scoped lookups, not a fault.
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(startTime); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

// queryStartTimeKey is the context key for the query start time
type contextKey string

const queryStartTimeKey contextKey = "db_tracing_query_start"
