package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QueryMetrics holds the GraphQL request and compiled-query instruments.
type QueryMetrics struct {
	requestDuration   metric.Float64Histogram
	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	activeRequests    metric.Int64UpDownCounter
	queryDepth        metric.Int64Histogram
	resultsCount      metric.Int64Histogram
	eagerLoads        metric.Int64Histogram
	statementCounter  metric.Int64Counter
	statementDuration metric.Float64Histogram
	statementErrors   metric.Int64Counter
}

// InitQueryMetrics creates the instruments on the global meter provider.
func InitQueryMetrics() (*QueryMetrics, error) {
	meter := otel.Meter(ServiceName)
	m := &QueryMetrics{}
	var err error

	if m.requestDuration, err = meter.Float64Histogram(
		"graphql.request.duration",
		metric.WithDescription("Duration of GraphQL requests in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if m.requestCounter, err = meter.Int64Counter(
		"graphql.requests.total",
		metric.WithDescription("Total number of GraphQL requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create request counter: %w", err)
	}
	if m.errorCounter, err = meter.Int64Counter(
		"graphql.errors.total",
		metric.WithDescription("Total number of GraphQL requests answered with errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create error counter: %w", err)
	}
	if m.activeRequests, err = meter.Int64UpDownCounter(
		"graphql.requests.active",
		metric.WithDescription("Number of in-flight GraphQL requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active requests counter: %w", err)
	}
	if m.queryDepth, err = meter.Int64Histogram(
		"graphql.query.depth",
		metric.WithDescription("Selection depth of GraphQL operations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create query depth histogram: %w", err)
	}
	if m.resultsCount, err = meter.Int64Histogram(
		"graphql.results.count",
		metric.WithDescription("Root rows returned per list field"),
	); err != nil {
		return nil, fmt.Errorf("failed to create results count histogram: %w", err)
	}
	if m.eagerLoads, err = meter.Int64Histogram(
		"graphql.query.eager_loads",
		metric.WithDescription("Eager-load directives per compiled query"),
	); err != nil {
		return nil, fmt.Errorf("failed to create eager load histogram: %w", err)
	}
	if m.statementCounter, err = meter.Int64Counter(
		"db.statements.total",
		metric.WithDescription("SQL statements run by request sessions"),
	); err != nil {
		return nil, fmt.Errorf("failed to create statement counter: %w", err)
	}
	if m.statementDuration, err = meter.Float64Histogram(
		"db.statement.duration",
		metric.WithDescription("SQL statement duration including row reads, in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("failed to create statement duration histogram: %w", err)
	}
	if m.statementErrors, err = meter.Int64Counter(
		"db.statement.errors.total",
		metric.WithDescription("SQL statements that failed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create statement error counter: %w", err)
	}
	return m, nil
}

// InitMetrics initializes the query metrics and logs once they are ready.
func InitMetrics(logger *slog.Logger) (*QueryMetrics, error) {
	m, err := InitQueryMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize query metrics: %w", err)
	}
	logger.Info("query metrics initialized")
	return m, nil
}

// RecordRequest records one GraphQL request.
func (m *QueryMetrics) RecordRequest(ctx context.Context, duration time.Duration, hasErrors bool, operationType string) {
	attrs := metric.WithAttributes(
		attribute.String("operation_type", operationType),
		attribute.Bool("has_errors", hasErrors),
	)
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	m.requestCounter.Add(ctx, 1, attrs)
	if hasErrors {
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation_type", operationType)))
	}
}

// RecordQueryDepth records the selection depth of an operation.
func (m *QueryMetrics) RecordQueryDepth(ctx context.Context, depth int64, operationType string) {
	m.queryDepth.Record(ctx, depth, metric.WithAttributes(attribute.String("operation_type", operationType)))
}

// RecordResultsCount records the rows a root list returned.
func (m *QueryMetrics) RecordResultsCount(ctx context.Context, count int64, operationType string) {
	m.resultsCount.Record(ctx, count, metric.WithAttributes(attribute.String("operation_type", operationType)))
}

// RecordEagerLoads records the directive count of one compiled query.
func (m *QueryMetrics) RecordEagerLoads(ctx context.Context, count int64, strategy string) {
	m.eagerLoads.Record(ctx, count, metric.WithAttributes(attribute.String("strategy", strategy)))
}

// RecordStatement records one SQL statement.
func (m *QueryMetrics) RecordStatement(ctx context.Context, duration time.Duration, isSelect bool, err error) {
	kind := "exec"
	if isSelect {
		kind = "select"
	}
	attrs := metric.WithAttributes(attribute.String("statement", kind))
	m.statementCounter.Add(ctx, 1, attrs)
	m.statementDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.statementErrors.Add(ctx, 1, attrs)
	}
}

// IncrementActiveRequests marks a request as started.
func (m *QueryMetrics) IncrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, 1)
}

// DecrementActiveRequests marks a request as finished.
func (m *QueryMetrics) DecrementActiveRequests(ctx context.Context) {
	m.activeRequests.Add(ctx, -1)
}

type queryMetricsContextKey struct{}

// ContextWithQueryMetrics stores metrics in ctx.
func ContextWithQueryMetrics(ctx context.Context, m *QueryMetrics) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, queryMetricsContextKey{}, m)
}

// QueryMetricsFromContext returns the metrics stored in ctx, or nil.
func QueryMetricsFromContext(ctx context.Context) *QueryMetrics {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(queryMetricsContextKey{}).(*QueryMetrics)
	return m
}
