package resolver

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelgraph/internal/compiler"
	"modelgraph/internal/schemaerr"
)

func startResolverSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("modelgraph/resolver")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func finishResolverSpan(span trace.Span, err error, outcome string) {
	if span == nil {
		return
	}
	if outcome == "" {
		if err != nil {
			outcome = "error"
		} else {
			outcome = "success"
		}
	}
	span.SetAttributes(attribute.String("graphql.resolver.outcome", outcome))
	if err != nil {
		if kind, ok := schemaerr.KindOf(err); ok {
			span.SetAttributes(attribute.String("graphql.error.code", kind.Code()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// setQueryPlanAttributes records the compiled shape of a root query.
func setQueryPlanAttributes(span trace.Span, q *compiler.Query) {
	if span == nil || q == nil {
		return
	}
	var paths []string
	var walk func(loads []*compiler.EagerLoad)
	walk = func(loads []*compiler.EagerLoad) {
		for _, l := range loads {
			paths = append(paths, l.String())
			walk(l.Children)
		}
	}
	walk(q.EagerLoads())

	span.SetAttributes(
		attribute.String("db.query.strategy", string(q.Strategy())),
		attribute.String("db.query.dialect", string(q.Dialect())),
		attribute.Int("graphql.query.selected_fields", len(q.Fields())),
		attribute.StringSlice("graphql.query.eager_loads", paths),
	)
}
