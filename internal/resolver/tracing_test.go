package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestListResolver_EmitsTracingSpan(t *testing.T) {
	recorder, cleanup := installResolverSpanRecorder(t)
	defer cleanup()

	env := newTestEnv(t)
	rowsOf(t, env.run(t, `{ all_Directors { name movies { title } } }`), "all_Directors")

	span := findEndedSpanByName(recorder.Ended(), "graphql.resolve.list")
	require.NotNil(t, span)
	attrs := span.Attributes()
	assert.Equal(t, "all_Directors", readSpanString(attrs, "graphql.field.name"))
	assert.Equal(t, "Director", readSpanString(attrs, "graphql.type"))
	assert.Equal(t, "root", readSpanString(attrs, "graphql.resolver.mode"))
	assert.Equal(t, "joined", readSpanString(attrs, "db.query.strategy"))
	assert.Equal(t, "success", readSpanString(attrs, "graphql.resolver.outcome"))
	assert.Equal(t, []string{"movies->Movie"}, readSpanStringSlice(attrs, "graphql.query.eager_loads"))
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestListResolver_SpanRecordsErrorCode(t *testing.T) {
	recorder, cleanup := installResolverSpanRecorder(t)
	defer cleanup()

	env := newTestEnv(t)
	result := env.run(t, `{ all_Users(where: {or_: [{age: {gte: 18}}]}) { id } }`)
	require.NotEmpty(t, result.Errors)

	span := findEndedSpanByName(recorder.Ended(), "graphql.resolve.list")
	require.NotNil(t, span)
	assert.Equal(t, "error", readSpanString(span.Attributes(), "graphql.resolver.outcome"))
	assert.Equal(t, "NOT_IMPLEMENTED", readSpanString(span.Attributes(), "graphql.error.code"))
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestFinishResolverSpan_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() { finishResolverSpan(nil, nil, "") })
	assert.NotPanics(t, func() { setQueryPlanAttributes(nil, nil) })
}

func installResolverSpanRecorder(t *testing.T) (*tracetest.SpanRecorder, func()) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	return recorder, func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(oldProvider)
	}
}

func findEndedSpanByName(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, span := range spans {
		if span.Name() == name {
			return span
		}
	}
	return nil
}

func readSpanString(attrs []attribute.KeyValue, key string) string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsString()
		}
	}
	return ""
}

func readSpanStringSlice(attrs []attribute.KeyValue, key string) []string {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value.AsStringSlice()
		}
	}
	return nil
}
