package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"modelgraph/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestGraphQLTracingMiddleware_RecordsOperationShape(t *testing.T) {
	recorder := installSpanRecorder(t)

	var sawSpan bool
	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanFromContext(r.Context()).SpanContext().IsValid()
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))

	body := `{"query":"query Crew($n: Int) { all_Directors { name movies { title } } }","operationName":"Crew"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, sawSpan)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "graphql.execute", spans[0].Name())

	attrs := attribute.NewSet(spans[0].Attributes()...)
	for key, want := range map[string]attribute.Value{
		"graphql.operation.name":          attribute.StringValue("Crew"),
		"graphql.operation.type":          attribute.StringValue("query"),
		"graphql.document.field_count":    attribute.IntValue(4),
		"graphql.document.depth":          attribute.IntValue(3),
		"graphql.document.variable_count": attribute.IntValue(1),
	} {
		got, ok := attrs.Value(attribute.Key(key))
		require.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}
}

func TestGraphQLTracingMiddleware_InvalidDocument(t *testing.T) {
	recorder := installSpanRecorder(t)

	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ all_Users { "}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestGraphQLTracingMiddleware_SkipsWithoutQuery(t *testing.T) {
	recorder := installSpanRecorder(t)

	called := false
	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/graphql", nil))

	assert.True(t, called)
	assert.Empty(t, recorder.Ended())
}

func TestGraphQLTracingMiddleware_TagsRequestLogger(t *testing.T) {
	installSpanRecorder(t)

	var buf strings.Builder
	logger := logging.NewLogger(logging.Config{Format: "json", Output: &buf})
	handler := GraphQLTracingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/graphql?query=%7B+all_Users+%7B+id+%7D+%7D", nil)
	req = req.WithContext(logging.WithLogger(req.Context(), logger))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"trace_id"`)
	assert.Contains(t, buf.String(), `"span_id"`)
}

func installSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(oldProvider)
	})
	return recorder
}
