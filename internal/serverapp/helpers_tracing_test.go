package serverapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"modelgraph/internal/config"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWrapHTTPHandler_UsesHTTPRootSpanName(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)
	originalTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(originalTP)
	})

	cfg := &config.Config{
		Server: config.ServerConfig{GraphQLPath: "/api/graphql"},
		Observability: config.ObservabilityConfig{
			TracingEnabled: true,
		},
	}
	handler := wrapHTTPHandler(cfg, testLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, path := range []string{"/api/graphql", "/users/42"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
		}
	}

	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	for _, want := range []string{"POST /api/graphql", "POST /*"} {
		if !names[want] {
			t.Fatalf("expected %q span, got %v", want, names)
		}
	}
}

func TestWrapHTTPHandler_CORS(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			GraphQLPath: "/graphql",
			CORS: config.CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"http://localhost:3000"},
				AllowedMethods: []string{"POST"},
			},
		},
	}
	handler := wrapHTTPHandler(cfg, testLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight must not reach the router")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST" {
		t.Fatalf("unexpected allow methods %q", got)
	}
}

func TestNormalizeHTTPSpanRoute(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "graphql", input: "/graphql", expected: "/graphql"},
		{name: "health", input: "/health", expected: "/health"},
		{name: "metrics", input: "/metrics", expected: "/metrics"},
		{name: "root", input: "/", expected: "/"},
		{name: "unknown", input: "/users/123", expected: "/*"},
		{name: "empty", input: "", expected: "/*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeHTTPSpanRoute("/graphql", tt.input)
			if got != tt.expected {
				t.Fatalf("normalizeHTTPSpanRoute(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
