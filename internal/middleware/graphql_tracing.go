package middleware

import (
	"log/slog"
	"net/http"

	"modelgraph/internal/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GraphQLTracingMiddleware wraps GraphQL execution in a graphql.execute span
// carrying the operation's shape, and tags the request logger with its IDs.
func GraphQLTracingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query, operationName := extractGraphQLRequest(r)
			if query == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := otel.Tracer("modelgraph/graphql").Start(r.Context(), "graphql.execute")
			defer span.End()

			if spanCtx := span.SpanContext(); spanCtx.IsValid() {
				reqLogger := logging.FromContext(ctx).WithFields(
					slog.String("trace_id", spanCtx.TraceID().String()),
					slog.String("span_id", spanCtx.SpanID().String()),
				)
				ctx = logging.WithLogger(ctx, reqLogger)
			}

			if span.IsRecording() {
				if operationName != "" {
					span.SetAttributes(attribute.String("graphql.operation.name", operationName))
				}
				metadata, err := extractQueryMetadata(query, operationName)
				switch {
				case err != nil:
					span.SetStatus(codes.Error, "invalid GraphQL document")
				case metadata != nil:
					span.SetAttributes(
						attribute.String("graphql.operation.type", metadata.operationType),
						attribute.Int("graphql.document.field_count", metadata.fieldCount),
						attribute.Int("graphql.document.depth", metadata.selectionDepth),
						attribute.Int("graphql.document.variable_count", metadata.variableCount),
					)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
