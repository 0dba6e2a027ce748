package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"modelgraph/internal/config"
	"modelgraph/internal/logging"
	"modelgraph/internal/middleware"
	"modelgraph/internal/observability"
	"modelgraph/internal/registry"
	"modelgraph/internal/sqlutil"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"
)

// InitLogger builds the process logger from cfg and installs it as the slog
// default. When log export is enabled it also returns the OTLP provider the
// logger feeds, which the caller must shut down.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol),
		slog.Bool("insecure", cfg.Observability.OTLP.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(cfg.Observability.Telemetry())
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)
	logger.Info("OpenTelemetry logging initialized successfully")

	return logger, loggerProvider, nil
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.QueryMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	logger.Info("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
	)

	meterProvider, err := observability.InitMeterProvider(cfg.Observability.Telemetry())
	if err != nil {
		return nil, nil, err
	}

	queryMetrics, err := observability.InitMetrics(logger.Logger)
	if err != nil {
		_ = meterProvider.Shutdown(context.Background(), logger.Logger)
		return nil, nil, err
	}
	return meterProvider, queryMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)

	tracerProvider, err := observability.InitTracerProvider(cfg.Observability.Telemetry())
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized successfully")
	return tracerProvider, nil
}

// dbSystemAttribute is the semconv db.system value reported for a dialect.
func dbSystemAttribute(d sqlutil.Dialect) attribute.KeyValue {
	switch d {
	case sqlutil.MySQL:
		return semconv.DBSystemMySQL
	case sqlutil.Postgres:
		return semconv.DBSystemPostgreSQL
	default:
		return semconv.DBSystemSqlite
	}
}

func connectDB(cfg *config.Config, logger *logging.Logger, dialect sqlutil.Dialect) (*sql.DB, interface{ Unregister() error }, error) {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, nil, err
	}

	var (
		db         *sql.DB
		dbStatsReg interface{ Unregister() error }
	)
	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		system := dbSystemAttribute(dialect)
		opts := []otelsql.Option{otelsql.WithAttributes(system)}
		if cfg.Observability.TracingEnabled {
			opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{
				DisableErrSkip: true,
			}))
		}

		db, err = otelsql.Open(dialect.DriverName(), dsn, opts...)
		if err != nil {
			return nil, nil, err
		}

		if cfg.Observability.MetricsEnabled {
			dbStatsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(system))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
				dbStatsReg = nil
			}
		}

		logger.Info("database instrumentation enabled",
			slog.Bool("metrics", cfg.Observability.MetricsEnabled),
			slog.Bool("tracing", cfg.Observability.TracingEnabled),
		)
	} else {
		db, err = sql.Open(dialect.DriverName(), dsn)
		if err != nil {
			return nil, nil, err
		}
	}

	configurePool(cfg, logger, db)
	return db, dbStatsReg, nil
}

// configurePool applies the pool settings. Every connection to an in-memory
// SQLite database opens a fresh empty database, so those pools hold exactly
// one connection that never expires.
func configurePool(cfg *config.Config, logger *logging.Logger, db *sql.DB) {
	pool := cfg.Database.Pool
	if cfg.Database.InMemory() {
		if pool.MaxOpen != 1 {
			logger.Info("in-memory database limits the pool to one connection",
				slog.Int("configured_max_open", pool.MaxOpen))
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
}

// waitForDatabase pings db until it answers or the connection timeout
// elapses, backing off exponentially between attempts. A zero timeout pings
// once.
func waitForDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	timeout := cfg.Database.ConnectionTimeout
	interval := cfg.Database.ConnectionRetryInterval
	if interval <= 0 {
		interval = time.Second
	}

	if timeout == 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	attempt := 0
	for {
		attempt++
		err := db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		// Exponential backoff, capped at 30s
		interval = min(interval*2, 30*time.Second)
	}
}

// buildGraphQLHandler wraps the graphql-go endpoint in the request chain:
// logging -> session -> metrics -> tracing -> graphql.
func buildGraphQLHandler(cfg *config.Config, logger *logging.Logger, db *sql.DB, reg *registry.Registry, schema *graphql.Schema, queryMetrics *observability.QueryMetrics, sessions *middleware.SessionStats) http.Handler {
	var h http.Handler = handler.New(&handler.Config{
		Schema:   schema,
		Pretty:   true,
		GraphiQL: cfg.Server.GraphiQLEnabled,
	})

	h = middleware.GraphQLTracingMiddleware()(h)
	if queryMetrics != nil {
		h = middleware.GraphQLMetricsMiddleware(queryMetrics)(h)
		logger.Info("GraphQL metrics middleware enabled")
	}
	h = middleware.SessionMiddleware(db, reg, queryMetrics, sessions)(h)
	return middleware.LoggingMiddleware(logger)(h)
}

func buildRouter(cfg *config.Config, logger *logging.Logger, db *sql.DB, graphqlHandler http.Handler, meterProvider *observability.MeterProvider) *http.ServeMux {
	graphqlPath := cfg.Server.GraphQLPath
	mux := http.NewServeMux()
	mux.Handle(graphqlPath, graphqlHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, graphqlPath, http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})

	mux.HandleFunc("/health", healthHandler(db, cfg.Server.HealthCheckTimeout))

	if meterProvider != nil {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))
	}

	return mux
}

func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, h http.Handler) http.Handler {
	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		graphqlPath := cfg.Server.GraphQLPath
		h = otelhttp.NewHandler(h, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return httpRootSpanName(graphqlPath, r)
			}),
		)
		logger.Info("HTTP instrumentation enabled")
	}

	cors := cfg.Server.CORS
	if cors.Enabled {
		h = middleware.CORSMiddleware(middleware.CORSConfig{
			Enabled:          true,
			AllowedOrigins:   cors.AllowedOrigins,
			AllowedMethods:   cors.AllowedMethods,
			AllowedHeaders:   cors.AllowedHeaders,
			ExposeHeaders:    cors.ExposeHeaders,
			AllowCredentials: cors.AllowCredentials,
			MaxAge:           cors.MaxAge,
		})(h)
		logger.Info("CORS enabled", slog.Any("allowed_origins", cors.AllowedOrigins))
	}

	return h
}

// httpRootSpanName keeps span names bounded: unknown paths collapse to /*.
func httpRootSpanName(graphqlPath string, r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}

	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}

	return method + " " + normalizeHTTPSpanRoute(graphqlPath, r.URL.Path)
}

func normalizeHTTPSpanRoute(graphqlPath, rawPath string) string {
	switch rawPath {
	case "/", "/health", "/metrics":
		return rawPath
	}
	if rawPath != "" && rawPath == graphqlPath {
		return rawPath
	}
	return "/*"
}

func buildServer(cfg *config.Config, h http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func healthHandler(db *sql.DB, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			reqLogger.Error("health check failed",
				slog.String("error", err.Error()),
				slog.String("check", "database"),
			)
			w.WriteHeader(http.StatusServiceUnavailable)
			// Internal details stay in the log.
			_, _ = fmt.Fprint(w, `{"status":"unhealthy","database":"failed"}`)
			return
		}

		reqLogger.Debug("health check passed")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, `{"status":"healthy","database":"ok"}`)
	}
}
