// Package serverapp assembles the modelgraph HTTP server: telemetry, the
// database pool, the model registry and GraphQL schema, and the router.
package serverapp

import (
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"modelgraph/internal/config"
	"modelgraph/internal/logging"
	"modelgraph/internal/middleware"
	"modelgraph/internal/observability"
	"modelgraph/internal/registry"
	"modelgraph/internal/sqlutil"

	"github.com/graphql-go/graphql"
)

// App owns runtime resources for the server lifecycle.
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	dialect sqlutil.Dialect

	loggerProvider *observability.LoggerProvider

	meterProvider  *observability.MeterProvider
	queryMetrics   *observability.QueryMetrics
	tracerProvider *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }

	registry *registry.Registry
	schema   graphql.Schema

	graphqlHandler http.Handler
	sessions       *middleware.SessionStats
	mux            *http.ServeMux
	handler        http.Handler

	serverAddr string
	srv        *http.Server

	cleanup cleanupStack

	stateMu      sync.Mutex
	initialized  bool
	started      bool
	serverErrors <-chan error

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	dialect, err := cfg.Database.Dialect()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database dialect: %w", err)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		dialect: dialect,
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Handler returns the fully wrapped HTTP handler. It is nil before Init.
func (a *App) Handler() http.Handler {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.handler
}
