package serverapp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
)

// StopReason says why WaitForStop returned.
type StopReason string

const (
	StopSignal      StopReason = "signal"
	StopServerError StopReason = "server_error"
)

var errNotInitialized = errors.New("app is not initialized")

// Start begins serving the GraphQL endpoint and returns the channel the
// listener reports a failure on. A second call returns the same channel.
func (a *App) Start() (<-chan error, error) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()

	switch {
	case !a.initialized:
		return nil, errNotInitialized
	case a.started:
		return a.serverErrors, nil
	}

	attrs := []any{
		slog.String("address", a.srv.Addr),
		slog.String("graphql_endpoint", a.cfg.Server.GraphQLPath),
		slog.Any("root_fields", a.rootFields()),
		slog.String("eager_strategy", a.cfg.Schema.EagerStrategy),
		slog.Int("batch_size", a.cfg.Schema.BatchSize),
		slog.Bool("graphiql", a.cfg.Server.GraphiQLEnabled),
	}
	if a.cfg.Observability.MetricsEnabled {
		attrs = append(attrs, slog.String("metrics_endpoint", "/metrics"))
	}
	a.logger.Info("serving model catalog", attrs...)

	errs := make(chan error, 1)
	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}(a.srv)

	a.serverErrors = errs
	a.started = true
	return errs, nil
}

// rootFields lists the all_<Plural> fields the schema serves.
func (a *App) rootFields() []string {
	query := a.schema.QueryType()
	if query == nil {
		return nil
	}
	names := make([]string, 0, len(query.Fields()))
	for name := range query.Fields() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WaitForStop blocks until a signal arrives on stop or the listener fails.
// A nil serverErrors falls back to the channel Start returned.
func (a *App) WaitForStop(stop <-chan os.Signal, serverErrors <-chan error) (StopReason, error) {
	if serverErrors == nil {
		a.stateMu.Lock()
		serverErrors = a.serverErrors
		a.stateMu.Unlock()
	}
	if stop == nil && serverErrors == nil {
		return "", errors.New("nothing to wait on: no stop or server error channel")
	}

	// Receiving from a nil channel blocks forever, so one select serves
	// every combination.
	select {
	case sig := <-stop:
		a.logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
			slog.Int64("sessions_in_flight", a.sessions.Active()),
		)
		return StopSignal, nil
	case err := <-serverErrors:
		if err == nil {
			err = errors.New("listener exited")
		}
		return StopServerError, fmt.Errorf("server failed: %w", err)
	}
}
