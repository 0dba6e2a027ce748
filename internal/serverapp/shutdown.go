package serverapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modelgraph/internal/logging"
)

// cleanupStack holds release steps in acquisition order.
type cleanupStack []cleanupStep

type cleanupStep struct {
	name    string
	release func(context.Context) error
}

func (s *cleanupStack) push(name string, release func(context.Context) error) {
	*s = append(*s, cleanupStep{name: name, release: release})
}

// run releases every step newest first and joins their errors. A failing
// step does not stop the ones acquired before it.
func (s cleanupStack) run(ctx context.Context, logger *logging.Logger) error {
	var errs []error
	for i := len(s) - 1; i >= 0; i-- {
		step := s[i]
		began := time.Now()
		err := step.release(ctx)
		attrs := []any{
			slog.String("component", step.name),
			slog.Duration("elapsed", time.Since(began)),
		}
		if err != nil {
			logger.Warn("release failed", append(attrs, slog.String("error", err.Error()))...)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
			continue
		}
		logger.Debug("released", attrs...)
	}
	return errors.Join(errs...)
}

// Shutdown drains the HTTP server and releases everything Init acquired,
// then logs how many request sessions the app served. Only the first call
// does any work; later calls return its result.
func (a *App) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a.shutdownOnce.Do(func() {
		a.stateMu.Lock()
		steps := a.cleanup
		a.cleanup = nil
		a.started = false
		a.stateMu.Unlock()

		inFlight := a.sessions.Active()
		a.shutdownErr = steps.run(ctx, a.logger)
		a.logger.Info("shutdown complete",
			slog.Int64("sessions_in_flight", inFlight),
			slog.Int64("sessions_served", a.sessions.Opened()),
			slog.Int64("statements_executed", a.sessions.Statements()),
			slog.Int("released", len(steps)),
			slog.Bool("clean", a.shutdownErr == nil),
		)
	})
	return a.shutdownErr
}
