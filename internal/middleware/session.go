package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync/atomic"

	"modelgraph/internal/dbexec"
	"modelgraph/internal/logging"
	"modelgraph/internal/observability"
	"modelgraph/internal/registry"
	"modelgraph/internal/resolver"
	"modelgraph/internal/session"
)

// SessionStats tallies the request sessions SessionMiddleware opens. The zero
// value is ready to use and a nil *SessionStats reads as all zeros.
type SessionStats struct {
	active     atomic.Int64
	opened     atomic.Int64
	statements atomic.Int64
}

// Active is the number of sessions currently open.
func (s *SessionStats) Active() int64 {
	if s == nil {
		return 0
	}
	return s.active.Load()
}

// Opened is the number of sessions opened since start.
func (s *SessionStats) Opened() int64 {
	if s == nil {
		return 0
	}
	return s.opened.Load()
}

// Statements is the number of statements run by closed sessions.
func (s *SessionStats) Statements() int64 {
	if s == nil {
		return 0
	}
	return s.statements.Load()
}

func (s *SessionStats) begin() {
	if s != nil {
		s.opened.Add(1)
		s.active.Add(1)
	}
}

func (s *SessionStats) end(statements int64) {
	if s != nil {
		s.active.Add(-1)
		s.statements.Add(statements)
	}
}

// SessionMiddleware opens one database session per GraphQL request and closes
// it when the handler returns, including on panic. GET requests without a
// query (GraphiQL page loads) pass through without a session. stats may be nil.
func SessionMiddleware(db *sql.DB, reg *registry.Registry, metrics *observability.QueryMetrics, stats *SessionStats) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && r.URL.Query().Get("query") == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := logging.FromContext(ctx)

			var statements atomic.Int64
			observer := func(stCtx context.Context, st dbexec.Statement) {
				statements.Add(1)
				if metrics != nil {
					metrics.RecordStatement(stCtx, st.Elapsed, st.IsSelect, st.Err)
				}
				logger.Debug("statement finished",
					slog.String("sql", st.Query),
					slog.Int("args", st.Args),
					slog.Int("rows", st.Rows),
					slog.Duration("elapsed", st.Elapsed),
				)
			}

			sess, err := session.Open(ctx, db, session.WithObserver(observer))
			if err != nil {
				logger.Error("failed to open database session", slog.String("error", err.Error()))
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}

			stats.begin()
			defer func() {
				if cerr := sess.Close(); cerr != nil {
					logger.Warn("failed to close database session", slog.String("error", cerr.Error()))
				}
				n := statements.Load()
				stats.end(n)
				logger.Debug("database session closed", slog.Int64("statements", n))
			}()

			next.ServeHTTP(w, r.WithContext(resolver.ResolveContext(ctx, sess, reg)))
		})
	}
}
