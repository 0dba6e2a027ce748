// Package session holds the request-scoped database session and the context
// keys resolvers read it and the schema registry from.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"modelgraph/internal/dbexec"
	"modelgraph/internal/registry"
	"modelgraph/internal/schemaerr"
)

var (
	// ErrNoSession is returned when a resolver runs without a session in its context.
	ErrNoSession = errors.New("no database session in context")
	// ErrNoRegistry is returned when a resolver runs without a registry in its context.
	ErrNoRegistry = errors.New("no schema registry in context")
	// ErrClosed is returned by a session used after Close.
	ErrClosed = errors.New("database session is closed")
)

// Option configures a Session.
type Option func(*Session)

// WithObserver reports every statement the session runs.
func WithObserver(fn dbexec.Observer) Option {
	return func(s *Session) { s.observer = fn }
}

// Session is one request's database session: a single pooled connection held
// from Open until Close.
type Session struct {
	conn     *sql.Conn
	exec     dbexec.QueryExecutor
	observer dbexec.Observer

	mu     sync.Mutex
	closed bool
}

// Open acquires a dedicated connection from db.
func Open(ctx context.Context, db *sql.DB, opts ...Option) (*Session, error) {
	if db == nil {
		return nil, schemaerr.Configf("no database handle")
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	s := &Session{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	s.exec = dbexec.Observe(dbexec.NewConnExecutor(conn), s.observer)
	return s, nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// QueryContext runs a query on the session connection.
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (dbexec.Rows, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.exec.QueryContext(ctx, query, args...)
}

// ExecContext runs a statement on the session connection.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.exec.ExecContext(ctx, query, args...)
}

// Close returns the connection to the pool. Later calls do nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

type sessionKey struct{}
type registryKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the request session.
func FromContext(ctx context.Context) (*Session, error) {
	if ctx != nil {
		if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s != nil {
			return s, nil
		}
	}
	return nil, &schemaerr.Error{Kind: schemaerr.KindConfig, Msg: "resolver context", Err: ErrNoSession}
}

// WithRegistry stores the schema registry in ctx.
func WithRegistry(ctx context.Context, reg *registry.Registry) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, registryKey{}, reg)
}

// RegistryFromContext returns the schema registry.
func RegistryFromContext(ctx context.Context) (*registry.Registry, error) {
	if ctx != nil {
		if reg, ok := ctx.Value(registryKey{}).(*registry.Registry); ok && reg != nil {
			return reg, nil
		}
	}
	return nil, &schemaerr.Error{Kind: schemaerr.KindConfig, Msg: "resolver context", Err: ErrNoRegistry}
}
