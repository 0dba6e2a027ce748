// Package dbexec provides database query execution abstractions.
// Queries run either directly against a pool or on the single connection a
// request session holds.
package dbexec

import (
	"context"
	"database/sql"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// QueryExecutor abstracts SQL execution so callers can run on a pool, a
// session connection or an instrumented wrapper.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

// ConnExecutor executes queries on one dedicated connection.
type ConnExecutor struct {
	conn *sql.Conn
}

// NewConnExecutor wraps a connection. The caller keeps ownership of conn.
func NewConnExecutor(conn *sql.Conn) *ConnExecutor {
	return &ConnExecutor{conn: conn}
}

func (e *ConnExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.conn == nil {
		return nil, sql.ErrConnDone
	}
	return e.conn.QueryContext(ctx, query, args...)
}

func (e *ConnExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.conn == nil {
		return nil, sql.ErrConnDone
	}
	return e.conn.ExecContext(ctx, query, args...)
}
