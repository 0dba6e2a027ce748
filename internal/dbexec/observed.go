package dbexec

import (
	"context"
	"database/sql"
	"time"
)

// Statement describes one finished statement.
type Statement struct {
	Query    string
	Args     int
	Elapsed  time.Duration
	Rows     int
	Err      error
	IsSelect bool
}

// Observer is called once per statement. For queries it runs when the rows
// are closed, so Elapsed covers the full read.
type Observer func(ctx context.Context, st Statement)

// Observe wraps next so every statement is reported to fn.
func Observe(next QueryExecutor, fn Observer) QueryExecutor {
	if fn == nil {
		return next
	}
	return &observedExecutor{next: next, observe: fn}
}

type observedExecutor struct {
	next    QueryExecutor
	observe Observer
}

func (e *observedExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rows, err := e.next.QueryContext(ctx, query, args...)
	if err != nil {
		e.observe(ctx, Statement{Query: query, Args: len(args), Elapsed: time.Since(start), Err: err, IsSelect: true})
		return nil, err
	}
	return &observedRows{
		Rows: rows,
		done: func(count int, err error) {
			e.observe(ctx, Statement{Query: query, Args: len(args), Elapsed: time.Since(start), Rows: count, Err: err, IsSelect: true})
		},
	}, nil
}

func (e *observedExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := e.next.ExecContext(ctx, query, args...)
	st := Statement{Query: query, Args: len(args), Elapsed: time.Since(start), Err: err}
	if err == nil {
		if n, rerr := res.RowsAffected(); rerr == nil {
			st.Rows = int(n)
		}
	}
	e.observe(ctx, st)
	return res, err
}

type observedRows struct {
	Rows
	count  int
	done   func(int, error)
	closed bool
}

func (r *observedRows) Next() bool {
	if r.Rows.Next() {
		r.count++
		return true
	}
	return false
}

func (r *observedRows) Close() error {
	err := r.Rows.Close()
	if !r.closed {
		r.closed = true
		rowsErr := r.Rows.Err()
		if rowsErr == nil {
			rowsErr = err
		}
		r.done(r.count, rowsErr)
	}
	return err
}
