// Package sql provides stream adapters for database operations using
// database/sql: query results as a pull source, and statements executed
// for every element passing through a pipeline.
package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lguimbarda/fibflow/flow/core"
)

// Scanner is a function that scans a row into a value.
type Scanner[T any] func(*sql.Rows) (T, error)

// Query creates a Stream that emits one row per pull. The query runs on the
// first pull, with that pull's context; rows are scanned only as they are
// requested, and closing the stream closes the result set.
func Query[T any](db *sql.DB, query string, scanner Scanner[T], args ...any) core.Stream[T] {
	q := &queryStream[T]{db: db, query: query, args: args, scanner: scanner}
	q.emitter = core.Emit("sql-query", q.next, q.release)
	return q
}

type queryStream[T any] struct {
	emitter *core.Emitter[T]
	ctx     context.Context

	db      *sql.DB
	query   string
	args    []any
	scanner Scanner[T]
	rows    *sql.Rows
}

func (q *queryStream[T]) Pull(ctx context.Context) core.Result[T] {
	q.ctx = ctx
	defer func() { q.ctx = nil }()
	return q.emitter.Pull(ctx)
}

func (q *queryStream[T]) Close() error {
	return q.emitter.Close()
}

func (q *queryStream[T]) next() (T, bool, error) {
	var zero T
	if q.rows == nil {
		rows, err := q.db.QueryContext(q.ctx, q.query, q.args...)
		if err != nil {
			return zero, false, fmt.Errorf("query: %w", err)
		}
		q.rows = rows
	}
	if !q.rows.Next() {
		if err := q.rows.Err(); err != nil {
			return zero, false, fmt.Errorf("read rows: %w", err)
		}
		return zero, false, nil
	}
	v, err := q.scanner(q.rows)
	if err != nil {
		return zero, false, fmt.Errorf("scan: %w", err)
	}
	return v, true, nil
}

func (q *queryStream[T]) release() {
	if q.rows != nil {
		_ = q.rows.Close()
		q.rows = nil
	}
}

// ExecResult contains the result of an exec operation.
type ExecResult struct {
	LastInsertId int64
	RowsAffected int64
}

// Exec creates a Stream that executes a statement on the first pull and
// emits its result.
func Exec(db *sql.DB, query string, args ...any) core.Stream[ExecResult] {
	e := &execStream{db: db, query: query, args: args}
	e.emitter = core.Emit("sql-exec", e.next, nil)
	return e
}

type execStream struct {
	emitter *core.Emitter[ExecResult]
	ctx     context.Context
	db      *sql.DB
	query   string
	args    []any
	done    bool
}

func (e *execStream) Pull(ctx context.Context) core.Result[ExecResult] {
	e.ctx = ctx
	defer func() { e.ctx = nil }()
	return e.emitter.Pull(ctx)
}

func (e *execStream) Close() error {
	return e.emitter.Close()
}

func (e *execStream) next() (ExecResult, bool, error) {
	if e.done {
		return ExecResult{}, false, nil
	}
	e.done = true
	res, err := e.db.ExecContext(e.ctx, e.query, e.args...)
	if err != nil {
		return ExecResult{}, false, fmt.Errorf("exec: %w", err)
	}
	return execResult(res), true, nil
}

func execResult(res sql.Result) ExecResult {
	lastID, _ := res.LastInsertId()
	rowsAffected, _ := res.RowsAffected()
	return ExecResult{LastInsertId: lastID, RowsAffected: rowsAffected}
}

// Insert creates a Transformer that executes a statement for every element
// and then forwards the element unchanged. binder converts the element into
// the statement's arguments. A failed statement stops the stream.
func Insert[T any](db *sql.DB, query string, binder func(T) []any) core.Transformer[T, T] {
	return core.Transmit(func(in core.Stream[T]) core.Stream[T] {
		return &insert[T]{Link: core.NewLink(in), db: db, query: query, binder: binder}
	})
}

type insert[T any] struct {
	core.Link[T]
	db     *sql.DB
	query  string
	binder func(T) []any
	stmt   *sql.Stmt
}

func (s *insert[T]) Pull(ctx context.Context) core.Result[T] {
	res := s.Next(ctx)
	if !res.IsValue() {
		s.closeStmt()
		return res
	}
	if err := s.exec(ctx, res.Value()); err != nil {
		s.Fail(err)
		s.closeStmt()
		return core.Err[T](err)
	}
	return res
}

func (s *insert[T]) exec(ctx context.Context, v T) error {
	if s.stmt == nil {
		stmt, err := s.db.PrepareContext(ctx, s.query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		s.stmt = stmt
	}
	args, err := core.Protect("sql-insert", func() ([]any, error) {
		return s.binder(v), nil
	})
	if err != nil {
		return err
	}
	if _, err := s.stmt.ExecContext(ctx, args...); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func (s *insert[T]) Close() error {
	s.closeStmt()
	return s.Link.Close()
}

func (s *insert[T]) closeStmt() {
	if s.stmt != nil {
		_ = s.stmt.Close()
		s.stmt = nil
	}
}
