package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/syssam/stmthook"
)

const defaultTemplateCacheSize = 512

// Executor runs statements through their customizers.
//
// Every statement runs on one connection: the transaction when the
// executor came from BeginTx, otherwise a connection pinned from the pool
// for the statement and its follow-ups. The lifecycle is
//
//	apply arguments -> BeforeBinding -> bind -> BeforeExecution -> execute -> AfterExecution
//
// and the first failure ends it. For queries, AfterExecution runs when the
// returned Rows are closed, after the result set is released and only if
// reading it raised no error; Close returns its failure.
type Executor struct {
	drv       *Driver
	tx        *Tx
	accessors stmthook.PropertyAccessor
	logger    *slog.Logger
	stats     *ExecStats
	templates *templateCache
}

// Option configures an Executor.
type Option func(*Executor)

// WithAccessors sets the accessor tables used to bind bean arguments.
func WithAccessors(acc stmthook.PropertyAccessor) Option {
	return func(e *Executor) {
		e.accessors = acc
	}
}

// WithLogger sets the executor logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithStats records execution statistics into s.
func WithStats(s *ExecStats) Option {
	return func(e *Executor) {
		e.stats = s
	}
}

// WithTemplateCacheSize sets how many parsed templates are kept.
func WithTemplateCacheSize(n int) Option {
	return func(e *Executor) {
		if c, err := newTemplateCache(n); err == nil {
			e.templates = c
		}
	}
}

// NewExecutor returns an Executor over drv.
func NewExecutor(drv *Driver, opts ...Option) *Executor {
	e := &Executor{
		drv:       drv,
		accessors: stmthook.NewAccessors(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.templates == nil {
		e.templates, _ = newTemplateCache(defaultTemplateCacheSize)
	}
	return e
}

// Driver returns the underlying driver.
func (e *Executor) Driver() *Driver { return e.drv }

// Exec runs a compiled statement with args.
func (e *Executor) Exec(ctx context.Context, s *stmthook.Statement, args ...stmthook.Arg) (sql.Result, error) {
	cs, err := s.Customizers(args)
	if err != nil {
		return nil, err
	}
	res, _, err := e.run(ctx, s.Target, s.SQL, cs, args, false)
	return res, err
}

// Query runs a compiled statement with args and returns its rows. The
// connection is held until the rows are closed, and AfterExecution
// customizers run on Close.
func (e *Executor) Query(ctx context.Context, s *stmthook.Statement, args ...stmthook.Arg) (*Rows, error) {
	cs, err := s.Customizers(args)
	if err != nil {
		return nil, err
	}
	_, rows, err := e.run(ctx, s.Target, s.SQL, cs, args, true)
	return rows, err
}

// ExecSQL runs an ad-hoc statement with the given customizers.
func (e *Executor) ExecSQL(ctx context.Context, raw string, cs stmthook.Customizers, args ...stmthook.Arg) (sql.Result, error) {
	res, _, err := e.run(ctx, stmthook.Target{}, raw, cs, args, false)
	return res, err
}

// QuerySQL runs an ad-hoc query with the given customizers. As with Query,
// AfterExecution runs when the rows are closed.
func (e *Executor) QuerySQL(ctx context.Context, raw string, cs stmthook.Customizers, args ...stmthook.Arg) (*Rows, error) {
	_, rows, err := e.run(ctx, stmthook.Target{}, raw, cs, args, true)
	return rows, err
}

// BeginTx starts a transaction. Statements run through the returned
// ExecTx, and the follow-up statements of their customizers, commit or roll
// back together.
func (e *Executor) BeginTx(ctx context.Context, opts *TxOptions) (*ExecTx, error) {
	if e.tx != nil {
		return nil, errors.New("dialect/sql: nested transactions are not supported")
	}
	tx, err := e.drv.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: begin tx: %w", err)
	}
	txe := *e
	txe.tx = tx
	return &ExecTx{Executor: &txe, tx: tx}, nil
}

// ExecTx is an Executor bound to a transaction.
type ExecTx struct {
	*Executor
	tx *Tx
}

// Commit commits the transaction.
func (t *ExecTx) Commit() error { return t.tx.Commit() }

// Rollback rolls back the transaction.
func (t *ExecTx) Rollback() error { return t.tx.Rollback() }

func (e *Executor) conn() Conn {
	if e.tx != nil {
		return e.tx.Conn
	}
	return e.drv.Conn
}

func (e *Executor) run(ctx context.Context, target stmthook.Target, raw string, cs stmthook.Customizers, args stmthook.Args, query bool) (sql.Result, *Rows, error) {
	tmpl, err := e.templates.get(e.drv.Dialect(), raw)
	if err != nil {
		return nil, nil, err
	}
	ex, release, err := e.conn().session(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("dialect/sql: acquire connection: %w", err)
	}
	release = once(release)
	sc := stmthook.NewStatementContext(raw, ex, e.drv.Dialect())
	sc.Target = target
	sc.Args = args
	sc.RenderedSQL = tmpl.Render(sc.Dialect)

	fail := func(err error) (sql.Result, *Rows, error) {
		return nil, nil, errors.Join(err, release())
	}
	if err := args.Apply(sc.Binding, e.accessors); err != nil {
		return fail(err)
	}
	if err := cs.Run(ctx, stmthook.PhaseBeforeBinding, sc); err != nil {
		e.stats.abort()
		return fail(err)
	}
	argv, err := tmpl.Args(sc.Binding)
	if err != nil {
		e.stats.abort()
		return fail(err)
	}
	if err := cs.Run(ctx, stmthook.PhaseBeforeExecution, sc); err != nil {
		e.stats.abort()
		return fail(err)
	}

	start := time.Now()
	var (
		res  sql.Result
		rows *sql.Rows
	)
	if query {
		rows, err = ex.QueryContext(ctx, sc.RenderedSQL, argv...)
	} else {
		res, err = ex.ExecContext(ctx, sc.RenderedSQL, argv...)
	}
	elapsed := time.Since(start)
	e.stats.record(ctx, sc.RenderedSQL, argv, elapsed, err, query)
	if err != nil {
		e.logger.DebugContext(ctx, "statement failed", "statement", sc, "error", err)
		return fail(&stmthook.ExecutionError{Statement: sc.Name(), Err: err})
	}
	if rows != nil {
		// The result set holds the connection until it is closed, so
		// follow-up statements wait for the caller to close the rows.
		after := once(func() error {
			err := rows.Close()
			if err == nil {
				err = rows.Err()
			}
			if err != nil {
				return errors.Join(&stmthook.ExecutionError{Statement: sc.Name(), Err: err}, release())
			}
			return errors.Join(e.afterExecution(ctx, cs, sc, elapsed), release())
		})
		return nil, &Rows{rowsWithCloser{rows, after}}, nil
	}
	sc.Result = res
	return res, nil, errors.Join(e.afterExecution(ctx, cs, sc, elapsed), release())
}

func (e *Executor) afterExecution(ctx context.Context, cs stmthook.Customizers, sc *stmthook.StatementContext, elapsed time.Duration) error {
	if err := cs.Run(ctx, stmthook.PhaseAfterExecution, sc); err != nil {
		return err
	}
	stmthook.EmitExecuted(ctx, sc, elapsed)
	return nil
}

func once(f func() error) func() error {
	var (
		o   sync.Once
		err error
	)
	return func() error {
		o.Do(func() { err = f() })
		return err
	}
}
