package customizer_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/customizer"
	"github.com/syssam/stmthook/dialect/sql"
)

type Person struct {
	ID        int64
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"omitempty,email" groups:"EmailUpdate"`
	Created   time.Time
	Modified  time.Time
}

type Post struct {
	ID     int64
	UserID int64
	Title  string
}

func accessors() *stmthook.Accessors {
	acc := stmthook.NewAccessors()
	stmthook.Register[Person](acc,
		stmthook.Prop("id", func(p *Person) int64 { return p.ID }, func(p *Person, v int64) { p.ID = v }),
		stmthook.Prop("firstName", func(p *Person) string { return p.FirstName }, func(p *Person, v string) { p.FirstName = v }),
		stmthook.Prop("lastName", func(p *Person) string { return p.LastName }, func(p *Person, v string) { p.LastName = v }),
		stmthook.Prop("email", func(p *Person) string { return p.Email }, func(p *Person, v string) { p.Email = v }),
		stmthook.Prop("created", func(p *Person) time.Time { return p.Created }, func(p *Person, v time.Time) { p.Created = v }),
		stmthook.Prop("modified", func(p *Person) time.Time { return p.Modified }, func(p *Person, v time.Time) { p.Modified = v }),
	)
	stmthook.Register[Post](acc,
		stmthook.Prop("id", func(p *Post) int64 { return p.ID }, nil),
		stmthook.Prop("userId", func(p *Post) int64 { return p.UserID }, nil),
		stmthook.Prop("title", func(p *Post) string { return p.Title }, nil),
	)
	return acc
}

// logBuffer returns a debug-level text logger writing to the returned buffer.
func logBuffer() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func fixedClock(t time.Time) customizer.Clock {
	return func() time.Time { return t }
}

// env is a SQLite database with the customizers registered.
type env struct {
	exec *sql.Executor
	drv  *sql.Driver
	reg  *stmthook.Registry
	logs *bytes.Buffer
}

const schema = `
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, posts_count INTEGER NOT NULL DEFAULT 0);
CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL, title TEXT NOT NULL);
CREATE TABLE people (id INTEGER PRIMARY KEY, first_name TEXT, last_name TEXT, email TEXT, created TEXT, modified TEXT);
`

func newEnv(t *testing.T, clock customizer.Clock) *env {
	t.Helper()
	drv, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	_, err = drv.DB().ExecContext(context.Background(), schema)
	require.NoError(t, err)

	logger, logs := logBuffer()
	acc := accessors()
	f := stmthook.NewFactory()
	customizer.Register(f, customizer.Options{Logger: logger, Accessors: acc, Clock: clock})
	return &env{
		exec: sql.NewExecutor(drv, sql.WithAccessors(acc), sql.WithLogger(logger)),
		drv:  drv,
		reg:  stmthook.NewRegistry(f),
		logs: logs,
	}
}

func (e *env) statement(t *testing.T, dao, method string) *stmthook.Statement {
	t.Helper()
	s, err := e.reg.Statement(dao, method)
	require.NoError(t, err)
	return s
}

func (e *env) scalar(t *testing.T, query string, args ...any) any {
	t.Helper()
	var v any
	require.NoError(t, e.drv.DB().QueryRowContext(context.Background(), query, args...).Scan(&v))
	return v
}

// newContext returns a statement context with the given bindings.
func newContext(d string, kv ...any) *stmthook.StatementContext {
	sc := stmthook.NewStatementContext("", nil, d)
	for i := 0; i+1 < len(kv); i += 2 {
		sc.Binding.Set(kv[i].(string), kv[i+1])
	}
	return sc
}
