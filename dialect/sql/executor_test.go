package sql_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/dialect"
	"github.com/syssam/stmthook/dialect/sql"
)

type person struct {
	ID        int64
	FirstName string
}

func accessors() *stmthook.Accessors {
	acc := stmthook.NewAccessors()
	stmthook.Register[person](acc,
		stmthook.Prop("id", func(p *person) int64 { return p.ID }, nil),
		stmthook.Prop("firstName", func(p *person) string { return p.FirstName }, func(p *person, v string) { p.FirstName = v }),
	)
	return acc
}

func newMock(t *testing.T, d string) (*sql.Executor, sqlmock.Sqlmock, *sql.ExecStats) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	stats := sql.NewExecStats()
	return sql.NewExecutor(sql.OpenDB(d, db), sql.WithAccessors(accessors()), sql.WithStats(stats)), mock, stats
}

// recorder returns a customizer appending "<name>.<phase>" to calls.
func recorder(name string, calls *[]string) *stmthook.Customizer {
	rec := func(p stmthook.Phase) stmthook.HookFunc {
		return func(context.Context, *stmthook.StatementContext) error {
			*calls = append(*calls, name+"."+p.String())
			return nil
		}
	}
	return &stmthook.Customizer{
		Name:            name,
		BeforeBinding:   rec(stmthook.PhaseBeforeBinding),
		BeforeExecution: rec(stmthook.PhaseBeforeExecution),
		AfterExecution:  rec(stmthook.PhaseAfterExecution),
	}
}

func TestExecutorLifecycle(t *testing.T) {
	exec, mock, stats := newMock(t, dialect.Postgres)

	var calls []string
	cs := stmthook.Customizers{recorder("a", &calls), recorder("b", &calls)}
	cs = append(cs, &stmthook.Customizer{
		Name: "observer",
		BeforeExecution: func(_ context.Context, sc *stmthook.StatementContext) error {
			calls = append(calls, "rendered:"+sc.RenderedSQL)
			return nil
		},
		AfterExecution: func(_ context.Context, sc *stmthook.StatementContext) error {
			n, err := sc.Result.RowsAffected()
			calls = append(calls, fmt.Sprintf("affected:%d", n))
			return err
		},
	})

	mock.ExpectExec("UPDATE people SET first_name = $1 WHERE id = $2").
		WithArgs("john", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &person{ID: 7, FirstName: "john"}
	_, err := exec.ExecSQL(context.Background(), "UPDATE people SET first_name = :p.firstName WHERE id = :p.id", cs, stmthook.Bean("p", p))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, []string{
		"a.beforeBinding", "b.beforeBinding",
		"a.beforeExecution", "b.beforeExecution", "rendered:UPDATE people SET first_name = $1 WHERE id = $2",
		"a.afterExecution", "b.afterExecution", "affected:1",
	}, calls)
	assert.Equal(t, int64(1), stats.Stats().TotalExecs)
}

func TestExecutorBeforeBindingRewritesBinding(t *testing.T) {
	exec, mock, _ := newMock(t, dialect.MySQL)

	upper := &stmthook.Customizer{
		Name: "upper",
		BeforeBinding: func(_ context.Context, sc *stmthook.StatementContext) error {
			sc.Binding.Set("name", strings.ToUpper(sc.Binding.Get("name").(string)))
			sc.Binding.Set("now", "2024-01-01")
			return nil
		},
	}
	mock.ExpectExec("INSERT INTO t (name, at) VALUES (?, ?)").
		WithArgs("BANDA", "2024-01-01").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := exec.ExecSQL(context.Background(), "INSERT INTO t (name, at) VALUES (:name, :now)",
		stmthook.Customizers{upper}, stmthook.Bind("name", "banda"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorAbortsBeforeExecution(t *testing.T) {
	exec, mock, stats := newMock(t, dialect.Postgres)

	var calls []string
	invalid := errors.New("invalid")
	cs := stmthook.Customizers{
		recorder("first", &calls),
		{Name: "gate", BeforeExecution: func(context.Context, *stmthook.StatementContext) error { return invalid }},
		recorder("last", &calls),
	}
	_, err := exec.ExecSQL(context.Background(), "DELETE FROM t", cs)
	require.ErrorIs(t, err, invalid)
	assert.True(t, stmthook.IsPhaseError(err))
	assert.False(t, stmthook.IsExecutionError(err))
	assert.Equal(t, []string{"first.beforeBinding", "last.beforeBinding", "first.beforeExecution"}, calls)
	require.NoError(t, mock.ExpectationsWereMet(), "executor must not be invoked")

	s := stats.Stats()
	assert.Equal(t, int64(0), s.TotalExecs)
	assert.Equal(t, int64(1), s.Aborted)
}

func TestExecutorMissingParameter(t *testing.T) {
	exec, mock, _ := newMock(t, dialect.Postgres)

	_, err := exec.ExecSQL(context.Background(), "DELETE FROM t WHERE id = :id", nil)
	require.ErrorIs(t, err, stmthook.ErrMissingParameter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorExecutionError(t *testing.T) {
	exec, mock, stats := newMock(t, dialect.Postgres)

	var calls []string
	boom := errors.New("duplicate key")
	mock.ExpectExec("INSERT INTO t DEFAULT VALUES").WillReturnError(boom)

	_, err := exec.ExecSQL(context.Background(), "INSERT INTO t DEFAULT VALUES", stmthook.Customizers{recorder("r", &calls)})
	require.ErrorIs(t, err, boom)
	var ee *stmthook.ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "INSERT INTO t DEFAULT VALUES", ee.Statement)
	assert.NotContains(t, calls, "r.afterExecution")
	assert.Equal(t, int64(1), stats.Stats().Errors)
}

func TestExecutorStatement(t *testing.T) {
	exec, mock, _ := newMock(t, dialect.Postgres)

	f := stmthook.NewFactory()
	var seen []string
	f.Register(stmthook.KindLogSQL, stmthook.ScopeMethod, func(_ stmthook.Target, _ stmthook.Config) (stmthook.Binder, error) {
		return func(any) (*stmthook.Customizer, error) {
			return &stmthook.Customizer{
				Name: "log_sql",
				AfterExecution: func(_ context.Context, sc *stmthook.StatementContext) error {
					seen = append(seen, sc.Name()+" "+sc.RawSQL)
					return nil
				},
			}, nil
		}, nil
	})
	reg := stmthook.NewRegistry(f)
	require.NoError(t, reg.Register(stmthook.DAO{
		Name: "PersonDAO",
		Methods: []stmthook.Method{{
			Name:         "Names",
			SQL:          "SELECT first_name FROM people WHERE id > :min",
			Declarations: []stmthook.Declaration{stmthook.OnMethod(stmthook.LogSQL{})},
		}},
	}))
	s, err := reg.Statement("PersonDAO", "Names")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT first_name FROM people WHERE id > $1").
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"first_name"}).AddRow("john").AddRow("jane"))

	rows, err := exec.Query(context.Background(), s, stmthook.Bind("min", 0))
	require.NoError(t, err)
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())
	require.NoError(t, rows.Close(), "closing twice releases the connection once")
	assert.Equal(t, []string{"john", "jane"}, names)
	assert.Equal(t, []string{"PersonDAO.Names SELECT first_name FROM people WHERE id > :min"}, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorTxSharesConnection(t *testing.T) {
	exec, mock, _ := newMock(t, dialect.Postgres)

	follow := &stmthook.Customizer{
		Name: "follow",
		AfterExecution: func(ctx context.Context, sc *stmthook.StatementContext) error {
			_, err := sc.Conn.ExecContext(ctx, "UPDATE users SET posts_count = posts_count + 1 WHERE id = $1", sc.Binding.Get("userId"))
			return err
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO posts (user_id) VALUES ($1)").WithArgs(1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET posts_count = posts_count + 1 WHERE id = $1").WithArgs(1).WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	tx, err := exec.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	_, err = tx.ExecSQL(context.Background(), "INSERT INTO posts (user_id) VALUES (:userId)", stmthook.Customizers{follow}, stmthook.Bind("userId", 1))
	require.Error(t, err)
	assert.True(t, stmthook.IsPhaseError(err))
	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = tx.BeginTx(context.Background(), nil)
	assert.Error(t, err, "nested transactions")
}

func TestExecutorConcurrentIsolation(t *testing.T) {
	drv, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "iso.db"))
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	exec := sql.NewExecutor(drv)

	tag := &stmthook.Customizer{
		Name: "tag",
		BeforeBinding: func(_ context.Context, sc *stmthook.StatementContext) error {
			sc.Binding.Set("v", fmt.Sprintf("%v-%s", sc.Binding.Get("v"), sc.ID))
			return nil
		},
	}
	var g errgroup.Group
	for i := range 20 {
		g.Go(func() error {
			rows, err := exec.QuerySQL(context.Background(), "SELECT :v", stmthook.Customizers{tag}, stmthook.Bind("v", i))
			if err != nil {
				return err
			}
			defer rows.Close()
			if !rows.Next() {
				return errors.New("no row")
			}
			var got string
			if err := rows.Scan(&got); err != nil {
				return err
			}
			if !strings.HasPrefix(got, fmt.Sprintf("%d-", i)) {
				return fmt.Errorf("statement %d saw %q", i, got)
			}
			return rows.Err()
		})
	}
	require.NoError(t, g.Wait())
}

func TestExecStatsSlow(t *testing.T) {
	var slow []string
	stats := sql.NewExecStats(
		sql.WithSlowThreshold(-time.Nanosecond),
		sql.WithSlowStatementHook(func(_ context.Context, statement string, _ []any, _ time.Duration) {
			slow = append(slow, statement)
		}),
	)
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	exec := sql.NewExecutor(sql.OpenDB(dialect.SQLite, db), sql.WithStats(stats))

	mock.ExpectExec("DELETE FROM t WHERE id = ?").WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = exec.ExecSQL(context.Background(), "DELETE FROM t WHERE id = :id", nil, stmthook.Bind("id", 1))
	require.NoError(t, err)

	s := stats.Stats()
	assert.Equal(t, int64(1), s.TotalExecs)
	assert.Equal(t, int64(1), s.SlowStatements)
	assert.Equal(t, []string{"DELETE FROM t WHERE id = ?"}, slow)
	assert.Contains(t, s.String(), "execs=1")

	stats.Reset()
	assert.Equal(t, sql.StatsSnapshot{}, stats.Stats())
	assert.Equal(t, time.Duration(0), sql.StatsSnapshot{}.AvgDuration())

	stats.SetSlowThreshold(time.Second)
	assert.Equal(t, time.Second, stats.SlowThreshold())
}
