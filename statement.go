package stmthook

import (
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/syssam/stmthook/dialect"
)

// StatementContext is the read/write view of one in-flight statement.
// It is created per invocation by the executor, mutated by customizers and
// discarded once the statement completes or fails.
type StatementContext struct {
	// ID identifies the invocation in logs and signals.
	ID string
	// Target is the data-access method being executed. It is empty for
	// ad-hoc statements.
	Target Target
	// RawSQL is the statement template with :name placeholders.
	RawSQL string
	// RenderedSQL is the statement sent to the database.
	RenderedSQL string
	// Binding holds the named parameter values.
	Binding *Binding
	// Args are the call arguments the binding was built from.
	Args Args
	// Conn is the connection the statement runs on. It is borrowed for the
	// duration of the statement only; follow-up statements must use it.
	Conn dialect.ExecQuerier
	// Dialect is the normalized dialect name of Conn.
	Dialect string
	// Result is set after a successful Exec, before AfterExecution runs.
	Result sql.Result
}

// NewStatementContext returns a context for one invocation of raw on conn.
func NewStatementContext(raw string, conn dialect.ExecQuerier, d string) *StatementContext {
	return &StatementContext{
		ID:      uuid.NewString(),
		RawSQL:  raw,
		Binding: NewBinding(),
		Conn:    conn,
		Dialect: dialect.Normalize(d),
	}
}

// Name returns the target name, or the raw SQL for ad-hoc statements.
func (sc *StatementContext) Name() string {
	if sc.Target.IsZero() {
		return sc.RawSQL
	}
	return sc.Target.String()
}

// LogValue implements slog.LogValuer.
func (sc *StatementContext) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("id", sc.ID)}
	if !sc.Target.IsZero() {
		attrs = append(attrs, slog.String("target", sc.Target.String()))
	}
	return slog.GroupValue(attrs...)
}
