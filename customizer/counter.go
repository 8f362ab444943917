package customizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/dialect"
)

// NewCounter returns a customizer that adds one to (or, when decrementing,
// subtracts one from) c.Column of the c.Table row whose c.IDColumn equals
// the c.Binding value. The update runs after execution on the statement's
// connection. Identifiers are checked here, once.
func NewCounter(logger *slog.Logger, c stmthook.Counter) (*stmthook.Customizer, error) {
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	for _, ident := range []string{c.Table, c.Column, c.IDColumn} {
		if !dialect.ValidIdentifier(ident) {
			return nil, fmt.Errorf("%w: %q", stmthook.ErrInvalidIdentifier, ident)
		}
	}
	if c.Binding == "" {
		return nil, fmt.Errorf("%w: counter on %s.%s has no binding", stmthook.ErrMissingParameter, c.Table, c.Column)
	}
	op := "+"
	if c.Decrementing {
		op = "-"
	}
	return &stmthook.Customizer{
		Name: string(stmthook.KindCounter),
		AfterExecution: func(ctx context.Context, sc *stmthook.StatementContext) error {
			id, ok := sc.Binding.Lookup(c.Binding)
			if !ok {
				stmthook.WarnMissingBinding(ctx, logger, sc, string(stmthook.KindCounter), c.Binding)
				return nil
			}
			col := dialect.QuoteIdent(sc.Dialect, c.Column)
			query := fmt.Sprintf("UPDATE %s SET %s = %s %s 1 WHERE %s = %s",
				dialect.QuoteIdent(sc.Dialect, c.Table), col, col, op,
				dialect.QuoteIdent(sc.Dialect, c.IDColumn), dialect.Placeholder(sc.Dialect, 1),
			)
			if _, err := sc.Conn.ExecContext(ctx, query, id); err != nil {
				return &stmthook.ExecutionError{Statement: sc.Name() + " counter", Err: err}
			}
			return nil
		},
	}, nil
}
