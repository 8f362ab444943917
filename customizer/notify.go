package customizer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/dialect"
)

// NewNotify returns a customizer that publishes the value of c.Binding on
// c.Channel after execution, on the statement's connection. Listeners
// inside a transaction see it once the transaction commits.
//
// The channel and payload are sent as parameters of pg_notify, never
// spliced into the statement.
func NewNotify(logger *slog.Logger, c stmthook.Notify) (*stmthook.Customizer, error) {
	if !dialect.ValidIdentifier(c.Channel) {
		return nil, fmt.Errorf("%w: channel %q", stmthook.ErrInvalidIdentifier, c.Channel)
	}
	if c.Binding == "" {
		return nil, fmt.Errorf("%w: notify on %s has no binding", stmthook.ErrMissingParameter, c.Channel)
	}
	return &stmthook.Customizer{
		Name: string(stmthook.KindNotify),
		AfterExecution: func(ctx context.Context, sc *stmthook.StatementContext) error {
			if sc.Dialect != dialect.Postgres {
				return fmt.Errorf("%w: notify requires %s, statement runs on %q", stmthook.ErrUnsupportedDialect, dialect.Postgres, sc.Dialect)
			}
			v, ok := sc.Binding.Lookup(c.Binding)
			if !ok {
				stmthook.WarnMissingBinding(ctx, logger, sc, string(stmthook.KindNotify), c.Binding)
				return nil
			}
			payload := ""
			if v != nil {
				payload = stringOf(v)
			}
			if _, err := sc.Conn.ExecContext(ctx, "SELECT pg_notify($1, $2)", c.Channel, payload); err != nil {
				return &stmthook.ExecutionError{Statement: sc.Name() + " notify", Err: err}
			}
			return nil
		},
	}, nil
}
