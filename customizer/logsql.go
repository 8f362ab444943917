package customizer

import (
	"context"
	"log/slog"

	"github.com/syssam/stmthook"
)

// NewLogSQL returns a customizer that logs each executed statement.
// LevelLow logs at debug, LevelInfo at info. Raw logs the template instead
// of the rendered statement.
func NewLogSQL(logger *slog.Logger, c stmthook.LogSQL) *stmthook.Customizer {
	level := slog.LevelDebug
	if c.Level == stmthook.LevelInfo {
		level = slog.LevelInfo
	}
	return &stmthook.Customizer{
		Name: string(stmthook.KindLogSQL),
		AfterExecution: func(ctx context.Context, sc *stmthook.StatementContext) error {
			if !logger.Enabled(ctx, level) {
				return nil
			}
			stmt := sc.RenderedSQL
			if c.Raw {
				stmt = sc.RawSQL
			}
			logger.Log(ctx, level, "executed statement",
				"statement", stmt,
				"id", sc.ID,
				"target", sc.Target.String(),
			)
			return nil
		},
	}
}
