package stmthook

import (
	"context"
	"log/slog"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for statement lifecycle events.
var (
	SignalPhaseFailed       = capitan.NewSignal("stmthook.statement.phase.failed", "Customizer callback failed; statement aborted")
	SignalBindingMissing    = capitan.NewSignal("stmthook.binding.missing", "Configured binding absent; customizer skipped")
	SignalStatementExecuted = capitan.NewSignal("stmthook.statement.executed", "Statement executed and after-execution hooks completed")
)

// Keys for typed event data.
var (
	KeyStatementID = capitan.NewStringKey("statement_id")
	KeyTarget      = capitan.NewStringKey("target")
	KeyCustomizer  = capitan.NewStringKey("customizer")
	KeyPhase       = capitan.NewStringKey("phase")
	KeyBinding     = capitan.NewStringKey("binding")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

func emitPhaseFailed(ctx context.Context, sc *StatementContext, customizer string, p Phase, err error) {
	capitan.Error(ctx, SignalPhaseFailed,
		KeyStatementID.Field(sc.ID),
		KeyTarget.Field(sc.Name()),
		KeyCustomizer.Field(customizer),
		KeyPhase.Field(p.String()),
		KeyError.Field(err),
	)
}

// EmitExecuted emits SignalStatementExecuted for sc.
func EmitExecuted(ctx context.Context, sc *StatementContext, d time.Duration) {
	capitan.Emit(ctx, SignalStatementExecuted,
		KeyStatementID.Field(sc.ID),
		KeyTarget.Field(sc.Name()),
		KeyDuration.Field(d),
	)
}

// WarnMissingBinding reports that customizer could not find binding on sc.
// The customizer is expected to skip its work and return nil.
func WarnMissingBinding(ctx context.Context, logger *slog.Logger, sc *StatementContext, customizer, binding string) {
	logger.WarnContext(ctx, "missing binding; customizer skipped",
		"customizer", customizer,
		"binding", binding,
		"statement", sc,
	)
	capitan.Emit(ctx, SignalBindingMissing,
		KeyStatementID.Field(sc.ID),
		KeyTarget.Field(sc.Name()),
		KeyCustomizer.Field(customizer),
		KeyBinding.Field(binding),
	)
}
