package stmthook

import (
	"context"
	"fmt"
)

// Phase is a point in a statement's lifecycle where customizers run.
type Phase uint8

// Lifecycle phases, in execution order.
const (
	// PhaseBeforeBinding runs before parameter values are handed to the
	// database. Customizers may rewrite or add bindings.
	PhaseBeforeBinding Phase = iota + 1
	// PhaseBeforeExecution runs after binding is final. A failure here
	// keeps the statement from executing.
	PhaseBeforeExecution
	// PhaseAfterExecution runs after the statement executed successfully.
	PhaseAfterExecution
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBeforeBinding:
		return "beforeBinding"
	case PhaseBeforeExecution:
		return "beforeExecution"
	case PhaseAfterExecution:
		return "afterExecution"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// HookFunc is a customizer callback.
type HookFunc func(context.Context, *StatementContext) error

// Customizer is a unit of behavior hooked into one or more lifecycle
// phases. Nil hooks are skipped.
type Customizer struct {
	Name            string
	BeforeBinding   HookFunc
	BeforeExecution HookFunc
	AfterExecution  HookFunc
}

// Hook returns the callback for phase p, or nil.
func (c *Customizer) Hook(p Phase) HookFunc {
	switch p {
	case PhaseBeforeBinding:
		return c.BeforeBinding
	case PhaseBeforeExecution:
		return c.BeforeExecution
	case PhaseAfterExecution:
		return c.AfterExecution
	default:
		return nil
	}
}

// Customizers is an ordered list of customizers attached to one statement.
type Customizers []*Customizer

// Run invokes the phase callback of every customizer in registration order.
// It stops at the first failure and returns it wrapped in a PhaseError.
func (cs Customizers) Run(ctx context.Context, p Phase, sc *StatementContext) error {
	for _, c := range cs {
		hook := c.Hook(p)
		if hook == nil {
			continue
		}
		if err := hook(ctx, sc); err != nil {
			emitPhaseFailed(ctx, sc, c.Name, p, err)
			return &PhaseError{Phase: p, Customizer: c.Name, Err: err}
		}
	}
	return nil
}
