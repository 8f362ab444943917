package customizer

import (
	"context"

	"github.com/syssam/stmthook"
)

// Validator checks an entity, optionally restricted to groups. It returns a
// *stmthook.ValidationError when constraints are violated.
type Validator interface {
	Validate(ctx context.Context, entity any, groups ...string) error
}

// NewValid returns a customizer that validates entity before execution.
// The statement never reaches the database when entity is invalid.
func NewValid(v Validator, c stmthook.Valid, entity any) *stmthook.Customizer {
	groups := append([]string(nil), c.Groups...)
	return &stmthook.Customizer{
		Name: string(stmthook.KindValid),
		BeforeExecution: func(ctx context.Context, _ *stmthook.StatementContext) error {
			return v.Validate(ctx, entity, groups...)
		},
	}
}
