package customizer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/stmthook"
)

// NewCapitalize returns a customizer that upper-cases the named bindings
// before binding. Values are upper-cased from their string form; nil
// values stay nil. Absent bindings are reported and skipped.
func NewCapitalize(logger *slog.Logger, bindings ...string) *stmthook.Customizer {
	names := append([]string(nil), bindings...)
	return &stmthook.Customizer{
		Name: string(stmthook.KindCapitalize),
		BeforeBinding: func(ctx context.Context, sc *stmthook.StatementContext) error {
			// A Caser keeps state and must not be shared between statements.
			upper := cases.Upper(language.Und)
			for _, name := range names {
				v, ok := sc.Binding.Lookup(name)
				if !ok {
					stmthook.WarnMissingBinding(ctx, logger, sc, string(stmthook.KindCapitalize), name)
					continue
				}
				if v == nil {
					continue
				}
				sc.Binding.Set(name, upper.String(stringOf(v)))
			}
			return nil
		},
	}
}

func stringOf(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
