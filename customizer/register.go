// Package customizer provides the built-in statement customizers and binds
// them to their declaration kinds.
//
//	f := stmthook.NewFactory()
//	customizer.Register(f, customizer.Options{
//		Logger:    logger,
//		Accessors: acc,
//		Validator: validation.New(),
//	})
package customizer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/dialect"
	"github.com/syssam/stmthook/validation"
)

// Options are the collaborators shared by the built-in customizers.
type Options struct {
	// Logger receives missing-binding warnings and LogSQL output.
	// Defaults to slog.Default().
	Logger *slog.Logger
	// Validator backs the valid kind. Defaults to validation.New().
	Validator Validator
	// Accessors backs timestamp write-back. Defaults to an empty table.
	Accessors stmthook.PropertyAccessor
	// Clock defaults to time.Now.
	Clock Clock
	// Dialect, when set, lets postgres-only kinds fail at registration
	// instead of at execution.
	Dialect string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Validator == nil {
		o.Validator = validation.New()
	}
	if o.Accessors == nil {
		o.Accessors = stmthook.NewAccessors()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Register binds every built-in kind to its constructor on f.
//
//	kind              scopes
//	log_sql           type, method
//	timestamped       method
//	timestamp_fields  parameter
//	valid             parameter
//	counter           method
//	notify            method
//	capitalize        method
func Register(f *stmthook.Factory, opts Options) {
	o := opts.withDefaults()

	f.Register(stmthook.KindLogSQL, stmthook.ScopeType|stmthook.ScopeMethod, static(func(t stmthook.Target, c stmthook.LogSQL) (*stmthook.Customizer, error) {
		return NewLogSQL(o.Logger.With("dao", t.DAO), c), nil
	}))
	f.Register(stmthook.KindTimestamped, stmthook.ScopeMethod, static(func(_ stmthook.Target, c stmthook.Timestamped) (*stmthook.Customizer, error) {
		return NewTimestamped(o.Clock, c), nil
	}))
	f.Register(stmthook.KindTimestampFields, stmthook.ScopeParameter, perArg(func(c stmthook.TimestampFields, arg any) *stmthook.Customizer {
		return NewTimestampFields(o.Clock, o.Accessors, c, arg)
	}))
	f.Register(stmthook.KindValid, stmthook.ScopeParameter, perArg(func(c stmthook.Valid, arg any) *stmthook.Customizer {
		return NewValid(o.Validator, c, arg)
	}))
	f.Register(stmthook.KindCounter, stmthook.ScopeMethod, static(func(_ stmthook.Target, c stmthook.Counter) (*stmthook.Customizer, error) {
		return NewCounter(o.Logger, c)
	}))
	f.Register(stmthook.KindNotify, stmthook.ScopeMethod, static(func(_ stmthook.Target, c stmthook.Notify) (*stmthook.Customizer, error) {
		if o.Dialect != "" && dialect.Normalize(o.Dialect) != dialect.Postgres {
			return nil, fmt.Errorf("%w: notify requires %s", stmthook.ErrUnsupportedDialect, dialect.Postgres)
		}
		return NewNotify(o.Logger, c)
	}))
	f.Register(stmthook.KindCapitalize, stmthook.ScopeMethod, static(func(_ stmthook.Target, c stmthook.Capitalize) (*stmthook.Customizer, error) {
		return NewCapitalize(o.Logger, c.Bindings...), nil
	}))
}

// static adapts a constructor whose customizer does not depend on a call
// argument. The customizer is built once, at registration.
func static[C stmthook.Config](build func(stmthook.Target, C) (*stmthook.Customizer, error)) stmthook.Constructor {
	return func(t stmthook.Target, c stmthook.Config) (stmthook.Binder, error) {
		cfg, ok := stmthook.ConfigAs[C](c)
		if !ok {
			return nil, fmt.Errorf("unexpected config %T", c)
		}
		cz, err := build(t, cfg)
		if err != nil {
			return nil, err
		}
		return func(any) (*stmthook.Customizer, error) { return cz, nil }, nil
	}
}

// perArg adapts a constructor of parameter-scoped customizers, built per
// call around the argument value.
func perArg[C stmthook.Config](build func(C, any) *stmthook.Customizer) stmthook.Constructor {
	return func(_ stmthook.Target, c stmthook.Config) (stmthook.Binder, error) {
		cfg, ok := stmthook.ConfigAs[C](c)
		if !ok {
			return nil, fmt.Errorf("unexpected config %T", c)
		}
		return func(arg any) (*stmthook.Customizer, error) {
			return build(cfg, arg), nil
		}, nil
	}
}
