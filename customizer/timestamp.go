package customizer

import (
	"context"
	"database/sql"
	"reflect"
	"time"

	"github.com/syssam/stmthook"
)

// Clock returns the current instant.
type Clock func() time.Time

// NewTimestamped returns a customizer that binds the current instant to
// c.Field. Nothing else is touched.
func NewTimestamped(clock Clock, c stmthook.Timestamped) *stmthook.Customizer {
	return &stmthook.Customizer{
		Name: string(stmthook.KindTimestamped),
		BeforeBinding: func(_ context.Context, sc *stmthook.StatementContext) error {
			sc.Binding.Set(c.Field, clock())
			return nil
		},
	}
}

// NewTimestampFields returns a customizer that binds one instant to the
// created and modified bindings (modified only for existing records) and
// writes it onto the same-named properties of entity. Properties entity
// does not have are skipped.
func NewTimestampFields(clock Clock, acc stmthook.PropertyAccessor, c stmthook.TimestampFields, entity any) *stmthook.Customizer {
	fields := []string{c.Modified}
	if c.IsNewRecord() {
		fields = []string{c.Created, c.Modified}
	}
	return &stmthook.Customizer{
		Name: string(stmthook.KindTimestampFields),
		BeforeBinding: func(_ context.Context, sc *stmthook.StatementContext) error {
			now := clock()
			for _, name := range fields {
				sc.Binding.Set(name, now)
			}
			if entity == nil {
				return nil
			}
			// Convert everything before writing, so a bad property type
			// leaves the entity untouched.
			type write struct {
				name string
				prop stmthook.Property
				v    any
			}
			writes := make([]write, 0, len(fields))
			for _, name := range fields {
				prop, ok := acc.Lookup(entity, name)
				if !ok || prop.Set == nil {
					continue
				}
				v, err := convertTime(now, prop.Name, prop.Type)
				if err != nil {
					return err
				}
				writes = append(writes, write{name, prop, v})
			}
			for _, w := range writes {
				if err := w.prop.Set(entity, w.v); err != nil {
					return err
				}
				rebindBean(sc, entity, w.name, w.v)
			}
			return nil
		},
	}
}

// rebindBean refreshes "arg.name" for bean arguments holding entity, since
// they were flattened before the property changed.
func rebindBean(sc *stmthook.StatementContext, entity any, name string, v any) {
	for _, arg := range sc.Args {
		if arg.IsBean() && arg.Value == entity {
			sc.Binding.Set(arg.Name+"."+name, v)
		}
	}
}

var (
	timeType      = reflect.TypeFor[time.Time]()
	timePtrType   = reflect.TypeFor[*time.Time]()
	nullTimeType  = reflect.TypeFor[sql.NullTime]()
	localTimeType = reflect.TypeFor[stmthook.LocalTime]()
	int64Type     = reflect.TypeFor[int64]()
	stringType    = reflect.TypeFor[string]()
)

// convertTime shapes now for a property of type to.
func convertTime(now time.Time, property string, to reflect.Type) (any, error) {
	switch to {
	case timeType:
		return now, nil
	case timePtrType:
		return &now, nil
	case nullTimeType:
		return sql.NullTime{Time: now, Valid: true}, nil
	case localTimeType:
		return stmthook.LocalTimeOf(now), nil
	case int64Type:
		return now.UnixMilli(), nil
	case stringType:
		return now.Format(time.RFC3339Nano), nil
	default:
		return nil, &stmthook.TypeConversionError{Property: property, From: timeType, To: to}
	}
}
