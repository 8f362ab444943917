package stmthook

import (
	"fmt"
	"sort"
)

// Binding holds the named parameter values of one statement.
// Names are unique; lookup by name is the only access pattern.
type Binding struct {
	values map[string]any
}

// NewBinding returns an empty Binding.
func NewBinding() *Binding {
	return &Binding{values: make(map[string]any)}
}

// Set binds v to name, replacing any previous value.
func (b *Binding) Set(name string, v any) {
	b.values[name] = v
}

// Lookup returns the value bound to name and whether it exists.
// A name bound to nil exists.
func (b *Binding) Lookup(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Get returns the value bound to name, or nil.
func (b *Binding) Get(name string) any {
	return b.values[name]
}

// Names returns the bound names in sorted order.
func (b *Binding) Names() []string {
	names := make([]string, 0, len(b.values))
	for n := range b.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of bound names.
func (b *Binding) Len() int {
	return len(b.values)
}

// BindBean binds every property of entity as "prefix.property".
func BindBean(b *Binding, acc PropertyAccessor, prefix string, entity any) error {
	props, ok := acc.Properties(entity)
	if !ok {
		return fmt.Errorf("%w for %T", ErrNoAccessor, entity)
	}
	for _, p := range props {
		b.Set(prefix+"."+p.Name, p.Get(entity))
	}
	return nil
}

// Arg is one named argument of a data-access call.
type Arg struct {
	Name  string
	Value any
	bean  bool
}

// Bind returns an argument bound under name as a single value.
func Bind(name string, v any) Arg {
	return Arg{Name: name, Value: v}
}

// Bean returns an argument whose properties are bound as "name.property".
func Bean(name string, entity any) Arg {
	return Arg{Name: name, Value: entity, bean: true}
}

// IsBean reports whether the argument is bound property by property.
func (a Arg) IsBean() bool {
	return a.bean
}

// Args is the argument list of a data-access call.
type Args []Arg

// Lookup returns the value of the argument called name.
func (a Args) Lookup(name string) (any, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg.Value, true
		}
	}
	return nil, false
}

// Apply binds all arguments into b.
func (a Args) Apply(b *Binding, acc PropertyAccessor) error {
	for _, arg := range a {
		if !arg.bean {
			b.Set(arg.Name, arg.Value)
			continue
		}
		if err := BindBean(b, acc, arg.Name, arg.Value); err != nil {
			return err
		}
	}
	return nil
}
