package stmthook

import (
	"fmt"
	"reflect"
	"sync"
)

// Property is one named, typed property of an entity type.
type Property struct {
	Name string
	// Type is the declared type of the property. Converters use it to
	// decide how to shape a value before calling Set.
	Type reflect.Type
	Get  func(entity any) any
	Set  func(entity, v any) error
}

// Prop builds a Property for entities of type *T. A nil set makes the
// property read-only.
func Prop[T, V any](name string, get func(*T) V, set func(*T, V)) Property {
	typ := reflect.TypeFor[V]()
	return Property{
		Name: name,
		Type: typ,
		Get: func(e any) any {
			return get(e.(*T))
		},
		Set: func(e, v any) error {
			if set == nil {
				return fmt.Errorf("stmthook: property %q is read-only", name)
			}
			tv, ok := v.(V)
			if !ok {
				return &TypeConversionError{Property: name, From: reflect.TypeOf(v), To: typ}
			}
			set(e.(*T), tv)
			return nil
		},
	}
}

// PropertyAccessor gets and sets entity properties by name.
type PropertyAccessor interface {
	// Lookup returns the named property of entity's type.
	Lookup(entity any, name string) (Property, bool)
	// Properties returns all properties of entity's type, in registration order.
	Properties(entity any) ([]Property, bool)
}

// Accessors is a PropertyAccessor backed by explicit per-type tables.
//
// Thread Safety:
//   - Register and lookups are safe for concurrent use.
type Accessors struct {
	mu     sync.RWMutex
	tables map[reflect.Type]*accessorTable
}

type accessorTable struct {
	props []Property
	index map[string]int
}

// NewAccessors returns an empty accessor registry.
func NewAccessors() *Accessors {
	return &Accessors{tables: make(map[reflect.Type]*accessorTable)}
}

// Register installs the accessor table for *T, replacing any previous one.
//
//	stmthook.Register(acc,
//	    stmthook.Prop("firstName", func(p *Person) string { return p.FirstName }, func(p *Person, v string) { p.FirstName = v }),
//	)
func Register[T any](a *Accessors, props ...Property) {
	t := &accessorTable{
		props: props,
		index: make(map[string]int, len(props)),
	}
	for i, p := range props {
		t.index[p.Name] = i
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tables[reflect.TypeFor[*T]()] = t
}

func (a *Accessors) table(entity any) (*accessorTable, bool) {
	if entity == nil {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tables[reflect.TypeOf(entity)]
	return t, ok
}

// Lookup implements PropertyAccessor.
func (a *Accessors) Lookup(entity any, name string) (Property, bool) {
	t, ok := a.table(entity)
	if !ok {
		return Property{}, false
	}
	i, ok := t.index[name]
	if !ok {
		return Property{}, false
	}
	return t.props[i], true
}

// Properties implements PropertyAccessor.
func (a *Accessors) Properties(entity any) ([]Property, bool) {
	t, ok := a.table(entity)
	if !ok {
		return nil, false
	}
	return t.props, true
}

var _ PropertyAccessor = (*Accessors)(nil)
