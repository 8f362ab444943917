package stmthook

import (
	"fmt"
	"strings"
)

// Kind tags a declaration with the customizer it resolves to.
type Kind string

// Built-in customizer kinds.
const (
	KindLogSQL          Kind = "log_sql"
	KindTimestamped     Kind = "timestamped"
	KindTimestampFields Kind = "timestamp_fields"
	KindValid           Kind = "valid"
	KindCounter         Kind = "counter"
	KindNotify          Kind = "notify"
	KindCapitalize      Kind = "capitalize"
)

// Scope is where a declaration is attached. Scopes are bit flags so a kind
// can allow several.
type Scope uint8

// Declaration scopes, in resolution order.
const (
	ScopeType Scope = 1 << iota
	ScopeMethod
	ScopeParameter
)

// String returns the scope name.
func (s Scope) String() string {
	var names []string
	if s&ScopeType != 0 {
		names = append(names, "type")
	}
	if s&ScopeMethod != 0 {
		names = append(names, "method")
	}
	if s&ScopeParameter != 0 {
		names = append(names, "parameter")
	}
	if len(names) == 0 {
		return fmt.Sprintf("Scope(%d)", uint8(s))
	}
	return strings.Join(names, "|")
}

// Config is the typed configuration of one declaration.
type Config interface {
	Kind() Kind
}

type defaulter interface {
	withDefaults() Config
}

// Level is the severity LogSQL emits at.
type Level string

// LogSQL levels.
const (
	LevelLow  Level = "low"
	LevelInfo Level = "info"
)

type (
	// LogSQL logs the executed statement after execution.
	LogSQL struct {
		// Raw logs the template instead of the rendered statement.
		Raw   bool  `yaml:"raw"`
		Level Level `yaml:"level"`
	}

	// Timestamped binds the current instant to a single named binding.
	Timestamped struct {
		Field string `yaml:"field"`
	}

	// TimestampFields binds created/modified instants and writes them back
	// onto the argument it is attached to.
	TimestampFields struct {
		// NewRecord defaults to true. When false only Modified is bound.
		NewRecord *bool  `yaml:"new_record"`
		Created   string `yaml:"created"`
		Modified  string `yaml:"modified"`
	}

	// Valid validates the argument it is attached to before execution.
	Valid struct {
		Groups []string `yaml:"groups"`
	}

	// Counter adjusts a denormalized count column after execution.
	Counter struct {
		Table        string `yaml:"table"`
		Column       string `yaml:"column"`
		Binding      string `yaml:"binding"`
		IDColumn     string `yaml:"id_column"`
		Decrementing bool   `yaml:"decrementing"`
	}

	// Notify publishes the value of a binding on a channel after execution.
	Notify struct {
		Channel string `yaml:"channel"`
		Binding string `yaml:"binding"`
	}

	// Capitalize upper-cases the named bindings before binding.
	Capitalize struct {
		Bindings []string `yaml:"bindings"`
	}
)

func (LogSQL) Kind() Kind          { return KindLogSQL }
func (Timestamped) Kind() Kind     { return KindTimestamped }
func (TimestampFields) Kind() Kind { return KindTimestampFields }
func (Valid) Kind() Kind           { return KindValid }
func (Counter) Kind() Kind         { return KindCounter }
func (Notify) Kind() Kind          { return KindNotify }
func (Capitalize) Kind() Kind      { return KindCapitalize }

func (c LogSQL) withDefaults() Config {
	if c.Level == "" {
		c.Level = LevelLow
	}
	return c
}

func (c Timestamped) withDefaults() Config {
	if c.Field == "" {
		c.Field = "now"
	}
	return c
}

func (c TimestampFields) withDefaults() Config {
	if c.NewRecord == nil {
		t := true
		c.NewRecord = &t
	}
	if c.Created == "" {
		c.Created = "created"
	}
	if c.Modified == "" {
		c.Modified = "modified"
	}
	return c
}

// IsNewRecord reports whether both created and modified are bound.
func (c TimestampFields) IsNewRecord() bool {
	return c.NewRecord == nil || *c.NewRecord
}

func (c Counter) withDefaults() Config {
	if c.IDColumn == "" {
		c.IDColumn = "id"
	}
	return c
}

// NewConfig returns a pointer to the zero config of kind k, ready to be
// decoded into.
func NewConfig(k Kind) (Config, error) {
	switch k {
	case KindLogSQL:
		return &LogSQL{}, nil
	case KindTimestamped:
		return &Timestamped{}, nil
	case KindTimestampFields:
		return &TimestampFields{}, nil
	case KindValid:
		return &Valid{}, nil
	case KindCounter:
		return &Counter{}, nil
	case KindNotify:
		return &Notify{}, nil
	case KindCapitalize:
		return &Capitalize{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
}

// ConfigAs returns c as a T, accepting both T and *T.
func ConfigAs[T Config](c Config) (T, bool) {
	switch v := any(c).(type) {
	case T:
		return v, true
	case *T:
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

// Declaration attaches a config to a type, a method or a method argument.
type Declaration struct {
	Scope Scope
	// Param names the call argument a parameter-scoped declaration applies to.
	Param  string
	Config Config
}

// OnType returns a type-scoped declaration.
func OnType(c Config) Declaration {
	return Declaration{Scope: ScopeType, Config: c}
}

// OnMethod returns a method-scoped declaration.
func OnMethod(c Config) Declaration {
	return Declaration{Scope: ScopeMethod, Config: c}
}

// OnParam returns a declaration attached to the argument called param.
func OnParam(param string, c Config) Declaration {
	return Declaration{Scope: ScopeParameter, Param: param, Config: c}
}

// resolved returns c with defaults applied and pointers dereferenced.
func resolved(c Config) Config {
	if d, ok := c.(defaulter); ok {
		return d.withDefaults()
	}
	switch v := c.(type) {
	case *Valid:
		return *v
	case *Notify:
		return *v
	case *Capitalize:
		return *v
	}
	return c
}
