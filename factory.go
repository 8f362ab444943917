package stmthook

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Target identifies a data-access method.
type Target struct {
	DAO    string
	Method string
}

// String returns "DAO.Method".
func (t Target) String() string {
	if t.Method == "" {
		return t.DAO
	}
	return t.DAO + "." + t.Method
}

// IsZero reports whether t is the zero Target.
func (t Target) IsZero() bool {
	return t.DAO == "" && t.Method == ""
}

// Binder builds the customizer of one resolved declaration. Parameter-scoped
// binders receive the value of their call argument, others receive nil.
// A Binder may return a nil Customizer to contribute nothing.
type Binder func(arg any) (*Customizer, error)

// Constructor turns a typed config into a Binder. It runs once per
// declaration, when the data-access method is registered, and should
// reject bad configs there rather than per call.
type Constructor func(t Target, c Config) (Binder, error)

type kindEntry struct {
	scopes Scope
	ctor   Constructor
}

// Factory maps declaration kinds to constructors.
type Factory struct {
	mu    sync.RWMutex
	kinds map[Kind]kindEntry
}

// NewFactory returns an empty Factory.
func NewFactory() *Factory {
	return &Factory{kinds: make(map[Kind]kindEntry)}
}

// Register binds kind k to ctor. scopes is the set of places a declaration of
// kind k may be attached. Registering a kind twice replaces it.
func (f *Factory) Register(k Kind, scopes Scope, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds[k] = kindEntry{scopes: scopes, ctor: ctor}
}

// Kinds returns the registered kinds in sorted order.
func (f *Factory) Kinds() []Kind {
	f.mu.RLock()
	defer f.mu.RUnlock()
	kinds := make([]Kind, 0, len(f.kinds))
	for k := range f.kinds {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func (f *Factory) entry(k Kind) (kindEntry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.kinds[k]
	return e, ok
}

// Resolve compiles the declarations of target t into a Plan. Type-scoped
// declarations come first, then method-scoped, then parameter-scoped, each
// group in declaration order.
func (f *Factory) Resolve(t Target, decls ...Declaration) (*Plan, error) {
	ordered := slices.Clone(decls)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Scope < ordered[j].Scope
	})
	p := &Plan{target: t, steps: make([]step, 0, len(ordered))}
	for _, d := range ordered {
		s, err := f.resolve(t, d)
		if err != nil {
			return nil, err
		}
		p.steps = append(p.steps, s)
	}
	return p, nil
}

func (f *Factory) resolve(t Target, d Declaration) (step, error) {
	if d.Config == nil {
		return step{}, &DeclarationError{Target: t, Err: errors.New("nil config")}
	}
	k := d.Config.Kind()
	e, ok := f.entry(k)
	if !ok {
		return step{}, &DeclarationError{Target: t, Kind: k, Err: ErrUnknownKind}
	}
	switch d.Scope {
	case ScopeType, ScopeMethod, ScopeParameter:
	default:
		return step{}, &DeclarationError{Target: t, Kind: k, Err: fmt.Errorf("%w: %s", ErrScope, d.Scope)}
	}
	if e.scopes&d.Scope == 0 {
		return step{}, &DeclarationError{Target: t, Kind: k, Err: fmt.Errorf("%w: %s on %s", ErrScope, k, d.Scope)}
	}
	if d.Scope == ScopeParameter && d.Param == "" {
		return step{}, &DeclarationError{Target: t, Kind: k, Err: fmt.Errorf("%w: no parameter name", ErrMissingParameter)}
	}
	bind, err := e.ctor(t, resolved(d.Config))
	if err != nil {
		return step{}, &DeclarationError{Target: t, Kind: k, Err: err}
	}
	s := step{kind: k, scope: d.Scope, param: d.Param, bind: bind}
	if d.Scope != ScopeParameter {
		// Not argument dependent: build once and share across calls.
		c, err := bind(nil)
		if err != nil {
			return step{}, &DeclarationError{Target: t, Kind: k, Err: err}
		}
		s.static = c
	}
	return s, nil
}

type step struct {
	kind   Kind
	scope  Scope
	param  string
	bind   Binder
	static *Customizer
}

// Plan is the resolved, immutable customizer recipe of one target.
// It is safe for concurrent use.
type Plan struct {
	target Target
	steps  []step
}

// Len returns the number of resolved declarations.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.steps)
}

// Customizers returns the customizers for one call with the given arguments.
func (p *Plan) Customizers(args Args) (Customizers, error) {
	if p == nil {
		return nil, nil
	}
	cs := make(Customizers, 0, len(p.steps))
	for _, s := range p.steps {
		if s.scope != ScopeParameter {
			if s.static != nil {
				cs = append(cs, s.static)
			}
			continue
		}
		arg, ok := args.Lookup(s.param)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no argument %q for %s", ErrMissingParameter, p.target, s.param, s.kind)
		}
		c, err := s.bind(arg)
		if err != nil {
			return nil, &DeclarationError{Target: p.target, Kind: s.kind, Err: err}
		}
		if c != nil {
			cs = append(cs, c)
		}
	}
	return cs, nil
}
