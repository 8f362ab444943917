package stmthook

import (
	"fmt"
	"sync"
)

// Method is one data-access method of a DAO: its SQL template and the
// declarations attached to the method and its parameters.
type Method struct {
	Name         string
	SQL          string
	Declarations []Declaration
}

// DAO groups data-access methods. Its Declarations are type-scoped and
// apply to every method.
type DAO struct {
	Name         string
	Declarations []Declaration
	Methods      []Method
}

// Statement is a compiled data-access method.
type Statement struct {
	Target Target
	SQL    string
	plan   *Plan
}

// NewStatement returns a statement with a resolved plan. Most callers get
// statements from a Registry instead.
func NewStatement(t Target, sql string, p *Plan) *Statement {
	return &Statement{Target: t, SQL: sql, plan: p}
}

// Customizers returns the customizers of one call with args.
func (s *Statement) Customizers(args Args) (Customizers, error) {
	return s.plan.Customizers(args)
}

// Plan returns the resolved plan.
func (s *Statement) Plan() *Plan {
	return s.plan
}

// Registry holds the compiled statements of registered DAOs.
//
// Thread Safety:
//   - Register and Statement are safe for concurrent use.
type Registry struct {
	factory *Factory
	mu      sync.RWMutex
	stmts   map[Target]*Statement
}

// NewRegistry returns a Registry resolving declarations through f.
func NewRegistry(f *Factory) *Registry {
	return &Registry{factory: f, stmts: make(map[Target]*Statement)}
}

// Register resolves every method of d. Either all methods are registered or
// none is. A method registered twice, within d or across calls, fails with
// ErrDuplicateStatement.
func (r *Registry) Register(d DAO) error {
	compiled := make([]*Statement, 0, len(d.Methods))
	seen := make(map[Target]bool, len(d.Methods))
	for _, m := range d.Methods {
		t := Target{DAO: d.Name, Method: m.Name}
		if seen[t] {
			return &DeclarationError{Target: t, Err: ErrDuplicateStatement}
		}
		seen[t] = true
		decls := make([]Declaration, 0, len(d.Declarations)+len(m.Declarations))
		for _, decl := range d.Declarations {
			if decl.Scope != ScopeType {
				return &DeclarationError{Target: t, Kind: kindOf(decl), Err: fmt.Errorf("%w: DAO declarations must be type-scoped", ErrScope)}
			}
			decls = append(decls, decl)
		}
		for _, decl := range m.Declarations {
			if decl.Scope == ScopeType {
				return &DeclarationError{Target: t, Kind: kindOf(decl), Err: fmt.Errorf("%w: type-scoped declaration on a method", ErrScope)}
			}
			decls = append(decls, decl)
		}
		p, err := r.factory.Resolve(t, decls...)
		if err != nil {
			return err
		}
		compiled = append(compiled, NewStatement(t, m.SQL, p))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range compiled {
		if _, ok := r.stmts[s.Target]; ok {
			return &DeclarationError{Target: s.Target, Err: ErrDuplicateStatement}
		}
	}
	for _, s := range compiled {
		r.stmts[s.Target] = s
	}
	return nil
}

// Statement returns the compiled statement of dao.method.
func (r *Registry) Statement(dao, method string) (*Statement, error) {
	t := Target{DAO: dao, Method: method}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stmts[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatement, t)
	}
	return s, nil
}

func kindOf(d Declaration) Kind {
	if d.Config == nil {
		return ""
	}
	return d.Config.Kind()
}
