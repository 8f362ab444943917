// Package validation checks entity constraints before a statement runs.
//
// Constraints are declared with `validate` struct tags (go-playground
// validator rules). A field may name the validation groups it belongs to
// with a `groups` tag; fields without one belong to DefaultGroup.
//
//	type Person struct {
//		FirstName string `json:"firstName" validate:"required"`
//		LastName  string `json:"lastName" validate:"required"`
//		Email     string `json:"email" validate:"omitempty,email" groups:"EmailUpdate"`
//	}
//
// Validating with no groups checks DefaultGroup. Validating with groups
// checks only the fields of those groups; list DefaultGroup explicitly to
// include ungrouped fields.
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/syssam/stmthook"
)

// DefaultGroup is the group of fields without a groups tag.
const DefaultGroup = "default"

const defaultCacheSize = 256

// Default violation messages by rule tag.
var defaultMessages = map[string]string{
	"required": "must not be empty",
	"email":    "must be a well-formed email address",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"len":      "must have length %s",
	"oneof":    "must be one of [%s]",
	"url":      "must be a valid URL",
	"uuid":     "must be a valid UUID",
}

// Validator validates entities against their struct tag constraints.
// It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
	index    *lru.Cache[reflect.Type, groupIndex]

	mu       sync.RWMutex
	messages map[string]string
}

// Option configures a Validator.
type Option func(*Validator)

// WithMessage overrides the violation message of rule tag. The message may
// contain one %s verb for the rule parameter.
func WithMessage(tag, msg string) Option {
	return func(v *Validator) {
		v.messages[tag] = msg
	}
}

// New returns a Validator.
func New(opts ...Option) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(PropertyName)
	index, err := lru.New[reflect.Type, groupIndex](defaultCacheSize)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	v := &Validator{
		validate: validate,
		index:    index,
		messages: make(map[string]string, len(defaultMessages)),
	}
	for tag, msg := range defaultMessages {
		v.messages[tag] = msg
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RegisterRule adds a custom rule usable in validate tags.
func (v *Validator) RegisterRule(tag, msg string, fn func(value any) bool) error {
	if err := v.validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().Interface())
	}); err != nil {
		return fmt.Errorf("validation: register %q: %w", tag, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages[tag] = msg
	return nil
}

// Validate checks entity. It returns a *stmthook.ValidationError carrying
// every violation, or nil.
func (v *Validator) Validate(ctx context.Context, entity any, groups ...string) error {
	violations, err := v.Violations(ctx, entity, groups...)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		return nil
	}
	return stmthook.NewValidationError(typeName(entity), violations)
}

// Violations returns the violated property paths of entity mapped to their
// messages. A nil entity has no violations.
func (v *Validator) Violations(ctx context.Context, entity any, groups ...string) (map[string]string, error) {
	if entity == nil {
		return nil, nil
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("validation: cannot validate %T", entity)
	}
	if len(groups) == 0 {
		groups = []string{DefaultGroup}
	}
	idx := v.groupIndex(t)
	err := v.validate.StructFilteredCtx(ctx, entity, func(ns []byte) bool {
		return !idx.selected(string(ns), groups)
	})
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validation: %w", err)
	}
	violations := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := propertyPath(fe.Namespace())
		if _, ok := violations[path]; ok {
			continue
		}
		violations[path] = v.message(fe)
	}
	return violations, nil
}

func (v *Validator) message(fe validator.FieldError) string {
	v.mu.RLock()
	msg, ok := v.messages[fe.Tag()]
	v.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("failed on the %q rule", fe.Tag())
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}

func (v *Validator) groupIndex(t reflect.Type) groupIndex {
	if idx, ok := v.index.Get(t); ok {
		return idx
	}
	idx := make(groupIndex)
	idx.build(t.Name(), t, 0)
	v.index.Add(t, idx)
	return idx
}

// groupIndex maps a struct namespace (Go field names, e.g. "Person.Email")
// to the groups of that field.
type groupIndex map[string][]string

const maxDepth = 8

var timeType = reflect.TypeFor[time.Time]()

func (idx groupIndex) build(prefix string, t reflect.Type, depth int) {
	if depth > maxDepth {
		return
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		ns := f.Name
		if prefix != "" {
			ns = prefix + "." + f.Name
		}
		idx[ns] = parseGroups(f.Tag.Get("groups"))
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != timeType {
			idx.build(ns, ft, depth+1)
		}
	}
}

// selected reports whether the field at ns takes part in a validation of
// groups. Unknown namespaces are always validated.
func (idx groupIndex) selected(ns string, groups []string) bool {
	fieldGroups, ok := idx[ns]
	if !ok {
		return true
	}
	for _, g := range fieldGroups {
		for _, want := range groups {
			if g == want {
				return true
			}
		}
	}
	return false
}

func parseGroups(tag string) []string {
	if tag == "" {
		return []string{DefaultGroup}
	}
	var groups []string
	for _, g := range strings.Split(tag, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return []string{DefaultGroup}
	}
	return groups
}

// PropertyName returns the property path segment of a struct field: its
// json name when it has one, else the lower camel case field name.
func PropertyName(f reflect.StructField) string {
	if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
		return name
	}
	return inflect.CamelizeDownFirst(f.Name)
}

// propertyPath drops the leading type name of a validator namespace.
func propertyPath(ns string) string {
	if _, path, ok := strings.Cut(ns, "."); ok {
		return path
	}
	return ns
}

func typeName(entity any) string {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
