package stmthook

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Standard sentinel errors.
var (
	// ErrUnknownKind is returned when a declaration names a customizer kind
	// that was never registered on the Factory.
	ErrUnknownKind = errors.New("stmthook: unknown customizer kind")

	// ErrScope is returned when a declaration is attached somewhere its kind
	// does not allow (e.g. a counter on a parameter).
	ErrScope = errors.New("stmthook: declaration not allowed in this scope")

	// ErrDuplicateStatement is returned when a DAO method is registered
	// twice.
	ErrDuplicateStatement = errors.New("stmthook: duplicate statement")

	// ErrInvalidIdentifier is returned for table, column or channel names
	// that fail the identifier allow-list.
	ErrInvalidIdentifier = errors.New("stmthook: invalid identifier")

	// ErrUnsupportedDialect is returned when a customizer needs a feature the
	// statement's dialect does not have.
	ErrUnsupportedDialect = errors.New("stmthook: unsupported dialect")

	// ErrMissingParameter is returned when a placeholder or a
	// parameter-scoped declaration has no matching call argument.
	ErrMissingParameter = errors.New("stmthook: missing parameter")

	// ErrUnknownStatement is returned by Registry lookups.
	ErrUnknownStatement = errors.New("stmthook: unknown statement")

	// ErrNoAccessor is returned when an entity type has no registered
	// accessor table.
	ErrNoAccessor = errors.New("stmthook: no accessor table registered")
)

// ValidationError carries every constraint violation found on an entity.
// Violations maps a property path to its message.
type ValidationError struct {
	Entity     string
	Violations map[string]string
}

// NewValidationError returns a new ValidationError.
func NewValidationError(entity string, violations map[string]string) *ValidationError {
	return &ValidationError{Entity: entity, Violations: violations}
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "stmthook: %s contains validation errors:", e.Entity)
	for i, path := range e.Paths() {
		if i > 0 {
			sb.WriteByte(';')
		}
		fmt.Fprintf(&sb, " %s: %s", path, e.Violations[path])
	}
	return sb.String()
}

// Paths returns the violated property paths in sorted order.
func (e *ValidationError) Paths() []string {
	paths := make([]string, 0, len(e.Violations))
	for p := range e.Violations {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// TypeConversionError is returned when a value cannot be converted to the
// declared type of a destination property.
type TypeConversionError struct {
	Property string
	From     reflect.Type
	To       reflect.Type
}

// Error returns the error string.
func (e *TypeConversionError) Error() string {
	return fmt.Sprintf("stmthook: cannot convert %s to %s for property %q", typeName(e.From), typeName(e.To), e.Property)
}

// IsTypeConversionError returns true if the error is a TypeConversionError.
func IsTypeConversionError(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeConversionError
	return errors.As(err, &e)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// ExecutionError wraps a failure reported by the underlying database.
type ExecutionError struct {
	Statement string // DAO.method, or the raw SQL for ad-hoc statements
	Err       error
}

// Error returns the error string.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("stmthook: executing %s: %v", e.Statement, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsExecutionError returns true if the error is an ExecutionError.
func IsExecutionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ExecutionError
	return errors.As(err, &e)
}

// PhaseError records which customizer callback aborted a statement.
type PhaseError struct {
	Phase      Phase
	Customizer string
	Err        error
}

// Error returns the error string.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("stmthook: %s %s: %v", e.Customizer, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// IsPhaseError returns true if the error is a PhaseError.
func IsPhaseError(err error) bool {
	if err == nil {
		return false
	}
	var e *PhaseError
	return errors.As(err, &e)
}

// DeclarationError is returned when a declaration cannot be resolved into
// a customizer at registration time.
type DeclarationError struct {
	Target Target
	Kind   Kind
	Err    error
}

// Error returns the error string.
func (e *DeclarationError) Error() string {
	return fmt.Sprintf("stmthook: %s: resolving %s: %v", e.Target, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeclarationError) Unwrap() error {
	return e.Err
}

// IsDeclarationError returns true if the error is a DeclarationError.
func IsDeclarationError(err error) bool {
	if err == nil {
		return false
	}
	var e *DeclarationError
	return errors.As(err, &e)
}
