package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Constraint classifies a database constraint violation.
type Constraint uint8

// Constraint kinds.
const (
	NoConstraint Constraint = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
	NotNullConstraint
)

func (c Constraint) String() string {
	switch c {
	case UniqueConstraint:
		return "unique"
	case ForeignKeyConstraint:
		return "foreign key"
	case CheckConstraint:
		return "check"
	case NotNullConstraint:
		return "not null"
	default:
		return "none"
	}
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
var pgCodes = map[string]Constraint{
	"23505": UniqueConstraint,
	"23503": ForeignKeyConstraint,
	"23514": CheckConstraint,
	"23502": NotNullConstraint,
}

// MySQL error numbers for constraint violations.
var mysqlNumbers = map[uint16]Constraint{
	1062: UniqueConstraint,
	1451: ForeignKeyConstraint, // cannot delete or update a parent row
	1452: ForeignKeyConstraint, // cannot add or update a child row
	3819: CheckConstraint,
	1048: NotNullConstraint,
}

// Message fragments for drivers without typed errors (SQLite).
var messages = []struct {
	text string
	kind Constraint
}{
	{"UNIQUE constraint failed", UniqueConstraint},
	{"FOREIGN KEY constraint failed", ForeignKeyConstraint},
	{"CHECK constraint failed", CheckConstraint},
	{"NOT NULL constraint failed", NotNullConstraint},
}

// ConstraintOf reports which constraint err violated. It looks through
// wrapping, so an ExecutionError returned by an Executor classifies the
// same as the driver error it holds.
func ConstraintOf(err error) Constraint {
	if err == nil {
		return NoConstraint
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgCodes[pgErr.Code]
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgCodes[string(pqErr.Code)]
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlNumbers[myErr.Number]
	}
	msg := err.Error()
	for _, m := range messages {
		if strings.Contains(msg, m.text) {
			return m.kind
		}
	}
	return NoConstraint
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return ConstraintOf(err) != NoConstraint
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool {
	return ConstraintOf(err) == UniqueConstraint
}

// IsForeignKeyConstraintError reports if the error resulted from a foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool {
	return ConstraintOf(err) == ForeignKeyConstraint
}
