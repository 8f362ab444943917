package dialect

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// validIdentifierRe validates SQL identifiers: alphanumeric and underscore
// segments, joined by single dots for schema.name.
var validIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidIdentifier reports whether s is safe to splice into a statement as a
// table, column or channel name.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// ExecQuerier wraps the standard ExecContext and QueryContext methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Normalize maps driver names (e.g. "pgx", "sqlite3") to a dialect name.
// Unknown names are returned unchanged.
func Normalize(name string) string {
	switch n := strings.ToLower(name); {
	case n == "pgx" || strings.HasPrefix(n, Postgres):
		return Postgres
	case strings.HasPrefix(n, SQLite):
		return SQLite
	case strings.HasPrefix(n, MySQL):
		return MySQL
	default:
		return name
	}
}

// Placeholder returns the positional placeholder for the i-th (1-based)
// argument in the given dialect.
func Placeholder(d string, i int) string {
	if Normalize(d) == Postgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// QuoteIdent quotes an already validated identifier for the dialect.
// Dotted names (schema.table) are quoted per part. On postgres the name is
// folded to lower case first, so it matches what the server stores for an
// unquoted name.
func QuoteIdent(d string, ident string) string {
	q := `"`
	switch Normalize(d) {
	case MySQL:
		q = "`"
	case Postgres:
		ident = strings.ToLower(ident)
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		parts[i] = q + p + q
	}
	return strings.Join(parts, ".")
}
