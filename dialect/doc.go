// Package dialect names the database dialects supported by stmthook and
// defines the minimal connection contract customizers run against.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # ExecQuerier Interface
//
// ExecQuerier is the borrowed connection a statement runs on. It is
// implemented by *sql.DB, *sql.Conn and *sql.Tx:
//
//	type ExecQuerier interface {
//	    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
//	    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
//	}
//
// Follow-up statements issued by customizers (counters, notifications) use
// the same ExecQuerier as the primary statement, so they share its
// transaction when there is one.
//
// # Sub-packages
//
//   - dialect/sql: statement executor, template rendering and driver
//   - dialect/sql/pgnotify: PostgreSQL LISTEN helper
package dialect
