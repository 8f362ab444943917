package config

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/syssam/stmthook/dialect"
	"github.com/syssam/stmthook/dialect/sql"
)

// Database selects the dialect and the database/sql driver to open.
type Database struct {
	Dialect string `yaml:"dialect"`
	// Driver is the registered database/sql driver name. Defaults to pgx
	// for postgres (use "postgres" for lib/pq), mysql and sqlite.
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DriverName returns the database/sql driver name for the dialect.
func (d Database) DriverName() string {
	if d.Driver != "" {
		return d.Driver
	}
	switch dialect.Normalize(d.Dialect) {
	case dialect.Postgres:
		return "pgx"
	case dialect.MySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// Validate checks the dialect and parses the DSN with the driver's own
// parser, so a bad DSN fails at load rather than at the first statement.
func (d Database) Validate() error {
	if d.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch dialect.Normalize(d.Dialect) {
	case dialect.Postgres:
		if _, err := pgx.ParseConfig(d.DSN); err != nil {
			return fmt.Errorf("database.dsn: %w", err)
		}
	case dialect.MySQL:
		if _, err := mysql.ParseDSN(d.DSN); err != nil {
			return fmt.Errorf("database.dsn: %w", err)
		}
	case dialect.SQLite:
	default:
		return fmt.Errorf("database.dialect %q must be postgres, mysql or sqlite", d.Dialect)
	}
	switch d.DriverName() {
	case "pgx", "postgres":
		if dialect.Normalize(d.Dialect) != dialect.Postgres {
			return fmt.Errorf("database.driver %q does not serve dialect %q", d.Driver, d.Dialect)
		}
	}
	if d.MaxOpenConns < 0 || d.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}
	return nil
}

// Open opens and pings the configured database.
func (d Database) Open(ctx context.Context) (*sql.Driver, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	db, err := stdsql.Open(d.DriverName(), d.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.DriverName(), err)
	}
	if d.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.MaxOpenConns)
	}
	if d.MaxIdleConns > 0 {
		db.SetMaxIdleConns(d.MaxIdleConns)
	}
	if d.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(d.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", dialect.Normalize(d.Dialect), err)
	}
	return sql.OpenDB(d.Dialect, db), nil
}
