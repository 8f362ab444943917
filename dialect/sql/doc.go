// Package sql executes statements on database/sql connections and runs
// their customizers around each execution.
//
// Statements are written with named placeholders:
//
//	INSERT INTO people (first_name, created) VALUES (:p.firstName, :created)
//
// Names with dots address the properties of bean arguments
// (stmthook.Bean). Templates are rendered into the positional placeholder
// style of the dialect ($1 for PostgreSQL, ? for MySQL and SQLite) and
// cached.
//
// # Connections
//
// A statement runs on a single connection together with the follow-up
// statements its customizers issue. Outside a transaction the Executor pins
// a connection from the pool for the statement and releases it when the
// statement completes (for queries, when the rows are closed). Session
// variables attached with WithVar are set on that connection first.
//
//	exec := sql.NewExecutor(drv, sql.WithAccessors(acc))
//	tx, err := exec.BeginTx(ctx, nil)
//	if err != nil {
//		return err
//	}
//	defer tx.Rollback()
//	if _, err := tx.Exec(ctx, stmt, stmthook.Bean("p", post)); err != nil {
//		return err
//	}
//	return tx.Commit()
//
// # Statistics
//
// ExecStats collects execution counts and durations and reports slow
// statements.
package sql
