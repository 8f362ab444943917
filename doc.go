// Package stmthook attaches cross-cutting behavior to SQL statements
// without rewriting them.
//
// Behavior is declared once per data-access method (or per type, or per
// method argument) as typed configuration. A Factory resolves declarations
// into Customizers when the method is registered, and the executor in
// dialect/sql runs the customizers around every invocation:
//
//	beforeBinding -> bind -> beforeExecution -> execute -> afterExecution
//
// Customizers of one statement run in registration order, synchronously, and
// the first failure aborts the statement.
//
//	f := stmthook.NewFactory()
//	customizer.Register(f, customizer.Options{Logger: logger, Accessors: acc})
//	reg := stmthook.NewRegistry(f)
//	err := reg.Register(stmthook.DAO{
//		Name: "PostDAO",
//		Methods: []stmthook.Method{{
//			Name: "Insert",
//			SQL:  "INSERT INTO posts (user_id, title) VALUES (:userId, :title)",
//			Declarations: []stmthook.Declaration{
//				stmthook.OnMethod(stmthook.Counter{Table: "users", Column: "posts_count", Binding: "userId"}),
//			},
//		}},
//	})
package stmthook
