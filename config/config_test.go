package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/customizer"
)

const sample = `
database:
  dialect: sqlite
  dsn: file::memory:
logging:
  level: debug
  format: text
daos:
  - name: PersonDAO
    declarations:
      - kind: log_sql
        raw: true
        level: info
    methods:
      - name: Insert
        sql: INSERT INTO people (first_name, created, modified) VALUES (:p.firstName, :created, :modified)
        declarations:
          - kind: capitalize
            bindings: [p.firstName]
          - kind: valid
            param: p
            groups: [default, Insert]
          - kind: timestamp_fields
            param: p
      - name: Touch
        sql: UPDATE people SET modified = :now WHERE id = :id
        declarations:
          - kind: timestamped
          - kind: counter
            table: users
            column: touches
            binding: id
            decrementing: true
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stmthook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "sqlite", cfg.Database.DriverName())
	assert.Equal(t, Logging{Level: "debug", Format: "text", Output: "stdout"}, cfg.Logging)

	daos := cfg.Declarations()
	require.Len(t, daos, 1)
	dao := daos[0]
	assert.Equal(t, "PersonDAO", dao.Name)
	require.Len(t, dao.Declarations, 1)
	assert.Equal(t, stmthook.ScopeType, dao.Declarations[0].Scope)
	assert.Equal(t, &stmthook.LogSQL{Raw: true, Level: stmthook.LevelInfo}, dao.Declarations[0].Config)

	require.Len(t, dao.Methods, 2)
	insert := dao.Methods[0].Declarations
	require.Len(t, insert, 3)
	assert.Equal(t, stmthook.OnMethod(&stmthook.Capitalize{Bindings: []string{"p.firstName"}}), insert[0])
	assert.Equal(t, stmthook.OnParam("p", &stmthook.Valid{Groups: []string{"default", "Insert"}}), insert[1])
	assert.Equal(t, stmthook.OnParam("p", &stmthook.TimestampFields{}), insert[2])

	touch := dao.Methods[1].Declarations
	assert.Equal(t, stmthook.OnMethod(&stmthook.Timestamped{}), touch[0])
	assert.Equal(t, stmthook.OnMethod(&stmthook.Counter{Table: "users", Column: "touches", Binding: "id", Decrementing: true}), touch[1])
}

func TestLoadRegisters(t *testing.T) {
	cfg, err := Load(writeFile(t, sample))
	require.NoError(t, err)

	f := stmthook.NewFactory()
	customizer.Register(f, customizer.Options{})
	r := stmthook.NewRegistry(f)
	require.NoError(t, cfg.Register(r))

	s, err := r.Statement("PersonDAO", "Insert")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Plan().Len())
	s, err = r.Statement("PersonDAO", "Touch")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Plan().Len())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STMTHOOK_DATABASE_DIALECT", "postgres")
	t.Setenv("STMTHOOK_DATABASE_DSN", "postgres://app@localhost:5432/app?sslmode=disable")
	t.Setenv("STMTHOOK_LOG_LEVEL", "warn")
	t.Setenv("STMTHOOK_LOG_FORMAT", "json")

	cfg, err := Load(writeFile(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "pgx", cfg.Database.DriverName())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "UnknownKind",
			content: "daos:\n  - name: D\n    methods:\n      - name: M\n        sql: SELECT 1\n        declarations:\n          - kind: audit\n",
			want:    "unknown customizer kind",
		},
		{
			name:    "MissingKind",
			content: "daos:\n  - name: D\n    declarations:\n      - level: info\n",
			want:    "declaration without kind",
		},
		{
			name:    "BadFieldType",
			content: "daos:\n  - name: D\n    declarations:\n      - kind: log_sql\n        raw: [1]\n",
			want:    "log_sql",
		},
		{
			name:    "MissingSQL",
			content: "daos:\n  - name: D\n    methods:\n      - name: M\n",
			want:    "D.M.sql is required",
		},
		{
			name:    "DuplicateDAO",
			content: "daos:\n  - name: D\n  - name: D\n",
			want:    "dao D is declared twice",
		},
		{
			name:    "ParamOnDAO",
			content: "daos:\n  - name: D\n    declarations:\n      - kind: valid\n        param: p\n",
			want:    "outside a method",
		},
		{
			name:    "BadDialect",
			content: "database:\n  dialect: oracle\n  dsn: x\n",
			want:    "must be postgres, mysql or sqlite",
		},
		{
			name:    "BadMySQLDSN",
			content: "database:\n  dialect: mysql\n  dsn: nope\n",
			want:    "database.dsn",
		},
		{
			name:    "BadPostgresDSN",
			content: "database:\n  dialect: postgres\n  dsn: not a dsn\n",
			want:    "database.dsn",
		},
		{
			name:    "DriverMismatch",
			content: "database:\n  dialect: mysql\n  driver: pgx\n  dsn: user@tcp(localhost:3306)/app\n",
			want:    "does not serve dialect",
		},
		{
			name:    "BadFormat",
			content: "logging:\n  format: xml\n",
			want:    "logging.format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDatabaseOpen(t *testing.T) {
	db := Database{Dialect: "sqlite", DSN: filepath.Join(t.TempDir(), "open.db"), MaxOpenConns: 2}
	drv, err := db.Open(context.Background())
	require.NoError(t, err)
	defer drv.Close()
	assert.Equal(t, "sqlite", drv.Dialect())
	assert.Equal(t, 2, drv.DB().Stats().MaxOpenConnections)

	_, err = Database{Dialect: "mysql", DSN: "nope"}.Open(context.Background())
	assert.Error(t, err)
}
