package customizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/stmthook"
	"github.com/syssam/stmthook/customizer"
)

func TestRegister(t *testing.T) {
	t.Parallel()

	f := stmthook.NewFactory()
	customizer.Register(f, customizer.Options{})
	assert.ElementsMatch(t, []stmthook.Kind{
		stmthook.KindLogSQL, stmthook.KindTimestamped, stmthook.KindTimestampFields,
		stmthook.KindValid, stmthook.KindCounter, stmthook.KindNotify, stmthook.KindCapitalize,
	}, f.Kinds())

	target := stmthook.Target{DAO: "D", Method: "M"}
	allowed := []stmthook.Declaration{
		stmthook.OnType(stmthook.LogSQL{}),
		stmthook.OnMethod(stmthook.LogSQL{Raw: true}),
		stmthook.OnMethod(stmthook.Timestamped{}),
		stmthook.OnParam("p", stmthook.TimestampFields{}),
		stmthook.OnParam("p", stmthook.Valid{}),
		stmthook.OnMethod(stmthook.Counter{Table: "users", Column: "posts_count", Binding: "userId"}),
		stmthook.OnMethod(stmthook.Notify{Channel: "posts", Binding: "id"}),
		stmthook.OnMethod(stmthook.Capitalize{Bindings: []string{"name"}}),
	}
	for _, d := range allowed {
		_, err := f.Resolve(target, d)
		assert.NoError(t, err, "%s on %s", d.Config.Kind(), d.Scope)
	}

	rejected := []stmthook.Declaration{
		stmthook.OnParam("p", stmthook.LogSQL{}),
		stmthook.OnType(stmthook.Timestamped{}),
		stmthook.OnMethod(stmthook.TimestampFields{}),
		stmthook.OnMethod(stmthook.Valid{}),
		stmthook.OnType(stmthook.Counter{Table: "users", Column: "posts_count", Binding: "userId"}),
		stmthook.OnParam("p", stmthook.Notify{Channel: "posts", Binding: "id"}),
		stmthook.OnParam("p", stmthook.Capitalize{}),
	}
	for _, d := range rejected {
		_, err := f.Resolve(target, d)
		assert.ErrorIs(t, err, stmthook.ErrScope, "%s on %s", d.Config.Kind(), d.Scope)
	}
}

func TestRegisterInvalidDeclarations(t *testing.T) {
	t.Parallel()

	f := stmthook.NewFactory()
	customizer.Register(f, customizer.Options{Dialect: "mysql"})
	target := stmthook.Target{DAO: "D", Method: "M"}

	_, err := f.Resolve(target, stmthook.OnMethod(stmthook.Notify{Channel: "posts", Binding: "id"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, stmthook.ErrUnsupportedDialect)
	assert.True(t, stmthook.IsDeclarationError(err))

	_, err = f.Resolve(target, stmthook.OnMethod(stmthook.Counter{Table: "users;", Column: "c", Binding: "b"}))
	assert.ErrorIs(t, err, stmthook.ErrInvalidIdentifier)
}

func TestRegisterResolvesPointerConfigs(t *testing.T) {
	t.Parallel()

	f := stmthook.NewFactory()
	customizer.Register(f, customizer.Options{})
	for _, kind := range f.Kinds() {
		c, err := stmthook.NewConfig(kind)
		require.NoError(t, err)
		switch v := c.(type) {
		case *stmthook.Counter:
			v.Table, v.Column, v.Binding = "users", "posts_count", "userId"
		case *stmthook.Notify:
			v.Channel, v.Binding = "posts", "id"
		}
		d := stmthook.OnMethod(c)
		if kind == stmthook.KindTimestampFields || kind == stmthook.KindValid {
			d = stmthook.OnParam("p", c)
		}
		_, err = f.Resolve(stmthook.Target{DAO: "D", Method: "M"}, d)
		assert.NoError(t, err, kind)
	}
}
