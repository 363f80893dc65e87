package checker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/checker"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func TestCheck(t *testing.T) {
	config := conf.New()
	config.Declare("x", types.OneOf(types.String{}, types.Int{}))
	config.Declare("user", types.Object{Props: []types.Prop{
		{Name: "name", Type: types.String{}},
		{Name: "age", Type: types.Optional(types.Int{})},
	}})
	config.Env["limit"] = values.Int(10)

	tests := []struct {
		input string
		want  string
	}{
		{"1 + 1", "2"},
		{"let a = 1 in a + 1", "2"},
		{`["test1"] ++ ["test2"]`, `Array("test1" | "test2", length: =2)`},
		{"if x is Int and x > 5 { x } else { 0 }", "Int(>=6) | 0"},
		{"if x is String { x } else { x }", "String | Int"},
		{"limit * 2", "20"},
		{"user.age ?? 0", "Int"},
		{"user.name <> \"!\"", "String(length: >=1)"},
		{"limit / 4", "2.5"},
		{"map([1, 2], fn(n) => toString(n))", "Array(String)"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, got, err := checker.ParseCheck(test.input, config)
			require.NoError(t, err)
			assert.Equal(t, test.want, got.String())
		})
	}
}

func TestCheck_error(t *testing.T) {
	config := conf.New()
	config.Declare("user", types.Object{Props: []types.Prop{{Name: "name", Type: types.String{}}}})

	tests := []struct {
		input string
		err   string
	}{
		{"usr.name", `unknown name usr (did you mean "user"?)`},
		{"user.nme", `property "nme" does not exist`},
		{"1 + \"a\"", "(1:1)"},
		{"upper(1)", "expects String"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, _, err := checker.ParseCheck(test.input, config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)

			var fe *file.Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, 1, fe.Line)
		})
	}
}

func TestCheck_expect(t *testing.T) {
	config := conf.New()
	config.Expect = types.Boolean{}

	tree, err := parser.Parse("1 < 2")
	require.NoError(t, err)
	_, err = checker.Check(tree, config)
	require.NoError(t, err)

	tree, err = parser.Parse("1 + 2")
	require.NoError(t, err)
	_, err = checker.Check(tree, config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Boolean, but got 3")
}

func TestRoot(t *testing.T) {
	t.Run("env shadows builtins", func(t *testing.T) {
		config := conf.New()
		config.Env["map"] = values.Int(1)
		rt, err := checker.Root(config)
		require.NoError(t, err)

		v, ok := rt.LocalValue("map")
		require.True(t, ok)
		assert.Equal(t, values.Int(1), v)

		parent, ok := rt.Parent()
		require.True(t, ok)
		v, ok = parent.LocalValue("map")
		require.True(t, ok)
		assert.IsType(t, values.Formula{}, v)
	})

	t.Run("declared type widens value", func(t *testing.T) {
		config := conf.New()
		config.Env["n"] = values.Int(3)
		config.Declare("n", types.Int{})
		rt, err := checker.Root(config)
		require.NoError(t, err)

		tt, ok := rt.LocalType("n")
		require.True(t, ok)
		assert.Equal(t, types.Int{}, tt)
	})

	t.Run("value must match declared type", func(t *testing.T) {
		config := conf.New()
		config.Env["n"] = values.String("3")
		config.Declare("n", types.Int{})
		_, err := checker.Root(config)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `value "3" is not assignable to Int`)
	})

	t.Run("disabled builtins", func(t *testing.T) {
		config := conf.New()
		config.Disable("map")
		rt, err := checker.Root(config)
		require.NoError(t, err)
		_, ok := rt.LocalType("map")
		assert.False(t, ok)
		_, ok = rt.LocalType("filter")
		assert.True(t, ok)
	})

	t.Run("nil config", func(t *testing.T) {
		rt, err := checker.Root(nil)
		require.NoError(t, err)
		_, ok := rt.NamespaceType("math")
		assert.True(t, ok)
	})
}
