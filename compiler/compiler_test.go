package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/compiler"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func TestCompile(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)

	tree, err := parser.Parse("x + 2 * 3")
	require.NoError(t, err)
	program, err := compiler.Compile(tree, config)
	require.NoError(t, err)

	assert.Equal(t, "x + 6", program.Node.ToCode())
	assert.Equal(t, "Int", program.Type.String())
	assert.Equal(t, types.Int{}, program.Config.Types["x"])

	// 编译不修改调用方的配置。
	_, ok := config.Types["x"]
	assert.False(t, ok)
}

func TestCompile_declared(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)
	config.Declare("x", types.OneOf(types.Int{}, types.String{}))

	tree, err := parser.Parse("x")
	require.NoError(t, err)
	program, err := compiler.Compile(tree, config)
	require.NoError(t, err)
	assert.Equal(t, "Int | String", program.Type.String())
}

func TestCompile_error(t *testing.T) {
	tree, err := parser.Parse("upper(1)")
	require.NoError(t, err)
	_, err = compiler.Compile(tree, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects String")
}

func TestCompile_expect(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)
	config.Expect = types.Boolean{}

	tree, err := parser.Parse("x + 1")
	require.NoError(t, err)
	_, err = compiler.Compile(tree, config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected Boolean, but got Int")
}

func TestWiden(t *testing.T) {
	tests := []struct {
		value values.Value
		want  string
	}{
		{values.Int(1), "Int"},
		{values.String("a"), "String"},
		{values.Array{Items: []values.Value{values.Int(1), values.Float(2.5)}}, "Array(Int | Float)"},
		{values.Array{}, "Array(Any)"},
		{values.Object{Props: []values.Prop{{Name: "a", Value: values.Boolean(true)}}}, "{a: Boolean}"},
	}

	for _, test := range tests {
		t.Run(test.value.String(), func(t *testing.T) {
			assert.Equal(t, test.want, compiler.Widen(test.value.Type()).String())
		})
	}
}
