package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func scope() runtime.Runtime {
	rt := runtime.New()
	rt.AddLocalType("xs", types.Array{Of: types.Int{}})
	rt.AddLocalType("n", types.Int{})
	return rt
}

func typeOf(t *testing.T, code string) types.Type {
	t.Helper()
	tree, err := parser.Parse(code)
	require.NoError(t, err)
	tt, err := tree.Node.GetType(scope())
	require.NoError(t, err)
	return tt
}

func TestContainerLength(t *testing.T) {
	tests := []struct {
		code string
		want types.Length
	}{
		{"[1, 2]", types.Exactly(2)},
		{"[1, ...xs]", types.AtLeast(1)},
		{"#[1, 1, 2]", types.Exactly(2)},
		{"#[n, n]", types.Between(1, 2)},
		{"#[...xs]", types.Length{}},
		{`#{"a": 1, "b": 2}`, types.Exactly(2)},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			got, ok := types.LengthOf(typeOf(t, test.code))
			require.True(t, ok)
			assert.Equal(t, test.want.String(), got.String())
		})
	}
}

func TestSetLiterals(t *testing.T) {
	assert.Equal(t, "Set(1 | 2, length: =2)", typeOf(t, "#[1, 1, 2]").String())

	tree, err := parser.Parse("#[1, 1, 2]")
	require.NoError(t, err)
	v, err := tree.Node.Eval(runtime.New())
	require.NoError(t, err)
	set, ok := v.(values.Set)
	require.True(t, ok)
	assert.Len(t, set.Items, 2)
}

func TestDictNames(t *testing.T) {
	d, ok := typeOf(t, `#{"b": 1, "a": n}`).(types.Dict)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, d.Names)
}

func TestSuggest(t *testing.T) {
	candidates := []string{"map", "filter", "user"}
	assert.Equal(t, "map", ast.Suggest("mapp", candidates))
	assert.Equal(t, "user", ast.Suggest("usr", candidates))
	assert.Equal(t, "", ast.Suggest("zzzzz", candidates))
	assert.Equal(t, ` (did you mean "filter"?)`, ast.DidYouMean("fliter", candidates))
	assert.Equal(t, "", ast.DidYouMean("map", candidates))
}

func TestTree(t *testing.T) {
	tree, err := parser.Parse("1 + [2, 3]")
	require.NoError(t, err)

	out := ast.Tree(tree.Node)
	assert.Contains(t, out, "BinaryOperation 1 + [2, 3]")
	assert.Contains(t, out, "ArrayExpression [2, 3]")
	assert.Contains(t, out, "IntLiteral 3")
}
