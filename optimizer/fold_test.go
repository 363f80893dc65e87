package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/optimizer"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
)

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "7"},
		{"[1 + 2 * 3, x]", "[7, x]"},
		{`"a" <> "b"`, `"ab"`},
		{"if x > 1 { 1 + 1 } else { x }", "if x > 1 { 2 } else { x }"},
		{"fn(n) => n + 2 * 3", "fn(n) => n + 6"},
		{"let a = 2 ** 3 in a + x", "let a = 8 in a + x"},
		{"{a: 1 + 1, b: x}", "{a: 2, b: x}"},
		{"5 / 0", "5 / 0"},
		{"x + 1", "x + 1"},
		{"1 is n and n > 0", "1 is n and n > 0"},
		{"not true", "false"},
		{"null ?? 1", "1"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			tree, err := parser.Parse(test.input)
			require.NoError(t, err)

			rt := runtime.New()
			rt.AddLocalType("x", types.Int{})
			out := optimizer.Fold(rt, tree.Node, nil)
			assert.Equal(t, test.want, out.ToCode())
		})
	}
}

func TestFold_location(t *testing.T) {
	tree, err := parser.Parse("[x, 1 + 2]")
	require.NoError(t, err)

	rt := runtime.New()
	rt.AddLocalType("x", types.Int{})
	out := optimizer.Fold(rt, tree.Node, nil)

	children := out.Children()
	require.Len(t, children, 2)
	assert.Equal(t, file.Location{From: 4, To: 9}, children[1].Location())
}
