package builtin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/builtin"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func ints(xs ...int64) values.Array {
	out := values.Array{Items: []values.Value{}}
	for _, x := range xs {
		out.Items = append(out.Items, values.Int(x))
	}
	return out
}

func strs(xs ...string) values.Array {
	out := values.Array{Items: []values.Value{}}
	for _, x := range xs {
		out.Items = append(out.Items, values.String(x))
	}
	return out
}

func run(t *testing.T, rt runtime.Runtime, code string) (types.Type, values.Value) {
	t.Helper()
	tree, err := parser.Parse(code)
	require.NoError(t, err)
	tt, err := tree.Node.GetType(rt)
	require.NoError(t, err)
	v, err := tree.Node.Eval(rt)
	require.NoError(t, err)
	return tt, v
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		code string
		want values.Value
	}{
		{`map([1, 2, 3], fn(x) => x * 2)`, ints(2, 4, 6)},
		{`map(["a", "b"], fn(s) => s <> "!")`, strs("a!", "b!")},
		{`filter([1, 2, 3, 4], fn(x) => x % 2 == 0)`, ints(2, 4)},
		{`reduce([1, 2, 3], fn(acc, x) => acc + x, 0)`, values.Int(6)},
		{`find(["a", "bb"], fn(s) => s == "bb")`, values.String("bb")},
		{`find([1, 2], fn(x) => x > 5)`, values.Null{}},
		{`keys(#{"a": 1, "b": 2})`, strs("a", "b")},
		{`values(#{"a": 1, "b": 2})`, ints(1, 2)},
		{`sum([1, 2, 3])`, values.Int(6)},
		{`sum([1, 2.5])`, values.Float(3.5)},
		{`sum([])`, values.Int(0)},
		{`max(3, 7, 1)`, values.Int(7)},
		{`min(3, 7.5, 1)`, values.Int(1)},
		{`max(2)`, values.Int(2)},
		{`abs(-4)`, values.Int(4)},
		{`abs(-1.5)`, values.Float(1.5)},
		{`join(["a", "b"], ", ")`, values.String("a, b")},
		{`join(["a", "b"])`, values.String("ab")},
		{`split("a,b", ",")`, strs("a", "b")},
		{`upper("abc")`, values.String("ABC")},
		{`lower("ABC")`, values.String("abc")},
		{`toString(1234)`, values.String("1,234")},
		{`toString("x")`, values.String("x")},
		{`toInt("42")`, values.Int(42)},
		{`toInt("0x10")`, values.Int(16)},
		{`toInt("nope")`, values.Null{}},
		{`toInt(2.9)`, values.Int(2)},
		{`toInt(true)`, values.Int(1)},
		{`range(0, 5, 2)`, ints(0, 2, 4)},
		{`range(3, 0, -1)`, ints(3, 2, 1)},
		{`range(0, 3)`, ints(0, 1, 2)},
		{`math.floor(2.7)`, values.Int(2)},
		{`math.ceil(2.1)`, values.Int(3)},
		{`math.round(2.5)`, values.Int(3)},
		{`math.sqrt(16)`, values.Float(4)},
		{`[1, 2, 3] |> map(#, fn(x) => x + 1) |> sum(#)`, values.Int(9)},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			rt := runtime.New()
			builtin.Install(rt, nil)
			_, v := run(t, rt, test.code)
			assert.Equal(t, test.want, v)
		})
	}
}

func TestBuiltins_types(t *testing.T) {
	tests := []struct {
		code string
		want func(types.Type) bool
	}{
		{`map([1, 2, 3], fn(x) => x * 2)`, types.IsArray},
		{`reduce([1, 2, 3], fn(acc, x) => acc + x, 0)`, types.IsInt},
		{`find(["a"], fn(s) => s == "a")`, func(t types.Type) bool { return types.Some(t, types.IsNull) }},
		{`join(["a"], "-")`, types.IsString},
		{`toInt("1")`, func(t types.Type) bool { return types.Some(t, types.IsNull) && types.Some(t, types.IsInt) }},
		{`math.floor(1.5)`, types.IsInt},
		{`math.pi`, types.IsFloat},
		{`range(0, 3)`, types.IsArray},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			rt := runtime.New()
			builtin.Install(rt, nil)
			tt, _ := run(t, rt, test.code)
			assert.True(t, test.want(tt), "%s", tt)
		})
	}
}

func TestBuiltins_typeErrors(t *testing.T) {
	tests := []struct {
		code string
		err  string
	}{
		{`upper(1)`, `expects String`},
		{`map(1, fn(x) => x)`, `expects`},
		{`filter([1], fn(x) => x)`, `expects`},
		{`max()`, `missing required argument`},
		{`split("a")`, `missing required argument`},
		{`range(0, 1, 1, 1)`, `too many arguments`},
		{`math.nope(1)`, `nope`},
		{`mapp([1], fn(x) => x)`, `did you mean "map"?`},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			rt := runtime.New()
			builtin.Install(rt, nil)
			tree, err := parser.Parse(test.code)
			require.NoError(t, err)
			_, err = tree.Node.GetType(rt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}

func TestBuiltins_runtimeErrors(t *testing.T) {
	tests := []struct {
		code string
		err  string
	}{
		{`range(0, 3, 0)`, `step cannot be 0`},
		{`sum([9223372036854775807, 1])`, `integer overflow`},
		{`range(0, 2000000)`, `range: more than 1000000 items`},
	}

	for _, test := range tests {
		t.Run(test.code, func(t *testing.T) {
			rt := runtime.New()
			builtin.Install(rt, nil)
			tree, err := parser.Parse(test.code)
			require.NoError(t, err)
			_, err = tree.Node.Eval(rt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}

func TestSqrt_negative(t *testing.T) {
	v, err := builtin.Sqrt([]values.Value{values.Int(-1)})
	require.NoError(t, err)
	assert.True(t, values.IsNaN(v))
}

func TestInstall_disabled(t *testing.T) {
	rt := runtime.New()
	installed := builtin.Install(rt, func(name string) bool {
		return name == "map" || name == "math.sqrt"
	})
	assert.NotContains(t, installed, "map")
	assert.Contains(t, installed, "filter")
	assert.Contains(t, installed, "math")

	_, ok := rt.LocalType("map")
	assert.False(t, ok)

	ns, ok := rt.NamespaceValue("math")
	require.True(t, ok)
	_, ok = ns.(values.Namespace).Member("sqrt")
	assert.False(t, ok)
	_, ok = ns.(values.Namespace).Member("floor")
	assert.True(t, ok)

	nst, ok := rt.NamespaceType("math")
	require.True(t, ok)
	_, ok = nst.(types.Namespace).Member("sqrt")
	assert.False(t, ok)
}

func TestInstall_wholeNamespace(t *testing.T) {
	rt := runtime.New()
	builtin.Install(rt, func(name string) bool { return name == "math" })
	_, ok := rt.NamespaceType("math")
	assert.False(t, ok)
}

func TestFunctions_locale(t *testing.T) {
	var upper *builtin.Function
	for _, f := range builtin.Functions(language.Turkish) {
		if f.Name == "upper" {
			upper = f
		}
	}
	require.NotNil(t, upper)
	v, err := upper.Fn([]values.Value{values.String("istanbul")})
	require.NoError(t, err)
	assert.Equal(t, values.String("İSTANBUL"), v)

	rt := runtime.NewWithLocale(language.German)
	builtin.Install(rt, nil)
	_, v = run(t, rt, `toString(1234567)`)
	assert.Equal(t, values.String("1.234.567"), v)
}

func TestFunctions_freshGenerics(t *testing.T) {
	// 每次调用都创建新的泛型参数，不同作用域之间不会互相影响
	a, b := builtin.Functions(language.English), builtin.Functions(language.English)
	assert.NotEqual(t, a[0].Signature.Generics[0].ID, b[0].Signature.Generics[0].ID)
}
