package operators_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/operators"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func num(n int64) ast.Expression     { return &ast.IntLiteral{Value: n} }
func flt(f float64) ast.Expression   { return &ast.FloatLiteral{Value: f} }
func str(s string) ast.Expression    { return &ast.StringLiteral{Value: s} }
func ref(name string) ast.Expression { return &ast.Reference{Name: name} }
func typ(name string) ast.Expression { return &ast.BuiltinType{Name: name} }
func arr(items ...ast.Expression) ast.Expression {
	return &ast.ArrayExpression{Items: items}
}

func bin(op string, lhs, rhs ast.Expression) ast.Expression {
	e, err := operators.NewBinary(op, lhs, rhs)
	if err != nil {
		panic(err)
	}
	return e
}

func typeAndValue(t *testing.T, rt runtime.Runtime, e ast.Expression) (types.Type, values.Value) {
	t.Helper()
	tt, err := e.GetType(rt)
	require.NoError(t, err, e.ToCode())
	v, err := e.Eval(rt)
	require.NoError(t, err, e.ToCode())
	assert.True(t, values.Conforms(v, tt) || values.IsNaN(v), "%s: value %s does not conform to %s", e.ToCode(), v, tt)
	return tt, v
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr     ast.Expression
		wantType string
		want     values.Value
	}{
		{bin("+", num(1), num(1)), "2", values.Int(2)},
		{bin("-", num(1), num(3)), "-2", values.Int(-2)},
		{bin("*", num(4), flt(0.5)), "2.0", values.Float(2)},
		{bin("/", num(7), num(2)), "3.5", values.Float(3.5)},
		{bin("//", num(-7), num(2)), "-4", values.Int(-4)},
		{bin("%", num(-7), num(2)), "1", values.Int(1)},
		{bin("**", num(2), num(10)), "1024", values.Int(1024)},
		{bin("**", num(2), num(-1)), "0.5", values.Float(0.5)},
		{bin("**", num(3), num(13)), "1594323", values.Int(1594323)},
		{bin("**", num(1), num(9000000000000000000)), "1", values.Int(1)},
		{bin("**", num(-1), num(9000000000000000001)), "-1", values.Int(-1)},
		{bin("+", num(1), bin("*", num(2), num(3))), "7", values.Int(7)},
	}
	for _, tt := range tests {
		t.Run(tt.expr.ToCode(), func(t *testing.T) {
			typ, v := typeAndValue(t, runtime.New(), tt.expr)
			assert.Equal(t, tt.wantType, typ.String())
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, op := range []string{"/", "//", "%"} {
		t.Run(op, func(t *testing.T) {
			e := bin(op, num(5), num(0))
			_, err := e.GetType(runtime.New())
			require.NoError(t, err)
			v, err := e.Eval(runtime.New())
			require.NoError(t, err)
			assert.True(t, values.IsNaN(v), "got %s", v)
		})
	}

	tt, err := bin("//", num(5), num(0)).GetType(runtime.New())
	require.NoError(t, err)
	assert.Equal(t, "Int", tt.String())

	v, err := bin("+", bin("/", num(1), num(0)), num(1)).Eval(runtime.New())
	require.NoError(t, err)
	assert.True(t, values.IsNaN(v), "NaN propagates")

	for _, e := range []ast.Expression{
		bin("//", flt(1e300), flt(1.0)),
		bin("//", flt(-1e300), flt(1.0)),
		bin("//", flt(9.3e18), num(1)),
	} {
		t.Run(e.ToCode(), func(t *testing.T) {
			_, err := e.GetType(runtime.New())
			require.NoError(t, err)
			v, err := e.Eval(runtime.New())
			require.NoError(t, err)
			assert.True(t, values.IsNaN(v), "quotient out of Int range, got %s", v)
		})
	}

	v, err = bin("//", flt(-7.5), flt(2.0)).Eval(runtime.New())
	require.NoError(t, err)
	assert.Equal(t, values.Int(-4), v)
}

func TestIntRanges(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("x", types.IntRange(types.Ptr[int64](0), types.Ptr[int64](10)))
	rt.AddLocalType("y", types.IntRange(types.Ptr[int64](1), nil))

	tests := []struct {
		expr ast.Expression
		want string
	}{
		{bin("+", ref("x"), num(1)), "Int(>=1, <=11)"},
		{bin("-", ref("x"), num(10)), "Int(>=-10, <=0)"},
		{bin("*", ref("x"), num(2)), "Int(>=0, <=20)"},
		{bin("+", ref("x"), ref("y")), "Int(>=1)"},
		{bin("%", ref("y"), num(3)), "Int(>=0, <=2)"},
		{bin("/", ref("x"), ref("y")), "Float"},
		{&operators.UnaryOperation{Operator: "-", Operand: ref("x")}, "Int(>=-10, <=0)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr.ToCode(), func(t *testing.T) {
			got, err := tt.expr.GetType(rt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestUnionDistribution(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("x", types.OneOf(types.LiteralInt{Value: 1}, types.LiteralInt{Value: 2}))
	got, err := bin("+", ref("x"), num(10)).GetType(rt)
	require.NoError(t, err)
	assert.Equal(t, "11 | 12", got.String())

	rt.AddLocalType("s", types.OneOf(types.LiteralString{Value: "a"}, types.Int{}))
	_, err = bin("+", ref("s"), num(1)).GetType(rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `cannot apply + to "a" and 1`)
}

func TestConcat(t *testing.T) {
	got, v := typeAndValue(t, runtime.New(), bin("++", arr(str("test1")), arr(str("test2"))))
	assert.Equal(t, `Array("test1" | "test2", length: =2)`, got.String())
	assert.Equal(t, values.Array{Items: []values.Value{values.String("test1"), values.String("test2")}}, v)

	got, v = typeAndValue(t, runtime.New(), bin("<>", str("ab"), str("cd")))
	assert.Equal(t, `"abcd"`, got.String())
	assert.Equal(t, values.String("abcd"), v)

	rt := runtime.New()
	rt.AddLocalType("s", types.String{Length: types.AtLeast(1)})
	got, err := bin("<>", ref("s"), str("!")).GetType(rt)
	require.NoError(t, err)
	assert.Equal(t, "String(length: >=2)", got.String())

	_, err = bin("<>", num(1), str("!")).GetType(rt)
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	lhs := &ast.ObjectExpression{Props: []ast.ObjectProp{{Name: "a", Value: num(1)}, {Name: "b", Value: num(2)}}}
	rhs := &ast.ObjectExpression{Props: []ast.ObjectProp{{Name: "b", Value: str("x")}}}
	got, v := typeAndValue(t, runtime.New(), bin("~~", lhs, rhs))
	assert.Equal(t, `{a: 1, b: "x"}`, got.String())
	b, _ := v.(values.Object).Prop("b")
	assert.Equal(t, values.String("x"), b)
}

func TestComparison(t *testing.T) {
	got, v := typeAndValue(t, runtime.New(), bin("<", num(1), flt(1.5)))
	assert.Equal(t, "true", got.String())
	assert.Equal(t, values.Boolean(true), v)

	got, _ = typeAndValue(t, runtime.New(), bin("==", num(1), flt(1)))
	assert.Equal(t, "true", got.String())

	_, err := bin("<", num(1), str("a")).GetType(runtime.New())
	require.Error(t, err)
}

func TestIsAndNarrowing(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("x", types.OneOf(types.String{}, types.Int{}))

	cond := bin("and",
		&operators.IsOperation{Subject: ref("x"), Pattern: &ast.TypePattern{Type: typ("Int")}},
		bin(">", ref("x"), num(5)),
	)
	trueRt, err := ast.AssumeTrue(rt, cond)
	require.NoError(t, err)
	got, err := ref("x").GetType(trueRt)
	require.NoError(t, err)
	assert.Equal(t, "Int(>=6)", got.String())

	// 否定分支：x 不是 Int 时一定是 String
	falseRt, err := ast.AssumeFalse(rt, &operators.IsOperation{Subject: ref("x"), Pattern: &ast.TypePattern{Type: typ("Int")}})
	require.NoError(t, err)
	got, err = ref("x").GetType(falseRt)
	require.NoError(t, err)
	assert.Equal(t, "String", got.String())

	// 原作用域不受影响
	got, _ = ref("x").GetType(rt)
	assert.Equal(t, "String | Int", got.String())
}

func TestNarrowingIsIdempotent(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("x", types.OneOf(types.Int{}, types.Null{}))
	cond := bin("!=", ref("x"), &ast.NullLiteral{})

	once, err := ast.AssumeTrue(rt, cond)
	require.NoError(t, err)
	twice, err := ast.AssumeTrue(once, cond)
	require.NoError(t, err)

	a, _ := ref("x").GetType(once)
	b, _ := ref("x").GetType(twice)
	assert.Equal(t, "Int", a.String())
	assert.True(t, types.Equal(a, b))
}

func TestFlippedComparison(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("x", types.Int{})
	trueRt, err := ast.AssumeTrue(rt, bin("<", num(5), ref("x")))
	require.NoError(t, err)
	got, _ := ref("x").GetType(trueRt)
	assert.Equal(t, "Int(>=6)", got.String())

	falseRt, err := ast.AssumeFalse(rt, bin("<", num(5), ref("x")))
	require.NoError(t, err)
	got, _ = ref("x").GetType(falseRt)
	assert.Equal(t, "Int(<=5)", got.String())
}

func TestLengthNarrowing(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("xs", types.Array{Of: types.Int{}})
	cond := bin(">", &operators.PropertyAccess{Receiver: ref("xs"), Name: "length"}, num(0))
	trueRt, err := ast.AssumeTrue(rt, cond)
	require.NoError(t, err)
	got, _ := ref("xs").GetType(trueRt)
	assert.Equal(t, "Array(Int, length: >=1)", got.String())

	first, err := (&operators.IndexAccess{Receiver: ref("xs"), Index: num(0)}).GetType(trueRt)
	require.NoError(t, err)
	assert.Equal(t, "Int", first.String())
}

func TestLogic(t *testing.T) {
	rt := runtime.New()
	rt.AddLocal("n", types.OneOf(types.Int{}, types.Null{}), values.Null{})

	got, v := typeAndValue(t, rt, bin("??", ref("n"), num(3)))
	assert.Equal(t, "Int", got.String())
	assert.Equal(t, values.Int(3), v)

	got, _ = typeAndValue(t, rt, bin("and", ref("n"), str("yes")))
	assert.Equal(t, `0 | null | "yes"`, got.String())

	got, v = typeAndValue(t, rt, bin("or", ref("n"), str("no")))
	assert.Equal(t, `Int | "no"`, got.String())
	assert.Equal(t, values.String("no"), v)

	got, _ = typeAndValue(t, rt, bin("or", str("x"), ref("undefined")))
	assert.Equal(t, `"x"`, got.String(), "the right side is never reached")
}

func TestHasAndMatches(t *testing.T) {
	rt := runtime.New()
	rt.AddLocalType("d", types.Dict{Of: types.Int{}})
	trueRt, err := ast.AssumeTrue(rt, bin("has", ref("d"), str("a")))
	require.NoError(t, err)
	got, _ := ref("d").GetType(trueRt)
	assert.Equal(t, `Dict(Int, length: >=1, keys: ["a"])`, got.String())

	rt.AddLocalType("s", types.String{})
	trueRt, err = ast.AssumeTrue(rt, bin("matches", ref("s"), str("^[0-9]+$")))
	require.NoError(t, err)
	got, _ = ref("s").GetType(trueRt)
	assert.Equal(t, `String(matches: "^[0-9]+$")`, got.String())

	_, v := typeAndValue(t, runtime.New(), bin("matches", str("123"), str("^[0-9]+$")))
	assert.Equal(t, values.Boolean(true), v)
}

func TestPipe(t *testing.T) {
	e := bin("|>", num(2), bin("*", &ast.PipePlaceholder{}, num(3)))
	got, v := typeAndValue(t, runtime.New(), e)
	assert.Equal(t, "6", got.String())
	assert.Equal(t, values.Int(6), v)

	rt := runtime.New()
	rt.AddLocal("n", types.OneOf(types.Int{}, types.Null{}), values.Null{})
	e = bin("?|>", ref("n"), bin("+", &ast.PipePlaceholder{}, num(1)))
	got, v = typeAndValue(t, rt, e)
	assert.Equal(t, "Int | null", got.String())
	assert.Equal(t, values.Null{}, v)
}

func TestPropertyAccess(t *testing.T) {
	rt := runtime.New()
	user := types.Object{Props: []types.Prop{{Name: "name", Type: types.OneOf(types.String{}, types.Null{})}}}
	rt.AddLocalType("user", user)

	_, err := (&operators.PropertyAccess{Receiver: ref("user"), Name: "nmae"}).GetType(rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "name"?`)

	name := &operators.PropertyAccess{Receiver: ref("user"), Name: "name"}
	trueRt, err := ast.AssumeTrue(rt, bin("!=", name, &ast.NullLiteral{}))
	require.NoError(t, err)
	got, _ := ref("user").GetType(trueRt)
	assert.Equal(t, "{name: String}", got.String())
}

func TestInvocation(t *testing.T) {
	rt := runtime.New()
	g := types.NewGeneric("T")
	identity := types.Formula{
		Generics: []types.Generic{g},
		Args:     []types.Argument{{Name: "value", Type: g, Positional: true, Required: true}},
		Return:   g,
	}
	rt.AddLocal("identity", identity, values.Formula{Name: "identity", Signature: identity, Fn: func(args []values.Value) (values.Value, error) {
		return args[0], nil
	}})
	got, v := typeAndValue(t, rt, &operators.Invocation{Callee: ref("identity"), Args: []operators.Argument{{Value: num(1)}}})
	assert.Equal(t, "Int", got.String())
	assert.Equal(t, values.Int(1), v)

	_, err := (&operators.Invocation{Callee: ref("identity")}).GetType(rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required argument")

	_, err = (&operators.Invocation{Callee: ref("identity"), Args: []operators.Argument{{Value: num(1)}, {Value: num(2)}}}).GetType(rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestInvocationShorthandAndLambda(t *testing.T) {
	rt := runtime.New()
	add := &ast.FormulaExpression{
		Name: "add",
		Args: []ast.FormulaArg{{Name: "a", Type: typ("Int")}, {Name: "b", Type: typ("Int"), Default: num(10)}},
		Body: bin("+", ref("a"), ref("b")),
	}
	sig, err := add.GetType(rt)
	require.NoError(t, err)
	fv, err := add.Eval(rt)
	require.NoError(t, err)
	rt.AddLocal("add", sig, fv)

	// 全部是位置参数时按顺序改名
	_, v := typeAndValue(t, rt, &operators.Invocation{Callee: ref("add"), Args: []operators.Argument{{Value: num(1)}, {Value: num(2)}}})
	assert.Equal(t, values.Int(3), v)
	_, v = typeAndValue(t, rt, &operators.Invocation{Callee: ref("add"), Args: []operators.Argument{{Name: "a", Value: num(1)}}})
	assert.Equal(t, values.Int(11), v)

	_, err = (&operators.Invocation{Callee: ref("add"), Args: []operators.Argument{{Name: "a", Value: str("x")}, {Name: "c", Value: num(1)}}}).GetType(rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")

	// lambda 的参数类型来自上下文
	tg := types.NewGeneric("T")
	apply := types.Formula{
		Generics: []types.Generic{tg},
		Args: []types.Argument{
			{Name: "value", Type: tg, Positional: true, Required: true},
			{Name: "fn", Type: types.Formula{Args: []types.Argument{{Type: tg, Positional: true, Required: true}}, Return: tg}, Positional: true, Required: true},
		},
		Return: tg,
	}
	rt.AddLocalType("apply", apply)
	lambda := &ast.FormulaExpression{
		Args: []ast.FormulaArg{{Name: "n", Positional: true}},
		Body: bin("*", ref("n"), num(2)),
	}
	got, err := (&operators.Invocation{Callee: ref("apply"), Args: []operators.Argument{{Value: num(3)}, {Value: lambda}}}).GetType(rt)
	require.NoError(t, err)
	assert.Equal(t, "Int", got.String())
}

func TestToCodeParentheses(t *testing.T) {
	tests := []struct {
		expr ast.Expression
		want string
	}{
		{bin("*", bin("+", num(1), num(2)), num(3)), "(1 + 2) * 3"},
		{bin("+", num(1), bin("*", num(2), num(3))), "1 + 2 * 3"},
		{bin("-", num(1), bin("-", num(2), num(3))), "1 - (2 - 3)"},
		{bin("-", bin("-", num(1), num(2)), num(3)), "1 - 2 - 3"},
		{bin("**", num(2), bin("**", num(3), num(4))), "2 ** 3 ** 4"},
		{bin("**", bin("**", num(2), num(3)), num(4)), "(2 ** 3) ** 4"},
		{&operators.UnaryOperation{Operator: "not", Operand: bin("and", ref("a"), ref("b"))}, "not (a and b)"},
		{bin("**", &operators.UnaryOperation{Operator: "-", Operand: num(2)}, num(2)), "(-2) ** 2"},
		{&operators.PropertyAccess{Receiver: bin("+", ref("a"), ref("b")), Name: "length"}, "(a + b).length"},
		{&operators.Invocation{Callee: ref("f"), Args: []operators.Argument{{Value: num(1)}, {Name: "b", Value: num(2)}, {Value: ref("xs"), Spread: true}}}, "f(1, b: 2, ...xs)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.expr.ToCode())
		})
	}
}
