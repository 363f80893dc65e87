package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/operators"
	"github.com/formula-lang/formula/parser"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "1 + 2 * 3"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"a - (b - c)", "a - (b - c)"},
		{"2 ** 3 ** 2", "2 ** 3 ** 2"},
		{"(2 ** 3) ** 2", "(2 ** 3) ** 2"},
		{"not a and b", "not a and b"},
		{"-x ** 2", "-x ** 2"},
		{"a ?? b ++ c", "a ?? b ++ c"},
		{"0x1f + 1.5", "31 + 1.5"},
		{"1_000 // 7 % 3", "1000 // 7 % 3"},
		{`'it\'s' <> "!"`, `"it's" <> "!"`},
		{"a.b?.c[0](1, x: 2, ...xs, **kw)", "a.b?.c[0](1, x: 2, ...xs, **kw)"},
		{"f(x)(y).z", "f(x)(y).z"},
		{"x.type", "x.type"},
		{"x |> f(#) ?|> g(#, 1)", "x |> f(#) ?|> g(#, 1)"},
		{"@count + 1", "@count + 1"},
		{"&increment", "&increment"},
		{"this.x", "this.x"},
		{"[1, [2], ...xs]", "[1, [2], ...xs]"},
		{"#[1, 2, ...xs]", "#[1, 2, ...xs]"},
		{`#{"a": 1, b: 2, (k): 3, 4: 5, ...d}`, `#{"a": 1, "b": 2, (k): 3, (4): 5, ...d}`},
		{"{a: 1, b, ...o}", "{a: 1, b, ...o}"},
		{"let a = 1, b: Int = a + 1 in a + b", "let a = 1, b: Int = a + 1 in a + b"},
		{"let a: Int | null = null in a ?? 0", "let a: Int | null = null in a ?? 0"},
		{"if a { 1 } else if b { 2 } else { 3 }", "if a { 1 } else if b { 2 } else { 3 }"},
		{"if a { 1 }", "if a { 1 }"},
		{"switch x { case .ok(v): v, case Int: 1, else: 0 }", "switch x { case .ok(v): v case Int: 1 else: 0 }"},
		{"switch xs { case []: 0 case [first, ...rest]: first case _: 1 }", "switch xs { case []: 0 case [first, ...rest]: first case _: 1 }"},
		{"switch s { case \"a\": 1 case -1: 2 case 1 | 2: 3 }", "switch s { case \"a\": 1 case -1: 2 case 1 | 2: 3 }"},
		{"fn(x) => x + 1", "fn(x) => x + 1"},
		{"fn<T>(# a: T, b: Int = 1, ...rest: Array(T)): T => a", "fn<T>(# a: T, b: Int = 1, ...rest: Array(T)): T => a"},
		{"fn sum(**kw: Dict(Int)): Int => 0", "fn sum(**kw: Dict(Int)): Int => 0"},
		{"let f: fn(Int): Int = fn(# x: Int): Int => x in f(1)", "let f: fn(# Int): Int = fn(# x: Int): Int => x in f(1)"},
		{"x is Int(>=0, <10) and x !is null", "x is Int(>=0, <10) and x !is null"},
		{"x is String | null", "x is String | null"},
		{"x is String?", "x is String?"},
		{"xs is [first, ...rest]", "xs is [first, ...rest]"},
		{"r is .err(message)", "r is .err(message)"},
		{`s matches "^a" or s has "k"`, `s matches "^a" or s has "k"`},
		{"s !has k", "s !has k"},
		{`let t = String(length: >=1, matches: "^[a-z]+$") in t`, `let t = String(length: >=1, matches: "^[a-z]+$") in t`},
		{"let t = Array(Int, length: 3) in t", "let t = Array(Int, length: =3) in t"},
		{"let t = Float(>-0.5, <=1.5) in t", "let t = Float(>-0.5, <=1.5) in t"},
		{"let t: {a: Int, b: String?} = o in t", "let t: {a: Int, b: String?} = o in t"},
		{"let t: (fn(# Int): Int) | null = null in t", "let t: (fn(# Int): Int) | null = null in t"},
		{`<div class="c" hidden>Hello {name}<br /></div>`, `<div class="c" hidden={true}>Hello {name}<br /></div>`},
		{`f(<Card title={t ++ "!"} />)`, `f(<Card title={t ++ "!"} />)`},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			tree, err := parser.Parse(test.input)
			require.NoError(t, err)
			assert.Equal(t, test.want, tree.Node.ToCode())

			// 打印出来的代码再次解析之后不变
			again, err := parser.Parse(tree.Node.ToCode())
			require.NoError(t, err)
			assert.Equal(t, test.want, again.Node.ToCode())
		})
	}
}

func TestParse_nodes(t *testing.T) {
	tree, err := parser.Parse("x is .ok(v) and v > 1")
	require.NoError(t, err)

	and, ok := tree.Node.(*operators.BinaryOperation)
	require.True(t, ok, "%T", tree.Node)
	assert.Equal(t, "and", and.Operator)

	is, ok := and.Lhs.(*operators.IsOperation)
	require.True(t, ok, "%T", and.Lhs)
	assert.False(t, is.Negated)
	pattern, ok := is.Pattern.(*ast.EnumCasePattern)
	require.True(t, ok, "%T", is.Pattern)
	assert.Equal(t, "ok", pattern.Name)
	require.Len(t, pattern.Args, 1)
	assert.IsType(t, &ast.BindingPattern{}, pattern.Args[0])

	tree, err = parser.Parse("x |> f(#)")
	require.NoError(t, err)
	assert.IsType(t, &operators.PipeOperation{}, tree.Node)

	tree, err = parser.Parse("1.5e3")
	require.NoError(t, err)
	assert.Equal(t, &ast.FloatLiteral{Value: 1500}, withoutLocation(tree.Node))

	tree, err = parser.Parse("switch x { case User: 1 case user: 2 }")
	require.NoError(t, err)
	sw := tree.Node.(*ast.Switch)
	assert.IsType(t, &ast.TypePattern{}, sw.Cases[0].Pattern)
	assert.IsType(t, &ast.BindingPattern{}, sw.Cases[1].Pattern)
}

func withoutLocation(e ast.Expression) ast.Expression {
	e.SetLocation(file.Location{})
	return e
}

func TestParse_location(t *testing.T) {
	tree, err := parser.Parse("a + foo.bar")
	require.NoError(t, err)
	assert.Equal(t, file.Location{From: 0, To: 11}, tree.Node.Location())

	rhs := tree.Node.(*operators.BinaryOperation).Rhs
	assert.Equal(t, file.Location{From: 4, To: 11}, rhs.Location())

	tree, err = parser.Parse(`<p>{x}</p>`)
	require.NoError(t, err)
	view := tree.Node.(*ast.ViewElement)
	require.Len(t, view.Content, 1)
	assert.Equal(t, file.Location{From: 4, To: 5}, view.Content[0].Location())
}

func TestParse_error(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{"1 +", "unexpected token EOF"},
		{"(1", "unexpected token EOF"},
		{"1 2", `unexpected token Number("2")`},
		{"a.", "expected name"},
		{"switch x { else: 1 else: 2 }", "duplicate else in switch"},
		{"switch x { else: 1 case 1: 2 }", "case after else in switch"},
		{"x is [...rest, b]", "rest pattern must be last"},
		{"<div></span>", "closing tag </span> does not match <div>"},
		{"<div>{1 +}</div>", "unexpected token EOF"},
		{"<div a=1 />", "expected a quoted string or {expression} for property a"},
		{"#{[1]: 2}", "a dict key must be a quoted string"},
		{"let a = 1", "unexpected token EOF"},
		{"99999999999999999999", "invalid integer literal"},
		{"let x: 1 + = 2 in x", "unexpected token"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := parser.Parse(test.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}

func TestParse_errorPosition(t *testing.T) {
	_, err := parser.Parse("let a = 1,\n    b = in a")
	require.Error(t, err)

	var fe *file.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Line)
	assert.Equal(t, 9, fe.Column)
	assert.Contains(t, fe.Error(), "^^")
}

func TestParse_maxNodes(t *testing.T) {
	config := conf.New()
	config.MaxNodes = 4

	_, err := parser.ParseWithConfig("1 + 2", config)
	require.NoError(t, err)

	_, err = parser.ParseWithConfig("1 + 2 + 3", config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed nodes")

	// 视图中的表达式也计入节点数
	_, err = parser.ParseWithConfig("<p>{1 + 2 + 3}</p>", config)
	require.Error(t, err)
}

func TestParseModule(t *testing.T) {
	decls := []string{
		"type Point = {x: Int, y: Int}",
		"enum Result { .ok(# Int), .err(message: String) }",
		"class Counter { count: Int = 0, fn next(): Int => this.count + 1 }",
		"fn double(# x: Int): Int => x * 2",
		"let origin = {x: 0, y: 0}",
		"@count: Int = 0",
		"action increment(by: Int = 1) => @count + by",
		`view Card(title: String) => <div class="card">{title}</div>`,
	}
	source := ""
	for _, d := range decls {
		source += d + "\n"
	}

	tree, err := parser.ParseModule(source, nil)
	require.NoError(t, err)
	require.Len(t, tree.Declarations, len(decls))

	var names []string
	for i, d := range tree.Declarations {
		assert.Equal(t, decls[i], d.ToCode())
		names = append(names, d.Declares())
	}
	assert.Equal(t, []string{"Point", "Result", "Counter", "double", "origin", "@count", "&increment", "Card"}, names)
}

func TestParseModule_separators(t *testing.T) {
	tree, err := parser.ParseModule("let a = 1; let b = a;;\nclass C { x y: Int, fn f() => 1 }", nil)
	require.NoError(t, err)
	require.Len(t, tree.Declarations, 3)
	assert.Equal(t, "class C { x, y: Int, fn f() => 1 }", tree.Declarations[2].ToCode())
}

func TestParseModule_error(t *testing.T) {
	tests := []struct {
		input string
		err   string
	}{
		{"1 + 1", "expected a declaration"},
		{"enum E { .a, .a }", "duplicate case .a in enum E"},
		{"fn (x) => x", "expected a name"},
		{"type = Int", "expected a name"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			_, err := parser.ParseModule(test.input, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.err)
		})
	}
}
