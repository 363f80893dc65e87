package formula_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/resolver"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func TestEval(t *testing.T) {
	env := map[string]any{
		"user":  map[string]any{"name": "Ann", "tags": []string{"a", "b"}},
		"limit": 10,
	}

	tests := []struct {
		input string
		want  values.Value
	}{
		{"1 + 1", values.Int(2)},
		{"let a = 1 in a + 1", values.Int(2)},
		{`user.name <> "!"`, values.String("Ann!")},
		{"limit * 2", values.Int(20)},
		{"join(user.tags, \"-\")", values.String("a-b")},
		{"if limit is Int and limit > 5 { limit } else { 0 }", values.Int(10)},
		{"if limit is n and n > 5 { n + 1 } else { 0 }", values.Int(11)},
		{"if limit is n and n > 50 { n } else { 0 }", values.Int(0)},
		{"limit is n and n > 5", values.Boolean(true)},
		{`["test1"] ++ ["test2"]`, values.Array{Items: []values.Value{values.String("test1"), values.String("test2")}}},
		{"math.floor(2.7)", values.Int(2)},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			out, err := formula.Eval(test.input, env)
			require.NoError(t, err)
			assert.Equal(t, test.want, out)
		})
	}
}

func TestEval_divisionByZero(t *testing.T) {
	out, err := formula.Eval("5 / 0", nil)
	require.NoError(t, err)
	assert.True(t, values.IsNaN(out))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 1", "2"},
		{"let a = 1 in a + 1", "2"},
		{`["test1"] ++ ["test2"]`, `Array("test1" | "test2", length: =2)`},
		{"if x is Int and x > 5 { x } else { 0 }", "Int(>=6) | 0"},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := formula.Check(test.input, formula.Declare("x", types.OneOf(types.String{}, types.Int{})))
			require.NoError(t, err)
			assert.Equal(t, test.want, got.String())
		})
	}
}

func TestCheck_error(t *testing.T) {
	_, err := formula.Check("1 +\n  usr", formula.Env(map[string]any{"user": 1}))
	require.Error(t, err)

	var fe *file.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Line)
	assert.Equal(t, 3, fe.Column)
	assert.Contains(t, err.Error(), `did you mean "user"?`)
}

func TestCompile(t *testing.T) {
	program, err := formula.Compile("price * quantity", formula.EnvJSON(`{"price": 2, "quantity": 3}`))
	require.NoError(t, err)
	assert.Equal(t, "Int", program.Type.String())

	out, err := formula.Run(program, nil)
	require.NoError(t, err)
	assert.Equal(t, values.Int(6), out)

	out, err = formula.Run(program, map[string]any{"quantity": 10})
	require.NoError(t, err)
	assert.Equal(t, values.Int(20), out)
}

func TestCompile_options(t *testing.T) {
	t.Run("as bool", func(t *testing.T) {
		_, err := formula.Compile("1 + 1", formula.AsBool())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected Boolean")
	})

	t.Run("max nodes", func(t *testing.T) {
		_, err := formula.Compile("1 + 2 + 3 + 4", formula.MaxNodes(3))
		require.Error(t, err)
	})

	t.Run("disable builtin", func(t *testing.T) {
		_, err := formula.Compile("upper(\"a\")", formula.DisableBuiltin("upper"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upper")
	})

	t.Run("locale", func(t *testing.T) {
		program, err := formula.Compile("toString(1234567)", formula.WithLocale(language.German))
		require.NoError(t, err)
		out, err := formula.Run(program, nil)
		require.NoError(t, err)
		assert.Equal(t, values.String("1.234.567"), out)
	})

	t.Run("logger", func(t *testing.T) {
		var b strings.Builder
		log := hclog.New(&hclog.LoggerOptions{Name: "test", Level: hclog.Debug, Output: &b})
		_, err := formula.Compile("1 + 1", formula.WithLogger(log))
		require.NoError(t, err)
		assert.Contains(t, b.String(), "constant folding")
	})

	t.Run("bad env", func(t *testing.T) {
		_, err := formula.Compile("1", formula.EnvJSON(`[1]`))
		require.Error(t, err)
	})
}

const app = `
view Card(title: String) => <div class="card">{title}</div>
let total = double(origin.x) + origin.y
fn double(# x: Int): Int => x * 2
type Point = {x: Int, y: Int}
let origin: Point = {x: 1, y: 2}
@count: Int = total
action increment(by: Int = 1) => @count + by
`

func TestModule(t *testing.T) {
	m, err := formula.ParseModule(app)
	require.NoError(t, err)
	require.NoError(t, m.Resolve())

	v, err := m.Eval("total")
	require.NoError(t, err)
	assert.Equal(t, values.Int(4), v)

	v, err = m.Eval("@count")
	require.NoError(t, err)
	assert.Equal(t, values.Int(4), v)

	tt, err := m.Type("@count")
	require.NoError(t, err)
	assert.Equal(t, "Int", tt.String())

	tt, err = m.Type("&increment")
	require.NoError(t, err)
	assert.True(t, types.IsFormula(tt), "%s", tt)

	v, err = m.Call("double", values.Int(5))
	require.NoError(t, err)
	assert.Equal(t, values.Int(10), v)

	v, err = m.Evaluate("double(total) + origin.x")
	require.NoError(t, err)
	assert.Equal(t, values.Int(9), v)

	_, err = m.Eval("missing")
	assert.EqualError(t, err, "module has no declaration missing")

	_, err = m.Call("total")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total is not a formula")
}

func TestModule_circular(t *testing.T) {
	m, err := formula.ParseModule("let a = b + 1\nlet b = a + 1")
	require.NoError(t, err)

	err = m.Resolve()
	require.Error(t, err)

	var circular *resolver.CircularDependencyError
	require.True(t, errors.As(err, &circular), "%v", err)
	assert.ElementsMatch(t, []string{"a", "b"}, circular.Chain)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestModule_typeErrors(t *testing.T) {
	m, err := formula.ParseModule("let a: String = 1\nlet b: Int = \"b\"")
	require.NoError(t, err)

	err = m.Resolve()
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "%v", err)
	require.Len(t, merr.Errors, 2)

	lines := []int{}
	for _, e := range merr.Errors {
		var fe *file.Error
		require.ErrorAs(t, e, &fe)
		lines = append(lines, fe.Line)
	}
	assert.ElementsMatch(t, []int{1, 2}, lines)
}

func TestModule_enumCaseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "ambiguous case",
			body: "fn f(# v: A | B): Int => switch v { case .ok(x): 1, else: 0 }",
			want: "ambiguous case .ok, found in A and B",
		},
		{
			name: "argument count",
			body: "fn f(# v: A): Int => switch v { case .ok(x, y): 1, else: 0 }",
			want: "case A.ok takes 1 arguments, pattern has 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := formula.ParseModule("enum A { .ok(# Int) }\nenum B { .ok(# String) }\n" + tt.body)
			require.NoError(t, err)

			err = m.Resolve()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var fe *file.Error
			assert.ErrorAs(t, err, &fe)
		})
	}
}

type html struct {
	b *strings.Builder
}

type htmlRenderer struct{}

func (htmlRenderer) CreateContainer() html { return html{b: &strings.Builder{}} }

func (htmlRenderer) RenderText(text string) html {
	n := html{b: &strings.Builder{}}
	n.b.WriteString(text)
	return n
}

func (htmlRenderer) RenderNode(name string, props []values.Prop, _ int) (html, error) {
	n := html{b: &strings.Builder{}}
	n.b.WriteString("<" + name)
	for _, p := range props {
		n.b.WriteString(" " + p.Name + "=" + values.Printable(p.Value, language.English))
	}
	n.b.WriteString(">")
	return n, nil
}

func (htmlRenderer) AddNodeTo(parent, child html) {
	parent.b.WriteString(child.b.String())
}

func TestRender(t *testing.T) {
	m, err := formula.ParseModule(app)
	require.NoError(t, err)

	out, err := formula.Render[html](m, "Card", htmlRenderer{}, values.String("hi"))
	require.NoError(t, err)
	assert.Equal(t, "<div class=card>hi", out.b.String())
}
