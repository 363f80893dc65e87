package runtime_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func TestLayering(t *testing.T) {
	root := runtime.New()
	root.AddLocal("x", types.Int{}, values.Int(1))
	rootID, ok := root.RefID("x")
	require.True(t, ok)

	child := root.Child()
	child.AddLocalType("x", types.String{})
	childID, _ := child.RefID("x")
	assert.NotEqual(t, rootID, childID)

	got, _ := child.LocalType("x")
	assert.Equal(t, "String", got.String())
	got, _ = root.LocalType("x")
	assert.Equal(t, "Int", got.String(), "child writes never touch the parent")

	// 值沿链查找：child 只覆盖了类型
	v, ok := child.LocalValue("x")
	require.True(t, ok)
	assert.Equal(t, values.Int(1), v)

	sibling := root.Child()
	got, _ = sibling.LocalType("x")
	assert.Equal(t, "Int", got.String())
	assert.Equal(t, 1, sibling.Depth())
}

func TestReplaceTypeKeepsID(t *testing.T) {
	root := runtime.New()
	root.AddLocalType("x", types.OneOf(types.Int{}, types.Null{}))
	id, _ := root.RefID("x")

	child := root.Child()
	child.ReplaceType("x", types.Int{})
	narrowedID, _ := child.RefID("x")
	assert.Equal(t, id, narrowedID)
}

func TestResolved(t *testing.T) {
	root := runtime.New()
	root.AddLocalType("a", types.Int{})
	root.AddStateType("count", types.Int{})
	root.AddActionType("inc", types.Formula{Return: types.Null{}})
	child := root.Child()
	child.AddLocalType("b", types.Int{})

	names := child.Resolved()
	for _, n := range []string{"a", "b", "@count", "&inc"} {
		assert.True(t, names.Contains(n), n)
	}
	assert.False(t, root.Resolved().Contains("b"))
	assert.Equal(t, []string{"a", "b"}, child.LocalNames())
}

func TestAssume(t *testing.T) {
	root := runtime.New()
	root.AddLocalType("x", types.OneOf(types.Int{}, types.String{}))
	id, _ := root.RefID("x")
	x := runtime.ReferenceFormula{Name: "x", ID: id}

	isInt, err := root.Assume([]runtime.Relationship{
		{Formula: x, Comparison: runtime.InstanceOf, Type: types.Int{}},
		{Formula: x, Comparison: runtime.Gt, Right: runtime.LiteralFormula{Type: types.LiteralInt{Value: 5}}},
	})
	require.NoError(t, err)
	got, _ := isInt.LocalType("x")
	assert.Equal(t, "Int(>=6)", got.String())
	assert.Len(t, isInt.Relationships(id), 2)

	again, err := isInt.Assume([]runtime.Relationship{
		{Formula: x, Comparison: runtime.Gt, Right: runtime.LiteralFormula{Type: types.LiteralInt{Value: 5}}},
	})
	require.NoError(t, err)
	got2, _ := again.LocalType("x")
	assert.True(t, got.Equal(got2), "narrowing twice is a no-op")

	orig, _ := root.LocalType("x")
	assert.Equal(t, "Int | String", orig.String())
}

func TestAssumeShadowed(t *testing.T) {
	root := runtime.New()
	root.AddLocalType("x", types.OneOf(types.Int{}, types.Null{}))
	id, _ := root.RefID("x")
	inner := root.Child()
	inner.AddLocalType("x", types.OneOf(types.String{}, types.Null{}))

	narrowed, err := inner.Assume([]runtime.Relationship{
		{Formula: runtime.ReferenceFormula{Name: "x", ID: id}, Comparison: runtime.NotInstanceOf, Type: types.Null{}},
	})
	require.NoError(t, err)
	got, _ := narrowed.LocalType("x")
	assert.Equal(t, "String | null", got.String(), "a fact about the outer x does not narrow the inner x")
}

func TestAssumeProperty(t *testing.T) {
	root := runtime.New()
	root.AddLocalType("user", types.Object{Props: []types.Prop{{Name: "name", Type: types.OneOf(types.String{}, types.Null{})}}})
	id, _ := root.RefID("user")
	user := runtime.ReferenceFormula{Name: "user", ID: id}

	rt, err := root.Assume([]runtime.Relationship{
		{Formula: runtime.PropertyFormula{Of: user, Name: "name"}, Comparison: runtime.Truthy},
		{Formula: runtime.PropertyFormula{Of: runtime.PropertyFormula{Of: user, Name: "name"}, Name: "length"}, Comparison: runtime.Ge, Type: types.LiteralInt{Value: 3}},
	})
	require.NoError(t, err)
	got, _ := rt.LocalType("user")
	assert.Equal(t, "{name: String(length: >=3)}", got.String())
}

func TestAssign(t *testing.T) {
	root := runtime.New()
	rt, err := root.Assume([]runtime.Relationship{
		{Formula: runtime.ReferenceFormula{Name: "v"}, Comparison: runtime.Assign, Type: types.Int{}, Value: values.Int(3)},
	})
	require.NoError(t, err)
	ty, _ := rt.LocalType("v")
	v, _ := rt.LocalValue("v")
	assert.Equal(t, "Int", ty.String())
	assert.Equal(t, values.Int(3), v)
	_, ok := root.LocalType("v")
	assert.False(t, ok)
}

type htmlRenderer struct{}

type node struct {
	b *strings.Builder
}

func (htmlRenderer) CreateContainer() node { return node{b: &strings.Builder{}} }

func (htmlRenderer) RenderText(text string) node {
	n := node{b: &strings.Builder{}}
	n.b.WriteString(text)
	return n
}

func (htmlRenderer) RenderNode(name string, props []values.Prop, childCount int) (node, error) {
	n := node{b: &strings.Builder{}}
	n.b.WriteString("<" + name)
	for _, p := range props {
		n.b.WriteString(" " + p.Name + "=" + values.Printable(p.Value, language.English))
	}
	n.b.WriteString(">")
	return n, nil
}

func (htmlRenderer) AddNodeTo(parent, child node) {
	parent.b.WriteString(child.b.String())
}

func TestRender(t *testing.T) {
	view := values.View{
		Tag:   "p",
		Props: []values.Prop{{Name: "class", Value: values.String("x")}},
		Children: []values.Value{
			values.String("n = "),
			values.Int(12345),
			values.Null{},
		},
	}
	app := runtime.NewApplication[node](runtime.New(), htmlRenderer{})
	out, err := runtime.Render(app, view)
	require.NoError(t, err)
	assert.Equal(t, "<p class=x>n = 12,345", out.b.String())
}
