package resolver_test

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/resolver"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

func item(name string, deps ...string) resolver.Item[string] {
	return resolver.Item[string]{Name: name, Deps: set.From(deps), Value: name}
}

func names(items []resolver.Item[string]) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestSort(t *testing.T) {
	tests := []struct {
		name     string
		items    []resolver.Item[string]
		external []string
		want     []string
	}{
		{
			name:  "already ordered",
			items: []resolver.Item[string]{item("a"), item("b", "a"), item("c", "b")},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "reversed",
			items: []resolver.Item[string]{item("c", "b"), item("b", "a"), item("a")},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "independent items keep source order",
			items: []resolver.Item[string]{item("z"), item("y", "x"), item("x"), item("w")},
			want:  []string{"z", "x", "w", "y"},
		},
		{
			name:  "self reference",
			items: []resolver.Item[string]{item("fact", "fact")},
			want:  []string{"fact"},
		},
		{
			name:     "external names",
			items:    []resolver.Item[string]{item("a", "map", "b"), item("b", "@count")},
			external: []string{"map", "@count"},
			want:     []string{"b", "a"},
		},
		{
			name:     "local definition shadows external",
			items:    []resolver.Item[string]{item("a", "map"), item("map", "b"), item("b")},
			external: []string{"map"},
			want:     []string{"b", "map", "a"},
		},
		{
			name:  "diamond",
			items: []resolver.Item[string]{item("d", "b", "c"), item("b", "a"), item("c", "a"), item("a")},
			want:  []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			external := set.From(tt.external)
			sorted, err := resolver.Sort(tt.items, external.Contains)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(sorted))
		})
	}
}

func TestSort_deterministic(t *testing.T) {
	items := []resolver.Item[string]{
		item("e", "d", "a"), item("d", "c"), item("c", "b", "a"), item("b", "a"), item("a"),
	}
	first, err := resolver.Sort(items, nil)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := resolver.Sort(items, nil)
		require.NoError(t, err)
		assert.Equal(t, names(first), names(again))
	}

	position := map[string]int{}
	for i, it := range first {
		position[it.Name] = i
	}
	for _, it := range items {
		for _, dep := range it.Deps.Slice() {
			assert.Less(t, position[dep], position[it.Name], "%s must come after %s", it.Name, dep)
		}
	}
}

func TestSort_circular(t *testing.T) {
	_, err := resolver.Sort([]resolver.Item[string]{item("a", "b"), item("b", "a")}, nil)
	require.Error(t, err)

	var circular *resolver.CircularDependencyError
	require.True(t, errors.As(err, &circular), "%v", err)
	assert.Equal(t, []string{"a", "b"}, circular.Chain)
	assert.Equal(t, "circular dependency: a -> b -> a", circular.Error())

	// 同一个环只报告一次
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 1)
}

func TestSort_unresolvable(t *testing.T) {
	items := []resolver.Item[string]{
		item("ok"),
		item("a", "missing", "ok"),
		item("b", "a"),
		item("x", "y"), item("y", "z"), item("z", "x"),
	}
	sorted, err := resolver.Sort(items, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"ok"}, names(sorted))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 3)

	var unresolvable *resolver.UnresolvableError
	require.True(t, errors.As(merr.Errors[0], &unresolvable))
	assert.Equal(t, "a", unresolvable.Name)
	assert.Equal(t, []string{"missing"}, unresolvable.Missing)
	assert.Equal(t, "a depends on undefined missing", unresolvable.Error())

	require.True(t, errors.As(merr.Errors[1], &unresolvable))
	assert.Equal(t, "b", unresolvable.Name)
	assert.Equal(t, []string{"a"}, unresolvable.Blocked)

	var circular *resolver.CircularDependencyError
	require.True(t, errors.As(merr.Errors[2], &circular))
	assert.Equal(t, []string{"x", "y", "z"}, circular.Chain)
}

func TestSort_duplicate(t *testing.T) {
	_, err := resolver.Sort([]resolver.Item[string]{item("a"), item("a")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a is declared more than once")
}

func TestResolveAndMerge(t *testing.T) {
	tree, err := parser.ParseModule(`
		let total = double(base) + 1
		fn double(# x: Int): Int => x * 2
		let base = 20
		@count: Int = base
		type Point = {x: Int, y: Int}
		let origin: Point = {x: 0, y: 0}
	`, nil)
	require.NoError(t, err)

	rt := runtime.New()
	log := hclog.New(&hclog.LoggerOptions{Name: "resolver", Level: hclog.Trace})

	require.NoError(t, resolver.ResolveAndMergeTypes(rt, tree.Declarations, log))
	tt, ok := rt.LocalType("base")
	require.True(t, ok)
	assert.Equal(t, types.LiteralInt{Value: 20}, tt)

	tt, ok = rt.LocalType("total")
	require.True(t, ok)
	assert.True(t, types.IsInt(tt), "%s", tt)

	tt, ok = rt.StateType("count")
	require.True(t, ok)
	assert.Equal(t, "Int", tt.String())

	require.NoError(t, resolver.ResolveAndMergeValues(rt, tree.Declarations, log))
	v, ok := rt.LocalValue("total")
	require.True(t, ok)
	assert.Equal(t, values.Int(41), v)

	v, ok = rt.StateValue("count")
	require.True(t, ok)
	assert.Equal(t, values.Int(20), v)
}

func TestResolveAndMerge_circular(t *testing.T) {
	tree, err := parser.ParseModule("let a = b + 1\nlet b = a + 1", nil)
	require.NoError(t, err)

	err = resolver.ResolveAndMergeTypes(runtime.New(), tree.Declarations, nil)
	require.Error(t, err)

	var circular *resolver.CircularDependencyError
	require.True(t, errors.As(err, &circular), "%v", err)
	assert.ElementsMatch(t, []string{"a", "b"}, circular.Chain)
}

func TestResolveAndMerge_outerScope(t *testing.T) {
	rt := runtime.New()
	rt.AddLocal("limit", types.LiteralInt{Value: 3}, values.Int(3))

	tree, err := parser.ParseModule("let twice = limit * 2", nil)
	require.NoError(t, err)

	module := rt.Child()
	require.NoError(t, resolver.ResolveAndMergeTypes(module, tree.Declarations, nil))
	require.NoError(t, resolver.ResolveAndMergeValues(module, tree.Declarations, nil))

	v, ok := module.LocalValue("twice")
	require.True(t, ok)
	assert.Equal(t, values.Int(6), v)

	_, ok = rt.LocalValue("twice")
	assert.False(t, ok)
}

func TestResolveAndMerge_collectsTypeErrors(t *testing.T) {
	tree, err := parser.ParseModule(`
		let a: String = 1
		let b: Int = "b"
	`, nil)
	require.NoError(t, err)

	err = resolver.ResolveAndMergeTypes(runtime.New(), tree.Declarations, nil)
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "%v", err)
	assert.Len(t, merr.Errors, 2)
}

func TestResolveAndMerge_skipsDependentsOfFailed(t *testing.T) {
	tree, err := parser.ParseModule(`
		let g = f + 1
		let f: Int = "x"
		let h = g * 2
		let ok = 1
	`, nil)
	require.NoError(t, err)

	rt := runtime.New()
	err = resolver.ResolveAndMergeTypes(rt, tree.Declarations, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "%v", err)
	require.Len(t, merr.Errors, 3)

	tests := []struct {
		name    string
		blocked []string
	}{
		{"g", []string{"f"}},
		{"h", []string{"g"}},
	}
	for i, tt := range tests {
		var unresolvable *resolver.UnresolvableError
		require.True(t, errors.As(merr.Errors[i+1], &unresolvable), "%v", merr.Errors[i+1])
		assert.Equal(t, tt.name, unresolvable.Name)
		assert.Equal(t, tt.blocked, unresolvable.Blocked)
	}
	assert.EqualError(t, merr.Errors[1], "g depends on unresolved f")

	_, ok := rt.LocalType("ok")
	assert.True(t, ok, "independent declarations still resolve")
}
