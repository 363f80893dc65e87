package ast

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Pattern 出现在 `switch` 的 case 与 `is` 的右侧。
type Pattern interface {
	Location() file.Location
	SetLocation(file.Location)

	// NarrowType 返回匹配成功时 subject 的类型，Never 表示不可能匹配。
	NarrowType(rt runtime.Runtime, subject types.Type) (types.Type, error)
	// Bindings 返回匹配成功时引入的名字，subject 是 NarrowType 的结果。
	Bindings(rt runtime.Runtime, subject types.Type) ([]runtime.Relationship, error)
	// Match 在运行时匹配，返回绑定的值。
	Match(rt runtime.Runtime, v values.Value) (bool, []runtime.Relationship, error)

	// Exhaustive 表示是否匹配只取决于类型：匹配失败时可以从 subject 中排除 NarrowType 的结果。
	Exhaustive() bool
	// Irrefutable 表示任何值都能匹配。
	Irrefutable() bool
	Names() []string
	Dependencies() *set.Set[string]
	ToCode() string
}

type (
	IgnorePattern struct {
		Base
	}

	// BindingPattern 匹配任意值并绑定到小写名字上。
	BindingPattern struct {
		Base
		Name string
	}

	LiteralPattern struct {
		Base
		Literal Expression
	}

	// TypePattern 按类型匹配，例如 `Int(>=0)` 或 `String | null`。
	TypePattern struct {
		Base
		Type Expression
	}

	// EnumCasePattern 是 `.name(p1, p2)`，会在 subject 的成员中寻找唯一拥有该 case 的枚举。
	EnumCasePattern struct {
		Base
		Name string
		Args []Pattern
	}

	// ArrayPattern 是 `[a, b, ...rest]`。
	ArrayPattern struct {
		Base
		Items   []Pattern
		Rest    string
		HasRest bool
	}
)

func assign(name string, t types.Type, v values.Value) runtime.Relationship {
	return runtime.Relationship{
		Formula:    runtime.ReferenceFormula{Name: name},
		Comparison: runtime.Assign,
		Type:       t,
		Value:      v,
	}
}

func (*IgnorePattern) NarrowType(_ runtime.Runtime, subject types.Type) (types.Type, error) {
	return subject, nil
}
func (*IgnorePattern) Bindings(runtime.Runtime, types.Type) ([]runtime.Relationship, error) {
	return nil, nil
}
func (*IgnorePattern) Match(runtime.Runtime, values.Value) (bool, []runtime.Relationship, error) {
	return true, nil, nil
}
func (*IgnorePattern) Exhaustive() bool               { return true }
func (*IgnorePattern) Irrefutable() bool              { return true }
func (*IgnorePattern) Names() []string                { return nil }
func (*IgnorePattern) Dependencies() *set.Set[string] { return set.New[string](0) }
func (*IgnorePattern) ToCode() string                 { return "_" }

func (*BindingPattern) NarrowType(_ runtime.Runtime, subject types.Type) (types.Type, error) {
	return subject, nil
}
func (p *BindingPattern) Bindings(_ runtime.Runtime, subject types.Type) ([]runtime.Relationship, error) {
	return []runtime.Relationship{assign(p.Name, subject, nil)}, nil
}
func (p *BindingPattern) Match(_ runtime.Runtime, v values.Value) (bool, []runtime.Relationship, error) {
	return true, []runtime.Relationship{assign(p.Name, nil, v)}, nil
}
func (*BindingPattern) Exhaustive() bool               { return true }
func (*BindingPattern) Irrefutable() bool              { return true }
func (p *BindingPattern) Names() []string              { return []string{p.Name} }
func (*BindingPattern) Dependencies() *set.Set[string] { return set.New[string](0) }
func (p *BindingPattern) ToCode() string               { return p.Name }

func (p *LiteralPattern) NarrowType(rt runtime.Runtime, subject types.Type) (types.Type, error) {
	t, err := p.Literal.GetType(rt)
	if err != nil {
		return nil, err
	}
	return types.NarrowTypeIs(subject, t), nil
}
func (*LiteralPattern) Bindings(runtime.Runtime, types.Type) ([]runtime.Relationship, error) {
	return nil, nil
}
func (p *LiteralPattern) Match(rt runtime.Runtime, v values.Value) (bool, []runtime.Relationship, error) {
	lit, err := p.Literal.Eval(rt)
	if err != nil {
		return false, nil, err
	}
	return values.Equal(lit, v), nil, nil
}
func (*LiteralPattern) Exhaustive() bool               { return true }
func (*LiteralPattern) Irrefutable() bool              { return false }
func (*LiteralPattern) Names() []string                { return nil }
func (*LiteralPattern) Dependencies() *set.Set[string] { return set.New[string](0) }
func (p *LiteralPattern) ToCode() string               { return p.Literal.ToCode() }

func (p *TypePattern) NarrowType(rt runtime.Runtime, subject types.Type) (types.Type, error) {
	t, err := ResolveType(rt, p.Type)
	if err != nil {
		return nil, err
	}
	return types.NarrowTypeIs(subject, t), nil
}
func (*TypePattern) Bindings(runtime.Runtime, types.Type) ([]runtime.Relationship, error) {
	return nil, nil
}
func (p *TypePattern) Match(rt runtime.Runtime, v values.Value) (bool, []runtime.Relationship, error) {
	t, err := ResolveType(rt, p.Type)
	if err != nil {
		return false, nil, err
	}
	return values.Conforms(v, t), nil, nil
}
func (*TypePattern) Exhaustive() bool                 { return true }
func (*TypePattern) Irrefutable() bool                { return false }
func (*TypePattern) Names() []string                  { return nil }
func (p *TypePattern) Dependencies() *set.Set[string] { return p.Type.Dependencies() }
func (p *TypePattern) ToCode() string                 { return p.Type.ToCode() }

// findCase 在 subject 的成员中寻找拥有该 case 的枚举；多个不同的枚举都有该 case 时报错。
func (p *EnumCasePattern) findCase(subject types.Type) (types.EnumCase, bool, error) {
	var found []types.EnumCase
	seen := set.New[string](0)
	for _, m := range types.Members(subject) {
		var c types.EnumCase
		switch m := m.(type) {
		case types.Enum:
			var ok bool
			if c, ok = m.Case(p.Name); !ok {
				continue
			}
		case types.EnumCase:
			if m.Name != p.Name {
				continue
			}
			c = m
		default:
			continue
		}
		if seen.Insert(c.Enum) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return types.EnumCase{}, false, nil
	case 1:
		c := found[0]
		if len(p.Args) > 0 && len(p.Args) != len(c.Args) {
			return c, false, Errorf(p, "case %s.%s takes %d arguments, pattern has %d", c.Enum, c.Name, len(c.Args), len(p.Args))
		}
		return c, true, nil
	}
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = c.Enum
	}
	return types.EnumCase{}, false, Errorf(p, "ambiguous case .%s, found in %s", p.Name, strings.Join(names, " and "))
}

func (p *EnumCasePattern) NarrowType(rt runtime.Runtime, subject types.Type) (types.Type, error) {
	c, ok, err := p.findCase(subject)
	if err != nil || !ok {
		return types.Never{}, err
	}
	for i, arg := range p.Args {
		t, err := arg.NarrowType(rt, c.Args[i].Type)
		if err != nil {
			return nil, err
		}
		if types.IsNever(t) {
			return types.Never{}, nil
		}
	}
	return c, nil
}

func (p *EnumCasePattern) Bindings(rt runtime.Runtime, subject types.Type) ([]runtime.Relationship, error) {
	c, ok, err := p.findCase(subject)
	if err != nil || !ok {
		return nil, err
	}
	var out []runtime.Relationship
	for i, arg := range p.Args {
		t, err := arg.NarrowType(rt, c.Args[i].Type)
		if err != nil {
			return nil, err
		}
		rels, err := arg.Bindings(rt, t)
		if err != nil {
			return nil, err
		}
		out = append(out, rels...)
	}
	return out, nil
}

func (p *EnumCasePattern) Match(rt runtime.Runtime, v values.Value) (bool, []runtime.Relationship, error) {
	ec, ok := v.(values.EnumCase)
	if !ok || ec.Case.Name != p.Name {
		return false, nil, nil
	}
	if len(p.Args) == 0 {
		return true, nil, nil
	}
	if len(p.Args) != len(ec.Args) {
		return false, nil, nil
	}
	var out []runtime.Relationship
	for i, arg := range p.Args {
		ok, rels, err := arg.Match(rt, ec.Args[i])
		if err != nil || !ok {
			return false, nil, err
		}
		out = append(out, rels...)
	}
	return true, out, nil
}

func (p *EnumCasePattern) Exhaustive() bool {
	for _, arg := range p.Args {
		if !arg.Irrefutable() {
			return false
		}
	}
	return true
}

func (*EnumCasePattern) Irrefutable() bool { return false }

func (p *EnumCasePattern) Names() []string {
	var out []string
	for _, arg := range p.Args {
		out = append(out, arg.Names()...)
	}
	return out
}

func (p *EnumCasePattern) Dependencies() *set.Set[string] { return patternDeps(p.Args) }

func (p *EnumCasePattern) ToCode() string {
	if len(p.Args) == 0 {
		return "." + p.Name
	}
	return "." + p.Name + "(" + patternList(p.Args) + ")"
}

func (p *ArrayPattern) lengthOp() string {
	if p.HasRest {
		return ">="
	}
	return "=="
}

func (p *ArrayPattern) NarrowType(rt runtime.Runtime, subject types.Type) (types.Type, error) {
	arrays := types.NarrowTypeIs(subject, types.Array{Of: types.All{}})
	arrays = types.NarrowLength(arrays, p.lengthOp(), len(p.Items))
	if types.IsNever(arrays) {
		return arrays, nil
	}
	of := elementOf(arrays)
	for _, item := range p.Items {
		t, err := item.NarrowType(rt, of)
		if err != nil {
			return nil, err
		}
		if types.IsNever(t) {
			return types.Never{}, nil
		}
	}
	return arrays, nil
}

func elementOf(t types.Type) types.Type {
	var of []types.Type
	for _, m := range types.Members(t) {
		switch m := m.(type) {
		case types.Array:
			of = append(of, m.Of)
		case types.All:
			of = append(of, types.All{})
		}
	}
	return types.OneOf(of...)
}

func (p *ArrayPattern) Bindings(rt runtime.Runtime, subject types.Type) ([]runtime.Relationship, error) {
	of := elementOf(subject)
	var out []runtime.Relationship
	for _, item := range p.Items {
		t, err := item.NarrowType(rt, of)
		if err != nil {
			return nil, err
		}
		rels, err := item.Bindings(rt, t)
		if err != nil {
			return nil, err
		}
		out = append(out, rels...)
	}
	if p.HasRest && p.Rest != "_" {
		rest := types.Length{}
		if l, ok := types.LengthOf(subject); ok {
			rest.Min = max(0, l.Min-len(p.Items))
			if l.Max != nil {
				rest.Max = types.Ptr(max(0, *l.Max-len(p.Items)))
			}
		}
		out = append(out, assign(p.Rest, types.Array{Of: of, Length: rest}, nil))
	}
	return out, nil
}

func (p *ArrayPattern) Match(rt runtime.Runtime, v values.Value) (bool, []runtime.Relationship, error) {
	arr, ok := v.(values.Array)
	if !ok || len(arr.Items) < len(p.Items) || (!p.HasRest && len(arr.Items) != len(p.Items)) {
		return false, nil, nil
	}
	var out []runtime.Relationship
	for i, item := range p.Items {
		ok, rels, err := item.Match(rt, arr.Items[i])
		if err != nil || !ok {
			return false, nil, err
		}
		out = append(out, rels...)
	}
	if p.HasRest && p.Rest != "_" {
		out = append(out, assign(p.Rest, nil, values.Array{Items: arr.Items[len(p.Items):]}))
	}
	return true, out, nil
}

func (*ArrayPattern) Exhaustive() bool  { return false }
func (*ArrayPattern) Irrefutable() bool { return false }

func (p *ArrayPattern) Names() []string {
	var out []string
	for _, item := range p.Items {
		out = append(out, item.Names()...)
	}
	if p.HasRest && p.Rest != "_" {
		out = append(out, p.Rest)
	}
	return out
}

func (p *ArrayPattern) Dependencies() *set.Set[string] { return patternDeps(p.Items) }

func (p *ArrayPattern) ToCode() string {
	code := patternList(p.Items)
	if p.HasRest {
		if code != "" {
			code += ", "
		}
		code += "..." + p.Rest
	}
	return "[" + code + "]"
}

func patternList(ps []Pattern) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.ToCode()
	}
	return strings.Join(parts, ", ")
}

func patternDeps(ps []Pattern) *set.Set[string] {
	out := set.New[string](0)
	for _, p := range ps {
		out.InsertSet(p.Dependencies())
	}
	return out
}

// MatchType 计算 pattern 匹配 subject 之后的作用域：subject 被收窄，绑定的名字被引入。
// 返回收窄后的类型，Never 表示不可能匹配。
func MatchType(rt runtime.Runtime, subject Expression, p Pattern) (runtime.Runtime, types.Type, error) {
	st, err := subject.GetType(rt)
	if err != nil {
		return rt, nil, err
	}
	return MatchTypeOf(rt, subject, st, p)
}

// MatchTypeOf 与 MatchType 相同，但 subject 的类型已经给出（switch 中逐步排除后的类型）。
func MatchTypeOf(rt runtime.Runtime, subject Expression, st types.Type, p Pattern) (runtime.Runtime, types.Type, error) {
	narrowed, err := p.NarrowType(rt, st)
	if err != nil {
		return rt, nil, err
	}
	out := rt
	if !types.IsNever(narrowed) {
		if out, err = subject.ReplaceWithType(rt, narrowed); err != nil {
			return rt, nil, err
		}
	}
	rels, err := p.Bindings(out, narrowed)
	if err != nil {
		return rt, nil, err
	}
	out, err = out.Assume(rels)
	if err != nil {
		return rt, nil, err
	}
	return out, narrowed, nil
}
