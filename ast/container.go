package ast

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type (
	// Spread 是容器字面量与调用参数中的 `...value`。
	Spread struct {
		Base
		Value Expression
	}

	ArrayExpression struct {
		Base
		Items []Expression
	}

	// SetExpression 是 `#[a, b]`。
	SetExpression struct {
		Base
		Items []Expression
	}

	// DictExpression 是 `#{"a": 1, (key): 2, ...other}`。
	DictExpression struct {
		Base
		Entries []DictEntry
	}

	DictEntry struct {
		Key    Expression // Spread 条目为 nil
		Value  Expression
		Spread bool
	}

	// ObjectExpression 是 `{a: 1, b, ...other}`。
	ObjectExpression struct {
		Base
		Props []ObjectProp
	}

	ObjectProp struct {
		Name   string // Spread 条目为空
		Value  Expression
		Spread bool
	}
)

func (e *Spread) GetType(rt runtime.Runtime) (types.Type, error) { return e.Value.GetType(rt) }
func (e *Spread) Eval(rt runtime.Runtime) (values.Value, error)  { return e.Value.Eval(rt) }
func (e *Spread) Dependencies() *set.Set[string]                 { return e.Value.Dependencies() }
func (e *Spread) ToCode() string                                 { return "..." + e.Value.ToCode() }
func (e *Spread) ToLisp() string                                 { return "(... " + e.Value.ToLisp() + ")" }
func (e *Spread) Children() []Expression                         { return []Expression{e.Value} }

// spreadable 返回被展开的集合的元素类型和长度；联合类型的每个成员都必须可以展开。
func spreadable(e Expression, t types.Type) (types.Type, types.Length, bool, error) {
	var of types.Type
	var length types.Length
	fromSet := true
	for i, m := range types.Members(t) {
		var mo types.Type
		var ml types.Length
		switch m := m.(type) {
		case types.Array:
			mo, ml, fromSet = m.Of, m.Length, false
		case types.Set:
			mo, ml = m.Of, m.Length
		case types.All:
			mo, ml, fromSet = types.All{}, types.Length{}, false
		default:
			return nil, length, false, Errorf(e, "cannot spread %s", m)
		}
		of = types.CompatibleWithBothTypes(of, mo)
		if i == 0 {
			length = ml
		} else {
			length = length.Union(ml)
		}
	}
	if of == nil {
		of = types.Never{}
	}
	return of, length, fromSet, nil
}

func spreadItems(e Expression, v values.Value) ([]values.Value, error) {
	switch v := v.(type) {
	case values.Array:
		return v.Items, nil
	case values.Set:
		return v.Items, nil
	}
	return nil, Errorf(e, "cannot spread %s", v)
}

func (e *ArrayExpression) GetType(rt runtime.Runtime) (types.Type, error) {
	var of types.Type
	length := types.Exactly(0)
	for _, item := range e.Items {
		t, err := item.GetType(rt)
		if err != nil {
			return nil, err
		}
		if _, ok := item.(*Spread); ok {
			so, sl, _, err := spreadable(item, t)
			if err != nil {
				return nil, err
			}
			of = types.CompatibleWithBothTypes(of, so)
			length = length.Add(sl)
			continue
		}
		of = types.CompatibleWithBothTypes(of, t)
		length = length.Add(types.Exactly(1))
	}
	if of == nil {
		of = types.Never{}
	}
	return types.Array{Of: of, Length: length}, nil
}

func (e *ArrayExpression) Eval(rt runtime.Runtime) (values.Value, error) {
	items, err := evalItems(rt, e.Items)
	if err != nil {
		return nil, err
	}
	return values.Array{Items: items}, nil
}

func evalItems(rt runtime.Runtime, exprs []Expression) ([]values.Value, error) {
	items := make([]values.Value, 0, len(exprs))
	for _, item := range exprs {
		v, err := item.Eval(rt)
		if err != nil {
			return nil, err
		}
		if _, ok := item.(*Spread); ok {
			spread, err := spreadItems(item, v)
			if err != nil {
				return nil, err
			}
			items = append(items, spread...)
			continue
		}
		items = append(items, v)
	}
	return items, nil
}

func (e *ArrayExpression) Dependencies() *set.Set[string] { return Deps(e.Items...) }
func (e *ArrayExpression) ToCode() string                 { return "[" + codeList(e.Items) + "]" }
func (e *ArrayExpression) ToLisp() string                 { return lispList("array", e.Items) }
func (e *ArrayExpression) Children() []Expression         { return e.Items }

// GetType 中只有不重复的字面量可以确定最小长度；
// 非字面量元素可能彼此相等，只能提高最大长度。
func (e *SetExpression) GetType(rt runtime.Runtime) (types.Type, error) {
	var of types.Type
	literals := set.New[string](len(e.Items))
	lower, nonLiteral := 0, 0
	upper := types.Ptr(0)
	for _, item := range e.Items {
		t, err := item.GetType(rt)
		if err != nil {
			return nil, err
		}
		if _, ok := item.(*Spread); ok {
			so, sl, fromSet, err := spreadable(item, t)
			if err != nil {
				return nil, err
			}
			of = types.CompatibleWithBothTypes(of, so)
			if fromSet {
				lower = max(lower, sl.Min)
			} else if sl.Min > 0 {
				lower = max(lower, 1)
			}
			if upper != nil && sl.Max != nil {
				*upper += *sl.Max
			} else {
				upper = nil
			}
			continue
		}
		of = types.CompatibleWithBothTypes(of, t)
		if types.IsLiteral(t) {
			if literals.Insert(t.String()) && upper != nil {
				*upper++
			}
			continue
		}
		nonLiteral++
		if upper != nil {
			*upper++
		}
	}
	lower = max(lower, literals.Size())
	if nonLiteral > 0 {
		lower = max(lower, 1)
	}
	if of == nil {
		of = types.Never{}
	}
	return types.Set{Of: of, Length: types.Length{Min: lower, Max: upper}}, nil
}

func (e *SetExpression) Eval(rt runtime.Runtime) (values.Value, error) {
	items, err := evalItems(rt, e.Items)
	if err != nil {
		return nil, err
	}
	return values.NewSet(items...), nil
}

func (e *SetExpression) Dependencies() *set.Set[string] { return Deps(e.Items...) }
func (e *SetExpression) ToCode() string                 { return "#[" + codeList(e.Items) + "]" }
func (e *SetExpression) ToLisp() string                 { return lispList("set", e.Items) }
func (e *SetExpression) Children() []Expression         { return e.Items }

func (e *DictExpression) GetType(rt runtime.Runtime) (types.Type, error) {
	var of types.Type
	names := set.New[string](len(e.Entries))
	lower, unknown := 0, 0
	upper := types.Ptr(0)
	for _, entry := range e.Entries {
		vt, err := entry.Value.GetType(rt)
		if err != nil {
			return nil, err
		}
		if entry.Spread {
			dicts := types.Members(vt)
			for _, m := range dicts {
				switch m := m.(type) {
				case types.Dict:
					of = types.CompatibleWithBothTypes(of, m.Of)
					lower = max(lower, m.Length.Min)
					if upper != nil && m.Length.Max != nil {
						*upper += *m.Length.Max
					} else {
						upper = nil
					}
					if len(dicts) == 1 {
						names.InsertSlice(m.Names)
					}
				case types.All:
					of, upper = types.All{}, nil
				default:
					return nil, Errorf(entry.Value, "cannot spread %s into a dict", m)
				}
			}
			continue
		}
		kt, err := entry.Key.GetType(rt)
		if err != nil {
			return nil, err
		}
		if !isDictKey(kt) {
			return nil, Errorf(entry.Key, "invalid dict key type %s", kt)
		}
		of = types.CompatibleWithBothTypes(of, vt)
		if lit, ok := kt.(types.LiteralString); ok {
			if names.Insert(lit.Value) && upper != nil {
				*upper++
			}
			continue
		}
		unknown++
		if upper != nil {
			*upper++
		}
	}
	lower = max(lower, names.Size())
	if unknown > 0 {
		lower = max(lower, 1)
	}
	if of == nil {
		of = types.Never{}
	}
	sorted := names.Slice()
	sort.Strings(sorted)
	if len(sorted) == 0 {
		sorted = nil
	}
	return types.Dict{Of: of, Length: types.Length{Min: lower, Max: upper}, Names: sorted}, nil
}

func isDictKey(t types.Type) bool {
	return types.Every(t, func(m types.Type) bool {
		return types.IsString(m) || types.IsNumber(m) || types.IsBoolean(m) || types.IsNull(m) || types.IsAll(m)
	})
}

func (e *DictExpression) Eval(rt runtime.Runtime) (values.Value, error) {
	out := values.Dict{}
	for _, entry := range e.Entries {
		v, err := entry.Value.Eval(rt)
		if err != nil {
			return nil, err
		}
		if entry.Spread {
			d, ok := v.(values.Dict)
			if !ok {
				return nil, Errorf(entry.Value, "cannot spread %s into a dict", v)
			}
			out = values.Merge(out, d)
			continue
		}
		k, err := entry.Key.Eval(rt)
		if err != nil {
			return nil, err
		}
		out = out.With(k, v)
	}
	return out, nil
}

func (e *DictExpression) Dependencies() *set.Set[string] { return Deps(e.Children()...) }

func (e *DictExpression) ToCode() string {
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		switch {
		case entry.Spread:
			parts[i] = "..." + entry.Value.ToCode()
		case isStringLiteral(entry.Key):
			parts[i] = entry.Key.ToCode() + ": " + entry.Value.ToCode()
		default:
			parts[i] = "(" + entry.Key.ToCode() + "): " + entry.Value.ToCode()
		}
	}
	return "#{" + strings.Join(parts, ", ") + "}"
}

func isStringLiteral(e Expression) bool {
	_, ok := e.(*StringLiteral)
	return ok
}

func (e *DictExpression) ToLisp() string {
	parts := make([]string, len(e.Entries))
	for i, entry := range e.Entries {
		if entry.Spread {
			parts[i] = "(... " + entry.Value.ToLisp() + ")"
		} else {
			parts[i] = "(" + entry.Key.ToLisp() + " " + entry.Value.ToLisp() + ")"
		}
	}
	return "(dict " + strings.Join(parts, " ") + ")"
}

func (e *DictExpression) Children() []Expression {
	var out []Expression
	for _, entry := range e.Entries {
		if entry.Key != nil {
			out = append(out, entry.Key)
		}
		out = append(out, entry.Value)
	}
	return out
}

func (e *ObjectExpression) GetType(rt runtime.Runtime) (types.Type, error) {
	var props []types.Prop
	for _, p := range e.Props {
		t, err := p.Value.GetType(rt)
		if err != nil {
			return nil, err
		}
		if !p.Spread {
			props = setProp(props, types.Prop{Name: p.Name, Type: t})
			continue
		}
		switch t := t.(type) {
		case types.Object:
			for _, sp := range t.Props {
				props = setProp(props, sp)
			}
		default:
			return nil, Errorf(p.Value, "cannot spread %s into an object", t)
		}
	}
	return types.Object{Props: props}, nil
}

func setProp(props []types.Prop, p types.Prop) []types.Prop {
	for i, existing := range props {
		if existing.Name == p.Name {
			props = slices.Clone(props)
			props[i] = p
			return props
		}
	}
	return append(props, p)
}

func (e *ObjectExpression) Eval(rt runtime.Runtime) (values.Value, error) {
	out := values.Object{}
	for _, p := range e.Props {
		v, err := p.Value.Eval(rt)
		if err != nil {
			return nil, err
		}
		if !p.Spread {
			out = values.MergeObjects(out, values.Object{Props: []values.Prop{{Name: p.Name, Value: v}}})
			continue
		}
		o, ok := v.(values.Object)
		if !ok {
			return nil, Errorf(p.Value, "cannot spread %s into an object", v)
		}
		out = values.MergeObjects(out, values.Object{Props: o.Props})
	}
	return out, nil
}

func (e *ObjectExpression) Dependencies() *set.Set[string] { return Deps(e.Children()...) }

func (e *ObjectExpression) ToCode() string {
	parts := make([]string, len(e.Props))
	for i, p := range e.Props {
		switch {
		case p.Spread:
			parts[i] = "..." + p.Value.ToCode()
		case isReferenceTo(p.Value, p.Name):
			parts[i] = p.Name
		default:
			parts[i] = p.Name + ": " + p.Value.ToCode()
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func isReferenceTo(e Expression, name string) bool {
	r, ok := e.(*Reference)
	return ok && r.Name == name
}

func (e *ObjectExpression) ToLisp() string {
	parts := make([]string, len(e.Props))
	for i, p := range e.Props {
		if p.Spread {
			parts[i] = "(... " + p.Value.ToLisp() + ")"
		} else {
			parts[i] = fmt.Sprintf("(%s %s)", p.Name, p.Value.ToLisp())
		}
	}
	return "(object " + strings.Join(parts, " ") + ")"
}

func (e *ObjectExpression) Children() []Expression {
	out := make([]Expression, len(e.Props))
	for i, p := range e.Props {
		out[i] = p.Value
	}
	return out
}

func codeList(items []Expression) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.ToCode()
	}
	return strings.Join(parts, ", ")
}

func lispList(head string, items []Expression) string {
	parts := []string{head}
	for _, item := range items {
		parts = append(parts, item.ToLisp())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
