package types

import (
	"fmt"
	"slices"
	"sort"
)

// PropType 返回 `t.name` 的类型。联合类型要求每个成员都有该属性。
func PropType(t Type, name string) (Type, bool) {
	if u, ok := t.(OneOfType); ok {
		out := make([]Type, 0, len(u.Of))
		for _, m := range u.Of {
			p, ok := PropType(m, name)
			if !ok {
				return nil, false
			}
			out = append(out, p)
		}
		return OneOf(out...), true
	}
	switch t := t.(type) {
	case All:
		return All{}, true
	case Object:
		return t.Prop(name)
	case Namespace:
		return t.Member(name)
	case Dict:
		if name == "length" {
			return t.Length.AsInt(), true
		}
		if slices.Contains(t.Names, name) {
			return t.Of, true
		}
		return Optional(t.Of), true
	case Meta:
		if e, ok := t.Of.(Enum); ok {
			c, ok := e.Case(name)
			if !ok {
				return nil, false
			}
			if len(c.Args) == 0 {
				return c, true
			}
			return Formula{Args: c.Args, Return: c}, true
		}
	}
	if name == "length" {
		if l, ok := LengthOf(t); ok {
			return l.AsInt(), true
		}
	}
	return nil, false
}

// PropNames 列出 t 上可访问的属性名，用于错误提示。
func PropNames(t Type) []string {
	var names []string
	switch t := t.(type) {
	case Object:
		for _, p := range t.Props {
			names = append(names, p.Name)
		}
	case Namespace:
		for _, p := range t.Members {
			names = append(names, p.Name)
		}
	case Dict:
		names = append(names, t.Names...)
	case Meta:
		if e, ok := t.Of.(Enum); ok {
			for _, c := range e.Cases {
				names = append(names, c.Name)
			}
		}
	}
	if _, ok := LengthOf(t); ok {
		names = append(names, "length")
	}
	return names
}

// ReplacingProp 返回把 `t.name` 替换为 prop 之后的 t，用于属性链上的收窄回写。
// 对 length 的替换会与原有长度区间取交集；不可能满足的联合成员会被丢弃。
func ReplacingProp(t Type, name string, prop Type) Type {
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return ReplacingProp(m, name, prop) })
	}
	if IsNever(prop) {
		return Never{}
	}
	if name == "length" {
		if l, ok := LengthOf(t); ok {
			narrowed, ok := LengthFromInt(prop)
			if !ok {
				return t
			}
			return WithLength(t, l.Intersect(narrowed))
		}
	}
	switch t := t.(type) {
	case Object:
		props := slices.Clone(t.Props)
		for i, p := range props {
			if p.Name == name {
				props[i] = Prop{Name: name, Type: prop}
				return Object{Name: t.Name, Props: props}
			}
		}
		return Object{Name: t.Name, Props: append(props, Prop{Name: name, Type: prop})}
	case Dict:
		if !CanBeAssignedTo(Null{}, prop) && !slices.Contains(t.Names, name) {
			names := append(slices.Clone(t.Names), name)
			sort.Strings(names)
			return Dict{Of: t.Of, Length: t.Length.Intersect(AtLeast(len(names))), Names: names}
		}
	}
	return t
}

// IndexType 返回 `t[index]` 的类型；越界可能时结果包含 null。
func IndexType(t Type, index Type) (Type, error) {
	if u, ok := t.(OneOfType); ok {
		out := make([]Type, 0, len(u.Of))
		for _, m := range u.Of {
			r, err := IndexType(m, index)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return OneOf(out...), nil
	}
	switch t := t.(type) {
	case All:
		return All{}, nil
	case Array:
		if !CanBeAssignedTo(index, Int{}) {
			return nil, fmt.Errorf("array index must be Int, got %s", index)
		}
		if lit, ok := index.(LiteralInt); ok && lit.Value >= 0 && int(lit.Value) < t.Length.Min {
			return t.Of, nil
		}
		return Optional(t.Of), nil
	case Dict:
		if !Every(index, isKeyType) {
			return nil, fmt.Errorf("dict key must be a String, Int or Boolean, got %s", index)
		}
		if lit, ok := index.(LiteralString); ok && slices.Contains(t.Names, lit.Value) {
			return t.Of, nil
		}
		return Optional(t.Of), nil
	case String, LiteralString:
		if !CanBeAssignedTo(index, Int{}) {
			return nil, fmt.Errorf("string index must be Int, got %s", index)
		}
		return Optional(String{Length: Exactly(1)}), nil
	case Object:
		if lit, ok := index.(LiteralString); ok {
			if p, ok := t.Prop(lit.Value); ok {
				return p, nil
			}
			return nil, fmt.Errorf("property %q does not exist on %s", lit.Value, t)
		}
	}
	return nil, fmt.Errorf("cannot index %s with %s", t, index)
}

func isKeyType(t Type) bool {
	return IsString(t) || IsInt(t) || IsBoolean(t)
}
