package types

// Substitute 用 m 中已解析的类型替换 t 中出现的泛型参数。
func Substitute(t Type, m map[int64]Type) Type {
	if len(m) == 0 || t == nil {
		return t
	}
	switch t := t.(type) {
	case Generic:
		if r, ok := m[t.ID]; ok && r != nil {
			return r
		}
		return t
	case Array:
		return Array{Of: Substitute(t.Of, m), Length: t.Length}
	case Set:
		return Set{Of: Substitute(t.Of, m), Length: t.Length}
	case Dict:
		return Dict{Of: Substitute(t.Of, m), Length: t.Length, Names: t.Names}
	case Object:
		props := make([]Prop, len(t.Props))
		for i, p := range t.Props {
			props[i] = Prop{Name: p.Name, Type: Substitute(p.Type, m)}
		}
		return Object{Name: t.Name, Props: props}
	case Formula:
		args := make([]Argument, len(t.Args))
		for i, a := range t.Args {
			a.Type = Substitute(a.Type, m)
			args[i] = a
		}
		var generics []Generic
		for _, g := range t.Generics {
			if r, ok := m[g.ID]; !ok || r == nil {
				generics = append(generics, g)
			}
		}
		return Formula{Generics: generics, Args: args, Return: Substitute(t.Return, m)}
	case OneOfType:
		return Map(t, func(x Type) Type { return Substitute(x, m) })
	case Meta:
		return Meta{Of: Substitute(t.Of, m), Constructor: t.Constructor}
	}
	return t
}

// ResolveGenerics 把实参类型 arg 与形参类型 param 对齐，记录泛型的解析结果。
// 同一个泛型多次出现时取 join。
func ResolveGenerics(param, arg Type, m map[int64]Type) {
	if param == nil || arg == nil {
		return
	}
	switch p := param.(type) {
	case Generic:
		if _, ok := m[p.ID]; !ok {
			return
		}
		if IsNever(arg) {
			return
		}
		m[p.ID] = CompatibleWithBothTypes(m[p.ID], arg)
	case Array:
		switch a := arg.(type) {
		case Array:
			ResolveGenerics(p.Of, a.Of, m)
		case Set:
			ResolveGenerics(p.Of, a.Of, m)
		}
	case Set:
		if a, ok := arg.(Set); ok {
			ResolveGenerics(p.Of, a.Of, m)
		}
	case Dict:
		if a, ok := arg.(Dict); ok {
			ResolveGenerics(p.Of, a.Of, m)
		}
	case Object:
		if a, ok := arg.(Object); ok {
			for _, prop := range p.Props {
				if have, ok := a.Prop(prop.Name); ok {
					ResolveGenerics(prop.Type, have, m)
				}
			}
		}
	case Formula:
		if a, ok := arg.(Formula); ok {
			for i := range p.Args {
				if i < len(a.Args) {
					ResolveGenerics(p.Args[i].Type, a.Args[i].Type, m)
				}
			}
			ResolveGenerics(p.Return, a.Return, m)
		}
	case OneOfType:
		// T | null 之类：剔除非泛型成员后再解析
		var generic []Type
		rest := arg
		for _, member := range p.Of {
			if len(FreeGenerics(member)) > 0 {
				generic = append(generic, member)
			} else {
				rest = NarrowTypeIsNot(rest, member)
			}
		}
		if len(generic) == 1 {
			ResolveGenerics(generic[0], rest, m)
		}
	}
	if u, ok := arg.(OneOfType); ok {
		if _, ok := param.(OneOfType); !ok {
			if _, ok := param.(Generic); !ok {
				for _, member := range u.Of {
					ResolveGenerics(param, member, m)
				}
			}
		}
	}
}

// FreeGenerics 返回 t 中出现的所有泛型参数（按出现顺序去重）。
func FreeGenerics(t Type) []Generic {
	var out []Generic
	seen := map[int64]bool{}
	var walk func(Type)
	walk = func(t Type) {
		switch t := t.(type) {
		case Generic:
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		case Array:
			walk(t.Of)
		case Set:
			walk(t.Of)
		case Dict:
			walk(t.Of)
		case Object:
			for _, p := range t.Props {
				walk(p.Type)
			}
		case Formula:
			for _, a := range t.Args {
				walk(a.Type)
			}
			walk(t.Return)
		case OneOfType:
			for _, m := range t.Of {
				walk(m)
			}
		}
	}
	walk(t)
	return out
}
