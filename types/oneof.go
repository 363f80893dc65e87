package types

// OneOf 构造联合类型：
//   - 嵌套的联合会被展开；
//   - 结构相同的成员去重，保持首次出现的顺序；
//   - Never 被丢弃，任意成员为 All 时结果为 All；
//   - 只剩一个成员时直接返回该成员，没有成员时返回 Never。
func OneOf(ts ...Type) Type {
	var out []Type
	seen := map[string]struct{}{}
	var add func(t Type) bool
	add = func(t Type) bool {
		switch t := t.(type) {
		case nil, Never:
			return true
		case All:
			return false
		case OneOfType:
			for _, m := range t.Of {
				if !add(m) {
					return false
				}
			}
			return true
		}
		k := key(t)
		if _, ok := seen[k]; ok {
			return true
		}
		seen[k] = struct{}{}
		out = append(out, t)
		return true
	}
	for _, t := range ts {
		if !add(t) {
			return All{}
		}
	}
	switch len(out) {
	case 0:
		return Never{}
	case 1:
		return out[0]
	}
	return OneOfType{Of: out}
}

// Members 返回联合类型的成员；非联合类型返回自身；Never 返回空。
func Members(t Type) []Type {
	switch t := t.(type) {
	case OneOfType:
		return t.Of
	case Never:
		return nil
	}
	return []Type{t}
}

// Map 对每个成员调用 fn 并重新合并。
func Map(t Type, fn func(Type) Type) Type {
	if u, ok := t.(OneOfType); ok {
		out := make([]Type, 0, len(u.Of))
		for _, m := range u.Of {
			out = append(out, fn(m))
		}
		return OneOf(out...)
	}
	return fn(t)
}
