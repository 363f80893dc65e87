package types

func IsNever(t Type) bool {
	_, ok := t.(Never)
	return ok
}

func IsAll(t Type) bool {
	_, ok := t.(All)
	return ok
}

func IsNull(t Type) bool {
	_, ok := t.(Null)
	return ok
}

func IsBoolean(t Type) bool {
	switch t.(type) {
	case Boolean, LiteralBoolean:
		return true
	}
	return false
}

func IsInt(t Type) bool {
	switch t.(type) {
	case Int, LiteralInt:
		return true
	}
	return false
}

func IsFloat(t Type) bool {
	switch t.(type) {
	case Float, LiteralFloat:
		return true
	}
	return false
}

func IsNumber(t Type) bool {
	return IsInt(t) || IsFloat(t)
}

func IsString(t Type) bool {
	switch t.(type) {
	case String, LiteralString:
		return true
	}
	return false
}

func IsArray(t Type) bool {
	_, ok := t.(Array)
	return ok
}

func IsDict(t Type) bool {
	_, ok := t.(Dict)
	return ok
}

func IsSet(t Type) bool {
	_, ok := t.(Set)
	return ok
}

func IsObject(t Type) bool {
	_, ok := t.(Object)
	return ok
}

func IsFormula(t Type) bool {
	_, ok := t.(Formula)
	return ok
}

func IsLiteral(t Type) bool {
	switch t.(type) {
	case Null, LiteralBoolean, LiteralInt, LiteralFloat, LiteralString:
		return true
	}
	return false
}

// Every 对联合类型的每个成员检查 pred；非联合类型等价于直接调用 pred。
// Never 没有成员，结果为 false。
func Every(t Type, pred func(Type) bool) bool {
	members := Members(t)
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if !pred(m) {
			return false
		}
	}
	return true
}

// Some 判断联合类型是否至少有一个成员满足 pred。
func Some(t Type, pred func(Type) bool) bool {
	for _, m := range Members(t) {
		if pred(m) {
			return true
		}
	}
	return false
}

// LiteralValue 返回字面量类型对应的 Go 值。
func LiteralValue(t Type) (any, bool) {
	switch t := t.(type) {
	case Null:
		return nil, true
	case LiteralBoolean:
		return t.Value, true
	case LiteralInt:
		return t.Value, true
	case LiteralFloat:
		return t.Value, true
	case LiteralString:
		return t.Value, true
	}
	return nil, false
}

// LengthOf 返回字符串和容器类型已知的长度区间。
func LengthOf(t Type) (Length, bool) {
	switch t := t.(type) {
	case String:
		return t.Length, true
	case LiteralString:
		return Exactly(len([]rune(t.Value))), true
	case Array:
		return t.Length, true
	case Dict:
		return t.Length, true
	case Set:
		return t.Length, true
	}
	return Length{}, false
}

// WithLength 替换容器的长度区间；区间为空时返回 Never。
func WithLength(t Type, l Length) Type {
	if l.Empty() {
		return Never{}
	}
	switch t := t.(type) {
	case String:
		t.Length = l
		return t
	case LiteralString:
		if !l.Contains(len([]rune(t.Value))) {
			return Never{}
		}
		return t
	case Array:
		t.Length = l
		return t
	case Dict:
		if len(t.Names) > 0 && l.Max != nil && *l.Max < len(t.Names) {
			return Never{}
		}
		t.Length = l
		return t
	case Set:
		t.Length = l
		return t
	}
	return t
}
