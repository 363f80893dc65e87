package types

import (
	"math"
	"regexp"
	"slices"
	"sort"
)

// NarrowTypeIs 计算 t 与 is 的交集，对应 `x is T` 成立时 x 的类型。
func NarrowTypeIs(t, is Type) Type {
	switch {
	case IsAll(t):
		return is
	case IsAll(is):
		return t
	}
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return NarrowTypeIs(m, is) })
	}
	if u, ok := is.(OneOfType); ok {
		out := make([]Type, 0, len(u.Of))
		for _, m := range u.Of {
			out = append(out, NarrowTypeIs(t, m))
		}
		return OneOf(out...)
	}
	if CanBeAssignedTo(t, is) {
		return t
	}
	if CanBeAssignedTo(is, t) {
		return is
	}

	switch t := t.(type) {
	case Boolean:
		return Never{}
	case Int:
		switch is := is.(type) {
		case Int:
			return IntRange(higherInt(t.Min, is.Min), lowerIntBound(t.Max, is.Max))
		case Float:
			return intWithinFloat(t, is)
		}
	case Float:
		switch is := is.(type) {
		case Float:
			return FloatRange(tighterMin(t.Min, is.Min), tighterMax(t.Max, is.Max))
		case Int:
			return intWithinFloat(is, t)
		case LiteralInt:
			if floatInBounds(float64(is.Value), t) {
				return is
			}
		}
	case String:
		if is, ok := is.(String); ok {
			regexes := slices.Clone(t.Regexes)
			for _, re := range is.Regexes {
				if !regexesCover(regexes, []*regexp.Regexp{re}) {
					regexes = append(regexes, re)
				}
			}
			return WithLength(String{Length: t.Length, Regexes: regexes}, t.Length.Intersect(is.Length))
		}
	case Array:
		if is, ok := is.(Array); ok {
			of := NarrowTypeIs(t.Of, is.Of)
			length := t.Length.Intersect(is.Length)
			if IsNever(of) && length.Min > 0 {
				return Never{}
			}
			return WithLength(Array{Of: of}, length)
		}
	case Set:
		if is, ok := is.(Set); ok {
			return WithLength(Set{Of: NarrowTypeIs(t.Of, is.Of)}, t.Length.Intersect(is.Length))
		}
	case Dict:
		if is, ok := is.(Dict); ok {
			names := slices.Clone(t.Names)
			for _, n := range is.Names {
				if !slices.Contains(names, n) {
					names = append(names, n)
				}
			}
			sort.Strings(names)
			return WithLength(Dict{Of: NarrowTypeIs(t.Of, is.Of), Names: names}, t.Length.Intersect(is.Length))
		}
	case Object:
		if is, ok := is.(Object); ok {
			if t.Name != "" && is.Name != "" && t.Name != is.Name {
				return Never{}
			}
			out := Object{Name: t.Name, Props: slices.Clone(t.Props)}
			if out.Name == "" {
				out.Name = is.Name
			}
			for _, p := range is.Props {
				have, ok := out.Prop(p.Name)
				if !ok {
					out.Props = append(out.Props, p)
					continue
				}
				narrowed := NarrowTypeIs(have, p.Type)
				if IsNever(narrowed) {
					return Never{}
				}
				out = ReplacingProp(out, p.Name, narrowed).(Object)
			}
			return out
		}
	}
	return Never{}
}

func intWithinFloat(t Int, f Float) Type {
	lo, hi := t.Min, t.Max
	if f.Min != nil {
		v := math.Ceil(f.Min.Value)
		if f.Min.Exclusive && v == f.Min.Value {
			v++
		}
		lo = higherInt(lo, Ptr(int64(v)))
	}
	if f.Max != nil {
		v := math.Floor(f.Max.Value)
		if f.Max.Exclusive && v == f.Max.Value {
			v--
		}
		hi = lowerIntBound(hi, Ptr(int64(v)))
	}
	return IntRange(lo, hi)
}

func higherInt(a, b *int64) *int64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return Ptr(max(*a, *b))
}

func lowerIntBound(a, b *int64) *int64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return Ptr(min(*a, *b))
}

func tighterMin(a, b *FloatBound) *FloatBound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	if boundAtLeast(a, b) {
		return a
	}
	return b
}

func tighterMax(a, b *FloatBound) *FloatBound {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	if boundAtMost(a, b) {
		return a
	}
	return b
}

// NarrowTypeIsNot 从 t 中排除 not，对应 `x is T` 不成立时 x 的类型。
// 只有能精确表达的排除才会收窄，其余情况保持 t 不变。
func NarrowTypeIsNot(t, not Type) Type {
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return NarrowTypeIsNot(m, not) })
	}
	if u, ok := not.(OneOfType); ok {
		for _, m := range u.Of {
			t = NarrowTypeIsNot(t, m)
		}
		return t
	}
	if CanBeAssignedTo(t, not) {
		return Never{}
	}
	switch t := t.(type) {
	case Boolean:
		if lit, ok := not.(LiteralBoolean); ok {
			return LiteralBoolean{Value: !lit.Value}
		}
	case Int:
		if lit, ok := not.(LiteralInt); ok {
			if t.Min != nil && *t.Min == lit.Value {
				return IntRange(Ptr(lit.Value+1), t.Max)
			}
			if t.Max != nil && *t.Max == lit.Value {
				return IntRange(t.Min, Ptr(lit.Value-1))
			}
		}
	case Enum:
		var rest []Type
		for _, c := range t.Cases {
			if !CanBeAssignedTo(c, not) {
				rest = append(rest, c)
			}
		}
		if len(rest) < len(t.Cases) {
			return OneOf(rest...)
		}
	}
	return t
}

// NarrowCompare 依据 `x <op> rhs` 成立收窄 x 的类型，op 为 == != < <= > >=。
func NarrowCompare(t Type, op string, rhs Type) Type {
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return NarrowCompare(m, op, rhs) })
	}
	switch op {
	case "==":
		if IsLiteral(rhs) || isSingleton(rhs) {
			if lit, ok := rhs.(LiteralInt); ok && IsFloat(t) {
				return NarrowTypeIs(t, LiteralFloat{Value: float64(lit.Value)})
			}
			return NarrowTypeIs(t, rhs)
		}
		if IsNumber(t) && IsNumber(rhs) {
			return NarrowTypeIs(t, Widen(rhs))
		}
		return t
	case "!=":
		if IsLiteral(rhs) || isSingleton(rhs) {
			return NarrowTypeIsNot(t, rhs)
		}
		return t
	}
	if !IsNumber(t) {
		return t
	}
	lo, hi, ok := numericBounds(rhs)
	if !ok {
		return t
	}
	switch t := t.(type) {
	case LiteralInt:
		if compareHolds(float64(t.Value), op, lo, hi) {
			return t
		}
		return Never{}
	case LiteralFloat:
		if compareHolds(t.Value, op, lo, hi) {
			return t
		}
		return Never{}
	case Int:
		return NarrowTypeIs(t, compareFloatRange(op, lo, hi))
	case Float:
		return NarrowTypeIs(t, compareFloatRange(op, lo, hi))
	}
	return t
}

func isSingleton(t Type) bool {
	switch t := t.(type) {
	case EnumCase:
		return len(t.Args) == 0
	}
	return false
}

// numericBounds 返回 rhs 的数值下界与上界（nil 表示无界）。
func numericBounds(t Type) (lo, hi *FloatBound, ok bool) {
	switch t := t.(type) {
	case LiteralInt:
		b := &FloatBound{Value: float64(t.Value)}
		return b, b, true
	case LiteralFloat:
		if math.IsNaN(t.Value) {
			return nil, nil, false
		}
		b := &FloatBound{Value: t.Value}
		return b, b, true
	case Int:
		lo, hi := t.floatBounds()
		return lo, hi, true
	case Float:
		return t.Min, t.Max, true
	}
	return nil, nil, false
}

// compareFloatRange 构造满足 `x <op> rhs` 的最宽区间：
// x > rhs 需要 x 大于 rhs 的下界（rhs 至少这么大）。
func compareFloatRange(op string, lo, hi *FloatBound) Type {
	switch op {
	case ">":
		if lo == nil {
			return Float{}
		}
		return Float{Min: &FloatBound{Value: lo.Value, Exclusive: true}}
	case ">=":
		if lo == nil {
			return Float{}
		}
		return Float{Min: &FloatBound{Value: lo.Value, Exclusive: lo.Exclusive}}
	case "<":
		if hi == nil {
			return Float{}
		}
		return Float{Max: &FloatBound{Value: hi.Value, Exclusive: true}}
	case "<=":
		if hi == nil {
			return Float{}
		}
		return Float{Max: &FloatBound{Value: hi.Value, Exclusive: hi.Exclusive}}
	}
	return Float{}
}

func compareHolds(v float64, op string, lo, hi *FloatBound) bool {
	switch op {
	case ">":
		return lo == nil || v > lo.Value
	case ">=":
		return lo == nil || v >= lo.Value
	case "<":
		return hi == nil || v < hi.Value
	case "<=":
		return hi == nil || v <= hi.Value
	}
	return true
}

// InvertComparison 返回 `!(a op b)` 对应的比较符。
func InvertComparison(op string) string {
	switch op {
	case "==":
		return "!="
	case "!=":
		return "=="
	case "<":
		return ">="
	case "<=":
		return ">"
	case ">":
		return "<="
	case ">=":
		return "<"
	}
	return op
}

// FlipComparison 交换左右操作数：`a < b` 等价于 `b > a`。
func FlipComparison(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

// NarrowLength 依据 `x.length <op> n` 收窄字符串或容器类型。
func NarrowLength(t Type, op string, n int) Type {
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return NarrowLength(m, op, n) })
	}
	l, ok := LengthOf(t)
	if !ok {
		return t
	}
	return WithLength(t, l.Narrow(op, n))
}

// NarrowNames 依据 `x has "name"`（present）或 `x !has "name"` 收窄。
func NarrowNames(t Type, name string, present bool) Type {
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return NarrowNames(m, name, present) })
	}
	switch t := t.(type) {
	case Dict:
		if !present {
			if slices.Contains(t.Names, name) {
				return Never{}
			}
			return t
		}
		if slices.Contains(t.Names, name) {
			return t
		}
		names := append(slices.Clone(t.Names), name)
		sort.Strings(names)
		out := Dict{Of: t.Of, Names: names}
		return WithLength(out, t.Length.Intersect(AtLeast(len(names))))
	case Object:
		_, has := t.Prop(name)
		if has != present {
			return Never{}
		}
	case Namespace:
		_, has := t.Member(name)
		if has != present {
			return Never{}
		}
	}
	return t
}

// NarrowRegex 依据 `x matches re` 收窄字符串类型。
func NarrowRegex(t Type, re *regexp.Regexp) Type {
	if _, ok := t.(OneOfType); ok {
		return Map(t, func(m Type) Type { return NarrowRegex(m, re) })
	}
	switch t := t.(type) {
	case LiteralString:
		if re.MatchString(t.Value) {
			return t
		}
		return Never{}
	case String:
		if regexesCover(t.Regexes, []*regexp.Regexp{re}) {
			return t
		}
		return String{Length: t.Length, Regexes: append(slices.Clone(t.Regexes), re)}
	case All:
		return String{Regexes: []*regexp.Regexp{re}}
	}
	return Never{}
}

// ToTruthyType 返回 t 中所有真值组成的类型。
// null、false、0、0.0、"" 与 NaN 为假值，容器永远为真值。
func ToTruthyType(t Type) Type {
	switch t := t.(type) {
	case OneOfType:
		return Map(t, ToTruthyType)
	case Null:
		return Never{}
	case Boolean:
		return LiteralBoolean{Value: true}
	case LiteralBoolean:
		if t.Value {
			return t
		}
		return Never{}
	case LiteralInt:
		if t.Value == 0 {
			return Never{}
		}
		return t
	case Int:
		return NarrowTypeIsNot(t, LiteralInt{})
	case LiteralFloat:
		if t.Value == 0 || math.IsNaN(t.Value) {
			return Never{}
		}
		return t
	case LiteralString:
		if t.Value == "" {
			return Never{}
		}
		return t
	case String:
		return WithLength(t, t.Length.Intersect(AtLeast(1)))
	}
	return t
}

// ToFalseyType 返回 t 中所有假值组成的类型。
func ToFalseyType(t Type) Type {
	switch t := t.(type) {
	case OneOfType:
		return Map(t, ToFalseyType)
	case All:
		return t
	case Null:
		return t
	case Boolean:
		return LiteralBoolean{Value: false}
	case LiteralBoolean:
		if t.Value {
			return Never{}
		}
		return t
	case LiteralInt:
		if t.Value == 0 {
			return t
		}
		return Never{}
	case Int:
		return NarrowTypeIs(t, LiteralInt{})
	case LiteralFloat:
		if t.Value == 0 || math.IsNaN(t.Value) {
			return t
		}
		return Never{}
	case Float:
		// NaN 也是假值，无法用字面量表达
		return t
	case LiteralString:
		if t.Value == "" {
			return t
		}
		return Never{}
	case String:
		if t.Length.Min > 0 {
			return Never{}
		}
		return LiteralString{}
	case Generic:
		return t
	}
	return Never{}
}
