package types

import (
	"math"
	"regexp"
	"slices"
)

// CanBeAssignedTo 判断类型 t 的所有值是否都属于 dest。
func CanBeAssignedTo(t, dest Type) bool {
	switch d := dest.(type) {
	case All:
		return true
	case OneOfType:
		if u, ok := t.(OneOfType); ok {
			return allAssignable(u.Of, dest)
		}
		for _, m := range d.Of {
			if CanBeAssignedTo(t, m) {
				return true
			}
		}
		return canBeAssignedToUnion(t, d)
	}

	switch t := t.(type) {
	case Never:
		return true
	case OneOfType:
		return allAssignable(t.Of, dest)
	case All:
		return false
	case Null:
		return IsNull(dest)
	case LiteralBoolean:
		switch d := dest.(type) {
		case Boolean:
			return true
		case LiteralBoolean:
			return d.Value == t.Value
		}
	case Boolean:
		return IsBoolean(dest) && !isLiteralBool(dest)
	case LiteralInt:
		switch d := dest.(type) {
		case LiteralInt:
			return d.Value == t.Value
		case Int:
			return (d.Min == nil || *d.Min <= t.Value) && (d.Max == nil || t.Value <= *d.Max)
		case LiteralFloat:
			return float64(t.Value) == d.Value
		case Float:
			return floatInBounds(float64(t.Value), d)
		}
	case Int:
		switch d := dest.(type) {
		case Int:
			return (d.Min == nil || (t.Min != nil && *t.Min >= *d.Min)) &&
				(d.Max == nil || (t.Max != nil && *t.Max <= *d.Max))
		case Float:
			lo, hi := t.floatBounds()
			return boundAtLeast(lo, d.Min) && boundAtMost(hi, d.Max)
		}
	case LiteralFloat:
		switch d := dest.(type) {
		case LiteralFloat:
			return d.Value == t.Value || (math.IsNaN(d.Value) && math.IsNaN(t.Value))
		case Float:
			return math.IsNaN(t.Value) || floatInBounds(t.Value, d)
		}
	case Float:
		if d, ok := dest.(Float); ok {
			return boundAtLeast(t.Min, d.Min) && boundAtMost(t.Max, d.Max)
		}
	case LiteralString:
		switch d := dest.(type) {
		case LiteralString:
			return d.Value == t.Value
		case String:
			if !d.Length.Contains(len([]rune(t.Value))) {
				return false
			}
			for _, re := range d.Regexes {
				if !re.MatchString(t.Value) {
					return false
				}
			}
			return true
		}
	case String:
		if d, ok := dest.(String); ok {
			return t.Length.Within(d.Length) && regexesCover(t.Regexes, d.Regexes)
		}
	case Array:
		if d, ok := dest.(Array); ok {
			return t.Length.Within(d.Length) && CanBeAssignedTo(t.Of, d.Of)
		}
	case Set:
		if d, ok := dest.(Set); ok {
			return t.Length.Within(d.Length) && CanBeAssignedTo(t.Of, d.Of)
		}
	case Dict:
		if d, ok := dest.(Dict); ok {
			if !t.Length.Within(d.Length) || !CanBeAssignedTo(t.Of, d.Of) {
				return false
			}
			for _, name := range d.Names {
				if !slices.Contains(t.Names, name) {
					return false
				}
			}
			return true
		}
	case Object:
		if d, ok := dest.(Object); ok {
			if d.Name != "" && d.Name != t.Name {
				return false
			}
			for _, prop := range d.Props {
				have, ok := t.Prop(prop.Name)
				if !ok {
					if CanBeAssignedTo(Null{}, prop.Type) {
						continue
					}
					return false
				}
				if !CanBeAssignedTo(have, prop.Type) {
					return false
				}
			}
			return true
		}
	case Formula:
		if d, ok := dest.(Formula); ok {
			return formulaAssignable(t, d)
		}
	case Generic:
		if d, ok := dest.(Generic); ok {
			return d.ID == t.ID
		}
	case Enum:
		if d, ok := dest.(Enum); ok {
			return d.Name == t.Name
		}
	case EnumCase:
		switch d := dest.(type) {
		case Enum:
			_, ok := d.Case(t.Name)
			return ok && d.Name == t.Enum
		case EnumCase:
			return d.Enum == t.Enum && d.Name == t.Name
		}
	case Meta:
		if d, ok := dest.(Meta); ok {
			return Equal(t.Of, d.Of)
		}
	case Namespace:
		if d, ok := dest.(Namespace); ok {
			return d.Name == t.Name
		}
	case View:
		_, ok := dest.(View)
		return ok
	}
	return false
}

func allAssignable(ts []Type, dest Type) bool {
	for _, m := range ts {
		if !CanBeAssignedTo(m, dest) {
			return false
		}
	}
	return true
}

// canBeAssignedToUnion 处理 Boolean -> true | false 以及枚举被所有 case 覆盖的情况。
func canBeAssignedToUnion(t Type, dest OneOfType) bool {
	switch t := t.(type) {
	case Boolean:
		return CanBeAssignedTo(LiteralBoolean{true}, dest) && CanBeAssignedTo(LiteralBoolean{false}, dest)
	case Enum:
		for _, c := range t.Cases {
			if !CanBeAssignedTo(c, dest) {
				return false
			}
		}
		return len(t.Cases) > 0
	}
	return false
}

func isLiteralBool(t Type) bool {
	_, ok := t.(LiteralBoolean)
	return ok
}

func formulaAssignable(t, d Formula) bool {
	if !CanBeAssignedTo(t.Return, d.Return) && !hasGenerics(d.Return) && !hasGenerics(t.Return) {
		return false
	}
	if t.RequiredCount() > len(d.Args) && !hasSpread(d) {
		return false
	}
	for i, arg := range d.Args {
		if i >= len(t.Args) {
			if hasSpread(t) {
				break
			}
			return false
		}
		mine := t.Args[i]
		if hasGenerics(mine.Type) || hasGenerics(arg.Type) {
			continue
		}
		// 参数逆变
		if !CanBeAssignedTo(arg.Type, mine.Type) {
			return false
		}
	}
	return true
}

func hasSpread(f Formula) bool {
	for _, a := range f.Args {
		if a.Spread != NoSpread {
			return true
		}
	}
	return false
}

func hasGenerics(t Type) bool {
	return len(FreeGenerics(t)) > 0
}

func regexesCover(have, want []*regexp.Regexp) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h.String() == w.String() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (t Int) floatBounds() (lo, hi *FloatBound) {
	if t.Min != nil {
		lo = &FloatBound{Value: float64(*t.Min)}
	}
	if t.Max != nil {
		hi = &FloatBound{Value: float64(*t.Max)}
	}
	return lo, hi
}

func floatInBounds(v float64, d Float) bool {
	if d.Min != nil && (v < d.Min.Value || (d.Min.Exclusive && v == d.Min.Value)) {
		return false
	}
	if d.Max != nil && (v > d.Max.Value || (d.Max.Exclusive && v == d.Max.Value)) {
		return false
	}
	return true
}

// boundAtLeast: 下界 have 是否不低于 want。
func boundAtLeast(have, want *FloatBound) bool {
	if want == nil {
		return true
	}
	if have == nil {
		return false
	}
	if have.Value != want.Value {
		return have.Value > want.Value
	}
	return have.Exclusive || !want.Exclusive
}

// boundAtMost: 上界 have 是否不高于 want。
func boundAtMost(have, want *FloatBound) bool {
	if want == nil {
		return true
	}
	if have == nil {
		return false
	}
	if have.Value != want.Value {
		return have.Value < want.Value
	}
	return have.Exclusive || !want.Exclusive
}

// CompatibleWithBothTypes 返回能同时容纳 a 与 b 的类型（join）。
// 同类的区间类型合并边界，否则退回到联合类型。
func CompatibleWithBothTypes(a, b Type) Type {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case CanBeAssignedTo(a, b):
		return b
	case CanBeAssignedTo(b, a):
		return a
	}
	switch a := a.(type) {
	case Int:
		if b, ok := b.(Int); ok {
			return Int{Min: lowerInt(a.Min, b.Min), Max: upperInt(a.Max, b.Max)}
		}
	case Float:
		if b, ok := b.(Float); ok {
			return Float{Min: lowerFloat(a.Min, b.Min), Max: upperFloat(a.Max, b.Max)}
		}
	case String:
		if b, ok := b.(String); ok {
			return String{Length: a.Length.Union(b.Length)}
		}
	case Array:
		if b, ok := b.(Array); ok {
			return Array{Of: CompatibleWithBothTypes(a.Of, b.Of), Length: a.Length.Union(b.Length)}
		}
	case Set:
		if b, ok := b.(Set); ok {
			return Set{Of: CompatibleWithBothTypes(a.Of, b.Of), Length: a.Length.Union(b.Length)}
		}
	case Dict:
		if b, ok := b.(Dict); ok {
			return Dict{Of: CompatibleWithBothTypes(a.Of, b.Of), Length: a.Length.Union(b.Length), Names: intersectNames(a.Names, b.Names)}
		}
	}
	return OneOf(a, b)
}

func lowerInt(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	return Ptr(min(*a, *b))
}

func upperInt(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	return Ptr(max(*a, *b))
}

func lowerFloat(a, b *FloatBound) *FloatBound {
	if a == nil || b == nil {
		return nil
	}
	if boundAtLeast(a, b) {
		return b
	}
	return a
}

func upperFloat(a, b *FloatBound) *FloatBound {
	if a == nil || b == nil {
		return nil
	}
	if boundAtMost(a, b) {
		return b
	}
	return a
}

func intersectNames(a, b []string) []string {
	var out []string
	for _, n := range a {
		if slices.Contains(b, n) {
			out = append(out, n)
		}
	}
	return out
}

// Widen 把字面量类型放宽为其基础类型。
func Widen(t Type) Type {
	switch t := t.(type) {
	case LiteralBoolean:
		return Boolean{}
	case LiteralInt:
		return Int{}
	case LiteralFloat:
		return Float{}
	case LiteralString:
		return String{}
	case Int:
		return Int{}
	case Float:
		return Float{}
	case String:
		return String{}
	case OneOfType:
		return Map(t, Widen)
	}
	return t
}
