package types

import (
	"fmt"
	"strings"
)

// Length 记录字符串或容器已知的长度区间，Max 为 nil 表示无上界。
type Length struct {
	Min int
	Max *int
}

func Exactly(n int) Length {
	return Length{Min: n, Max: &n}
}

func AtLeast(n int) Length {
	return Length{Min: n}
}

func Between(min, max int) Length {
	return Length{Min: min, Max: &max}
}

func (l Length) IsZero() bool {
	return l.Min == 0 && l.Max == nil
}

// Empty 表示区间不可能满足（min > max）。
func (l Length) Empty() bool {
	return l.Max != nil && *l.Max < l.Min
}

func (l Length) Exact() (int, bool) {
	if l.Max != nil && *l.Max == l.Min {
		return l.Min, true
	}
	return 0, false
}

func (l Length) Contains(n int) bool {
	return n >= l.Min && (l.Max == nil || n <= *l.Max)
}

// Within 判断 l 是否完全落在 outer 中。
func (l Length) Within(outer Length) bool {
	if l.Min < outer.Min {
		return false
	}
	if outer.Max == nil {
		return true
	}
	return l.Max != nil && *l.Max <= *outer.Max
}

func (l Length) Intersect(other Length) Length {
	out := Length{Min: max(l.Min, other.Min), Max: l.Max}
	if other.Max != nil && (out.Max == nil || *other.Max < *out.Max) {
		out.Max = other.Max
	}
	return out
}

// Union 返回同时覆盖两个区间的最小区间。
func (l Length) Union(other Length) Length {
	out := Length{Min: min(l.Min, other.Min)}
	if l.Max != nil && other.Max != nil {
		out.Max = Ptr(max(*l.Max, *other.Max))
	}
	return out
}

// Add 两个长度相加，用于数组拼接。
func (l Length) Add(other Length) Length {
	out := Length{Min: l.Min + other.Min}
	if l.Max != nil && other.Max != nil {
		out.Max = Ptr(*l.Max + *other.Max)
	}
	return out
}

// Narrow 依据 `length <op> n` 收窄区间。
func (l Length) Narrow(op string, n int) Length {
	switch op {
	case "==":
		return l.Intersect(Exactly(n))
	case ">":
		return l.Intersect(AtLeast(n + 1))
	case ">=":
		return l.Intersect(AtLeast(n))
	case "<":
		return l.Intersect(Length{Max: Ptr(n - 1)})
	case "<=":
		return l.Intersect(Length{Max: Ptr(n)})
	case "!=":
		if n == l.Min {
			return Length{Min: l.Min + 1, Max: l.Max}
		}
		if l.Max != nil && n == *l.Max {
			return Length{Min: l.Min, Max: Ptr(n - 1)}
		}
	}
	return l
}

// AsInt 把长度区间转换成 Int 类型，用于 `x.length`。
func (l Length) AsInt() Type {
	var hi *int64
	if l.Max != nil {
		hi = Ptr(int64(*l.Max))
	}
	return IntRange(Ptr(int64(l.Min)), hi)
}

// LengthFromInt 是 AsInt 的逆操作，负数下界按 0 处理。
func LengthFromInt(t Type) (Length, bool) {
	switch t := t.(type) {
	case LiteralInt:
		if t.Value < 0 {
			return Length{Min: 1, Max: Ptr(0)}, true
		}
		return Exactly(int(t.Value)), true
	case Int:
		out := Length{}
		if t.Min != nil && *t.Min > 0 {
			out.Min = int(*t.Min)
		}
		if t.Max != nil {
			out.Max = Ptr(int(*t.Max))
		}
		return out, true
	}
	return Length{}, false
}

func (l Length) String() string {
	if n, ok := l.Exact(); ok {
		return fmt.Sprintf("=%d", n)
	}
	var parts []string
	if l.Min > 0 {
		parts = append(parts, fmt.Sprintf(">=%d", l.Min))
	}
	if l.Max != nil {
		parts = append(parts, fmt.Sprintf("<=%d", *l.Max))
	}
	return strings.Join(parts, ", ")
}
