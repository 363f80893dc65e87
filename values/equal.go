package values

import "github.com/formula-lang/formula/types"

// Equal 按结构比较两个值。NaN 与任何值都不相等；Int 与 Float 按数值比较。
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Boolean:
		b, ok := b.(Boolean)
		return ok && a == b
	case Int:
		switch b := b.(type) {
		case Int:
			return a == b
		case Float:
			return float64(a) == float64(b)
		}
	case Float:
		switch b := b.(type) {
		case Int:
			return float64(a) == float64(b)
		case Float:
			return a == b
		}
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Array:
		b, ok := b.(Array)
		return ok && equalSlices(a.Items, b.Items)
	case Set:
		b, ok := b.(Set)
		if !ok || len(a.Items) != len(b.Items) {
			return false
		}
		for _, item := range a.Items {
			if !b.Contains(item) {
				return false
			}
		}
		return true
	case Dict:
		b, ok := b.(Dict)
		if !ok || len(a.Entries) != len(b.Entries) {
			return false
		}
		for _, e := range a.Entries {
			other, ok := b.Get(e.Key)
			if !ok || !Equal(e.Value, other) {
				return false
			}
		}
		return true
	case Object:
		b, ok := b.(Object)
		if !ok || a.Name != b.Name || len(a.Props) != len(b.Props) {
			return false
		}
		for _, p := range a.Props {
			other, ok := b.Prop(p.Name)
			if !ok || !Equal(p.Value, other) {
				return false
			}
		}
		return true
	case EnumCase:
		b, ok := b.(EnumCase)
		return ok && a.Case.Enum == b.Case.Enum && a.Case.Name == b.Case.Name && equalSlices(a.Args, b.Args)
	case TypeValue:
		b, ok := b.(TypeValue)
		return ok && a.Of.Equal(b.Of)
	case Namespace:
		b, ok := b.(Namespace)
		return ok && a.Name == b.Name
	}
	return false
}

func equalSlices(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// IsTruthy：null、false、0、0.0、"" 与 NaN 为假值，其余（包括空容器）为真值。
func IsTruthy(v Value) bool {
	switch v := v.(type) {
	case nil, Null:
		return false
	case Boolean:
		return bool(v)
	case Int:
		return v != 0
	case Float:
		return v != 0 && !IsNaN(v)
	case String:
		return v != ""
	}
	return true
}

// Conforms 是运行时的 instance-of 判断。
func Conforms(v Value, t types.Type) bool {
	return types.CanBeAssignedTo(v.Type(), t)
}
