package operators

import (
	"fmt"
	"math"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// arithmetic 实现 + - * / // % **。
//
// 除以零（/、//、%）在求值时得到 NaN，任何一侧为 NaN 时结果也是 NaN。
// `//` 的类型总是 Int，NaN 是这里唯一的例外。
type arithmetic struct {
	op string
}

func (a arithmetic) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	if types.IsAll(lt) || types.IsAll(rt) {
		switch a.op {
		case "/":
			return types.Float{}, nil
		case "//":
			return types.Int{}, nil
		}
		return types.OneOf(types.Int{}, types.Float{}), nil
	}
	if !types.IsNumber(lt) || !types.IsNumber(rt) {
		return nil, fmt.Errorf("cannot apply %s to %s and %s", a.op, lt, rt)
	}

	if folded, ok := a.fold(lt, rt); ok {
		return folded, nil
	}

	switch a.op {
	case "/":
		return types.Float{}, nil
	case "//":
		return types.Int{}, nil
	case "**":
		if types.IsInt(lt) && types.CanBeAssignedTo(rt, types.Int{Min: types.Ptr[int64](0)}) {
			return types.Int{}, nil
		}
		return types.Float{}, nil
	}
	if !types.IsInt(lt) || !types.IsInt(rt) {
		return types.Float{}, nil
	}

	llo, lhi := intBounds(lt)
	rlo, rhi := intBounds(rt)
	switch a.op {
	case "+":
		return types.IntRange(addBound(llo, rlo), addBound(lhi, rhi)), nil
	case "-":
		return types.IntRange(subBound(llo, rhi), subBound(lhi, rlo)), nil
	case "*":
		if llo != nil && rlo != nil && *llo >= 0 && *rlo >= 0 {
			var hi *int64
			if lhi != nil && rhi != nil {
				product := *lhi * *rhi
				hi = &product
			}
			lo := *llo * *rlo
			return types.IntRange(&lo, hi), nil
		}
	case "%":
		// 取模采用向下取整语义，除数为正时结果落在 [0, 除数)
		if rlo != nil && *rlo > 0 {
			var hi *int64
			if rhi != nil {
				hi = types.Ptr(*rhi - 1)
			}
			return types.IntRange(types.Ptr[int64](0), hi), nil
		}
	}
	return types.Int{}, nil
}

// fold 对两个字面量直接求值。`//` 与 `%` 除以零时不折叠，类型仍为 Int。
func (a arithmetic) fold(lt, rt types.Type) (types.Type, bool) {
	lv, ok := literalNumber(lt)
	if !ok {
		return nil, false
	}
	rv, ok := literalNumber(rt)
	if !ok {
		return nil, false
	}
	if (a.op == "//" || a.op == "%") && isZero(rv) {
		return nil, false
	}
	v, err := evalArithmetic(a.op, lv, rv)
	if err != nil {
		return nil, false
	}
	return v.Type(), true
}

func (a arithmetic) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	return evalArithmetic(a.op, lv, rv)
}

func literalNumber(t types.Type) (values.Value, bool) {
	switch t := t.(type) {
	case types.LiteralInt:
		return values.Int(t.Value), true
	case types.LiteralFloat:
		return values.Float(t.Value), true
	}
	return nil, false
}

func isZero(v values.Value) bool {
	switch v := v.(type) {
	case values.Int:
		return v == 0
	case values.Float:
		return v == 0
	}
	return false
}

func evalArithmetic(op string, lv, rv values.Value) (values.Value, error) {
	if values.IsNaN(lv) || values.IsNaN(rv) {
		return values.NaN, nil
	}
	li, lok := lv.(values.Int)
	ri, rok := rv.(values.Int)
	if lok && rok {
		return intArithmetic(op, int64(li), int64(ri)), nil
	}
	lf, ok := toFloat(lv)
	if !ok {
		return nil, fmt.Errorf("cannot apply %s to %s", op, lv)
	}
	rf, ok := toFloat(rv)
	if !ok {
		return nil, fmt.Errorf("cannot apply %s to %s", op, rv)
	}
	return floatArithmetic(op, lf, rf), nil
}

func toFloat(v values.Value) (float64, bool) {
	switch v := v.(type) {
	case values.Int:
		return float64(v), true
	case values.Float:
		return float64(v), true
	}
	return 0, false
}

func intArithmetic(op string, a, b int64) values.Value {
	switch op {
	case "+":
		return values.Int(a + b)
	case "-":
		return values.Int(a - b)
	case "*":
		return values.Int(a * b)
	case "/":
		if b == 0 {
			return values.NaN
		}
		return values.Float(float64(a) / float64(b))
	case "//":
		if b == 0 {
			return values.NaN
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return values.Int(q)
	case "%":
		if b == 0 {
			return values.NaN
		}
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return values.Int(r)
	case "**":
		if b < 0 {
			return values.Float(math.Pow(float64(a), float64(b)))
		}
		return values.Int(intPow(a, b))
	}
	panic(fmt.Sprintf("unknown arithmetic operator %s", op))
}

// intPow 用平方求幂，溢出时与连乘一样按 int64 回绕。
func intPow(a, b int64) int64 {
	out := int64(1)
	for b > 0 {
		if b&1 == 1 {
			out *= a
		}
		a *= a
		b >>= 1
	}
	return out
}

func floatArithmetic(op string, a, b float64) values.Value {
	switch op {
	case "+":
		return values.Float(a + b)
	case "-":
		return values.Float(a - b)
	case "*":
		return values.Float(a * b)
	case "/":
		if b == 0 {
			return values.NaN
		}
		return values.Float(a / b)
	case "//":
		if b == 0 {
			return values.NaN
		}
		q := math.Floor(a / b)
		// NaN、无穷大以及超出 Int 范围的商没有对应的 Int
		if math.IsNaN(q) || q < math.MinInt64 || q >= -math.MinInt64 {
			return values.NaN
		}
		return values.Int(int64(q))
	case "%":
		if b == 0 {
			return values.NaN
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return values.Float(r)
	case "**":
		return values.Float(math.Pow(a, b))
	}
	panic(fmt.Sprintf("unknown arithmetic operator %s", op))
}

func intBounds(t types.Type) (lo, hi *int64) {
	switch t := t.(type) {
	case types.LiteralInt:
		return types.Ptr(t.Value), types.Ptr(t.Value)
	case types.Int:
		return t.Min, t.Max
	}
	return nil, nil
}

func addBound(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	return types.Ptr(*a + *b)
}

func subBound(a, b *int64) *int64 {
	if a == nil || b == nil {
		return nil
	}
	return types.Ptr(*a - *b)
}
