package operators

import (
	"fmt"
	"strings"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// equality 是 == 与 !=，任意两种类型之间都可以比较。
type equality struct {
	cmp runtime.Comparison
}

func (e equality) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	if types.IsLiteral(lt) && types.IsLiteral(rt) {
		lv, _ := types.LiteralValue(lt)
		rv, _ := types.LiteralValue(rt)
		same := literalEqual(lv, rv)
		return types.LiteralBoolean{Value: same == (e.cmp == runtime.Eq)}, nil
	}
	return types.Boolean{}, nil
}

// literalEqual 按数值比较 1 与 1.0。
func literalEqual(a, b any) bool {
	switch a := a.(type) {
	case int64:
		if b, ok := b.(float64); ok {
			return float64(a) == b
		}
	case float64:
		if b, ok := b.(int64); ok {
			return a == float64(b)
		}
	}
	return a == b
}

func (e equality) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	return values.Boolean(values.Equal(lv, rv) == (e.cmp == runtime.Eq)), nil
}

func (e equality) trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	return compareFacts(rt, o, e.cmp), nil
}

func (e equality) falseStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	return compareFacts(rt, o, e.cmp.Invert()), nil
}

// comparison 是 < <= > >=，只能比较数字与数字、字符串与字符串。
type comparison struct {
	cmp runtime.Comparison
}

func (c comparison) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	switch {
	case types.IsAll(lt) || types.IsAll(rt):
		return types.Boolean{}, nil
	case types.IsNumber(lt) && types.IsNumber(rt):
	case types.IsString(lt) && types.IsString(rt):
	default:
		return nil, fmt.Errorf("cannot compare %s %s %s", lt, c.cmp, rt)
	}
	lv, lok := types.LiteralValue(lt)
	rv, rok := types.LiteralValue(rt)
	if lok && rok {
		res, err := compareValues(c.cmp, literalToValue(lv), literalToValue(rv))
		if err == nil {
			return types.LiteralBoolean{Value: res}, nil
		}
	}
	return types.Boolean{}, nil
}

func literalToValue(v any) values.Value {
	switch v := v.(type) {
	case int64:
		return values.Int(v)
	case float64:
		return values.Float(v)
	case string:
		return values.String(v)
	case bool:
		return values.Boolean(v)
	}
	return values.Null{}
}

func (c comparison) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	res, err := compareValues(c.cmp, lv, rv)
	if err != nil {
		return nil, err
	}
	return values.Boolean(res), nil
}

func compareValues(cmp runtime.Comparison, lv, rv values.Value) (bool, error) {
	var order int
	switch l := lv.(type) {
	case values.String:
		r, ok := rv.(values.String)
		if !ok {
			return false, fmt.Errorf("cannot compare %s %s %s", lv, cmp, rv)
		}
		order = strings.Compare(string(l), string(r))
	default:
		if values.IsNaN(lv) || values.IsNaN(rv) {
			return false, nil
		}
		li, lok := lv.(values.Int)
		ri, rok := rv.(values.Int)
		if lok && rok {
			order = compareOrdered(li, ri)
			break
		}
		lf, lok := toFloat(lv)
		rf, rok := toFloat(rv)
		if !lok || !rok {
			return false, fmt.Errorf("cannot compare %s %s %s", lv, cmp, rv)
		}
		order = compareOrdered(lf, rf)
	}
	switch cmp {
	case runtime.Lt:
		return order < 0, nil
	case runtime.Le:
		return order <= 0, nil
	case runtime.Gt:
		return order > 0, nil
	case runtime.Ge:
		return order >= 0, nil
	}
	return false, fmt.Errorf("unknown comparison %s", cmp)
}

func compareOrdered[T values.Int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (c comparison) trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	return compareFacts(rt, o, c.cmp), nil
}

func (c comparison) falseStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	return compareFacts(rt, o, c.cmp.Invert()), nil
}

// compareFacts 为 `lhs <cmp> rhs` 生成两个方向的事实：
// lhs 是可收窄的项时收窄 lhs，rhs 是可收窄的项时以翻转的比较符收窄 rhs。
// `x.length > 0` 会经由属性公式收窄 x 的长度。
func compareFacts(rt runtime.Runtime, o *BinaryOperation, cmp runtime.Comparison) []runtime.Relationship {
	var rels []runtime.Relationship
	lf, lok := o.Lhs.RelationshipFormula(rt)
	rf, rok := o.Rhs.RelationshipFormula(rt)
	if lok && !isLiteralFormula(lf) {
		if rel, ok := fact(rt, lf, cmp, rf, rok, o.Rhs); ok {
			rels = append(rels, rel)
		}
	}
	if rok && !isLiteralFormula(rf) {
		if rel, ok := fact(rt, rf, cmp.Flip(), lf, lok, o.Lhs); ok {
			rels = append(rels, rel)
		}
	}
	return rels
}

func fact(rt runtime.Runtime, f runtime.Formula, cmp runtime.Comparison, other runtime.Formula, hasOther bool, otherExpr ast.Expression) (runtime.Relationship, bool) {
	rel := runtime.Relationship{Formula: f, Comparison: cmp}
	if hasOther {
		rel.Right = other
		return rel, true
	}
	t, err := otherExpr.GetType(rt)
	if err != nil {
		return rel, false
	}
	rel.Type = t
	return rel, true
}

func isLiteralFormula(f runtime.Formula) bool {
	_, ok := f.(runtime.LiteralFormula)
	return ok
}
