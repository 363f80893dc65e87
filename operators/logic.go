package operators

import (
	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// and 短路求值：右侧在左侧为真的假设下做类型检查，也在左侧的绑定中求值。
type and struct{}

func (a and) wholeType(rt runtime.Runtime, o *BinaryOperation) (types.Type, error) {
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	trueRt, err := ast.AssumeTrue(rt, o.Lhs)
	if err != nil {
		return nil, ast.Bubble(err, o)
	}
	if types.IsNever(types.ToTruthyType(lt)) {
		return lt, nil
	}
	rT, err := o.Rhs.GetType(trueRt)
	if err != nil {
		return nil, err
	}
	return a.operatorType(rt, lt, rT, o.Lhs, o.Rhs)
}

// operatorType 合并两侧的类型，rt 是右侧在左侧为真的假设下得到的类型。
func (and) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	return types.OneOf(types.ToFalseyType(lt), rt), nil
}

func (and) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	if !values.IsTruthy(lv) {
		return lv, nil
	}
	return rhs()
}

// evalBinding 在左侧的绑定中对右侧求值，两侧都为真时返回右侧的绑定。
func (a and) evalBinding(rt runtime.Runtime, o *BinaryOperation) (values.Value, runtime.Runtime, error) {
	lv, lrt, err := ast.EvalBinding(rt, o.Lhs)
	if err != nil {
		return nil, rt, err
	}
	out := rt
	v, err := a.operatorEval(lrt, lv, func() (values.Value, error) {
		rv, rrt, err := ast.EvalBinding(lrt, o.Rhs)
		if err == nil && values.IsTruthy(rv) {
			out = rrt
		}
		return rv, err
	}, o.Lhs, o.Rhs)
	if err != nil {
		return nil, rt, err
	}
	return v, out, nil
}

// `a and b` 为真时 a 与 b 都为真。
func (and) trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	lhs, err := o.Lhs.GimmeTrueStuff(rt)
	if err != nil {
		return nil, err
	}
	trueRt, err := rt.Assume(lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := o.Rhs.GimmeTrueStuff(trueRt)
	if err != nil {
		return nil, err
	}
	return append(lhs, rhs...), nil
}

// `a and b` 为假时只有在 a 必然为真的情况下才能推出 b 为假。
func (and) falseStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	lt, err := o.Lhs.GetType(rt)
	if err != nil || !types.IsNever(types.ToFalseyType(lt)) {
		return nil, nil
	}
	return o.Rhs.GimmeFalseStuff(rt)
}

// or 与 and 对称：右侧在左侧为假的假设下做类型检查。
type or struct{}

func (r or) wholeType(rt runtime.Runtime, o *BinaryOperation) (types.Type, error) {
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	if types.IsNever(types.ToFalseyType(lt)) {
		return lt, nil
	}
	falseRt, err := ast.AssumeFalse(rt, o.Lhs)
	if err != nil {
		return nil, ast.Bubble(err, o)
	}
	rT, err := o.Rhs.GetType(falseRt)
	if err != nil {
		return nil, err
	}
	return r.operatorType(rt, lt, rT, o.Lhs, o.Rhs)
}

// operatorType 合并两侧的类型，rt 是右侧在左侧为假的假设下得到的类型。
func (or) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	return types.OneOf(types.ToTruthyType(lt), rt), nil
}

func (or) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	if values.IsTruthy(lv) {
		return lv, nil
	}
	return rhs()
}

func (or) trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	lt, err := o.Lhs.GetType(rt)
	if err != nil || !types.IsNever(types.ToTruthyType(lt)) {
		return nil, nil
	}
	return o.Rhs.GimmeTrueStuff(rt)
}

// `a or b` 为假时 a 与 b 都为假。
func (or) falseStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	lhs, err := o.Lhs.GimmeFalseStuff(rt)
	if err != nil {
		return nil, err
	}
	falseRt, err := rt.Assume(lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := o.Rhs.GimmeFalseStuff(falseRt)
	if err != nil {
		return nil, err
	}
	return append(lhs, rhs...), nil
}

// coalesce 是 `??`：左侧为 null 时才计算右侧。
type coalesce struct{}

func (coalesce) wholeType(rt runtime.Runtime, o *BinaryOperation) (types.Type, error) {
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	rT, err := o.Rhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	return coalesce{}.operatorType(rt, lt, rT, o.Lhs, o.Rhs)
}

func (coalesce) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	if types.IsAll(lt) {
		return lt, nil
	}
	if !types.Some(lt, types.IsNull) {
		return lt, nil
	}
	return types.CompatibleWithBothTypes(types.NarrowTypeIsNot(lt, types.Null{}), rt), nil
}

func (coalesce) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	if _, ok := lv.(values.Null); ok || lv == nil {
		return rhs()
	}
	return lv, nil
}
