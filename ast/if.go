package ast

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// If 的 then 分支在假设条件为真的作用域中计算，else 分支在假设条件为假的作用域中计算。
// 没有 else 时结果类型包含 null。
type If struct {
	Base
	Cond Expression
	Then Expression
	Else Expression
}

func (e *If) GetType(rt runtime.Runtime) (types.Type, error) {
	ct, err := e.Cond.GetType(rt)
	if err != nil {
		return nil, Bubble(err, e)
	}
	trueRt, err := AssumeTrue(rt, e.Cond)
	if err != nil {
		return nil, Bubble(err, e)
	}
	tt, err := e.Then.GetType(trueRt)
	if err != nil {
		return nil, Bubble(err, e)
	}
	var et types.Type = types.Null{}
	if e.Else != nil {
		falseRt, err := AssumeFalse(rt, e.Cond)
		if err != nil {
			return nil, Bubble(err, e)
		}
		if et, err = e.Else.GetType(falseRt); err != nil {
			return nil, Bubble(err, e)
		}
	}
	switch {
	case types.IsNever(types.ToFalseyType(ct)):
		return tt, nil
	case types.IsNever(types.ToTruthyType(ct)):
		return et, nil
	}
	return types.OneOf(tt, et), nil
}

func (e *If) Eval(rt runtime.Runtime) (values.Value, error) {
	cond, bound, err := EvalBinding(rt, e.Cond)
	if err != nil {
		return nil, Bubble(err, e)
	}
	if values.IsTruthy(cond) {
		return e.Then.Eval(bound)
	}
	if e.Else == nil {
		return values.Null{}, nil
	}
	return e.Else.Eval(rt)
}

func (e *If) Dependencies() *set.Set[string] { return Deps(e.Cond, e.Then, e.Else) }

func (e *If) ToCode() string {
	code := "if " + e.Cond.ToCode() + " { " + e.Then.ToCode() + " }"
	switch el := e.Else.(type) {
	case nil:
	case *If:
		code += " else " + el.ToCode()
	default:
		code += " else { " + el.ToCode() + " }"
	}
	return code
}

func (e *If) ToLisp() string {
	if e.Else == nil {
		return "(if " + e.Cond.ToLisp() + " " + e.Then.ToLisp() + ")"
	}
	return "(if " + e.Cond.ToLisp() + " " + e.Then.ToLisp() + " " + e.Else.ToLisp() + ")"
}

func (e *If) Children() []Expression {
	if e.Else == nil {
		return []Expression{e.Cond, e.Then}
	}
	return []Expression{e.Cond, e.Then, e.Else}
}
