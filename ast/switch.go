package ast

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Switch 依次匹配 case，每个 case 体都在 subject 被收窄、绑定名字被引入的作用域中计算。
// 前面的 case 匹配失败时，后面的 case 看到的 subject 类型会排除已经匹配过的部分。
// 没有 else 时，所有 case 必须覆盖 subject 的全部类型。
//
//	switch result {
//	case .ok(value): value
//	case .err(message): 0
//	}
type Switch struct {
	Base
	Subject Expression
	Cases   []SwitchCase
	Else    Expression
}

type SwitchCase struct {
	Pattern Pattern
	Body    Expression
}

func (e *Switch) GetType(rt runtime.Runtime) (types.Type, error) {
	remaining, err := e.Subject.GetType(rt)
	if err != nil {
		return nil, Bubble(err, e)
	}
	var results []types.Type
	for _, c := range e.Cases {
		caseRt, matched, err := MatchTypeOf(rt, e.Subject, remaining, c.Pattern)
		if err != nil {
			return nil, Bubble(err, e)
		}
		t, err := c.Body.GetType(caseRt)
		if err != nil {
			return nil, Bubble(err, e)
		}
		results = append(results, t)
		if c.Pattern.Exhaustive() && !types.IsNever(matched) {
			remaining = types.NarrowTypeIsNot(remaining, matched)
		}
	}
	if e.Else != nil {
		elseRt := rt
		if !types.IsNever(remaining) {
			if elseRt, err = e.Subject.ReplaceWithType(rt, remaining); err != nil {
				return nil, Bubble(err, e)
			}
		}
		t, err := e.Else.GetType(elseRt)
		if err != nil {
			return nil, Bubble(err, e)
		}
		results = append(results, t)
	} else if !types.IsNever(remaining) {
		return nil, Errorf(e, "switch is not exhaustive, %s is not handled", remaining)
	}
	return types.OneOf(results...), nil
}

func (e *Switch) Eval(rt runtime.Runtime) (values.Value, error) {
	subject, err := e.Subject.Eval(rt)
	if err != nil {
		return nil, Bubble(err, e)
	}
	for _, c := range e.Cases {
		ok, rels, err := c.Pattern.Match(rt, subject)
		if err != nil {
			return nil, Bubble(err, e)
		}
		if !ok {
			continue
		}
		caseRt, err := rt.Assume(rels)
		if err != nil {
			return nil, Bubble(err, e)
		}
		return c.Body.Eval(caseRt)
	}
	if e.Else != nil {
		return e.Else.Eval(rt)
	}
	return nil, Errorf(e, "no case matched %s", subject)
}

func (e *Switch) Dependencies() *set.Set[string] {
	deps := e.Subject.Dependencies()
	for _, c := range e.Cases {
		deps.InsertSet(c.Pattern.Dependencies())
		body := c.Body.Dependencies()
		for _, name := range c.Pattern.Names() {
			body.Remove(name)
		}
		deps.InsertSet(body)
	}
	if e.Else != nil {
		deps.InsertSet(e.Else.Dependencies())
	}
	return deps
}

func (e *Switch) ToCode() string {
	var b strings.Builder
	b.WriteString("switch " + e.Subject.ToCode() + " {")
	for _, c := range e.Cases {
		b.WriteString(" case " + c.Pattern.ToCode() + ": " + c.Body.ToCode())
	}
	if e.Else != nil {
		b.WriteString(" else: " + e.Else.ToCode())
	}
	b.WriteString(" }")
	return b.String()
}

func (e *Switch) ToLisp() string {
	parts := []string{"switch", e.Subject.ToLisp()}
	for _, c := range e.Cases {
		parts = append(parts, "("+c.Pattern.ToCode()+" "+c.Body.ToLisp()+")")
	}
	if e.Else != nil {
		parts = append(parts, "(else "+e.Else.ToLisp()+")")
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (e *Switch) Children() []Expression {
	out := []Expression{e.Subject}
	for _, c := range e.Cases {
		out = append(out, c.Body)
	}
	if e.Else != nil {
		out = append(out, e.Else)
	}
	return out
}
