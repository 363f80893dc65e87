package ast

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Let 按顺序绑定名字，后面的绑定可以看到前面的绑定：
//
//	let a = 1, b: Int = a + 1 in a + b
type Let struct {
	Base
	Bindings []LetBinding
	Body     Expression
}

type LetBinding struct {
	Name  string
	Type  Expression // 可选的类型标注
	Value Expression
}

func (e *Let) GetType(rt runtime.Runtime) (types.Type, error) {
	child := rt.Child()
	for _, b := range e.Bindings {
		t, err := BindingType(child, b.Name, b.Type, b.Value)
		if err != nil {
			return nil, Bubble(err, e)
		}
		child.AddLocalType(b.Name, t)
	}
	t, err := e.Body.GetType(child)
	if err != nil {
		return nil, Bubble(err, e)
	}
	return t, nil
}

// BindingType 计算 `name: T = value` 的类型。有标注时检查可赋值性并使用标注的类型。
// 带返回类型的 formula 会先以签名登记自己，从而支持递归。
func BindingType(rt runtime.Runtime, name string, annotation, value Expression) (types.Type, error) {
	var declared types.Type
	if annotation != nil {
		t, err := ResolveType(rt, annotation)
		if err != nil {
			return nil, err
		}
		declared = t
	}
	if f, ok := value.(*FormulaExpression); ok && f.ReturnType != nil {
		if sig, err := f.Signature(rt, nil); err == nil {
			rt.AddLocalType(name, sig)
		}
	}
	var t types.Type
	var err error
	if f, ok := value.(*FormulaExpression); ok {
		var expected *types.Formula
		if ef, ok := declared.(types.Formula); ok {
			expected = &ef
		}
		t, err = f.GetTypeWithContext(rt, expected)
	} else {
		t, err = value.GetType(rt)
	}
	if err != nil {
		return nil, err
	}
	if declared == nil {
		return t, nil
	}
	if !types.CanBeAssignedTo(t, declared) {
		return nil, Errorf(value, "cannot assign %s to %s of type %s", t, name, declared)
	}
	return declared, nil
}

func (e *Let) Eval(rt runtime.Runtime) (values.Value, error) {
	child := rt.Child()
	for _, b := range e.Bindings {
		v, err := b.Value.Eval(child)
		if err != nil {
			return nil, Bubble(err, e)
		}
		child.AddLocalValue(b.Name, v)
	}
	v, err := e.Body.Eval(child)
	if err != nil {
		return nil, Bubble(err, e)
	}
	return v, nil
}

func (e *Let) Dependencies() *set.Set[string] {
	deps := set.New[string](0)
	bound := set.New[string](len(e.Bindings))
	add := func(s *set.Set[string]) {
		for name := range s.Items() {
			if !bound.Contains(name) {
				deps.Insert(name)
			}
		}
	}
	for _, b := range e.Bindings {
		if b.Type != nil {
			add(b.Type.Dependencies())
		}
		bound.Insert(b.Name)
		add(b.Value.Dependencies())
	}
	add(e.Body.Dependencies())
	return deps
}

func (e *Let) ToCode() string {
	parts := make([]string, len(e.Bindings))
	for i, b := range e.Bindings {
		parts[i] = b.Name
		if b.Type != nil {
			parts[i] += ": " + b.Type.ToCode()
		}
		parts[i] += " = " + b.Value.ToCode()
	}
	return "let " + strings.Join(parts, ", ") + " in " + e.Body.ToCode()
}

func (e *Let) ToLisp() string {
	parts := make([]string, len(e.Bindings))
	for i, b := range e.Bindings {
		parts[i] = "(" + b.Name + " " + b.Value.ToLisp() + ")"
	}
	return "(let (" + strings.Join(parts, " ") + ") " + e.Body.ToLisp() + ")"
}

func (e *Let) Children() []Expression {
	out := make([]Expression, 0, len(e.Bindings)+1)
	for _, b := range e.Bindings {
		out = append(out, b.Value)
	}
	return append(out, e.Body)
}
