// Package ast 定义 Formula 的表达式协议与非运算符节点。
//
// 每个节点同时具备两种语义：
//   - GetType 在 TypeRuntime 上做静态分析，不产生副作用；
//   - Eval 在 ValueRuntime 上求值，只要 GetType 能通过，Eval 就不应该返回类型不符的值。
//
// 运算符节点（二元、一元、属性访问、调用）在 operators 包中实现。
package ast

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type Expression interface {
	Location() file.Location
	SetLocation(file.Location)

	GetType(rt runtime.Runtime) (types.Type, error)
	Eval(rt runtime.Runtime) (values.Value, error)

	// Dependencies 返回自由变量名；state 以 `@` 为前缀，action 以 `&` 为前缀。
	Dependencies() *set.Set[string]

	// ReplaceWithType 把收窄后的类型写回一个新的子作用域，默认不做任何事。
	ReplaceWithType(rt runtime.Runtime, t types.Type) (runtime.Runtime, error)
	// RelationshipFormula 返回可以出现在关系公式中的项，默认没有。
	RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool)
	// GimmeTrueStuff / GimmeFalseStuff 返回表达式为真/假时成立的事实。
	GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error)
	GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error)

	ToCode() string
	ToLisp() string
	Children() []Expression
}

// Base 提供位置信息以及协议中的默认实现，所有节点都内嵌它。
type Base struct {
	loc file.Location
}

func (b *Base) Location() file.Location {
	return b.loc
}

func (b *Base) SetLocation(loc file.Location) {
	b.loc = loc
}

func (*Base) ReplaceWithType(rt runtime.Runtime, _ types.Type) (runtime.Runtime, error) {
	return rt, nil
}

func (*Base) RelationshipFormula(runtime.Runtime) (runtime.Formula, bool) {
	return nil, false
}

func (*Base) GimmeTrueStuff(runtime.Runtime) ([]runtime.Relationship, error) {
	return nil, nil
}

func (*Base) GimmeFalseStuff(runtime.Runtime) ([]runtime.Relationship, error) {
	return nil, nil
}

// Deps 合并所有子节点的依赖。
func Deps(children ...Expression) *set.Set[string] {
	out := set.New[string](0)
	for _, c := range children {
		if c != nil {
			out.InsertSet(c.Dependencies())
		}
	}
	return out
}

// AssumeTrue 返回假设 e 为真之后的子作用域。
func AssumeTrue(rt runtime.Runtime, e Expression) (runtime.Runtime, error) {
	rels, err := e.GimmeTrueStuff(rt)
	if err != nil {
		return rt, err
	}
	return rt.Assume(rels)
}

// AssumeFalse 返回假设 e 为假之后的子作用域。
func AssumeFalse(rt runtime.Runtime, e Expression) (runtime.Runtime, error) {
	rels, err := e.GimmeFalseStuff(rt)
	if err != nil {
		return rt, err
	}
	return rt.Assume(rels)
}

// Binder 由会绑定名字的条件表达式实现（`x is .ok(v)`、`a and b`），
// 返回的作用域在条件为真时携带绑定的值。
type Binder interface {
	EvalBinding(rt runtime.Runtime) (values.Value, runtime.Runtime, error)
}

func EvalBinding(rt runtime.Runtime, e Expression) (values.Value, runtime.Runtime, error) {
	if b, ok := e.(Binder); ok {
		return b.EvalBinding(rt)
	}
	v, err := e.Eval(rt)
	return v, rt, err
}

// ResolveType 计算类型表达式所表示的类型（而不是类型表达式本身的 Meta 类型）。
func ResolveType(rt runtime.Runtime, e Expression) (types.Type, error) {
	t, err := e.GetType(rt)
	if err != nil {
		return nil, err
	}
	if m, ok := t.(types.Meta); ok {
		return m.Of, nil
	}
	return nil, Errorf(e, "expected a type, found %s of type %s", e.ToCode(), t)
}

// localType 查找本地名字的类型；只有值的名字（求值阶段定义的）退回到值的类型。
func localType(rt runtime.Runtime, name string) (types.Type, bool) {
	if t, ok := rt.LocalType(name); ok {
		return t, true
	}
	if v, ok := rt.LocalValue(name); ok {
		return v.Type(), true
	}
	return nil, false
}
