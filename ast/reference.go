package ast

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type (
	// Reference 引用一个本地名字（let、参数、声明、环境变量）或命名空间。
	Reference struct {
		Base
		Name string
	}

	// StateReference 引用 `@name`。
	StateReference struct {
		Base
		Name string
	}

	// ActionReference 引用 `&name`。
	ActionReference struct {
		Base
		Name string
	}

	ThisReference struct {
		Base
	}

	// PipePlaceholder 是管道右侧的 `#`。
	PipePlaceholder struct {
		Base
	}
)

func (e *Reference) GetType(rt runtime.Runtime) (types.Type, error) {
	if t, ok := localType(rt, e.Name); ok {
		return t, nil
	}
	if t, ok := rt.NamespaceType(e.Name); ok {
		return t, nil
	}
	return nil, Errorf(e, "unknown name %s%s", e.Name, DidYouMean(e.Name, rt.LocalNames()))
}

func (e *Reference) Eval(rt runtime.Runtime) (values.Value, error) {
	if v, ok := rt.LocalValue(e.Name); ok {
		return v, nil
	}
	if v, ok := rt.NamespaceValue(e.Name); ok {
		return v, nil
	}
	return nil, Errorf(e, "unknown name %s%s", e.Name, DidYouMean(e.Name, rt.LocalNames()))
}

func (e *Reference) Dependencies() *set.Set[string] {
	return set.From([]string{e.Name})
}

func (e *Reference) ReplaceWithType(rt runtime.Runtime, t types.Type) (runtime.Runtime, error) {
	if _, ok := rt.RefID(e.Name); !ok {
		return rt, nil
	}
	child := rt.Child()
	child.ReplaceType(e.Name, t)
	return child, nil
}

func (e *Reference) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	id, ok := rt.RefID(e.Name)
	if !ok {
		return nil, false
	}
	return runtime.ReferenceFormula{Name: e.Name, ID: id, Kind: runtime.LocalRef}, true
}

func (e *Reference) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, e, runtime.Truthy)
}

func (e *Reference) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, e, runtime.Falsey)
}

// truthiness 为可以出现在关系公式中的表达式生成 truthy / falsey 事实。
func truthiness(rt runtime.Runtime, e Expression, c runtime.Comparison) ([]runtime.Relationship, error) {
	f, ok := e.RelationshipFormula(rt)
	if !ok {
		return nil, nil
	}
	return []runtime.Relationship{{Formula: f, Comparison: c}}, nil
}

func (e *Reference) ToCode() string         { return e.Name }
func (e *Reference) ToLisp() string         { return e.Name }
func (e *Reference) Children() []Expression { return nil }

func (e *StateReference) GetType(rt runtime.Runtime) (types.Type, error) {
	if t, ok := rt.StateType(e.Name); ok {
		return t, nil
	}
	if v, ok := rt.StateValue(e.Name); ok {
		return v.Type(), nil
	}
	return nil, Errorf(e, "unknown state @%s", e.Name)
}

func (e *StateReference) Eval(rt runtime.Runtime) (values.Value, error) {
	if v, ok := rt.StateValue(e.Name); ok {
		return v, nil
	}
	return nil, Errorf(e, "unknown state @%s", e.Name)
}

func (e *StateReference) Dependencies() *set.Set[string] {
	return set.From([]string{"@" + e.Name})
}

func (e *StateReference) ReplaceWithType(rt runtime.Runtime, t types.Type) (runtime.Runtime, error) {
	child := rt.Child()
	child.ReplaceStateType(e.Name, t)
	return child, nil
}

func (e *StateReference) RelationshipFormula(runtime.Runtime) (runtime.Formula, bool) {
	return runtime.ReferenceFormula{Name: e.Name, Kind: runtime.StateRef}, true
}

func (e *StateReference) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, e, runtime.Truthy)
}

func (e *StateReference) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, e, runtime.Falsey)
}

func (e *StateReference) ToCode() string         { return "@" + e.Name }
func (e *StateReference) ToLisp() string         { return e.ToCode() }
func (e *StateReference) Children() []Expression { return nil }

func (e *ActionReference) GetType(rt runtime.Runtime) (types.Type, error) {
	if t, ok := rt.ActionType(e.Name); ok {
		return t, nil
	}
	if v, ok := rt.ActionValue(e.Name); ok {
		return v.Type(), nil
	}
	return nil, Errorf(e, "unknown action &%s", e.Name)
}

func (e *ActionReference) Eval(rt runtime.Runtime) (values.Value, error) {
	if v, ok := rt.ActionValue(e.Name); ok {
		return v, nil
	}
	return nil, Errorf(e, "unknown action &%s", e.Name)
}

func (e *ActionReference) Dependencies() *set.Set[string] {
	return set.From([]string{"&" + e.Name})
}

func (e *ActionReference) ToCode() string         { return "&" + e.Name }
func (e *ActionReference) ToLisp() string         { return e.ToCode() }
func (e *ActionReference) Children() []Expression { return nil }

func (e *ThisReference) GetType(rt runtime.Runtime) (types.Type, error) {
	if t, ok := rt.ThisType(); ok {
		return t, nil
	}
	if v, ok := rt.ThisValue(); ok {
		return v.Type(), nil
	}
	return nil, Errorf(e, "this is not available here")
}

func (e *ThisReference) Eval(rt runtime.Runtime) (values.Value, error) {
	if v, ok := rt.ThisValue(); ok {
		return v, nil
	}
	return nil, Errorf(e, "this is not available here")
}

func (*ThisReference) Dependencies() *set.Set[string] { return set.New[string](0) }

func (e *ThisReference) ReplaceWithType(rt runtime.Runtime, t types.Type) (runtime.Runtime, error) {
	child := rt.Child()
	child.SetThisType(t)
	return child, nil
}

func (e *ThisReference) RelationshipFormula(runtime.Runtime) (runtime.Formula, bool) {
	return runtime.ReferenceFormula{Name: "this", Kind: runtime.ThisRef}, true
}

func (e *ThisReference) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, e, runtime.Truthy)
}

func (e *ThisReference) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, e, runtime.Falsey)
}

func (*ThisReference) ToCode() string         { return "this" }
func (*ThisReference) ToLisp() string         { return "this" }
func (*ThisReference) Children() []Expression { return nil }

func (e *PipePlaceholder) GetType(rt runtime.Runtime) (types.Type, error) {
	if t, ok := rt.PipeType(); ok {
		return t, nil
	}
	if v, ok := rt.PipeValue(); ok {
		return v.Type(), nil
	}
	return nil, Errorf(e, "# can only be used on the right side of a pipe")
}

func (e *PipePlaceholder) Eval(rt runtime.Runtime) (values.Value, error) {
	if v, ok := rt.PipeValue(); ok {
		return v, nil
	}
	return nil, Errorf(e, "# can only be used on the right side of a pipe")
}

func (*PipePlaceholder) Dependencies() *set.Set[string] { return set.New[string](0) }
func (*PipePlaceholder) ToCode() string                 { return "#" }
func (*PipePlaceholder) ToLisp() string                 { return "#" }
func (*PipePlaceholder) Children() []Expression         { return nil }
