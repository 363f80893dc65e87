package ast

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Declaration 是模块顶层的声明。依赖解析器先按依赖顺序对所有声明调用 ResolveType，
// 全部成功后再调用 ResolveValue，两者都把结果写入 rt 所在的层。
type Declaration interface {
	Expression
	// Declares 返回声明的名字，state 以 `@` 为前缀，action 以 `&` 为前缀。
	Declares() string
	ResolveType(rt runtime.Runtime) error
	ResolveValue(rt runtime.Runtime) error
}

type (
	// TypeDeclaration 是 `type Point = {x: Int, y: Int}`。
	TypeDeclaration struct {
		Base
		Name string
		Type Expression
	}

	// EnumDeclaration 是 `enum Result { .ok(# value: Int), .err(message: String) }`。
	EnumDeclaration struct {
		Base
		Name  string
		Cases []EnumCaseDeclaration
	}

	EnumCaseDeclaration struct {
		Name string
		Args []FormulaTypeArg
	}

	// ClassDeclaration 是 `class Point { x: Int = 0, y: Int, fn norm(): Int => this.x + this.y }`。
	// class 的值可以像 formula 一样调用来构造实例，属性作为具名参数。
	ClassDeclaration struct {
		Base
		Name    string
		Props   []ClassProp
		Methods []*FormulaExpression
	}

	ClassProp struct {
		Name    string
		Type    Expression
		Default Expression
	}

	FormulaDeclaration struct {
		Base
		Formula *FormulaExpression
	}

	// LetDeclaration 是顶层的 `let name: T = value`。
	LetDeclaration struct {
		Base
		Name  string
		Type  Expression
		Value Expression
	}

	// StateDeclaration 是 `@count: Int = 0`。没有标注时类型是初始值放宽后的类型。
	StateDeclaration struct {
		Base
		Name  string
		Type  Expression
		Value Expression
	}

	// ActionDeclaration 是 `action increment(by: Int) => @count + by`，通过 `&increment` 引用。
	ActionDeclaration struct {
		Base
		Formula *FormulaExpression
	}

	// ViewDeclaration 是 `view Card(title: String) => <div>{title}</div>`，
	// 在视图元素中以 `<Card title="..." />` 使用。
	ViewDeclaration struct {
		Base
		Formula *FormulaExpression
	}
)

func (d *TypeDeclaration) Declares() string { return d.Name }

func (d *TypeDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	return d.Type.GetType(rt)
}

func (d *TypeDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	return d.Type.Eval(rt)
}

func (d *TypeDeclaration) ResolveType(rt runtime.Runtime) error {
	t, err := d.GetType(rt)
	if err != nil {
		return Bubble(err, d)
	}
	rt.AddLocalType(d.Name, t)
	return nil
}

func (d *TypeDeclaration) ResolveValue(rt runtime.Runtime) error {
	v, err := d.Eval(rt)
	if err != nil {
		return Bubble(err, d)
	}
	rt.AddLocalValue(d.Name, v)
	return nil
}

func (d *TypeDeclaration) Dependencies() *set.Set[string] { return d.Type.Dependencies() }
func (d *TypeDeclaration) ToCode() string                 { return "type " + d.Name + " = " + d.Type.ToCode() }
func (d *TypeDeclaration) ToLisp() string                 { return "(type " + d.Name + " " + d.Type.ToLisp() + ")" }
func (d *TypeDeclaration) Children() []Expression         { return []Expression{d.Type} }

func (d *EnumDeclaration) Declares() string { return d.Name }

func (d *EnumDeclaration) enum(rt runtime.Runtime) (types.Enum, error) {
	out := types.Enum{Name: d.Name}
	for _, c := range d.Cases {
		ec := types.EnumCase{Enum: d.Name, Name: c.Name}
		for _, a := range c.Args {
			t, err := ResolveType(rt, a.Type)
			if err != nil {
				return out, err
			}
			ec.Args = append(ec.Args, types.Argument{
				Name:       a.Name,
				Type:       t,
				Positional: a.Positional,
				Required:   true,
			})
		}
		out.Cases = append(out.Cases, ec)
	}
	return out, nil
}

func (d *EnumDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	e, err := d.enum(rt)
	if err != nil {
		return nil, Bubble(err, d)
	}
	return types.Meta{Of: e}, nil
}

func (d *EnumDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	e, err := d.enum(rt)
	if err != nil {
		return nil, Bubble(err, d)
	}
	tv := values.TypeValue{Of: e}
	for _, c := range e.Cases {
		tv.Cases = append(tv.Cases, values.Prop{Name: c.Name, Value: caseConstructor(c)})
	}
	return tv, nil
}

// caseConstructor 返回 `E.name` 的值：无参数的 case 直接是枚举值，否则是构造 formula。
func caseConstructor(c types.EnumCase) values.Value {
	if len(c.Args) == 0 {
		return values.EnumCase{Case: c}
	}
	return values.Formula{
		Name:      c.Enum + "." + c.Name,
		Signature: types.Formula{Args: c.Args, Return: c},
		Fn: func(args []values.Value) (values.Value, error) {
			return values.EnumCase{Case: c, Args: args}, nil
		},
	}
}

func (d *EnumDeclaration) ResolveType(rt runtime.Runtime) error {
	t, err := d.GetType(rt)
	if err != nil {
		return err
	}
	rt.AddLocalType(d.Name, t)
	return nil
}

func (d *EnumDeclaration) ResolveValue(rt runtime.Runtime) error {
	v, err := d.Eval(rt)
	if err != nil {
		return err
	}
	rt.AddLocalValue(d.Name, v)
	return nil
}

func (d *EnumDeclaration) Dependencies() *set.Set[string] {
	deps := Deps(d.Children()...)
	deps.Remove(d.Name)
	return deps
}

func (d *EnumDeclaration) ToCode() string {
	cases := make([]string, len(d.Cases))
	for i, c := range d.Cases {
		cases[i] = "." + c.Name
		if len(c.Args) > 0 {
			args := make([]string, len(c.Args))
			for j, a := range c.Args {
				args[j] = a.code()
			}
			cases[i] += "(" + strings.Join(args, ", ") + ")"
		}
	}
	return "enum " + d.Name + " { " + strings.Join(cases, ", ") + " }"
}

func (d *EnumDeclaration) ToLisp() string { return "(enum " + d.Name + ")" }

func (d *EnumDeclaration) Children() []Expression {
	var out []Expression
	for _, c := range d.Cases {
		for _, a := range c.Args {
			out = append(out, a.Type)
		}
	}
	return out
}

func (d *ClassDeclaration) Declares() string { return d.Name }

// class 返回实例类型（属性加方法）、不含方法的实例类型（方法体中 this 的类型）以及构造签名。
func (d *ClassDeclaration) class(rt runtime.Runtime) (types.Object, types.Object, types.Formula, error) {
	this := types.Object{Name: d.Name}
	ctor := types.Formula{}
	for _, p := range d.Props {
		var t types.Type
		switch {
		case p.Type != nil:
			pt, err := ResolveType(rt, p.Type)
			if err != nil {
				return this, this, ctor, err
			}
			t = pt
		case p.Default != nil:
			dt, err := p.Default.GetType(rt)
			if err != nil {
				return this, this, ctor, err
			}
			t = types.Widen(dt)
		default:
			t = types.All{}
		}
		if p.Type != nil && p.Default != nil {
			dt, err := p.Default.GetType(rt)
			if err != nil {
				return this, this, ctor, err
			}
			if !types.CanBeAssignedTo(dt, t) {
				return this, this, ctor, Errorf(p.Default, "default value %s is not assignable to %s", dt, t)
			}
		}
		this.Props = append(this.Props, types.Prop{Name: p.Name, Type: t})
		ctor.Args = append(ctor.Args, types.Argument{Name: p.Name, Type: t, Required: p.Default == nil})
	}

	instance := types.Object{Name: d.Name, Props: append([]types.Prop{}, this.Props...)}
	methodRt := rt.Child()
	methodRt.SetThisType(this)
	for _, m := range d.Methods {
		t, err := m.GetType(methodRt)
		if err != nil {
			return this, this, ctor, err
		}
		instance.Props = append(instance.Props, types.Prop{Name: m.Name, Type: t})
	}
	ctor.Return = instance
	return instance, this, ctor, nil
}

func (d *ClassDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	instance, _, ctor, err := d.class(rt)
	if err != nil {
		return nil, Bubble(err, d)
	}
	return types.Meta{Of: instance, Constructor: &ctor}, nil
}

func (d *ClassDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	instance, this, ctor, err := d.class(rt)
	if err != nil {
		return nil, Bubble(err, d)
	}
	construct := values.Formula{Name: d.Name, Signature: ctor}
	construct.Fn = func(args []values.Value) (values.Value, error) {
		obj := values.Object{Name: d.Name}
		for i, p := range d.Props {
			v := args[i]
			switch {
			case v != nil:
			case p.Default != nil:
				dv, err := p.Default.Eval(rt)
				if err != nil {
					return nil, err
				}
				v = dv
			default:
				v = values.Null{}
			}
			obj.Props = append(obj.Props, values.Prop{Name: p.Name, Value: v})
		}
		methodRt := rt.Child()
		methodRt.SetThisType(this)
		for _, m := range d.Methods {
			sig, _ := types.PropType(instance, m.Name)
			f, ok := sig.(types.Formula)
			if !ok {
				return nil, Errorf(m, "method %s of %s has no signature", m.Name, d.Name)
			}
			obj.Props = append(obj.Props, values.Prop{Name: m.Name, Value: m.Closure(methodRt, f)})
		}
		methodRt.SetThisValue(obj)
		return obj, nil
	}
	return values.TypeValue{Of: instance, Constructor: &construct}, nil
}

func (d *ClassDeclaration) ResolveType(rt runtime.Runtime) error {
	t, err := d.GetType(rt)
	if err != nil {
		return err
	}
	rt.AddLocalType(d.Name, t)
	return nil
}

func (d *ClassDeclaration) ResolveValue(rt runtime.Runtime) error {
	v, err := d.Eval(rt)
	if err != nil {
		return err
	}
	rt.AddLocalValue(d.Name, v)
	return nil
}

func (d *ClassDeclaration) Dependencies() *set.Set[string] {
	deps := set.New[string](0)
	for _, p := range d.Props {
		if p.Type != nil {
			deps.InsertSet(p.Type.Dependencies())
		}
		if p.Default != nil {
			deps.InsertSet(p.Default.Dependencies())
		}
	}
	for _, m := range d.Methods {
		deps.InsertSet(m.Dependencies())
	}
	deps.Remove(d.Name)
	return deps
}

func (d *ClassDeclaration) ToCode() string {
	var members []string
	for _, p := range d.Props {
		m := p.Name
		if p.Type != nil {
			m += ": " + p.Type.ToCode()
		}
		if p.Default != nil {
			m += " = " + p.Default.ToCode()
		}
		members = append(members, m)
	}
	for _, m := range d.Methods {
		members = append(members, m.ToCode())
	}
	return "class " + d.Name + " { " + strings.Join(members, ", ") + " }"
}

func (d *ClassDeclaration) ToLisp() string { return "(class " + d.Name + ")" }

func (d *ClassDeclaration) Children() []Expression {
	var out []Expression
	for _, p := range d.Props {
		if p.Default != nil {
			out = append(out, p.Default)
		}
	}
	for _, m := range d.Methods {
		out = append(out, m)
	}
	return out
}

// resolveFormulaType 为具名 formula 计算类型。递归引用自身时必须有返回类型标注，
// 此时先以签名登记名字，再检查函数体。
func resolveFormulaType(rt runtime.Runtime, f *FormulaExpression, register func(types.Type)) error {
	if f.Body.Dependencies().Contains(f.Name) {
		if f.ReturnType == nil {
			return Errorf(f, "recursive formula %s needs a return type", f.Name)
		}
		sig, err := f.Signature(rt, nil)
		if err != nil {
			return Bubble(err, f)
		}
		register(sig)
	}
	t, err := f.GetType(rt)
	if err != nil {
		return err
	}
	register(t)
	return nil
}

func (d *FormulaDeclaration) Declares() string { return d.Formula.Name }

func (d *FormulaDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	return d.Formula.GetType(rt)
}

func (d *FormulaDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	return d.Formula.Eval(rt)
}

func (d *FormulaDeclaration) ResolveType(rt runtime.Runtime) error {
	return resolveFormulaType(rt, d.Formula, func(t types.Type) { rt.AddLocalType(d.Formula.Name, t) })
}

func (d *FormulaDeclaration) ResolveValue(rt runtime.Runtime) error {
	t, ok := rt.LocalType(d.Formula.Name)
	sig, isFormula := t.(types.Formula)
	if !ok || !isFormula {
		return Errorf(d, "formula %s has no resolved type", d.Formula.Name)
	}
	rt.AddLocalValue(d.Formula.Name, d.Formula.Closure(rt, sig))
	return nil
}

func (d *FormulaDeclaration) Dependencies() *set.Set[string] { return d.Formula.Dependencies() }
func (d *FormulaDeclaration) ToCode() string                 { return d.Formula.ToCode() }
func (d *FormulaDeclaration) ToLisp() string                 { return d.Formula.ToLisp() }
func (d *FormulaDeclaration) Children() []Expression         { return []Expression{d.Formula} }

func (d *LetDeclaration) Declares() string { return d.Name }

func (d *LetDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	return BindingType(rt.Child(), d.Name, d.Type, d.Value)
}

func (d *LetDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	return d.Value.Eval(rt)
}

func (d *LetDeclaration) ResolveType(rt runtime.Runtime) error {
	t, err := d.GetType(rt)
	if err != nil {
		return Bubble(err, d)
	}
	rt.AddLocalType(d.Name, t)
	return nil
}

func (d *LetDeclaration) ResolveValue(rt runtime.Runtime) error {
	v, err := d.Eval(rt)
	if err != nil {
		return Bubble(err, d)
	}
	rt.AddLocalValue(d.Name, v)
	return nil
}

func (d *LetDeclaration) Dependencies() *set.Set[string] {
	deps := Deps(d.Type, d.Value)
	deps.Remove(d.Name)
	return deps
}

func (d *LetDeclaration) ToCode() string {
	code := "let " + d.Name
	if d.Type != nil {
		code += ": " + d.Type.ToCode()
	}
	return code + " = " + d.Value.ToCode()
}

func (d *LetDeclaration) ToLisp() string         { return "(let " + d.Name + " " + d.Value.ToLisp() + ")" }
func (d *LetDeclaration) Children() []Expression { return []Expression{d.Value} }

func (d *StateDeclaration) Declares() string { return "@" + d.Name }

func (d *StateDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	if d.Type != nil {
		return BindingType(rt.Child(), "@"+d.Name, d.Type, d.Value)
	}
	t, err := d.Value.GetType(rt)
	if err != nil {
		return nil, err
	}
	return types.Widen(t), nil
}

func (d *StateDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	return d.Value.Eval(rt)
}

func (d *StateDeclaration) ResolveType(rt runtime.Runtime) error {
	t, err := d.GetType(rt)
	if err != nil {
		return Bubble(err, d)
	}
	rt.AddStateType(d.Name, t)
	return nil
}

func (d *StateDeclaration) ResolveValue(rt runtime.Runtime) error {
	v, err := d.Eval(rt)
	if err != nil {
		return Bubble(err, d)
	}
	rt.AddStateValue(d.Name, v)
	return nil
}

func (d *StateDeclaration) Dependencies() *set.Set[string] {
	deps := Deps(d.Type, d.Value)
	deps.Remove("@" + d.Name)
	return deps
}

func (d *StateDeclaration) ToCode() string {
	code := "@" + d.Name
	if d.Type != nil {
		code += ": " + d.Type.ToCode()
	}
	return code + " = " + d.Value.ToCode()
}

func (d *StateDeclaration) ToLisp() string         { return "(state " + d.Name + " " + d.Value.ToLisp() + ")" }
func (d *StateDeclaration) Children() []Expression { return []Expression{d.Value} }

func (d *ActionDeclaration) Declares() string { return "&" + d.Formula.Name }

func (d *ActionDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	return d.Formula.GetType(rt)
}

func (d *ActionDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	return d.Formula.Eval(rt)
}

func (d *ActionDeclaration) ResolveType(rt runtime.Runtime) error {
	t, err := d.GetType(rt)
	if err != nil {
		return err
	}
	rt.AddActionType(d.Formula.Name, t)
	return nil
}

func (d *ActionDeclaration) ResolveValue(rt runtime.Runtime) error {
	t, ok := rt.ActionType(d.Formula.Name)
	sig, isFormula := t.(types.Formula)
	if !ok || !isFormula {
		return Errorf(d, "action %s has no resolved type", d.Formula.Name)
	}
	rt.AddActionValue(d.Formula.Name, d.Formula.Closure(rt, sig))
	return nil
}

func (d *ActionDeclaration) Dependencies() *set.Set[string] { return d.Formula.Dependencies() }
func (d *ActionDeclaration) ToCode() string {
	return "action " + d.Formula.Header() + " => " + d.Formula.Body.ToCode()
}
func (d *ActionDeclaration) ToLisp() string         { return "(action " + d.Formula.ToLisp() + ")" }
func (d *ActionDeclaration) Children() []Expression { return []Expression{d.Formula} }

func (d *ViewDeclaration) Declares() string { return d.Formula.Name }

func (d *ViewDeclaration) GetType(rt runtime.Runtime) (types.Type, error) {
	return d.Formula.GetType(rt)
}

func (d *ViewDeclaration) Eval(rt runtime.Runtime) (values.Value, error) {
	return d.Formula.Eval(rt)
}

func (d *ViewDeclaration) ResolveType(rt runtime.Runtime) error {
	return resolveFormulaType(rt, d.Formula, func(t types.Type) { rt.AddLocalType(d.Formula.Name, t) })
}

func (d *ViewDeclaration) ResolveValue(rt runtime.Runtime) error {
	t, ok := rt.LocalType(d.Formula.Name)
	sig, isFormula := t.(types.Formula)
	if !ok || !isFormula {
		return Errorf(d, "view %s has no resolved type", d.Formula.Name)
	}
	rt.AddLocalValue(d.Formula.Name, d.Formula.Closure(rt, sig))
	return nil
}

func (d *ViewDeclaration) Dependencies() *set.Set[string] { return d.Formula.Dependencies() }
func (d *ViewDeclaration) ToCode() string {
	return "view " + d.Formula.Header() + " => " + d.Formula.Body.ToCode()
}
func (d *ViewDeclaration) ToLisp() string         { return "(view " + d.Formula.ToLisp() + ")" }
func (d *ViewDeclaration) Children() []Expression { return []Expression{d.Formula} }
