package ast

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// FormulaExpression 是 formula 字面量（lambda），也用于 fn / action / view 声明与 class 方法：
//
//	fn name<T>(# a: T, b: Int = 1, ...# rest: Array(T), **kw: Dict(Int)): T => a
//
// 没有类型标注的参数取调用处期望的类型（上下文类型），否则为 Any。
// 没有返回类型标注时返回类型由函数体推导；递归调用要求显式的返回类型。
type FormulaExpression struct {
	Base
	Name       string
	Generics   []string
	Args       []FormulaArg
	ReturnType Expression
	Body       Expression
}

type FormulaArg struct {
	Name       string
	Type       Expression
	Default    Expression
	Positional bool
	Spread     types.Spread
}

// Signature 计算参数部分的签名。没有返回类型标注时 Return 为 Any。
func (e *FormulaExpression) Signature(rt runtime.Runtime, expected *types.Formula) (types.Formula, error) {
	sig, _, err := e.signature(rt, expected)
	return sig, err
}

func (e *FormulaExpression) signature(rt runtime.Runtime, expected *types.Formula) (types.Formula, runtime.Runtime, error) {
	child := rt.Child()
	var sig types.Formula
	for _, name := range e.Generics {
		g := types.NewGeneric(name)
		sig.Generics = append(sig.Generics, g)
		child.AddLocalType(name, types.Meta{Of: g})
	}
	for i, a := range e.Args {
		arg := types.Argument{
			Name:       a.Name,
			Positional: a.Positional,
			Required:   a.Default == nil && a.Spread == types.NoSpread,
			Spread:     a.Spread,
		}
		switch {
		case a.Type != nil:
			t, err := ResolveType(child, a.Type)
			if err != nil {
				return sig, child, err
			}
			arg.Type = t
		case expected != nil && i < len(expected.Args):
			arg.Type = expected.Args[i].Type
		case a.Default != nil:
			t, err := a.Default.GetType(child)
			if err != nil {
				return sig, child, err
			}
			arg.Type = types.Widen(t)
		case a.Spread == types.PositionalSpread:
			arg.Type = types.Array{Of: types.All{}}
		case a.Spread == types.KwargsSpread:
			arg.Type = types.Dict{Of: types.All{}}
		default:
			arg.Type = types.All{}
		}
		if a.Default != nil && a.Type != nil {
			dt, err := a.Default.GetType(child)
			if err != nil {
				return sig, child, err
			}
			if !types.CanBeAssignedTo(dt, arg.Type) {
				return sig, child, Errorf(a.Default, "default value %s is not assignable to %s", dt, arg.Type)
			}
		}
		if a.Spread == types.PositionalSpread && !types.IsArray(arg.Type) && !types.IsAll(arg.Type) {
			return sig, child, Errorf(e, "...# %s must be an Array, found %s", a.Name, arg.Type)
		}
		if a.Spread == types.KwargsSpread && !types.IsDict(arg.Type) && !types.IsAll(arg.Type) {
			return sig, child, Errorf(e, "**%s must be a Dict, found %s", a.Name, arg.Type)
		}
		sig.Args = append(sig.Args, arg)
	}
	sig.Return = types.All{}
	if e.ReturnType != nil {
		t, err := ResolveType(child, e.ReturnType)
		if err != nil {
			return sig, child, err
		}
		sig.Return = t
	}
	return sig, child, nil
}

func (e *FormulaExpression) GetType(rt runtime.Runtime) (types.Type, error) {
	return e.GetTypeWithContext(rt, nil)
}

// GetTypeWithContext 在期望类型 expected 的上下文中计算类型，用于作为参数传递的 lambda。
func (e *FormulaExpression) GetTypeWithContext(rt runtime.Runtime, expected *types.Formula) (types.Type, error) {
	sig, child, err := e.signature(rt, expected)
	if err != nil {
		return nil, Bubble(err, e)
	}
	body := child.Child()
	if e.Name != "" && e.ReturnType != nil {
		body.AddLocalType(e.Name, sig)
	}
	for _, a := range sig.Args {
		body.AddLocalType(a.Name, a.Type)
	}
	bt, err := e.Body.GetType(body)
	if err != nil {
		return nil, Bubble(err, e)
	}
	if e.ReturnType == nil {
		sig.Return = bt
		return sig, nil
	}
	if !types.CanBeAssignedTo(bt, sig.Return) {
		return nil, Errorf(e.Body, "%s returns %s, expected %s", e.label(), bt, sig.Return)
	}
	return sig, nil
}

func (e *FormulaExpression) label() string {
	if e.Name == "" {
		return "formula"
	}
	return e.Name
}

func (e *FormulaExpression) Eval(rt runtime.Runtime) (values.Value, error) {
	var sig types.Formula
	if t, err := e.GetType(rt); err == nil {
		sig = t.(types.Formula)
	} else if sig, err = e.Signature(rt, nil); err != nil {
		return nil, Bubble(err, e)
	}
	return e.Closure(rt, sig), nil
}

// Closure 创建捕获 rt 的 formula 值。每次调用都在 rt 的新子层中绑定参数。
func (e *FormulaExpression) Closure(rt runtime.Runtime, sig types.Formula) values.Formula {
	f := values.Formula{Name: e.Name, Signature: sig}
	f.Fn = func(args []values.Value) (values.Value, error) {
		call := rt.Child()
		if e.Name != "" {
			call.AddLocalValue(e.Name, f)
		}
		for i, a := range e.Args {
			var v values.Value = values.Null{}
			if i < len(args) && args[i] != nil {
				v = args[i]
			} else if a.Default != nil {
				dv, err := a.Default.Eval(call)
				if err != nil {
					return nil, err
				}
				v = dv
			}
			call.AddLocalValue(a.Name, v)
		}
		return e.Body.Eval(call)
	}
	return f
}

func (e *FormulaExpression) Dependencies() *set.Set[string] {
	deps := set.New[string](0)
	for _, a := range e.Args {
		if a.Type != nil {
			deps.InsertSet(a.Type.Dependencies())
		}
		if a.Default != nil {
			deps.InsertSet(a.Default.Dependencies())
		}
	}
	if e.ReturnType != nil {
		deps.InsertSet(e.ReturnType.Dependencies())
	}
	deps.InsertSet(e.Body.Dependencies())
	for _, a := range e.Args {
		deps.Remove(a.Name)
	}
	for _, g := range e.Generics {
		deps.Remove(g)
	}
	if e.Name != "" {
		deps.Remove(e.Name)
	}
	return deps
}

// Header 返回 `name<T>(args): R`，不含 fn 关键字与函数体。
func (e *FormulaExpression) Header() string {
	var b strings.Builder
	b.WriteString(e.Name)
	if len(e.Generics) > 0 {
		b.WriteString("<" + strings.Join(e.Generics, ", ") + ">")
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		var p strings.Builder
		switch a.Spread {
		case types.PositionalSpread:
			p.WriteString("...")
		case types.KwargsSpread:
			p.WriteString("**")
		}
		if a.Positional {
			p.WriteString("# ")
		}
		p.WriteString(a.Name)
		if a.Type != nil {
			p.WriteString(": " + a.Type.ToCode())
		}
		if a.Default != nil {
			p.WriteString(" = " + a.Default.ToCode())
		}
		parts[i] = p.String()
	}
	b.WriteString("(" + strings.Join(parts, ", ") + ")")
	if e.ReturnType != nil {
		b.WriteString(": " + e.ReturnType.ToCode())
	}
	return b.String()
}

func (e *FormulaExpression) ToCode() string {
	header := e.Header()
	if e.Name != "" {
		header = " " + header
	}
	return "fn" + header + " => " + e.Body.ToCode()
}

func (e *FormulaExpression) ToLisp() string {
	names := make([]string, len(e.Args))
	for i, a := range e.Args {
		names[i] = a.Name
	}
	return "(fn " + e.Name + "(" + strings.Join(names, " ") + ") " + e.Body.ToLisp() + ")"
}

func (e *FormulaExpression) Children() []Expression {
	var out []Expression
	for _, a := range e.Args {
		if a.Default != nil {
			out = append(out, a.Default)
		}
	}
	return append(out, e.Body)
}
