package operators

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Invocation 是 `callee(args)`。
type Invocation struct {
	ast.Base
	Callee ast.Expression
	Args   []Argument
}

// Argument 是调用中的一个实参：位置参数、`name: value`、`...xs` 或 `**obj`。
type Argument struct {
	Name   string
	Value  ast.Expression
	Spread bool
	Kwargs bool
}

func (a Argument) ToCode() string {
	switch {
	case a.Spread:
		return "..." + a.Value.ToCode()
	case a.Kwargs:
		return "**" + a.Value.ToCode()
	case a.Name != "":
		return a.Name + ": " + a.Value.ToCode()
	}
	return a.Value.ToCode()
}

func (o *Invocation) GetType(rt runtime.Runtime) (types.Type, error) {
	ct, err := o.Callee.GetType(rt)
	if err != nil {
		return nil, err
	}
	switch c := ct.(type) {
	case types.Formula:
		return o.check(rt, c)
	case types.Meta:
		if c.Constructor != nil {
			return o.check(rt, *c.Constructor)
		}
	case types.All:
		for _, a := range o.Args {
			if _, err := a.Value.GetType(rt); err != nil {
				return nil, err
			}
		}
		return types.All{}, nil
	}
	return nil, ast.Errorf(o, "%s is not callable, its type is %s", o.Callee.ToCode(), ct)
}

// binding 记录一个实参流向哪个形参。elem 为真时实参的类型对应形参的元素类型（...# 与 ** 形参）。
type binding struct {
	expr ast.Expression
	t    types.Type
	elem bool
}

type argBinder struct {
	sig      types.Formula
	bindings [][]binding
	provided []bool
	explicit []bool
	errs     *multierror.Error
	rest     int
	kwargs   int
}

func newArgBinder(sig types.Formula) *argBinder {
	b := &argBinder{
		sig:      sig,
		bindings: make([][]binding, len(sig.Args)),
		provided: make([]bool, len(sig.Args)),
		explicit: make([]bool, len(sig.Args)),
		rest:     -1,
		kwargs:   -1,
	}
	for i, a := range sig.Args {
		switch a.Spread {
		case types.PositionalSpread:
			b.rest = i
		case types.KwargsSpread:
			b.kwargs = i
		}
	}
	return b
}

func (b *argBinder) fail(e ast.Expression, format string, args ...any) {
	b.errs = multierror.Append(b.errs, ast.Errorf(e, format, args...))
}

func (b *argBinder) named(at ast.Expression, name string, bd binding) {
	for i, a := range b.sig.Args {
		if a.Name != name || a.Positional || a.Spread != types.NoSpread {
			continue
		}
		if b.explicit[i] {
			b.fail(at, "argument %q passed more than once", name)
			return
		}
		b.explicit[i] = true
		b.provided[i] = true
		b.bindings[i] = append(b.bindings[i], bd)
		return
	}
	if b.kwargs >= 0 {
		bd.elem = true
		b.bindings[b.kwargs] = append(b.bindings[b.kwargs], bd)
		return
	}
	var names []string
	for _, a := range b.sig.Args {
		if !a.Positional && a.Spread == types.NoSpread {
			names = append(names, a.Name)
		}
	}
	b.fail(at, "unknown argument %q%s", name, ast.DidYouMean(name, names))
}

// paramType 返回实参需要满足的形参类型。
func (b *argBinder) paramType(i int, bd binding) types.Type {
	pt := b.sig.Args[i].Type
	if !bd.elem {
		return pt
	}
	switch pt := pt.(type) {
	case types.Array:
		return pt.Of
	case types.Dict:
		return pt.Of
	}
	return types.All{}
}

// check 依次完成：实参分配、非 lambda 实参的泛型推断、lambda 的上下文类型推断、可赋值检查。
// 所有错误一起报告。
func (o *Invocation) check(rt runtime.Runtime, sig types.Formula) (types.Type, error) {
	args, err := o.relabel(sig)
	if err != nil {
		return nil, err
	}
	b := newArgBinder(sig)

	var positional []int
	for i, a := range sig.Args {
		if a.Positional && a.Spread == types.NoSpread {
			positional = append(positional, i)
		}
	}
	pi := 0
	for _, a := range args {
		switch {
		case a.Spread:
			t, err := a.Value.GetType(rt)
			if err != nil {
				b.errs = multierror.Append(b.errs, err)
				continue
			}
			of, length, ok := spreadElements(t)
			if !ok {
				b.fail(a.Value, "cannot spread %s into arguments", t)
				continue
			}
			n := 0
			for ; pi < len(positional); pi++ {
				p := positional[pi]
				b.bindings[p] = append(b.bindings[p], binding{expr: a.Value, t: of})
				if n < length.Min {
					b.provided[p] = true
				}
				n++
			}
			switch {
			case b.rest >= 0:
				b.bindings[b.rest] = append(b.bindings[b.rest], binding{expr: a.Value, t: of, elem: true})
			case length.Min > n:
				b.fail(a.Value, "too many arguments: %s has at least %d items, %d positional arguments left", a.Value.ToCode(), length.Min, n)
			}
		case a.Kwargs:
			t, err := a.Value.GetType(rt)
			if err != nil {
				b.errs = multierror.Append(b.errs, err)
				continue
			}
			switch t := t.(type) {
			case types.Object:
				for _, p := range t.Props {
					b.named(a.Value, p.Name, binding{expr: a.Value, t: p.Type})
				}
			case types.Dict:
				for _, name := range t.Names {
					b.named(a.Value, name, binding{expr: a.Value, t: t.Of})
				}
				if b.kwargs >= 0 {
					b.bindings[b.kwargs] = append(b.bindings[b.kwargs], binding{expr: a.Value, t: t.Of, elem: true})
				}
			case types.All:
			default:
				b.fail(a.Value, "cannot use %s as keyword arguments", t)
			}
		case a.Name != "":
			b.named(a.Value, a.Name, binding{expr: a.Value})
		default:
			switch {
			case pi < len(positional):
				p := positional[pi]
				b.bindings[p] = append(b.bindings[p], binding{expr: a.Value})
				b.provided[p] = true
				pi++
			case b.rest >= 0:
				b.bindings[b.rest] = append(b.bindings[b.rest], binding{expr: a.Value, elem: true})
			default:
				b.fail(a.Value, "too many arguments: expected %d, got %d", len(positional), countPositional(args))
			}
		}
	}

	m := make(map[int64]types.Type, len(sig.Generics))
	for _, g := range sig.Generics {
		m[g.ID] = nil
	}

	// 第一遍：非 lambda 实参
	for i := range b.bindings {
		for j := range b.bindings[i] {
			bd := &b.bindings[i][j]
			if bd.t == nil {
				if _, lambda := bd.expr.(*ast.FormulaExpression); lambda {
					continue
				}
				t, err := bd.expr.GetType(rt)
				if err != nil {
					b.errs = multierror.Append(b.errs, err)
					continue
				}
				bd.t = t
			}
			pt := b.paramType(i, *bd)
			if _, bare := pt.(types.Generic); bare {
				types.ResolveGenerics(pt, types.Widen(bd.t), m)
			} else {
				types.ResolveGenerics(pt, bd.t, m)
			}
		}
	}

	// 第二遍：lambda 在已推断出的形参类型下检查
	for i := range b.bindings {
		for j := range b.bindings[i] {
			bd := &b.bindings[i][j]
			fe, lambda := bd.expr.(*ast.FormulaExpression)
			if bd.t != nil || !lambda {
				continue
			}
			pt := b.paramType(i, *bd)
			var expected *types.Formula
			if f, ok := types.Substitute(pt, m).(types.Formula); ok {
				expected = &f
			}
			t, err := fe.GetTypeWithContext(rt, expected)
			if err != nil {
				b.errs = multierror.Append(b.errs, err)
				continue
			}
			bd.t = t
			types.ResolveGenerics(pt, t, m)
		}
	}

	for i := range b.bindings {
		for _, bd := range b.bindings[i] {
			if bd.t == nil {
				continue
			}
			want := types.Substitute(b.paramType(i, bd), m)
			if !types.CanBeAssignedTo(bd.t, want) {
				b.fail(bd.expr, "argument %s of %s expects %s, found %s", argLabel(sig.Args[i]), o.Callee.ToCode(), want, bd.t)
			}
		}
	}
	for i, a := range sig.Args {
		if a.Required && a.Spread == types.NoSpread && !b.provided[i] {
			b.fail(o, "missing required argument %s of %s", argLabel(a), o.Callee.ToCode())
		}
	}
	if b.errs == nil {
		for _, g := range sig.Generics {
			if m[g.ID] == nil {
				b.fail(o, "cannot infer generic %s of %s", g.Name, o.Callee.ToCode())
			}
		}
	}
	if b.errs != nil {
		return nil, ast.Bubble(b.errs, o)
	}
	return types.Substitute(sig.Return, m), nil
}

func argLabel(a types.Argument) string {
	if a.Name == "" {
		return "#"
	}
	return fmt.Sprintf("%q", a.Name)
}

func countPositional(args []Argument) int {
	n := 0
	for _, a := range args {
		if a.Name == "" && !a.Spread && !a.Kwargs {
			n++
		}
	}
	return n
}

// relabel 检查展开参数之后不能再有位置参数，并在简写调用（只传位置参数给全具名的 formula）时改为具名参数。
func (o *Invocation) relabel(sig types.Formula) ([]Argument, error) {
	spread := false
	positional, named := 0, 0
	for _, a := range o.Args {
		switch {
		case a.Spread || a.Kwargs:
			spread = true
		case a.Name != "":
			named++
		default:
			if spread {
				return nil, ast.Errorf(a.Value, "positional argument %s after a spread argument", a.Value.ToCode())
			}
			positional++
		}
	}
	if !values.IsShorthand(sig, positional, named, spread) {
		return o.Args, nil
	}
	out := make([]Argument, len(o.Args))
	for i, a := range o.Args {
		a.Name = sig.Args[i].Name
		out[i] = a
	}
	return out, nil
}

func spreadElements(t types.Type) (types.Type, types.Length, bool) {
	switch t := t.(type) {
	case types.Array:
		return t.Of, t.Length, true
	case types.Set:
		return t.Of, t.Length, true
	case types.All:
		return types.All{}, types.Length{}, true
	}
	return nil, types.Length{}, false
}

func (o *Invocation) Eval(rt runtime.Runtime) (values.Value, error) {
	cv, err := o.Callee.Eval(rt)
	if err != nil {
		return nil, err
	}
	var f values.Formula
	switch c := cv.(type) {
	case values.Formula:
		f = c
	case values.TypeValue:
		if c.Constructor == nil {
			return nil, ast.Errorf(o, "%s is not callable", o.Callee.ToCode())
		}
		f = *c.Constructor
	default:
		return nil, ast.Errorf(o, "%s is not callable", o.Callee.ToCode())
	}

	var positional []values.Value
	var named []values.NamedArg
	for _, a := range o.Args {
		v, err := a.Value.Eval(rt)
		if err != nil {
			return nil, err
		}
		switch {
		case a.Spread:
			switch v := v.(type) {
			case values.Array:
				positional = append(positional, v.Items...)
			case values.Set:
				positional = append(positional, v.Items...)
			default:
				return nil, ast.Errorf(a.Value, "cannot spread %s into arguments", v)
			}
		case a.Kwargs:
			switch v := v.(type) {
			case values.Object:
				for _, p := range v.Props {
					named = append(named, values.NamedArg{Name: p.Name, Value: p.Value})
				}
			case values.Dict:
				for _, e := range v.Entries {
					key, ok := e.Key.(values.String)
					if !ok {
						return nil, ast.Errorf(a.Value, "keyword argument names must be strings, got %s", e.Key)
					}
					named = append(named, values.NamedArg{Name: string(key), Value: e.Value})
				}
			default:
				return nil, ast.Errorf(a.Value, "cannot use %s as keyword arguments", v)
			}
		case a.Name != "":
			named = append(named, values.NamedArg{Name: a.Name, Value: v})
		default:
			positional = append(positional, v)
		}
	}
	out, err := values.CallNamed(f, positional, named)
	if err != nil {
		return nil, ast.Bubble(err, o)
	}
	return out, nil
}

func (o *Invocation) Dependencies() *set.Set[string] {
	deps := o.Callee.Dependencies()
	for _, a := range o.Args {
		deps.InsertSet(a.Value.Dependencies())
	}
	return deps
}

func (o *Invocation) ToCode() string {
	parts := make([]string, len(o.Args))
	for i, a := range o.Args {
		parts[i] = a.ToCode()
	}
	return postfixOperand(o.Callee) + "(" + strings.Join(parts, ", ") + ")"
}

func (o *Invocation) ToLisp() string {
	var sb strings.Builder
	sb.WriteString("(" + o.Callee.ToLisp())
	for _, a := range o.Args {
		sb.WriteString(" ")
		switch {
		case a.Spread:
			sb.WriteString("(... " + a.Value.ToLisp() + ")")
		case a.Kwargs:
			sb.WriteString("(** " + a.Value.ToLisp() + ")")
		case a.Name != "":
			sb.WriteString(":" + a.Name + " " + a.Value.ToLisp())
		default:
			sb.WriteString(a.Value.ToLisp())
		}
	}
	sb.WriteString(")")
	return sb.String()
}

func (o *Invocation) Children() []ast.Expression {
	out := []ast.Expression{o.Callee}
	for _, a := range o.Args {
		out = append(out, a.Value)
	}
	return out
}
