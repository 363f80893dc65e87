package ast

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// 类型表达式的 GetType 返回 Meta{Of: T}，Eval 返回 TypeValue{Of: T}。
// 需要 T 本身时使用 ResolveType。

type (
	// BuiltinType 是 Int、Float、String、Boolean、Any、Never、View，
	// 以及容器类型 Array(T)、Dict(T)、Set(T)，可以带有区间参数：
	//
	//	Int(>=0, <10)
	//	String(length: >=1, matches: "^[a-z]+$")
	//	Array(Int, length: <=3)
	BuiltinType struct {
		Base
		Name string
		Args []TypeArg
	}

	// TypeArg 是类型参数。Name 为空且 Op 为空时 Value 是元素类型。
	TypeArg struct {
		Name  string
		Op    string
		Value Expression
	}

	ObjectType struct {
		Base
		Props []ObjectTypeProp
	}

	ObjectTypeProp struct {
		Name string
		Type Expression
	}

	// FormulaType 是 `fn<T>(# a: T, b?: Int, ...# rest: Array(T)): T`。
	FormulaType struct {
		Base
		Generics []string
		Args     []FormulaTypeArg
		Return   Expression
	}

	FormulaTypeArg struct {
		Name       string
		Type       Expression
		Positional bool
		Optional   bool
		Spread     types.Spread
	}

	UnionType struct {
		Base
		Of []Expression
	}

	// OptionalType 是 `T?`，等价于 `T | null`。
	OptionalType struct {
		Base
		Of Expression
	}

	// LiteralType 是出现在类型位置上的字面量，例如 `"a" | "b"`。
	LiteralType struct {
		Base
		Literal Expression
	}

	// TypeReference 引用类型声明、class、enum 或泛型参数。
	TypeReference struct {
		Base
		Name string
	}
)

// BuiltinTypeNames 是解析器识别为 BuiltinType 的名字。
var BuiltinTypeNames = map[string]bool{
	"Int": true, "Float": true, "String": true, "Boolean": true,
	"Any": true, "Never": true, "View": true,
	"Array": true, "Dict": true, "Set": true,
}

func (e *BuiltinType) GetType(rt runtime.Runtime) (types.Type, error) {
	t, err := e.resolve(rt)
	if err != nil {
		return nil, err
	}
	return types.Meta{Of: t}, nil
}

func (e *BuiltinType) Eval(rt runtime.Runtime) (values.Value, error) {
	t, err := e.resolve(rt)
	if err != nil {
		return nil, err
	}
	return values.TypeValue{Of: t}, nil
}

func (e *BuiltinType) resolve(rt runtime.Runtime) (types.Type, error) {
	var of types.Type
	var length types.Length
	var regexes []*regexp.Regexp
	var lo, hi *types.FloatBound
	var ilo, ihi *int64

	for _, arg := range e.Args {
		switch {
		case arg.Name == "" && arg.Op == "":
			if of != nil {
				return nil, Errorf(arg.Value, "%s takes a single element type", e.Name)
			}
			t, err := ResolveType(rt, arg.Value)
			if err != nil {
				return nil, err
			}
			of = t
		case arg.Name == "length":
			n, err := intArg(arg.Value)
			if err != nil {
				return nil, err
			}
			length = length.Narrow(lengthOp(arg.Op), int(n))
		case arg.Name == "matches":
			s, ok := arg.Value.(*StringLiteral)
			if !ok {
				return nil, Errorf(arg.Value, "matches: expects a string literal")
			}
			re, err := regexp.Compile(s.Value)
			if err != nil {
				return nil, Errorf(arg.Value, "invalid regex: %v", err)
			}
			regexes = append(regexes, re)
		case arg.Name == "" && e.Name == "Int":
			n, err := intArg(arg.Value)
			if err != nil {
				return nil, err
			}
			ilo, ihi = intBound(ilo, ihi, arg.Op, n)
		case arg.Name == "" && e.Name == "Float":
			f, err := floatArg(arg.Value)
			if err != nil {
				return nil, err
			}
			lo, hi = floatBound(lo, hi, arg.Op, f)
		default:
			return nil, Errorf(e, "unexpected argument %s for %s", arg.code(), e.Name)
		}
	}

	switch e.Name {
	case "Int":
		return types.IntRange(ilo, ihi), nil
	case "Float":
		return types.FloatRange(lo, hi), nil
	case "String":
		if length.Empty() {
			return types.Never{}, nil
		}
		return types.String{Length: length, Regexes: regexes}, nil
	case "Boolean":
		return types.Boolean{}, nil
	case "Any":
		return types.All{}, nil
	case "Never":
		return types.Never{}, nil
	case "View":
		return types.View{}, nil
	}
	if of == nil {
		of = types.All{}
	}
	if length.Empty() {
		return types.Never{}, nil
	}
	switch e.Name {
	case "Array":
		return types.Array{Of: of, Length: length}, nil
	case "Dict":
		return types.Dict{Of: of, Length: length}, nil
	case "Set":
		return types.Set{Of: of, Length: length}, nil
	}
	return nil, Errorf(e, "unknown type %s", e.Name)
}

func lengthOp(op string) string {
	if op == "=" {
		return "=="
	}
	return op
}

func intArg(e Expression) (int64, error) {
	if i, ok := e.(*IntLiteral); ok {
		return i.Value, nil
	}
	return 0, Errorf(e, "expected an integer literal, found %s", e.ToCode())
}

func floatArg(e Expression) (float64, error) {
	switch e := e.(type) {
	case *IntLiteral:
		return float64(e.Value), nil
	case *FloatLiteral:
		return e.Value, nil
	}
	return 0, Errorf(e, "expected a number literal, found %s", e.ToCode())
}

func intBound(lo, hi *int64, op string, n int64) (*int64, *int64) {
	raise := func(v int64) {
		if lo == nil || v > *lo {
			lo = types.Ptr(v)
		}
	}
	lower := func(v int64) {
		if hi == nil || v < *hi {
			hi = types.Ptr(v)
		}
	}
	switch op {
	case "=", "==":
		raise(n)
		lower(n)
	case ">=":
		raise(n)
	case ">":
		raise(n + 1)
	case "<=":
		lower(n)
	case "<":
		lower(n - 1)
	}
	return lo, hi
}

func floatBound(lo, hi *types.FloatBound, op string, f float64) (*types.FloatBound, *types.FloatBound) {
	switch op {
	case "=", "==":
		lo = &types.FloatBound{Value: f}
		hi = &types.FloatBound{Value: f}
	case ">=":
		lo = &types.FloatBound{Value: f}
	case ">":
		lo = &types.FloatBound{Value: f, Exclusive: true}
	case "<=":
		hi = &types.FloatBound{Value: f}
	case "<":
		hi = &types.FloatBound{Value: f, Exclusive: true}
	}
	return lo, hi
}

func (a TypeArg) code() string {
	switch {
	case a.Name != "":
		return a.Name + ": " + a.Op + a.Value.ToCode()
	default:
		return a.Op + a.Value.ToCode()
	}
}

func (e *BuiltinType) Dependencies() *set.Set[string] { return Deps(e.Children()...) }

func (e *BuiltinType) ToCode() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.code()
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (e *BuiltinType) ToLisp() string { return "(type " + e.ToCode() + ")" }

func (e *BuiltinType) Children() []Expression {
	var out []Expression
	for _, a := range e.Args {
		out = append(out, a.Value)
	}
	return out
}

func (e *ObjectType) resolve(rt runtime.Runtime) (types.Type, error) {
	props := make([]types.Prop, 0, len(e.Props))
	for _, p := range e.Props {
		t, err := ResolveType(rt, p.Type)
		if err != nil {
			return nil, err
		}
		props = append(props, types.Prop{Name: p.Name, Type: t})
	}
	return types.Object{Props: props}, nil
}

func (e *ObjectType) GetType(rt runtime.Runtime) (types.Type, error) { return metaOf(rt, e.resolve) }
func (e *ObjectType) Eval(rt runtime.Runtime) (values.Value, error)  { return typeValueOf(rt, e.resolve) }
func (e *ObjectType) Dependencies() *set.Set[string]                 { return Deps(e.Children()...) }

func (e *ObjectType) ToCode() string {
	parts := make([]string, len(e.Props))
	for i, p := range e.Props {
		parts[i] = p.Name + ": " + p.Type.ToCode()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (e *ObjectType) ToLisp() string { return "(type " + e.ToCode() + ")" }

func (e *ObjectType) Children() []Expression {
	out := make([]Expression, len(e.Props))
	for i, p := range e.Props {
		out[i] = p.Type
	}
	return out
}

// Signature 解析 formula 类型，泛型参数在子作用域中以 Meta{Generic} 的形式可见。
func (e *FormulaType) Signature(rt runtime.Runtime) (types.Formula, error) {
	child := rt.Child()
	var sig types.Formula
	for _, name := range e.Generics {
		g := types.NewGeneric(name)
		sig.Generics = append(sig.Generics, g)
		child.AddLocalType(name, types.Meta{Of: g})
	}
	for _, a := range e.Args {
		t, err := ResolveType(child, a.Type)
		if err != nil {
			return sig, err
		}
		sig.Args = append(sig.Args, types.Argument{
			Name:       a.Name,
			Type:       t,
			Positional: a.Positional,
			Required:   !a.Optional && a.Spread == types.NoSpread,
			Spread:     a.Spread,
		})
	}
	ret, err := ResolveType(child, e.Return)
	if err != nil {
		return sig, err
	}
	sig.Return = ret
	return sig, nil
}

func (e *FormulaType) resolve(rt runtime.Runtime) (types.Type, error) {
	return e.Signature(rt)
}

func (e *FormulaType) GetType(rt runtime.Runtime) (types.Type, error) { return metaOf(rt, e.resolve) }
func (e *FormulaType) Eval(rt runtime.Runtime) (values.Value, error) {
	return typeValueOf(rt, e.resolve)
}

func (e *FormulaType) Dependencies() *set.Set[string] {
	deps := Deps(e.Children()...)
	for _, g := range e.Generics {
		deps.Remove(g)
	}
	return deps
}

func (e *FormulaType) ToCode() string {
	var b strings.Builder
	b.WriteString("fn")
	if len(e.Generics) > 0 {
		b.WriteString("<" + strings.Join(e.Generics, ", ") + ">")
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.code()
	}
	fmt.Fprintf(&b, "(%s): %s", strings.Join(parts, ", "), e.Return.ToCode())
	return b.String()
}

func (a FormulaTypeArg) code() string {
	var b strings.Builder
	switch a.Spread {
	case types.PositionalSpread:
		b.WriteString("...")
	case types.KwargsSpread:
		b.WriteString("**")
	}
	if a.Positional {
		b.WriteString("# ")
	}
	if a.Name != "" {
		b.WriteString(a.Name)
		if a.Optional {
			b.WriteString("?")
		}
		b.WriteString(": ")
	}
	b.WriteString(a.Type.ToCode())
	return b.String()
}

func (e *FormulaType) ToLisp() string { return "(type " + e.ToCode() + ")" }

func (e *FormulaType) Children() []Expression {
	out := make([]Expression, 0, len(e.Args)+1)
	for _, a := range e.Args {
		out = append(out, a.Type)
	}
	return append(out, e.Return)
}

func (e *UnionType) resolve(rt runtime.Runtime) (types.Type, error) {
	ts := make([]types.Type, 0, len(e.Of))
	for _, m := range e.Of {
		t, err := ResolveType(rt, m)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return types.OneOf(ts...), nil
}

func (e *UnionType) GetType(rt runtime.Runtime) (types.Type, error) { return metaOf(rt, e.resolve) }
func (e *UnionType) Eval(rt runtime.Runtime) (values.Value, error)  { return typeValueOf(rt, e.resolve) }
func (e *UnionType) Dependencies() *set.Set[string]                 { return Deps(e.Of...) }

func (e *UnionType) ToCode() string {
	parts := make([]string, len(e.Of))
	for i, m := range e.Of {
		parts[i] = typeOperand(m)
	}
	return strings.Join(parts, " | ")
}

func (e *UnionType) ToLisp() string         { return lispList("oneof", e.Of) }
func (e *UnionType) Children() []Expression { return e.Of }

// typeOperand 给会吞掉后续 `|` 的类型加上括号。
func typeOperand(e Expression) string {
	switch e.(type) {
	case *FormulaType, *UnionType:
		return "(" + e.ToCode() + ")"
	}
	return e.ToCode()
}

func (e *OptionalType) resolve(rt runtime.Runtime) (types.Type, error) {
	t, err := ResolveType(rt, e.Of)
	if err != nil {
		return nil, err
	}
	return types.Optional(t), nil
}

func (e *OptionalType) GetType(rt runtime.Runtime) (types.Type, error) { return metaOf(rt, e.resolve) }
func (e *OptionalType) Eval(rt runtime.Runtime) (values.Value, error) {
	return typeValueOf(rt, e.resolve)
}
func (e *OptionalType) Dependencies() *set.Set[string] { return e.Of.Dependencies() }
func (e *OptionalType) ToCode() string                 { return typeOperand(e.Of) + "?" }
func (e *OptionalType) ToLisp() string                 { return "(optional " + e.Of.ToLisp() + ")" }
func (e *OptionalType) Children() []Expression         { return []Expression{e.Of} }

func (e *LiteralType) resolve(rt runtime.Runtime) (types.Type, error) {
	return e.Literal.GetType(rt)
}

func (e *LiteralType) GetType(rt runtime.Runtime) (types.Type, error) { return metaOf(rt, e.resolve) }
func (e *LiteralType) Eval(rt runtime.Runtime) (values.Value, error) {
	return typeValueOf(rt, e.resolve)
}
func (e *LiteralType) Dependencies() *set.Set[string] { return set.New[string](0) }
func (e *LiteralType) ToCode() string                 { return e.Literal.ToCode() }
func (e *LiteralType) ToLisp() string                 { return "(type " + e.Literal.ToLisp() + ")" }
func (e *LiteralType) Children() []Expression         { return []Expression{e.Literal} }

func (e *TypeReference) GetType(rt runtime.Runtime) (types.Type, error) {
	t, ok := localType(rt, e.Name)
	if !ok {
		return nil, Errorf(e, "unknown type %s%s", e.Name, DidYouMean(e.Name, rt.LocalNames()))
	}
	if _, ok := t.(types.Meta); !ok {
		return nil, Errorf(e, "%s is not a type", e.Name)
	}
	return t, nil
}

func (e *TypeReference) Eval(rt runtime.Runtime) (values.Value, error) {
	if v, ok := rt.LocalValue(e.Name); ok {
		if tv, ok := v.(values.TypeValue); ok {
			return tv, nil
		}
		return nil, Errorf(e, "%s is not a type", e.Name)
	}
	// 泛型参数只有类型
	t, err := ResolveType(rt, e)
	if err != nil {
		return nil, err
	}
	return values.TypeValue{Of: t}, nil
}

func (e *TypeReference) Dependencies() *set.Set[string] { return set.From([]string{e.Name}) }
func (e *TypeReference) ToCode() string                 { return e.Name }
func (e *TypeReference) ToLisp() string                 { return e.Name }
func (e *TypeReference) Children() []Expression         { return nil }

func metaOf(rt runtime.Runtime, resolve func(runtime.Runtime) (types.Type, error)) (types.Type, error) {
	t, err := resolve(rt)
	if err != nil {
		return nil, err
	}
	return types.Meta{Of: t}, nil
}

func typeValueOf(rt runtime.Runtime, resolve func(runtime.Runtime) (types.Type, error)) (values.Value, error) {
	t, err := resolve(rt)
	if err != nil {
		return nil, err
	}
	return values.TypeValue{Of: t}, nil
}
