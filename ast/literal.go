package ast

import (
	"strconv"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type (
	NullLiteral struct {
		Base
	}

	BooleanLiteral struct {
		Base
		Value bool
	}

	IntLiteral struct {
		Base
		Value int64
	}

	FloatLiteral struct {
		Base
		Value float64
	}

	StringLiteral struct {
		Base
		Value string
	}
)

func (*NullLiteral) GetType(runtime.Runtime) (types.Type, error) { return types.Null{}, nil }
func (e *BooleanLiteral) GetType(runtime.Runtime) (types.Type, error) {
	return types.LiteralBoolean{Value: e.Value}, nil
}
func (e *IntLiteral) GetType(runtime.Runtime) (types.Type, error) {
	return types.LiteralInt{Value: e.Value}, nil
}
func (e *FloatLiteral) GetType(runtime.Runtime) (types.Type, error) {
	return types.LiteralFloat{Value: e.Value}, nil
}
func (e *StringLiteral) GetType(runtime.Runtime) (types.Type, error) {
	return types.LiteralString{Value: e.Value}, nil
}

func (*NullLiteral) Eval(runtime.Runtime) (values.Value, error) { return values.Null{}, nil }
func (e *BooleanLiteral) Eval(runtime.Runtime) (values.Value, error) {
	return values.Boolean(e.Value), nil
}
func (e *IntLiteral) Eval(runtime.Runtime) (values.Value, error)   { return values.Int(e.Value), nil }
func (e *FloatLiteral) Eval(runtime.Runtime) (values.Value, error) { return values.Float(e.Value), nil }
func (e *StringLiteral) Eval(runtime.Runtime) (values.Value, error) {
	return values.String(e.Value), nil
}

func (*NullLiteral) Dependencies() *set.Set[string]    { return set.New[string](0) }
func (*BooleanLiteral) Dependencies() *set.Set[string] { return set.New[string](0) }
func (*IntLiteral) Dependencies() *set.Set[string]     { return set.New[string](0) }
func (*FloatLiteral) Dependencies() *set.Set[string]   { return set.New[string](0) }
func (*StringLiteral) Dependencies() *set.Set[string]  { return set.New[string](0) }

// 字面量可以出现在关系公式的右侧，例如 `x > 5`。
func (e *NullLiteral) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	return literalFormula(rt, e)
}
func (e *BooleanLiteral) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	return literalFormula(rt, e)
}
func (e *IntLiteral) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	return literalFormula(rt, e)
}
func (e *FloatLiteral) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	return literalFormula(rt, e)
}
func (e *StringLiteral) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	return literalFormula(rt, e)
}

func literalFormula(rt runtime.Runtime, e Expression) (runtime.Formula, bool) {
	t, err := e.GetType(rt)
	if err != nil {
		return nil, false
	}
	return runtime.LiteralFormula{Type: t}, true
}

func (*NullLiteral) ToCode() string      { return "null" }
func (e *BooleanLiteral) ToCode() string { return strconv.FormatBool(e.Value) }
func (e *IntLiteral) ToCode() string     { return strconv.FormatInt(e.Value, 10) }
func (e *FloatLiteral) ToCode() string   { return types.FormatFloat(e.Value) }
func (e *StringLiteral) ToCode() string  { return strconv.Quote(e.Value) }

func (e *NullLiteral) ToLisp() string    { return e.ToCode() }
func (e *BooleanLiteral) ToLisp() string { return e.ToCode() }
func (e *IntLiteral) ToLisp() string     { return e.ToCode() }
func (e *FloatLiteral) ToLisp() string   { return e.ToCode() }
func (e *StringLiteral) ToLisp() string  { return e.ToCode() }

func (*NullLiteral) Children() []Expression    { return nil }
func (*BooleanLiteral) Children() []Expression { return nil }
func (*IntLiteral) Children() []Expression     { return nil }
func (*FloatLiteral) Children() []Expression   { return nil }
func (*StringLiteral) Children() []Expression  { return nil }
