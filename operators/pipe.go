package operators

import (
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/parser/operator"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// PipeOperation 是 `lhs |> rhs`：rhs 中的 `#` 指向 lhs 的值。
// `?|>` 在 lhs 为 null 时直接得到 null，不计算 rhs。
type PipeOperation struct {
	ast.Base
	Lhs      ast.Expression
	Rhs      ast.Expression
	Optional bool
}

func (o *PipeOperation) symbol() string {
	if o.Optional {
		return "?|>"
	}
	return "|>"
}

func (o *PipeOperation) GetType(rt runtime.Runtime) (types.Type, error) {
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	nullable := false
	if o.Optional && types.Some(lt, types.IsNull) {
		nullable = true
		lt = types.NarrowTypeIsNot(lt, types.Null{})
		if types.IsNever(lt) {
			return types.Null{}, nil
		}
	}
	child := rt.Child()
	child.SetPipeType(lt)
	t, err := o.Rhs.GetType(child)
	if err != nil {
		return nil, ast.Bubble(err, o)
	}
	if nullable {
		return types.Optional(t), nil
	}
	return t, nil
}

func (o *PipeOperation) Eval(rt runtime.Runtime) (values.Value, error) {
	lv, err := o.Lhs.Eval(rt)
	if err != nil {
		return nil, err
	}
	if _, isNull := lv.(values.Null); isNull && o.Optional {
		return values.Null{}, nil
	}
	child := rt.Child()
	child.SetPipeValue(lv)
	return o.Rhs.Eval(child)
}

func (o *PipeOperation) Dependencies() *set.Set[string] { return ast.Deps(o.Lhs, o.Rhs) }

func (o *PipeOperation) op() operator.Operator { return operator.Binary[o.symbol()] }

func (o *PipeOperation) ToCode() string {
	op := o.op()
	return operand(o.Lhs, op, false) + " " + o.symbol() + " " + operand(o.Rhs, op, true)
}

func (o *PipeOperation) ToLisp() string {
	return "(" + o.symbol() + " " + o.Lhs.ToLisp() + " " + o.Rhs.ToLisp() + ")"
}

func (o *PipeOperation) Children() []ast.Expression { return []ast.Expression{o.Lhs, o.Rhs} }
