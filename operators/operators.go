// Package operators 实现 Formula 的运算符框架：二元、一元与后缀运算节点。
//
// 每个二元运算符提供两个彼此独立的函数：operatorType 计算类型，operatorEval 求值。
// 分发器负责把联合类型展开成成员的笛卡尔积，所以单个运算符永远看不到联合类型。
package operators

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/parser/operator"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type binaryOperator interface {
	operatorType(rt runtime.Runtime, lhs, rhs types.Type, lhsExpr, rhsExpr ast.Expression) (types.Type, error)
	// rhs 是惰性的，短路运算符可以不计算右侧。
	operatorEval(rt runtime.Runtime, lhs values.Value, rhs func() (values.Value, error), lhsExpr, rhsExpr ast.Expression) (values.Value, error)
}

// wholeTyper 由需要看到完整操作数类型的运算符实现（and、or、??），不经过联合类型分发。
type wholeTyper interface {
	wholeType(rt runtime.Runtime, o *BinaryOperation) (types.Type, error)
}

// narrower 由可以产生收窄事实的运算符实现。
type narrower interface {
	trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error)
	falseStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error)
}

// binder 由右侧需要在左侧的绑定中求值的运算符实现（and）。
type binder interface {
	evalBinding(rt runtime.Runtime, o *BinaryOperation) (values.Value, runtime.Runtime, error)
}

var binaryOperators = map[string]binaryOperator{
	"or":      or{},
	"and":     and{},
	"??":      coalesce{},
	"==":      equality{cmp: runtime.Eq},
	"!=":      equality{cmp: runtime.Ne},
	"<":       comparison{cmp: runtime.Lt},
	"<=":      comparison{cmp: runtime.Le},
	">":       comparison{cmp: runtime.Gt},
	">=":      comparison{cmp: runtime.Ge},
	"has":     has{present: true},
	"!has":    has{present: false},
	"matches": matches{},
	"+":       arithmetic{op: "+"},
	"-":       arithmetic{op: "-"},
	"*":       arithmetic{op: "*"},
	"/":       arithmetic{op: "/"},
	"//":      arithmetic{op: "//"},
	"%":       arithmetic{op: "%"},
	"**":      arithmetic{op: "**"},
	"<>":      concatString{},
	"++":      concatArray{},
	"~~":      merge{},
}

// IsBinary 判断 symbol 是否是由 BinaryOperation 实现的二元运算符。
// `is`、`!is`、`|>`、`?|>` 有各自的节点。
func IsBinary(symbol string) bool {
	_, ok := binaryOperators[symbol]
	return ok
}

// BinaryOperation 是 `lhs <op> rhs`。
type BinaryOperation struct {
	ast.Base
	Operator string
	Lhs      ast.Expression
	Rhs      ast.Expression
}

// NewBinary 按符号构造运算节点，供解析器使用。
func NewBinary(symbol string, lhs, rhs ast.Expression) (ast.Expression, error) {
	if IsPipe(symbol) {
		return &PipeOperation{Optional: symbol == "?|>", Lhs: lhs, Rhs: rhs}, nil
	}
	if !IsBinary(symbol) {
		return nil, fmt.Errorf("unknown operator %s", symbol)
	}
	return &BinaryOperation{Operator: symbol, Lhs: lhs, Rhs: rhs}, nil
}

func IsPipe(symbol string) bool {
	return operator.IsPipe(symbol)
}

func (o *BinaryOperation) impl() (binaryOperator, error) {
	impl, ok := binaryOperators[o.Operator]
	if !ok {
		return nil, ast.Errorf(o, "unknown operator %s", o.Operator)
	}
	return impl, nil
}

func (o *BinaryOperation) GetType(rt runtime.Runtime) (types.Type, error) {
	impl, err := o.impl()
	if err != nil {
		return nil, err
	}
	if w, ok := impl.(wholeTyper); ok {
		return w.wholeType(rt, o)
	}
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	rtT, err := o.Rhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	return dispatch(rt, o, impl, lt, rtT)
}

// dispatch 把运算符分发到两侧联合类型成员的笛卡尔积上，结果为 Never 的组合被跳过。
func dispatch(rt runtime.Runtime, o *BinaryOperation, impl binaryOperator, lt, rtT types.Type) (types.Type, error) {
	var out []types.Type
	var errs *multierror.Error
	for _, l := range types.Members(lt) {
		for _, r := range types.Members(rtT) {
			t, err := impl.operatorType(rt, l, r, o.Lhs, o.Rhs)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if types.IsNever(t) {
				continue
			}
			out = append(out, t)
		}
	}
	if errs != nil {
		return nil, ast.Bubble(errs.Errors[0], o)
	}
	return types.OneOf(out...), nil
}

func (o *BinaryOperation) Eval(rt runtime.Runtime) (values.Value, error) {
	v, _, err := o.EvalBinding(rt)
	return v, err
}

func (o *BinaryOperation) EvalBinding(rt runtime.Runtime) (values.Value, runtime.Runtime, error) {
	impl, err := o.impl()
	if err != nil {
		return nil, rt, err
	}
	if b, ok := impl.(binder); ok {
		return b.evalBinding(rt, o)
	}
	lv, err := o.Lhs.Eval(rt)
	if err != nil {
		return nil, rt, err
	}
	rhs := func() (values.Value, error) { return o.Rhs.Eval(rt) }
	v, err := impl.operatorEval(rt, lv, rhs, o.Lhs, o.Rhs)
	if err != nil {
		return nil, rt, ast.Bubble(err, o)
	}
	return v, rt, nil
}

func (o *BinaryOperation) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if impl, err := o.impl(); err == nil {
		if n, ok := impl.(narrower); ok {
			return n.trueStuff(rt, o)
		}
	}
	return nil, nil
}

func (o *BinaryOperation) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if impl, err := o.impl(); err == nil {
		if n, ok := impl.(narrower); ok {
			return n.falseStuff(rt, o)
		}
	}
	return nil, nil
}

func (o *BinaryOperation) Dependencies() *set.Set[string] { return ast.Deps(o.Lhs, o.Rhs) }

func (o *BinaryOperation) op() operator.Operator { return operator.Binary[o.Operator] }

func (o *BinaryOperation) ToCode() string {
	op := o.op()
	return operand(o.Lhs, op, false) + " " + o.Operator + " " + operand(o.Rhs, op, true)
}

func (o *BinaryOperation) ToLisp() string {
	return "(" + o.Operator + " " + o.Lhs.ToLisp() + " " + o.Rhs.ToLisp() + ")"
}

func (o *BinaryOperation) Children() []ast.Expression { return []ast.Expression{o.Lhs, o.Rhs} }

// UnaryOperation 是 `not x`、`!x`、`-x`、`+x`。
type UnaryOperation struct {
	ast.Base
	Operator string
	Operand  ast.Expression
}

func (o *UnaryOperation) isNot() bool { return o.Operator == "not" || o.Operator == "!" }

func (o *UnaryOperation) GetType(rt runtime.Runtime) (types.Type, error) {
	t, err := o.Operand.GetType(rt)
	if err != nil {
		return nil, err
	}
	if o.isNot() {
		switch {
		case types.IsNever(types.ToFalseyType(t)):
			return types.LiteralBoolean{Value: false}, nil
		case types.IsNever(types.ToTruthyType(t)):
			return types.LiteralBoolean{Value: true}, nil
		}
		return types.Boolean{}, nil
	}
	var errs *multierror.Error
	out := types.Map(t, func(m types.Type) types.Type {
		r, err := negateType(o.Operator, m)
		if err != nil {
			errs = multierror.Append(errs, err)
			return types.Never{}
		}
		return r
	})
	if errs != nil {
		return nil, ast.Bubble(errs.Errors[0], o)
	}
	return out, nil
}

func negateType(op string, t types.Type) (types.Type, error) {
	if op == "+" {
		if types.IsNumber(t) || types.IsAll(t) {
			return t, nil
		}
		return nil, fmt.Errorf("cannot apply + to %s", t)
	}
	switch t := t.(type) {
	case types.LiteralInt:
		return types.LiteralInt{Value: -t.Value}, nil
	case types.LiteralFloat:
		return types.LiteralFloat{Value: -t.Value}, nil
	case types.Int:
		return types.IntRange(negInt(t.Max), negInt(t.Min)), nil
	case types.Float:
		return types.FloatRange(negFloat(t.Max), negFloat(t.Min)), nil
	case types.All:
		return t, nil
	}
	return nil, fmt.Errorf("cannot negate %s", t)
}

func negInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	return types.Ptr(-*v)
}

func negFloat(b *types.FloatBound) *types.FloatBound {
	if b == nil {
		return nil
	}
	return &types.FloatBound{Value: -b.Value, Exclusive: b.Exclusive}
}

func (o *UnaryOperation) Eval(rt runtime.Runtime) (values.Value, error) {
	v, err := o.Operand.Eval(rt)
	if err != nil {
		return nil, err
	}
	if o.isNot() {
		return values.Boolean(!values.IsTruthy(v)), nil
	}
	switch v := v.(type) {
	case values.Int:
		if o.Operator == "-" {
			return -v, nil
		}
		return v, nil
	case values.Float:
		if o.Operator == "-" {
			return -v, nil
		}
		return v, nil
	}
	return nil, ast.Errorf(o, "cannot apply %s to %s", o.Operator, v)
}

func (o *UnaryOperation) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if o.isNot() {
		return o.Operand.GimmeFalseStuff(rt)
	}
	return nil, nil
}

func (o *UnaryOperation) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if o.isNot() {
		return o.Operand.GimmeTrueStuff(rt)
	}
	return nil, nil
}

func (o *UnaryOperation) Dependencies() *set.Set[string] { return o.Operand.Dependencies() }

func (o *UnaryOperation) op() operator.Operator { return operator.Unary[o.Operator] }

func (o *UnaryOperation) ToCode() string {
	code := operand(o.Operand, o.op(), true)
	if o.Operator == "not" {
		return "not " + code
	}
	return o.Operator + code
}

func (o *UnaryOperation) ToLisp() string {
	return "(" + o.Operator + " " + o.Operand.ToLisp() + ")"
}

func (o *UnaryOperation) Children() []ast.Expression { return []ast.Expression{o.Operand} }

type precedenced interface {
	op() operator.Operator
}

// operand 按优先级与结合性决定操作数是否需要括号，保证 ToCode 的结果重新解析后结构不变。
func operand(e ast.Expression, parent operator.Operator, right bool) string {
	code := e.ToCode()
	switch child := e.(type) {
	case *UnaryOperation:
		if !right && child.op().Precedence < parent.Precedence {
			return "(" + code + ")"
		}
		return code
	case precedenced:
		p := child.op().Precedence
		if p < parent.Precedence {
			return "(" + code + ")"
		}
		if p == parent.Precedence && right == (parent.Associativity == operator.Left) {
			return "(" + code + ")"
		}
		return code
	case *ast.Let, *ast.If, *ast.Switch, *ast.FormulaExpression:
		return "(" + code + ")"
	case *ast.IntLiteral:
		if child.Value < 0 {
			return "(" + code + ")"
		}
	case *ast.FloatLiteral:
		if child.Value < 0 {
			return "(" + code + ")"
		}
	}
	return code
}
