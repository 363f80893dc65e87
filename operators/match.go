package operators

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/parser/operator"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// has 是 `x has "key"` / `x !has "key"`，检查字典的 key 或对象的属性。
type has struct {
	present bool
}

func (h has) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	if !types.IsString(rt) && !types.IsAll(rt) {
		return nil, fmt.Errorf("right side of has must be a String, got %s", rt)
	}
	switch lt := lt.(type) {
	case types.Dict, types.All:
		return types.Boolean{}, nil
	case types.Object:
		if lit, ok := rt.(types.LiteralString); ok {
			_, found := lt.Prop(lit.Value)
			return types.LiteralBoolean{Value: found == h.present}, nil
		}
		return types.Boolean{}, nil
	}
	return nil, fmt.Errorf("has expects a Dict or an object, got %s", lt)
}

func (h has) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	key, ok := rv.(values.String)
	if !ok {
		return nil, fmt.Errorf("right side of has must be a String, got %s", rv)
	}
	var found bool
	switch l := lv.(type) {
	case values.Dict:
		_, found = l.Get(key)
	case values.Object:
		_, found = l.Prop(string(key))
	default:
		return nil, fmt.Errorf("has expects a Dict or an object, got %s", lv)
	}
	return values.Boolean(found == h.present), nil
}

func (h has) trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	return h.facts(rt, o, h.present)
}

func (h has) falseStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	return h.facts(rt, o, !h.present)
}

func (has) facts(rt runtime.Runtime, o *BinaryOperation, present bool) ([]runtime.Relationship, error) {
	f, ok := o.Lhs.RelationshipFormula(rt)
	if !ok {
		return nil, nil
	}
	rT, err := o.Rhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	key, ok := rT.(types.LiteralString)
	if !ok {
		return nil, nil
	}
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	return []runtime.Relationship{{
		Formula:    f,
		Comparison: runtime.InstanceOf,
		Type:       types.NarrowNames(lt, key.Value, present),
	}}, nil
}

// matches 是 `x matches "re"`，右侧必须是字符串字面量才能收窄。
type matches struct{}

func (matches) operatorType(_ runtime.Runtime, lt, rt types.Type, _, rhs ast.Expression) (types.Type, error) {
	if !types.IsString(lt) && !types.IsAll(lt) {
		return nil, fmt.Errorf("matches expects a String, got %s", lt)
	}
	if !types.IsString(rt) && !types.IsAll(rt) {
		return nil, fmt.Errorf("right side of matches must be a String, got %s", rt)
	}
	if lit, ok := rt.(types.LiteralString); ok {
		re, err := regexp.Compile(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid regular expression %s: %w", rhs.ToCode(), err)
		}
		if l, ok := lt.(types.LiteralString); ok {
			return types.LiteralBoolean{Value: re.MatchString(l.Value)}, nil
		}
	}
	return types.Boolean{}, nil
}

func (matches) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	s, ok := lv.(values.String)
	if !ok {
		return nil, fmt.Errorf("matches expects a String, got %s", lv)
	}
	pattern, ok := rv.(values.String)
	if !ok {
		return nil, fmt.Errorf("right side of matches must be a String, got %s", rv)
	}
	re, err := regexp.Compile(string(pattern))
	if err != nil {
		return nil, err
	}
	return values.Boolean(re.MatchString(string(s))), nil
}

func (matches) trueStuff(rt runtime.Runtime, o *BinaryOperation) ([]runtime.Relationship, error) {
	f, ok := o.Lhs.RelationshipFormula(rt)
	if !ok {
		return nil, nil
	}
	rT, err := o.Rhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	lit, ok := rT.(types.LiteralString)
	if !ok {
		return nil, nil
	}
	re, err := regexp.Compile(lit.Value)
	if err != nil {
		return nil, err
	}
	lt, err := o.Lhs.GetType(rt)
	if err != nil {
		return nil, err
	}
	return []runtime.Relationship{{
		Formula:    f,
		Comparison: runtime.InstanceOf,
		Type:       types.NarrowRegex(lt, re),
	}}, nil
}

// 正则不匹配无法用类型表达。
func (matches) falseStuff(runtime.Runtime, *BinaryOperation) ([]runtime.Relationship, error) {
	return nil, nil
}

// IsOperation 是 `subject is pattern` / `subject !is pattern`。
// 匹配成功时 subject 被收窄，pattern 中的名字在条件为真的分支中可用。
type IsOperation struct {
	ast.Base
	Subject ast.Expression
	Pattern ast.Pattern
	Negated bool
}

func (o *IsOperation) GetType(rt runtime.Runtime) (types.Type, error) {
	st, err := o.Subject.GetType(rt)
	if err != nil {
		return nil, err
	}
	narrowed, err := o.Pattern.NarrowType(rt, st)
	if err != nil {
		return nil, ast.Bubble(err, o)
	}
	if types.IsNever(narrowed) {
		return types.LiteralBoolean{Value: o.Negated}, nil
	}
	return types.Boolean{}, nil
}

func (o *IsOperation) Eval(rt runtime.Runtime) (values.Value, error) {
	v, _, err := o.EvalBinding(rt)
	return v, err
}

func (o *IsOperation) EvalBinding(rt runtime.Runtime) (values.Value, runtime.Runtime, error) {
	subject, err := o.Subject.Eval(rt)
	if err != nil {
		return nil, rt, err
	}
	ok, rels, err := o.Pattern.Match(rt, subject)
	if err != nil {
		return nil, rt, ast.Bubble(err, o)
	}
	if !ok || o.Negated {
		return values.Boolean(ok != o.Negated), rt, nil
	}
	bound, err := rt.Assume(rels)
	if err != nil {
		return nil, rt, ast.Bubble(err, o)
	}
	return values.Boolean(true), bound, nil
}

// matched 返回匹配成功时的事实：subject 收窄为模式的类型，并绑定模式中的名字。
func (o *IsOperation) matched(rt runtime.Runtime) ([]runtime.Relationship, error) {
	st, err := o.Subject.GetType(rt)
	if err != nil {
		return nil, err
	}
	narrowed, err := o.Pattern.NarrowType(rt, st)
	if err != nil {
		return nil, err
	}
	var rels []runtime.Relationship
	if f, ok := o.Subject.RelationshipFormula(rt); ok {
		rels = append(rels, runtime.Relationship{Formula: f, Comparison: runtime.InstanceOf, Type: narrowed})
	}
	bindings, err := o.Pattern.Bindings(rt, narrowed)
	if err != nil {
		return nil, err
	}
	return append(rels, bindings...), nil
}

// unmatched 只有在模式可以按类型排除时才有事实。
func (o *IsOperation) unmatched(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if !o.Pattern.Exhaustive() {
		return nil, nil
	}
	f, ok := o.Subject.RelationshipFormula(rt)
	if !ok {
		return nil, nil
	}
	st, err := o.Subject.GetType(rt)
	if err != nil {
		return nil, err
	}
	narrowed, err := o.Pattern.NarrowType(rt, st)
	if err != nil {
		return nil, err
	}
	if types.IsNever(narrowed) {
		return nil, nil
	}
	return []runtime.Relationship{{Formula: f, Comparison: runtime.NotInstanceOf, Type: narrowed}}, nil
}

func (o *IsOperation) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if o.Negated {
		return o.unmatched(rt)
	}
	return o.matched(rt)
}

func (o *IsOperation) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	if o.Negated {
		return o.matched(rt)
	}
	return o.unmatched(rt)
}

func (o *IsOperation) Dependencies() *set.Set[string] {
	deps := o.Subject.Dependencies()
	deps.InsertSet(o.Pattern.Dependencies())
	return deps
}

func (o *IsOperation) symbol() string {
	if o.Negated {
		return "!is"
	}
	return "is"
}

func (o *IsOperation) op() operator.Operator { return operator.Binary[o.symbol()] }

func (o *IsOperation) ToCode() string {
	return operand(o.Subject, o.op(), false) + " " + o.symbol() + " " + o.Pattern.ToCode()
}

func (o *IsOperation) ToLisp() string {
	return "(" + o.symbol() + " " + o.Subject.ToLisp() + " " + o.Pattern.ToCode() + ")"
}

func (o *IsOperation) Children() []ast.Expression { return []ast.Expression{o.Subject} }
