package operators

import (
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// PropertyAccess 是 `receiver.name` 与 `receiver?.name`。
type PropertyAccess struct {
	ast.Base
	Receiver ast.Expression
	Name     string
	Optional bool
}

func (o *PropertyAccess) GetType(rt runtime.Runtime) (types.Type, error) {
	t, err := o.Receiver.GetType(rt)
	if err != nil {
		return nil, err
	}
	nullable := false
	if o.Optional && types.Some(t, types.IsNull) {
		nullable = true
		t = types.NarrowTypeIsNot(t, types.Null{})
		if types.IsNever(t) {
			return types.Null{}, nil
		}
	}
	prop, ok := types.PropType(t, o.Name)
	if !ok {
		if types.Some(t, types.IsNull) {
			return nil, ast.Errorf(o, "%s may be null, use ?.%s", o.Receiver.ToCode(), o.Name)
		}
		return nil, ast.Errorf(o, "property %q does not exist on %s%s", o.Name, t, ast.DidYouMean(o.Name, types.PropNames(t)))
	}
	if nullable {
		return types.Optional(prop), nil
	}
	return prop, nil
}

func (o *PropertyAccess) Eval(rt runtime.Runtime) (values.Value, error) {
	v, err := o.Receiver.Eval(rt)
	if err != nil {
		return nil, err
	}
	if _, isNull := v.(values.Null); isNull && o.Optional {
		return values.Null{}, nil
	}
	out, err := propValue(v, o.Name)
	if err != nil {
		return nil, ast.Bubble(err, o)
	}
	return out, nil
}

// propValue 读取属性。字典的 length 优先于同名 key，缺失的 key 为 null。
func propValue(v values.Value, name string) (values.Value, error) {
	switch v := v.(type) {
	case values.Object:
		if p, ok := v.Prop(name); ok {
			return p, nil
		}
	case values.Namespace:
		if m, ok := v.Member(name); ok {
			return m, nil
		}
	case values.TypeValue:
		for _, c := range v.Cases {
			if c.Name == name {
				return c.Value, nil
			}
		}
	case values.Dict:
		if name == "length" {
			return values.Int(len(v.Entries)), nil
		}
		if p, ok := v.Get(values.String(name)); ok {
			return p, nil
		}
		return values.Null{}, nil
	case values.Array:
		if name == "length" {
			return values.Int(len(v.Items)), nil
		}
	case values.Set:
		if name == "length" {
			return values.Int(len(v.Items)), nil
		}
	case values.String:
		if name == "length" {
			return values.Int(utf8.RuneCountInString(string(v))), nil
		}
	}
	return nil, fmt.Errorf("property %q does not exist on %s", name, v)
}

// ReplaceWithType 把属性的新类型写回接收者：`user.name` 收窄后，`user` 的类型随之更新。
func (o *PropertyAccess) ReplaceWithType(rt runtime.Runtime, t types.Type) (runtime.Runtime, error) {
	rT, err := o.Receiver.GetType(rt)
	if err != nil {
		return rt, err
	}
	return o.Receiver.ReplaceWithType(rt, types.ReplacingProp(rT, o.Name, t))
}

func (o *PropertyAccess) RelationshipFormula(rt runtime.Runtime) (runtime.Formula, bool) {
	if o.Optional {
		return nil, false
	}
	f, ok := o.Receiver.RelationshipFormula(rt)
	if !ok || isLiteralFormula(f) {
		return nil, false
	}
	return runtime.PropertyFormula{Of: f, Name: o.Name}, true
}

func (o *PropertyAccess) GimmeTrueStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, o, runtime.Truthy), nil
}

func (o *PropertyAccess) GimmeFalseStuff(rt runtime.Runtime) ([]runtime.Relationship, error) {
	return truthiness(rt, o, runtime.Falsey), nil
}

func truthiness(rt runtime.Runtime, e ast.Expression, c runtime.Comparison) []runtime.Relationship {
	f, ok := e.RelationshipFormula(rt)
	if !ok {
		return nil
	}
	return []runtime.Relationship{{Formula: f, Comparison: c}}
}

func (o *PropertyAccess) Dependencies() *set.Set[string] { return o.Receiver.Dependencies() }

func (o *PropertyAccess) ToCode() string {
	dot := "."
	if o.Optional {
		dot = "?."
	}
	return postfixOperand(o.Receiver) + dot + o.Name
}

func (o *PropertyAccess) ToLisp() string {
	dot := "."
	if o.Optional {
		dot = "?."
	}
	return "(" + dot + " " + o.Receiver.ToLisp() + " " + o.Name + ")"
}

func (o *PropertyAccess) Children() []ast.Expression { return []ast.Expression{o.Receiver} }

// IndexAccess 是 `receiver[index]`，越界或缺失的 key 为 null。
type IndexAccess struct {
	ast.Base
	Receiver ast.Expression
	Index    ast.Expression
}

func (o *IndexAccess) GetType(rt runtime.Runtime) (types.Type, error) {
	t, err := o.Receiver.GetType(rt)
	if err != nil {
		return nil, err
	}
	it, err := o.Index.GetType(rt)
	if err != nil {
		return nil, err
	}
	out, err := types.IndexType(t, it)
	if err != nil {
		return nil, ast.Errorf(o, "%s", err)
	}
	return out, nil
}

func (o *IndexAccess) Eval(rt runtime.Runtime) (values.Value, error) {
	v, err := o.Receiver.Eval(rt)
	if err != nil {
		return nil, err
	}
	index, err := o.Index.Eval(rt)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case values.Array:
		if i, ok := index.(values.Int); ok {
			if i < 0 || int(i) >= len(v.Items) {
				return values.Null{}, nil
			}
			return v.Items[i], nil
		}
	case values.Dict:
		if item, ok := v.Get(index); ok {
			return item, nil
		}
		return values.Null{}, nil
	case values.String:
		if i, ok := index.(values.Int); ok {
			runes := []rune(string(v))
			if i < 0 || int(i) >= len(runes) {
				return values.Null{}, nil
			}
			return values.String(runes[i]), nil
		}
	case values.Object:
		if name, ok := index.(values.String); ok {
			if p, ok := v.Prop(string(name)); ok {
				return p, nil
			}
		}
	}
	return nil, ast.Errorf(o, "cannot index %s with %s", v, index)
}

func (o *IndexAccess) Dependencies() *set.Set[string] { return ast.Deps(o.Receiver, o.Index) }

func (o *IndexAccess) ToCode() string {
	return postfixOperand(o.Receiver) + "[" + o.Index.ToCode() + "]"
}

func (o *IndexAccess) ToLisp() string {
	return "([] " + o.Receiver.ToLisp() + " " + o.Index.ToLisp() + ")"
}

func (o *IndexAccess) Children() []ast.Expression { return []ast.Expression{o.Receiver, o.Index} }

// postfixOperand 给后缀运算的接收者加括号：除了引用、字面量字符串、容器与后缀运算本身以外都需要。
func postfixOperand(e ast.Expression) string {
	switch e.(type) {
	case *ast.Reference, *ast.StateReference, *ast.ActionReference, *ast.ThisReference,
		*ast.StringLiteral, *ast.NullLiteral, *ast.BooleanLiteral,
		*ast.ArrayExpression, *ast.SetExpression, *ast.DictExpression, *ast.ObjectExpression,
		*ast.BuiltinType, *ast.TypeReference,
		*PropertyAccess, *IndexAccess, *Invocation:
		return e.ToCode()
	}
	return "(" + e.ToCode() + ")"
}
