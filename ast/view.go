package ast

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type (
	// ViewElement 是 `<div class="c">{title}</div>`。
	// 大写开头的标签引用一个 view 声明，属性作为具名参数传入，子元素作为 children 参数。
	ViewElement struct {
		Base
		Tag     string
		Props   []ViewProp
		Content []Expression
	}

	ViewProp struct {
		Name  string
		Value Expression
	}

	// ViewText 是视图元素中的文本。
	ViewText struct {
		Base
		Text string
	}
)

func (e *ViewElement) isComponent() bool {
	r, _ := utf8.DecodeRuneInString(e.Tag)
	return unicode.IsUpper(r)
}

func (e *ViewElement) GetType(rt runtime.Runtime) (types.Type, error) {
	propTypes := make(map[string]types.Type, len(e.Props))
	for _, p := range e.Props {
		t, err := p.Value.GetType(rt)
		if err != nil {
			return nil, Bubble(err, e)
		}
		propTypes[p.Name] = t
	}
	var children []types.Type
	for _, c := range e.Content {
		t, err := c.GetType(rt)
		if err != nil {
			return nil, Bubble(err, e)
		}
		children = append(children, t)
	}
	if !e.isComponent() {
		return types.View{}, nil
	}

	t, ok := localType(rt, e.Tag)
	if !ok {
		return nil, Errorf(e, "unknown view %s%s", e.Tag, DidYouMean(e.Tag, rt.LocalNames()))
	}
	sig, ok := t.(types.Formula)
	if !ok {
		return nil, Errorf(e, "%s is not a view", e.Tag)
	}
	if len(e.Content) > 0 {
		propTypes["children"] = types.Array{Of: types.OneOf(children...), Length: types.Exactly(len(children))}
	}
	for name, pt := range propTypes {
		arg, ok := findArg(sig, name)
		if !ok {
			return nil, Errorf(e, "%s has no property %s", e.Tag, name)
		}
		if !types.CanBeAssignedTo(pt, arg.Type) {
			return nil, Errorf(e, "property %s of %s expects %s, found %s", name, e.Tag, arg.Type, pt)
		}
	}
	for _, arg := range sig.Args {
		if _, ok := propTypes[arg.Name]; !ok && arg.Required {
			return nil, Errorf(e, "missing property %s of %s", arg.Name, e.Tag)
		}
	}
	return sig.Return, nil
}

func findArg(sig types.Formula, name string) (types.Argument, bool) {
	for _, a := range sig.Args {
		if a.Name == name {
			return a, true
		}
	}
	return types.Argument{}, false
}

func (e *ViewElement) Eval(rt runtime.Runtime) (values.Value, error) {
	props := make([]values.Prop, 0, len(e.Props))
	for _, p := range e.Props {
		v, err := p.Value.Eval(rt)
		if err != nil {
			return nil, Bubble(err, e)
		}
		props = append(props, values.Prop{Name: p.Name, Value: v})
	}
	children := make([]values.Value, 0, len(e.Content))
	for _, c := range e.Content {
		v, err := c.Eval(rt)
		if err != nil {
			return nil, Bubble(err, e)
		}
		children = append(children, v)
	}
	if !e.isComponent() {
		return values.View{Tag: e.Tag, Props: props, Children: children}, nil
	}

	v, ok := rt.LocalValue(e.Tag)
	if !ok {
		return nil, Errorf(e, "unknown view %s", e.Tag)
	}
	f, ok := v.(values.Formula)
	if !ok {
		return nil, Errorf(e, "%s is not a view", e.Tag)
	}
	named := make([]values.NamedArg, 0, len(props)+1)
	for _, p := range props {
		named = append(named, values.NamedArg{Name: p.Name, Value: p.Value})
	}
	if len(children) > 0 {
		named = append(named, values.NamedArg{Name: "children", Value: values.Array{Items: children}})
	}
	out, err := values.CallNamed(f, nil, named)
	if err != nil {
		return nil, Bubble(err, e)
	}
	return out, nil
}

func (e *ViewElement) Dependencies() *set.Set[string] {
	deps := Deps(e.Children()...)
	if e.isComponent() {
		deps.Insert(e.Tag)
	}
	return deps
}

func (e *ViewElement) ToCode() string {
	var b strings.Builder
	b.WriteString("<" + e.Tag)
	for _, p := range e.Props {
		b.WriteString(" " + p.Name + "=")
		if s, ok := p.Value.(*StringLiteral); ok {
			b.WriteString(strconv.Quote(s.Value))
		} else {
			b.WriteString("{" + p.Value.ToCode() + "}")
		}
	}
	if len(e.Content) == 0 {
		b.WriteString(" />")
		return b.String()
	}
	b.WriteString(">")
	for _, c := range e.Content {
		switch c.(type) {
		case *ViewText, *ViewElement:
			b.WriteString(c.ToCode())
		default:
			b.WriteString("{" + c.ToCode() + "}")
		}
	}
	b.WriteString("</" + e.Tag + ">")
	return b.String()
}

func (e *ViewElement) ToLisp() string {
	return lispList("<"+e.Tag+">", e.Children())
}

func (e *ViewElement) Children() []Expression {
	out := make([]Expression, 0, len(e.Props)+len(e.Content))
	for _, p := range e.Props {
		out = append(out, p.Value)
	}
	return append(out, e.Content...)
}

func (e *ViewText) GetType(runtime.Runtime) (types.Type, error) {
	return types.LiteralString{Value: e.Text}, nil
}

func (e *ViewText) Eval(runtime.Runtime) (values.Value, error) { return values.String(e.Text), nil }
func (*ViewText) Dependencies() *set.Set[string]               { return set.New[string](0) }
func (e *ViewText) ToCode() string                             { return e.Text }
func (e *ViewText) ToLisp() string                             { return strconv.Quote(e.Text) }
func (*ViewText) Children() []Expression                       { return nil }
