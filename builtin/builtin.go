// Package builtin 提供全局内置 formula 与命名空间（map、filter、math.floor 等）。
package builtin

import (
	"sort"

	"golang.org/x/text/language"

	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Functions 返回全部全局内置 formula。upper / lower / toString 的行为取决于 tag。
func Functions(tag language.Tag) []*Function {
	t, u := types.NewGeneric("T"), types.NewGeneric("U")
	upper, lower := upperLower(tag)

	return []*Function{
		{
			Name:      "map",
			Signature: generic([]types.Generic{t, u}, types.Array{Of: u}, pos("items", types.Array{Of: t}), pos("fn", callback(u, t))),
			Fn:        Map,
		},
		filterLike("filter", types.Array{Of: t}, t, Filter),
		{
			Name: "reduce",
			Signature: generic([]types.Generic{t, u}, u,
				pos("items", types.Array{Of: t}), pos("fn", callback(u, u, t)), pos("initial", u)),
			Fn: Reduce,
		},
		filterLike("find", types.Optional(t), t, Find),
		{
			Name:      "keys",
			Signature: fn(types.Array{Of: dictKey}, pos("dict", types.Dict{Of: types.All{}})),
			Fn:        Keys,
		},
		{
			Name:      "values",
			Signature: generic([]types.Generic{t}, types.Array{Of: t}, pos("dict", types.Dict{Of: t})),
			Fn:        Values,
		},
		{
			Name:      "sum",
			Signature: fn(number, pos("items", types.Array{Of: number})),
			Fn:        Sum,
		},
		{
			Name:      "max",
			Signature: fn(number, pos("first", number), rest("rest", number)),
			Fn:        Max,
		},
		{
			Name:      "min",
			Signature: fn(number, pos("first", number), rest("rest", number)),
			Fn:        Min,
		},
		{
			Name:      "abs",
			Signature: fn(number, pos("value", number)),
			Fn:        Abs,
		},
		{
			Name:      "join",
			Signature: fn(types.String{}, pos("items", types.Array{Of: types.String{}}), optional("separator", types.String{})),
			Fn:        Join,
		},
		{
			Name:      "split",
			Signature: fn(types.Array{Of: types.String{}}, pos("text", types.String{}), pos("separator", types.String{})),
			Fn:        Split,
		},
		{Name: "upper", Signature: fn(types.String{}, pos("text", types.String{})), Fn: upper},
		{Name: "lower", Signature: fn(types.String{}, pos("text", types.String{})), Fn: lower},
		{Name: "toString", Signature: fn(types.String{}, pos("value", types.All{})), Fn: toStringIn(tag)},
		{
			Name: "toInt",
			Signature: fn(types.Optional(types.Int{}),
				pos("value", types.OneOf(types.String{}, types.Int{}, types.Float{}, types.Boolean{}))),
			Fn: ToInt,
		},
		{
			Name: "range",
			Signature: fn(types.Array{Of: types.Int{}},
				pos("from", types.Int{}), pos("to", types.Int{}), optional("step", types.Int{})),
			Fn: Range,
		},
	}
}

func filterLike(name string, ret, of types.Type, impl func([]values.Value) (values.Value, error)) *Function {
	g := types.FreeGenerics(of)
	return &Function{
		Name:      name,
		Signature: generic(g, ret, pos("items", types.Array{Of: of}), pos("fn", callback(types.Boolean{}, of))),
		Fn:        impl,
	}
}

var dictKey = types.OneOf(types.String{}, types.Int{}, types.Float{}, types.Boolean{}, types.Null{})

// Namespaces 返回全部内置命名空间。
func Namespaces() []*Namespace {
	toInt := func(name string, impl func([]values.Value) (values.Value, error)) *Function {
		return &Function{Name: name, Signature: fn(types.Int{}, pos("value", number)), Fn: impl}
	}
	return []*Namespace{
		{
			Name: "math",
			Functions: []*Function{
				toInt("floor", Floor),
				toInt("ceil", Ceil),
				toInt("round", Round),
				{Name: "sqrt", Signature: fn(types.Float{}, pos("value", number)), Fn: Sqrt},
			},
			Constants: []values.Prop{{Name: "pi", Value: pi}},
		},
	}
}

// Install 把内置 formula 与命名空间写入 rt 的当前层，disabled 返回 true 的名字被跳过。
// 命名空间成员用 `namespace.member` 的形式禁用，禁用命名空间名字则整体跳过。
// 返回实际安装的名字（已排序）。
func Install(rt runtime.Runtime, disabled func(name string) bool) []string {
	if disabled == nil {
		disabled = func(string) bool { return false }
	}
	var installed []string
	for _, f := range Functions(rt.Locale()) {
		if disabled(f.Name) {
			continue
		}
		rt.AddLocal(f.Name, f.Type(), f.Value())
		installed = append(installed, f.Name)
	}
	for _, ns := range Namespaces() {
		if disabled(ns.Name) {
			continue
		}
		kept := &Namespace{Name: ns.Name}
		for _, f := range ns.Functions {
			if !disabled(ns.Name + "." + f.Name) {
				kept.Functions = append(kept.Functions, f)
			}
		}
		for _, c := range ns.Constants {
			if !disabled(ns.Name + "." + c.Name) {
				kept.Constants = append(kept.Constants, c)
			}
		}
		rt.AddNamespace(ns.Name, kept.Type(), kept.Value())
		installed = append(installed, ns.Name)
	}
	sort.Strings(installed)
	return installed
}
