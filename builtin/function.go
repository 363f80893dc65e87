package builtin

import (
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Function 是一个内置 formula。
//
//   - Signature 用于类型检查，调用处按它分配实参、推断泛型；
//   - Fn 是求值时真正执行的 Go 函数，接收按 Signature 绑定好的参数，未提供的可选参数为 nil。
//
// 例如 `upper`：
//
//	&Function{
//		Name:      "upper",
//		Signature: fn(types.String{}, pos("text", types.String{})),
//		Fn:        Upper,
//	}
//
// 类型检查时 `upper(1)` 报错 argument "text" of upper expects String, found 1；
// 求值时 Upper 收到 []values.Value{values.String("a")}。
type Function struct {
	Name      string
	Signature types.Formula
	Fn        func(args []values.Value) (values.Value, error)
}

// Value 返回可以放进作用域的 formula 值。
func (f *Function) Value() values.Formula {
	return values.Formula{Name: f.Name, Signature: f.Signature, Fn: f.Fn}
}

func (f *Function) Type() types.Type {
	return f.Signature
}

// Namespace 是一组通过 `name.member` 访问的内置成员，例如 `math.floor`。
type Namespace struct {
	Name      string
	Functions []*Function
	Constants []values.Prop
}

func (n *Namespace) Value() values.Namespace {
	out := values.Namespace{Name: n.Name}
	out.Members = append(out.Members, n.Constants...)
	for _, f := range n.Functions {
		out.Members = append(out.Members, values.Prop{Name: f.Name, Value: f.Value()})
	}
	return out
}

func (n *Namespace) Type() types.Type {
	return n.Value().Type()
}

// signature helpers

func fn(ret types.Type, args ...types.Argument) types.Formula {
	return types.Formula{Args: args, Return: ret}
}

func generic(generics []types.Generic, ret types.Type, args ...types.Argument) types.Formula {
	return types.Formula{Generics: generics, Args: args, Return: ret}
}

// pos 是必填的位置参数 `# name: T`。
func pos(name string, t types.Type) types.Argument {
	return types.Argument{Name: name, Type: t, Positional: true, Required: true}
}

// optional 是可选的位置参数 `# name: T = …`。
func optional(name string, t types.Type) types.Argument {
	return types.Argument{Name: name, Type: t, Positional: true}
}

// rest 是 `...# name: Array(T)`。
func rest(name string, of types.Type) types.Argument {
	return types.Argument{Name: name, Type: types.Array{Of: of}, Positional: true, Spread: types.PositionalSpread}
}

// callback 是 `fn(# T...): R`。
func callback(ret types.Type, args ...types.Type) types.Formula {
	out := types.Formula{Return: ret}
	for _, t := range args {
		out.Args = append(out.Args, types.Argument{Type: t, Positional: true, Required: true})
	}
	return out
}

var number = types.OneOf(types.Int{}, types.Float{})
