// Package compiler 把解析树编译成可以用不同环境重复运行的 vm.Program。
package compiler

import (
	"maps"

	"github.com/formula-lang/formula/checker"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/optimizer"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/vm"
)

// Compile 检查类型并折叠常量。
//
// 编译时提供的环境变量只决定类型：没有在 config.Types 中声明的变量，
// 以放宽后的值类型（例如 Int 而不是 3）声明，运行时可以传入同类型的其它值。
func Compile(tree *parser.Tree, config *conf.Config) (*vm.Program, error) {
	if config == nil {
		config = conf.New()
	}
	log := config.Log()

	compiled := *config
	compiled.Types = maps.Clone(config.Types)
	if compiled.Types == nil {
		compiled.Types = make(map[string]types.Type, len(config.Env))
	}
	for name, v := range config.Env {
		if _, ok := compiled.Types[name]; !ok {
			compiled.Types[name] = Widen(v.Type())
		}
	}

	rt, err := checker.Root(&compiled)
	if err != nil {
		return nil, err
	}
	t, err := checker.CheckIn(rt, tree, compiled.Expect)
	if err != nil {
		return nil, err
	}
	log.Debug("checked", "type", t)

	node := optimizer.Fold(rt, tree.Node, log)
	return vm.NewProgram(node, tree.Source, t, &compiled), nil
}

// Widen 递归地把字面量类型放宽为基础类型，并去掉容器的长度与已知 key 约束。
func Widen(t types.Type) types.Type {
	switch t := t.(type) {
	case types.Array:
		return types.Array{Of: element(t.Of)}
	case types.Set:
		return types.Set{Of: element(t.Of)}
	case types.Dict:
		return types.Dict{Of: element(t.Of)}
	case types.Object:
		props := make([]types.Prop, len(t.Props))
		for i, p := range t.Props {
			props[i] = types.Prop{Name: p.Name, Type: Widen(p.Type)}
		}
		return types.Object{Name: t.Name, Props: props}
	case types.OneOfType:
		return types.Map(t, Widen)
	}
	return types.Widen(t)
}

// element 放宽容器的元素类型；空容器的元素类型是 Never，放宽为 Any。
func element(t types.Type) types.Type {
	if types.IsNever(t) {
		return types.All{}
	}
	return Widen(t)
}
