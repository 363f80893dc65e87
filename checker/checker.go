// Package checker 对解析树做静态分析：构造根作用域（内置 formula、环境变量），然后计算表达式的类型。
package checker

import (
	"fmt"
	"sort"

	"github.com/formula-lang/formula/builtin"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
)

// Root 构造根作用域。
//
// 分两层：
//   - 最外层是内置 formula 与命名空间（config.Disabled 中的名字被跳过）；
//   - 子层是环境变量，可以遮蔽同名的内置 formula。
//
// 环境变量的类型默认是值的精确类型（字面量类型），config.Types 中声明的类型优先；
// 只声明了类型的变量没有值，只能用于 Check。
func Root(config *conf.Config) (runtime.Runtime, error) {
	if config == nil {
		config = conf.New()
	}
	log := config.Log()

	rt := runtime.NewWithLocale(config.Locale)
	installed := builtin.Install(rt, config.IsDisabled)

	env := rt.Child()
	for _, name := range envNames(config) {
		declared, hasType := config.Types[name]
		v, hasValue := config.Env[name]
		switch {
		case hasType && hasValue:
			if !types.CanBeAssignedTo(v.Type(), declared) {
				return env, fmt.Errorf("env %s: value %s is not assignable to %s", name, v, declared)
			}
			env.AddLocal(name, declared, v)
		case hasType:
			env.AddLocalType(name, declared)
		default:
			env.AddLocal(name, v.Type(), v)
		}
	}
	log.Debug("root runtime", "builtins", len(installed), "env", len(config.Env), "declared", len(config.Types))
	return env, nil
}

// envNames 返回环境变量与声明类型的名字并集（已排序），保证作用域的构造顺序确定。
func envNames(config *conf.Config) []string {
	seen := make(map[string]bool, len(config.Env)+len(config.Types))
	var names []string
	for name := range config.Env {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range config.Types {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ParseCheck 解析输入并检查类型。出错时仍然返回已经解析出的树。
func ParseCheck(input string, config *conf.Config) (*parser.Tree, types.Type, error) {
	tree, err := parser.ParseWithConfig(input, config)
	if err != nil {
		return tree, nil, err
	}
	t, err := Check(tree, config)
	if err != nil {
		return tree, nil, err
	}
	return tree, t, nil
}

// Check 在 config 构造的根作用域中检查表达式树，返回表达式的类型。
// config 为 nil 时使用默认配置。
func Check(tree *parser.Tree, config *conf.Config) (types.Type, error) {
	if config == nil {
		config = conf.New()
	}
	rt, err := Root(config)
	if err != nil {
		return nil, err
	}
	return CheckIn(rt, tree, config.Expect)
}

// CheckIn 在给定的作用域中检查表达式树。expect 非空时结果必须能赋给它。
func CheckIn(rt runtime.Runtime, tree *parser.Tree, expect types.Type) (types.Type, error) {
	t, err := tree.Node.GetType(rt)
	if err != nil {
		return nil, Bind(err, tree)
	}
	if expect != nil && !types.CanBeAssignedTo(t, expect) {
		return nil, file.Errorf(tree.Node.Location(), "expected %s, but got %s", expect, t).Bind(tree.Source)
	}
	return t, nil
}

// Bind 把错误转换为定位到源码的 *file.Error。
func Bind(err error, tree *parser.Tree) error {
	if err == nil {
		return nil
	}
	fe, ok := err.(*file.Error)
	if !ok {
		fe = file.Errorf(tree.Node.Location(), "%v", err)
	}
	return fe.Bind(tree.Source)
}
