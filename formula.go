// Package formula 是表达式引擎的入口：解析、类型检查（含类型收窄）、编译与求值。
//
//	program, err := formula.Compile(`if x is Int and x > 5 { x } else { 0 }`, formula.Env(env))
//	out, err := formula.Run(program, env)
package formula

import (
	"github.com/hashicorp/go-hclog"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/checker"
	"github.com/formula-lang/formula/compiler"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
	"github.com/formula-lang/formula/vm"
)

// Option 修改编译配置。
type Option func(c *conf.Config) error

// Env 提供环境变量，可以是 map、struct 或 values.Object。
func Env(env any) Option {
	return func(c *conf.Config) error {
		return c.WithEnv(env)
	}
}

// EnvJSON 从 JSON 对象中读取环境变量。
func EnvJSON(doc string) Option {
	return func(c *conf.Config) error {
		vars, err := conf.EnvJSON(doc)
		if err != nil {
			return err
		}
		return c.WithEnv(vars)
	}
}

// Declare 声明变量的类型，变量的值可以在运行时才提供。
func Declare(name string, t types.Type) Option {
	return func(c *conf.Config) error {
		c.Declare(name, t)
		return nil
	}
}

// Expect 要求表达式的类型能赋给 t。
func Expect(t types.Type) Option {
	return func(c *conf.Config) error {
		c.Expect = t
		return nil
	}
}

// AsBool 要求表达式返回 Boolean。
func AsBool() Option {
	return Expect(types.Boolean{})
}

func WithLogger(log hclog.Logger) Option {
	return func(c *conf.Config) error {
		c.Logger = log
		return nil
	}
}

// WithLocale 设置 toString、upper、lower 等使用的区域设置。
func WithLocale(tag language.Tag) Option {
	return func(c *conf.Config) error {
		c.Locale = tag
		return nil
	}
}

// MaxNodes 设置解析树的最大节点数，0 表示不限制。
func MaxNodes(n uint) Option {
	return func(c *conf.Config) error {
		c.MaxNodes = n
		return nil
	}
}

// DisableBuiltin 移除内置函数，"math" 移除整个命名空间，"math.sqrt" 只移除一个成员。
func DisableBuiltin(names ...string) Option {
	return func(c *conf.Config) error {
		c.Disable(names...)
		return nil
	}
}

func configure(ops []Option) (*conf.Config, error) {
	config := conf.New()
	for _, op := range ops {
		if err := op(config); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// Compile 解析并检查表达式，返回可以用不同环境多次运行的程序。
func Compile(input string, ops ...Option) (*vm.Program, error) {
	config, err := configure(ops)
	if err != nil {
		return nil, err
	}

	tree, err := parser.ParseWithConfig(input, config)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(tree, config)
}

// Run 用 env 运行编译好的程序，env 中的变量覆盖编译时提供的同名变量。
func Run(program *vm.Program, env any) (values.Value, error) {
	return vm.Run(program, env)
}

// Eval 解析、编译并运行表达式。
func Eval(input string, env any) (values.Value, error) {
	program, err := Compile(input, Env(env))
	if err != nil {
		return nil, err
	}
	return Run(program, nil)
}

// Check 只做类型检查，返回表达式的类型。
// 环境变量使用值的精确类型，例如 x = 3 时 `x + 1` 的类型是 4。
func Check(input string, ops ...Option) (types.Type, error) {
	config, err := configure(ops)
	if err != nil {
		return nil, err
	}
	_, t, err := checker.ParseCheck(input, config)
	return t, err
}
