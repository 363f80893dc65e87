// Package vm 运行编译好的程序：构造值作用域，对表达式树求值。
package vm

import (
	"fmt"
	"maps"
	"sort"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/checker"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Program 是检查过类型的表达式树，可以用不同的环境多次运行。
type Program struct {
	Node   ast.Expression
	Source file.Source
	// Type 是检查阶段得出的结果类型。
	Type types.Type
	// Config 是编译时的配置，Types 中记录了环境变量的声明类型。
	Config *conf.Config
}

func NewProgram(node ast.Expression, source file.Source, t types.Type, config *conf.Config) *Program {
	return &Program{Node: node, Source: source, Type: t, Config: config}
}

// Disassemble 以树状文本展示程序。
func (p *Program) Disassemble() string {
	return ast.Tree(p.Node)
}

func Run(program *Program, env any) (values.Value, error) {
	if program == nil {
		return nil, fmt.Errorf("program is nil")
	}
	vm := VM{}
	return vm.Run(program, env)
}

// VM 保存最近一次运行的根作用域，Scope 可用于在运行之后检查变量。
type VM struct {
	Scope runtime.Runtime
}

// Run 在 env 构造的作用域中对程序求值。
//
// env 中的变量覆盖编译时提供的同名变量，值必须能赋给编译时声明的类型。
// 求值过程中的 panic 会被转换为定位到源码的 *file.Error。
func (vm *VM) Run(program *Program, env any) (_ values.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			var location file.Location
			if program.Node != nil {
				location = program.Node.Location()
			}
			f := &file.Error{
				Location: location,
				Message:  fmt.Sprintf("%v", r),
			}
			if cause, ok := r.(error); ok {
				f.Causes = append(f.Causes, cause)
			}
			err = f.Bind(program.Source)
		}
	}()

	config, err := program.config(env)
	if err != nil {
		return nil, err
	}
	log := config.Log()

	rt, err := checker.Root(config)
	if err != nil {
		return nil, err
	}
	vm.Scope = rt

	log.Trace("run", "program", program.Node.ToCode())
	v, err := program.Node.Eval(rt)
	if err != nil {
		if fe, ok := err.(*file.Error); ok {
			return nil, fe.Bind(program.Source)
		}
		return nil, file.Errorf(program.Node.Location(), "%v", err).Bind(program.Source)
	}
	if program.Type != nil && !values.Conforms(v, program.Type) && !values.IsNaN(v) {
		log.Warn("result does not conform to the checked type", "value", v, "type", program.Type)
	}
	return v, nil
}

// config 返回本次运行的配置：复制编译时的配置，再合并运行时的环境变量。
func (p *Program) config(env any) (*conf.Config, error) {
	vars, err := conf.Env(env)
	if err != nil {
		return nil, err
	}
	base := p.Config
	if base == nil {
		base = conf.New()
	}
	config := *base
	config.Env = maps.Clone(base.Env)
	if config.Env == nil {
		config.Env = make(map[string]values.Value, len(vars))
	}
	maps.Copy(config.Env, vars)

	deps := p.Node.Dependencies().Slice()
	sort.Strings(deps)
	for _, name := range deps {
		t, declared := config.Types[name]
		if _, ok := config.Env[name]; declared && !ok {
			return nil, fmt.Errorf("missing env variable %s of type %s", name, t)
		}
	}
	return &config, nil
}
