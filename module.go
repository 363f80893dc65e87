package formula

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/formula-lang/formula/checker"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/resolver"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Module 是一组顶层声明（type、enum、class、fn、let、@state、action、view）。
// 声明的顺序无关，Resolve 按依赖关系解析。
type Module struct {
	Tree   *parser.ModuleTree
	config *conf.Config
	scope  runtime.Runtime
	ready  bool
}

// ParseModule 解析模块源码，不做类型检查。
func ParseModule(input string, ops ...Option) (*Module, error) {
	config, err := configure(ops)
	if err != nil {
		return nil, err
	}
	tree, err := parser.ParseModule(input, config)
	if err != nil {
		return nil, err
	}
	return &Module{Tree: tree, config: config}, nil
}

// Resolve 先解析全部声明的类型，收集所有类型错误；全部通过后再按同样的顺序求值。
func (m *Module) Resolve() error {
	if m.ready {
		return nil
	}
	log := m.config.Log().Named("module")

	root, err := checker.Root(m.config)
	if err != nil {
		return err
	}
	scope := root.Child()

	log.Info("resolving module", "declarations", len(m.Tree.Declarations))
	if err := resolver.ResolveAndMergeTypes(scope, m.Tree.Declarations, log); err != nil {
		return m.bind(err)
	}
	if err := resolver.ResolveAndMergeValues(scope, m.Tree.Declarations, log); err != nil {
		return m.bind(err)
	}
	m.scope = scope
	m.ready = true
	return nil
}

// Runtime 返回解析之后的模块作用域。
func (m *Module) Runtime() (runtime.Runtime, error) {
	if err := m.Resolve(); err != nil {
		return runtime.Runtime{}, err
	}
	return m.scope, nil
}

// Type 返回声明的类型；state 用 "@name"，action 用 "&name"。
func (m *Module) Type(name string) (types.Type, error) {
	if err := m.Resolve(); err != nil {
		return nil, err
	}
	var (
		t  types.Type
		ok bool
	)
	switch {
	case strings.HasPrefix(name, "@"):
		t, ok = m.scope.StateType(name[1:])
	case strings.HasPrefix(name, "&"):
		t, ok = m.scope.ActionType(name[1:])
	default:
		t, ok = m.scope.LocalType(name)
	}
	if !ok {
		return nil, fmt.Errorf("module has no declaration %s", name)
	}
	return t, nil
}

// Eval 返回声明的值；state 用 "@name"，action 用 "&name"。
func (m *Module) Eval(name string) (values.Value, error) {
	if err := m.Resolve(); err != nil {
		return nil, err
	}
	var (
		v  values.Value
		ok bool
	)
	switch {
	case strings.HasPrefix(name, "@"):
		v, ok = m.scope.StateValue(name[1:])
	case strings.HasPrefix(name, "&"):
		v, ok = m.scope.ActionValue(name[1:])
	default:
		v, ok = m.scope.LocalValue(name)
	}
	if !ok {
		return nil, fmt.Errorf("module has no declaration %s", name)
	}
	return v, nil
}

// Call 以位置参数调用模块中声明的 formula。
func (m *Module) Call(name string, args ...values.Value) (values.Value, error) {
	v, err := m.Eval(name)
	if err != nil {
		return nil, err
	}
	f, ok := v.(values.Formula)
	if !ok {
		return nil, fmt.Errorf("%s is not a formula, found %s", name, v.Type())
	}
	return values.Call(f, args...)
}

// Evaluate 在模块作用域中检查并求值一个表达式。
func (m *Module) Evaluate(input string) (values.Value, error) {
	if err := m.Resolve(); err != nil {
		return nil, err
	}
	tree, err := parser.ParseWithConfig(input, m.config)
	if err != nil {
		return nil, err
	}
	scope := m.scope.Child()
	if _, err := checker.CheckIn(scope, tree, nil); err != nil {
		return nil, err
	}
	v, err := tree.Node.Eval(scope)
	if err != nil {
		return nil, checker.Bind(err, tree)
	}
	return v, nil
}

// Render 调用模块中的 view 并交给 renderer 渲染。
func Render[T any](m *Module, name string, renderer runtime.Renderer[T], args ...values.Value) (T, error) {
	var zero T
	view, err := m.Call(name, args...)
	if err != nil {
		return zero, err
	}
	return runtime.Render(runtime.NewApplication(m.scope, renderer), view)
}

// bind 把错误定位到模块源码。
func (m *Module) bind(err error) error {
	switch err := err.(type) {
	case *file.Error:
		return err.Bind(m.Tree.Source)
	case *multierror.Error:
		for _, e := range err.Errors {
			if fe, ok := e.(*file.Error); ok {
				fe.Bind(m.Tree.Source)
			}
		}
	}
	return err
}
