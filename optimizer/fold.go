// Package optimizer 在类型检查之后改写表达式树。
package optimizer

import (
	"math"

	"github.com/hashicorp/go-hclog"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/operators"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Fold 把类型是字面量、且不依赖任何名字的子表达式替换成字面量节点，返回新的根节点。
//
// 优化示例
//
//	优化前：[1 + 2 * 3, x]
//	优化后：[7, x]
//
// 对应的 AST 结构变化：
//
//	优化前：
//	   array
//	   /   \
//	  +     x
//	 / \
//	1   *
//	   / \
//	  2   3
//
//	优化后：
//	   array
//	   /   \
//	  7     x
//
// 会绑定名字的条件（`x is .ok(v)`、`a and b`）不会被折叠，否则 then 分支中的绑定会丢失。
// 求值失败或结果是 NaN / 无穷大时保留原节点。
func Fold(rt runtime.Runtime, node ast.Expression, log hclog.Logger) ast.Expression {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	f := &folder{rt: rt, log: log}
	out := f.visit(node)
	log.Debug("constant folding", "folded", f.folded)
	return out
}

type folder struct {
	rt     runtime.Runtime
	log    hclog.Logger
	folded int
}

func (f *folder) visit(node ast.Expression) ast.Expression {
	if node == nil {
		return nil
	}
	if lit, ok := f.literal(node); ok {
		return lit
	}

	switch n := node.(type) {
	case *ast.ArrayExpression:
		f.all(n.Items)
	case *ast.SetExpression:
		f.all(n.Items)
	case *ast.Spread:
		n.Value = f.visit(n.Value)
	case *ast.DictExpression:
		for i := range n.Entries {
			if n.Entries[i].Key != nil {
				n.Entries[i].Key = f.visit(n.Entries[i].Key)
			}
			n.Entries[i].Value = f.visit(n.Entries[i].Value)
		}
	case *ast.ObjectExpression:
		for i := range n.Props {
			n.Props[i].Value = f.visit(n.Props[i].Value)
		}
	case *ast.If:
		n.Cond = f.visit(n.Cond)
		n.Then = f.visit(n.Then)
		n.Else = f.visit(n.Else)
	case *ast.Let:
		for i := range n.Bindings {
			n.Bindings[i].Value = f.visit(n.Bindings[i].Value)
		}
		n.Body = f.visit(n.Body)
	case *ast.FormulaExpression:
		n.Body = f.visit(n.Body)
	case *ast.ViewElement:
		for i := range n.Props {
			n.Props[i].Value = f.visit(n.Props[i].Value)
		}
		f.all(n.Content)
	case *operators.BinaryOperation:
		n.Lhs = f.visit(n.Lhs)
		n.Rhs = f.visit(n.Rhs)
	case *operators.UnaryOperation:
		n.Operand = f.visit(n.Operand)
	case *operators.Invocation:
		for i := range n.Args {
			n.Args[i].Value = f.visit(n.Args[i].Value)
		}
	case *operators.IndexAccess:
		n.Index = f.visit(n.Index)
	}
	return node
}

func (f *folder) all(items []ast.Expression) {
	for i := range items {
		items[i] = f.visit(items[i])
	}
}

// binds 判断子树中是否有 `is` 匹配，匹配中的名字可能在外层（and、if）中被使用。
func binds(node ast.Expression) bool {
	if _, ok := node.(*operators.IsOperation); ok {
		return true
	}
	for _, c := range node.Children() {
		if c != nil && binds(c) {
			return true
		}
	}
	return false
}

// literal 尝试把 node 折叠成字面量节点。
func (f *folder) literal(node ast.Expression) (ast.Expression, bool) {
	switch node.(type) {
	case *ast.NullLiteral, *ast.BooleanLiteral, *ast.IntLiteral, *ast.FloatLiteral, *ast.StringLiteral:
		return nil, false
	}
	if binds(node) {
		return nil, false
	}
	if !node.Dependencies().Empty() {
		return nil, false
	}
	t, err := node.GetType(f.rt)
	if err != nil || !types.IsLiteral(t) {
		return nil, false
	}
	v, err := node.Eval(f.rt)
	if err != nil {
		return nil, false
	}

	var out ast.Expression
	switch v := v.(type) {
	case values.Null:
		out = &ast.NullLiteral{}
	case values.Boolean:
		out = &ast.BooleanLiteral{Value: bool(v)}
	case values.Int:
		out = &ast.IntLiteral{Value: int64(v)}
	case values.Float:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, false
		}
		out = &ast.FloatLiteral{Value: float64(v)}
	case values.String:
		out = &ast.StringLiteral{Value: string(v)}
	default:
		return nil, false
	}
	out.SetLocation(node.Location())
	f.folded++
	f.log.Trace("folded constant", "from", node.ToCode(), "to", out.ToCode())
	return out, true
}
