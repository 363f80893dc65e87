package ast

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"
)

// Tree 以树状文本展示节点结构，用于调试输出。
func Tree(e Expression) string {
	root := treeprint.NewWithRoot(label(e))
	addChildren(root, e)
	return root.String()
}

func addChildren(branch treeprint.Tree, e Expression) {
	for _, c := range e.Children() {
		if c == nil {
			continue
		}
		if len(c.Children()) == 0 {
			branch.AddNode(label(c))
			continue
		}
		addChildren(branch.AddBranch(label(c)), c)
	}
}

func label(e Expression) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", e), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	code := e.ToCode()
	if len(code) > 40 {
		code = code[:37] + "..."
	}
	return fmt.Sprintf("%s %s", name, code)
}
