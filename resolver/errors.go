package resolver

import (
	"fmt"
	"strings"
)

// CircularDependencyError 表示依赖链回到了起点，Chain 是环上的名字，从起点开始。
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(append(append([]string{}, e.Chain...), e.Chain[0]), " -> ")
}

// UnresolvableError 表示声明依赖从未定义的名字（Missing），
// 或者依赖的声明本身无法解析（Blocked）。
type UnresolvableError struct {
	Name    string
	Missing []string
	Blocked []string
}

func (e *UnresolvableError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s depends on undefined %s", e.Name, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s depends on unresolved %s", e.Name, strings.Join(e.Blocked, ", "))
}

type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s is declared more than once", e.Name)
}
