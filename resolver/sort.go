// Package resolver 按依赖关系对顶层声明排序，并依次把它们的类型与值写入作用域。
package resolver

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"
)

// Item 是一个待排序的具名声明。Deps 中等于 Name 的自引用视为已满足。
type Item[T any] struct {
	Name  string
	Deps  *set.Set[string]
	Value T
}

// Sort 返回一个顺序，使每一项都排在它在本地定义的依赖之后。
//
// 每一轮把所有剩余依赖都已满足的项移入结果，直到没有新的进展：
//   - 在本地定义的名字必须先被排序，即使外层作用域也提供了它（本地定义遮蔽外层）；
//   - 没有在本地定义、且 ignoreExternal 返回 true 的名字由外层提供，不参与排序。
//
// 剩余的项全部出错：依赖链回到自身时是 *CircularDependencyError，
// 依赖从未定义的名字时是 *UnresolvableError，多个错误用 multierror 合并。
func Sort[T any](items []Item[T], ignoreExternal func(string) bool) ([]Item[T], error) {
	sorted, _, err := sortPasses(items, ignoreExternal)
	return sorted, err
}

// sortPasses 与 Sort 相同，另外返回进行的轮数。
func sortPasses[T any](items []Item[T], ignoreExternal func(string) bool) ([]Item[T], int, error) {
	if ignoreExternal == nil {
		ignoreExternal = func(string) bool { return false }
	}

	defined := set.New[string](len(items))
	var errs *multierror.Error
	for _, item := range items {
		if !defined.Insert(item.Name) {
			errs = multierror.Append(errs, &DuplicateError{Name: item.Name})
		}
	}
	if errs != nil {
		return nil, 0, errs.ErrorOrNil()
	}

	// waiting 是每一项还需要等待的本地名字
	waiting := func(item Item[T], resolved *set.Set[string]) []string {
		var out []string
		for _, dep := range deps(item) {
			switch {
			case dep == item.Name:
			case defined.Contains(dep):
				if !resolved.Contains(dep) {
					out = append(out, dep)
				}
			case !ignoreExternal(dep):
				out = append(out, dep)
			}
		}
		return out
	}

	resolved := set.New[string](len(items))
	sorted := make([]Item[T], 0, len(items))
	pending := items
	passes := 0
	for len(pending) > 0 {
		passes++
		var next []Item[T]
		var ready []string
		for _, item := range pending {
			if len(waiting(item, resolved)) == 0 {
				sorted = append(sorted, item)
				ready = append(ready, item.Name)
			} else {
				next = append(next, item)
			}
		}
		if len(ready) == 0 {
			return sorted, passes, stalled(pending, defined, resolved, ignoreExternal)
		}
		// 同一轮中解决的项互不依赖，下一轮才对其它项可见
		resolved.InsertSlice(ready)
		pending = next
	}
	return sorted, passes, nil
}

func deps[T any](item Item[T]) []string {
	if item.Deps == nil {
		return nil
	}
	out := item.Deps.Slice()
	sort.Strings(out)
	return out
}

// stalled 为没有进展的每一项构造错误，同一个环只报告一次。
func stalled[T any](pending []Item[T], defined, resolved *set.Set[string], ignoreExternal func(string) bool) error {
	graph := make(map[string][]string, len(pending))
	for _, item := range pending {
		var edges []string
		for _, dep := range deps(item) {
			if dep != item.Name && defined.Contains(dep) && !resolved.Contains(dep) {
				edges = append(edges, dep)
			}
		}
		graph[item.Name] = edges
	}

	var errs *multierror.Error
	reported := set.New[string](0)
	for _, item := range pending {
		var missing []string
		for _, dep := range deps(item) {
			if !defined.Contains(dep) && !ignoreExternal(dep) {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			errs = multierror.Append(errs, &UnresolvableError{Name: item.Name, Missing: missing})
			continue
		}

		if chain := findCycle(graph, item.Name); chain != nil {
			if reported.Insert(cycleKey(chain)) {
				errs = multierror.Append(errs, &CircularDependencyError{Chain: chain})
			}
			continue
		}
		errs = multierror.Append(errs, &UnresolvableError{Name: item.Name, Blocked: graph[item.Name]})
	}
	return errs.ErrorOrNil()
}

// findCycle 从 start 出发沿依赖边深度优先搜索，返回回到 start 的路径。
func findCycle(graph map[string][]string, start string) []string {
	visited := set.New[string](len(graph))
	var path []string
	var visit func(name string) bool
	visit = func(name string) bool {
		path = append(path, name)
		for _, dep := range graph[name] {
			if dep == start {
				return true
			}
			if visited.Insert(dep) && visit(dep) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	visited.Insert(start)
	if visit(start) {
		return path
	}
	return nil
}

func cycleKey(chain []string) string {
	names := append([]string{}, chain...)
	sort.Strings(names)
	key := ""
	for _, n := range names {
		key += n + "\x00"
	}
	return key
}
