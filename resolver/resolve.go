package resolver

import (
	"slices"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
)

// Order 把声明按依赖排序，rt 中已经可见的名字视为由外层提供。
func Order(rt runtime.Runtime, decls []ast.Declaration, log hclog.Logger) ([]ast.Declaration, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}

	items := make([]Item[ast.Declaration], len(decls))
	for i, d := range decls {
		items[i] = Item[ast.Declaration]{Name: d.Declares(), Deps: d.Dependencies(), Value: d}
	}

	outer := rt.Resolved()
	sorted, passes, err := sortPasses(items, outer.Contains)
	log.Debug("sorted declarations", "count", len(decls), "resolved", len(sorted), "passes", passes)
	if err != nil {
		return nil, flatten(err)
	}

	out := make([]ast.Declaration, len(sorted))
	for i, item := range sorted {
		out[i] = item.Value
	}
	return out, nil
}

// ResolveAndMergeTypes 按依赖顺序解析每个声明的类型并写入 rt。
// 一个声明失败不会中止其它声明，所有错误一起返回；
// 依赖失败声明的声明不再解析，报告为 *UnresolvableError。
func ResolveAndMergeTypes(rt runtime.Runtime, decls []ast.Declaration, log hclog.Logger) error {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	sorted, err := Order(rt, decls, log)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	failed := set.New[string](0)
	for _, d := range sorted {
		if blocked := blockedBy(d, failed); len(blocked) > 0 {
			log.Debug("type resolution skipped", "name", d.Declares(), "blocked", blocked)
			failed.Insert(d.Declares())
			errs = multierror.Append(errs, &UnresolvableError{Name: d.Declares(), Blocked: blocked})
			continue
		}
		if err := d.ResolveType(rt); err != nil {
			log.Debug("type resolution failed", "name", d.Declares(), "error", err)
			failed.Insert(d.Declares())
			errs = multierror.Append(errs, err)
			continue
		}
		log.Trace("resolved type", "name", d.Declares())
	}
	return flatten(errs.ErrorOrNil())
}

// blockedBy 返回 d 依赖的已失败声明，按名字排序。
func blockedBy(d ast.Declaration, failed *set.Set[string]) []string {
	if failed.Empty() {
		return nil
	}
	var out []string
	for _, name := range d.Dependencies().Slice() {
		if name != d.Declares() && failed.Contains(name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// ResolveAndMergeValues 在类型解析成功之后按同样的顺序求值并写入 rt，遇到第一个错误即停止。
func ResolveAndMergeValues(rt runtime.Runtime, decls []ast.Declaration, log hclog.Logger) error {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	sorted, err := Order(rt, decls, log)
	if err != nil {
		return err
	}

	for _, d := range sorted {
		if err := d.ResolveValue(rt); err != nil {
			log.Debug("value resolution failed", "name", d.Declares(), "error", err)
			return err
		}
		log.Trace("resolved value", "name", d.Declares())
	}
	return nil
}

// flatten 把只有一个错误的 multierror 展开成这个错误本身。
func flatten(err error) error {
	if merr, ok := err.(*multierror.Error); ok && len(merr.Errors) == 1 {
		return merr.Errors[0]
	}
	return err
}
