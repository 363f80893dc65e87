package ast

import (
	"fmt"
	"sort"

	"github.com/agext/levenshtein"
	"github.com/hashicorp/go-multierror"

	"github.com/formula-lang/formula/file"
)

// Located 是有源码位置的节点，Expression 与 Pattern 都满足。
type Located interface {
	Location() file.Location
}

func Errorf(e Located, format string, args ...any) *file.Error {
	return file.Errorf(e.Location(), format, args...)
}

// Bubble 在错误向上传播时追加当前节点作为上下文。
// 非 *file.Error 的错误会被包装，multierror 中的每个错误成为 Causes。
func Bubble(err error, e Expression) error {
	if err == nil {
		return nil
	}
	switch err := err.(type) {
	case *file.Error:
		return err.PushParent(e.ToCode())
	case *multierror.Error:
		if len(err.Errors) == 1 {
			return Bubble(err.Errors[0], e)
		}
		fe := Errorf(e, "%d errors in %s", len(err.Errors), e.ToCode())
		for _, cause := range err.Errors {
			if _, ok := cause.(*file.Error); !ok {
				cause = Errorf(e, "%v", cause)
			}
			fe.Causes = append(fe.Causes, cause)
		}
		return fe
	}
	return Errorf(e, "%v", err)
}

// Suggest 返回与 name 最接近的候选名字，找不到时返回空字符串。
func Suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	limit := max(2, len(name)/3)
	sorted := append([]string{}, candidates...)
	sort.Strings(sorted)
	for _, c := range sorted {
		if c == name {
			continue
		}
		d := levenshtein.Distance(name, c, nil)
		if d <= limit && (bestDist < 0 || d < bestDist) {
			best, bestDist = c, d
		}
	}
	return best
}

// DidYouMean 返回附加在错误信息后面的提示。
func DidYouMean(name string, candidates []string) string {
	if s := Suggest(name, candidates); s != "" {
		return fmt.Sprintf(" (did you mean %q?)", s)
	}
	return ""
}
