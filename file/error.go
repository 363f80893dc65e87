package file

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error 是整个引擎唯一的错误类型：
//   - Location / Line / Column / Snippet 定位到源码；
//   - Context 是从内向外追加的调用路径（breadcrumb）；
//   - Causes 收集同一轮检查中发现的多个子错误。
type Error struct {
	Location
	Line    int
	Column  int
	Message string
	Snippet string
	Context []string
	Causes  []error
}

// Errorf 创建一个定位在 loc 的错误。
func Errorf(loc Location, format string, args ...any) *Error {
	return &Error{Location: loc, Message: fmt.Sprintf(format, args...)}
}

// PushParent 追加一层上下文描述，返回同一个 Error 便于链式调用。
func (e *Error) PushParent(description string) *Error {
	e.Context = append(e.Context, description)
	return e
}

// Bind 依据源码补齐行列号与片段，并对 Causes 递归执行。
func (e *Error) Bind(source Source) *Error {
	e.Line, e.Column = source.Position(e.From)
	if snippet, ok := source.Snippet(e.Line); ok {
		indent := ""
		for i := 1; i < e.Column; i++ {
			indent += "."
		}
		width := e.To - e.From
		if width < 1 {
			width = 1
		}
		if rest := utf8.RuneCountInString(snippet) - e.Column + 1; width > rest && rest > 0 {
			width = rest
		}
		e.Snippet = fmt.Sprintf("\n | %v\n | %v%v", snippet, indent, strings.Repeat("^", width))
	}
	for _, cause := range e.Causes {
		if fe, ok := cause.(*Error); ok {
			fe.Bind(source)
		}
	}
	return e
}

func (e *Error) Error() string {
	return e.format()
}

func (e *Error) format() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (%d:%d)", e.Line, e.Column)
	}
	b.WriteString(e.Snippet)
	for i := len(e.Context) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "\n  in %s", e.Context[i])
	}
	for _, cause := range e.Causes {
		b.WriteString("\n  - ")
		b.WriteString(strings.ReplaceAll(cause.Error(), "\n", "\n    "))
	}
	return b.String()
}

// Unwrap 暴露 Causes，配合 errors.Is / errors.As 使用。
func (e *Error) Unwrap() []error {
	return e.Causes
}
