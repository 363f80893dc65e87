package values

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Printable 返回值面向用户的文本形式：数字按 locale 分组，字符串不加引号。
func Printable(v Value, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return printable(p, v)
}

func printable(p *message.Printer, v Value) string {
	switch v := v.(type) {
	case Null:
		return ""
	case Int:
		return p.Sprintf("%d", int64(v))
	case Float:
		if IsNaN(v) {
			return "NaN"
		}
		return p.Sprintf("%v", float64(v))
	case String:
		return string(v)
	case Array:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = printable(p, item)
		}
		return strings.Join(parts, ", ")
	case View:
		var b strings.Builder
		for _, c := range v.Children {
			b.WriteString(printable(p, c))
		}
		return b.String()
	}
	return v.String()
}
