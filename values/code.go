package values

import (
	"strconv"
	"strings"

	"github.com/formula-lang/formula/types"
)

func (Null) String() string      { return "null" }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }
func (v Int) String() string     { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string   { return types.FormatFloat(float64(v)) }
func (v String) String() string  { return strconv.Quote(string(v)) }

func (v Array) String() string {
	return "[" + join(v.Items) + "]"
}

func (v Set) String() string {
	return "#[" + join(v.Items) + "]"
}

func (v Dict) String() string {
	parts := make([]string, len(v.Entries))
	for i, e := range v.Entries {
		parts[i] = e.Key.String() + ": " + e.Value.String()
	}
	return "#{" + strings.Join(parts, ", ") + "}"
}

func (v Object) String() string {
	parts := make([]string, len(v.Props))
	for i, p := range v.Props {
		parts[i] = p.Name + ": " + p.Value.String()
	}
	if v.Name != "" {
		return v.Name + "(" + strings.Join(parts, ", ") + ")"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (v Formula) String() string {
	if v.Name != "" {
		return "fn " + v.Name
	}
	return v.Signature.String()
}

func (v EnumCase) String() string {
	s := v.Case.Enum + "." + v.Case.Name
	if len(v.Args) > 0 {
		s += "(" + join(v.Args) + ")"
	}
	return s
}

func (v TypeValue) String() string { return v.Of.String() }
func (v Namespace) String() string { return v.Name }

func (v View) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(v.Tag)
	for _, p := range v.Props {
		b.WriteString(" ")
		b.WriteString(p.Name)
		b.WriteString("=")
		if s, ok := p.Value.(String); ok {
			b.WriteString(strconv.Quote(string(s)))
		} else {
			b.WriteString("{" + p.Value.String() + "}")
		}
	}
	if len(v.Children) == 0 {
		b.WriteString(" />")
		return b.String()
	}
	b.WriteString(">")
	for _, c := range v.Children {
		if s, ok := c.(String); ok {
			b.WriteString(string(s))
		} else {
			b.WriteString(c.String())
		}
	}
	b.WriteString("</" + v.Tag + ">")
	return b.String()
}

func join(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}
