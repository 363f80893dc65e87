package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// printer 同时负责 String() 与 Equal() 使用的规范化 key：
// key 模式下泛型带上 ID、名义对象带上属性，从而区分同名的不同类型。
type printer struct {
	b   strings.Builder
	key bool
}

func key(t Type) string {
	p := &printer{key: true}
	p.write(t)
	return p.b.String()
}

func str(t Type) string {
	p := &printer{}
	p.write(t)
	return p.b.String()
}

// FormatFloat 保证整数值的浮点数仍然带小数点，例如 2.0。
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (p *printer) write(t Type) {
	switch t := t.(type) {
	case Never:
		p.b.WriteString("Never")
	case All:
		p.b.WriteString("Any")
	case Null:
		p.b.WriteString("null")
	case Boolean:
		p.b.WriteString("Boolean")
	case LiteralBoolean:
		p.b.WriteString(strconv.FormatBool(t.Value))
	case Int:
		p.b.WriteString("Int")
		var bounds []string
		if t.Min != nil {
			bounds = append(bounds, fmt.Sprintf(">=%d", *t.Min))
		}
		if t.Max != nil {
			bounds = append(bounds, fmt.Sprintf("<=%d", *t.Max))
		}
		p.args(bounds)
	case LiteralInt:
		p.b.WriteString(strconv.FormatInt(t.Value, 10))
	case Float:
		p.b.WriteString("Float")
		var bounds []string
		if t.Min != nil {
			op := ">="
			if t.Min.Exclusive {
				op = ">"
			}
			bounds = append(bounds, op+FormatFloat(t.Min.Value))
		}
		if t.Max != nil {
			op := "<="
			if t.Max.Exclusive {
				op = "<"
			}
			bounds = append(bounds, op+FormatFloat(t.Max.Value))
		}
		p.args(bounds)
	case LiteralFloat:
		p.b.WriteString(FormatFloat(t.Value))
	case String:
		p.b.WriteString("String")
		var args []string
		if !t.Length.IsZero() {
			args = append(args, "length: "+t.Length.String())
		}
		for _, re := range t.Regexes {
			args = append(args, "matches: "+strconv.Quote(re.String()))
		}
		p.args(args)
	case LiteralString:
		p.b.WriteString(strconv.Quote(t.Value))
	case Array:
		p.container("Array", t.Of, t.Length, nil)
	case Dict:
		p.container("Dict", t.Of, t.Length, t.Names)
	case Set:
		p.container("Set", t.Of, t.Length, nil)
	case Object:
		if t.Name != "" {
			p.b.WriteString(t.Name)
			if !p.key {
				return
			}
		}
		p.b.WriteString("{")
		for i, prop := range t.Props {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(prop.Name)
			p.b.WriteString(": ")
			p.write(prop.Type)
		}
		p.b.WriteString("}")
	case Formula:
		p.formula(t)
	case OneOfType:
		for i, m := range t.Of {
			if i > 0 {
				p.b.WriteString(" | ")
			}
			if _, ok := m.(Formula); ok {
				p.b.WriteString("(")
				p.write(m)
				p.b.WriteString(")")
				continue
			}
			p.write(m)
		}
	case Generic:
		p.b.WriteString(t.Name)
		if p.key {
			fmt.Fprintf(&p.b, "#%d", t.ID)
		}
	case Enum:
		p.b.WriteString(t.Name)
		if p.key {
			p.b.WriteString("{")
			for i, c := range t.Cases {
				if i > 0 {
					p.b.WriteString(", ")
				}
				p.write(c)
			}
			p.b.WriteString("}")
		}
	case EnumCase:
		p.b.WriteString(t.Enum)
		p.b.WriteString(".")
		p.b.WriteString(t.Name)
		if len(t.Args) > 0 {
			p.b.WriteString("(")
			p.arguments(t.Args)
			p.b.WriteString(")")
		}
	case Meta:
		p.b.WriteString("Type(")
		p.write(t.Of)
		p.b.WriteString(")")
	case Namespace:
		p.b.WriteString("Namespace(")
		p.b.WriteString(t.Name)
		p.b.WriteString(")")
	case View:
		p.b.WriteString("View")
	default:
		panic(fmt.Sprintf("unknown type %T", t))
	}
}

func (p *printer) args(args []string) {
	if len(args) == 0 {
		return
	}
	p.b.WriteString("(")
	p.b.WriteString(strings.Join(args, ", "))
	p.b.WriteString(")")
}

func (p *printer) container(name string, of Type, length Length, names []string) {
	p.b.WriteString(name)
	p.b.WriteString("(")
	p.write(of)
	if !length.IsZero() {
		p.b.WriteString(", length: ")
		p.b.WriteString(length.String())
	}
	if len(names) > 0 {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = strconv.Quote(n)
		}
		p.b.WriteString(", keys: [")
		p.b.WriteString(strings.Join(quoted, ", "))
		p.b.WriteString("]")
	}
	p.b.WriteString(")")
}

func (p *printer) formula(t Formula) {
	p.b.WriteString("fn")
	if len(t.Generics) > 0 {
		p.b.WriteString("<")
		for i, g := range t.Generics {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.write(g)
		}
		p.b.WriteString(">")
	}
	p.b.WriteString("(")
	p.arguments(t.Args)
	p.b.WriteString("): ")
	p.write(t.Return)
}

func (p *printer) arguments(args []Argument) {
	for i, arg := range args {
		if i > 0 {
			p.b.WriteString(", ")
		}
		switch arg.Spread {
		case PositionalSpread:
			p.b.WriteString("...")
		case KwargsSpread:
			p.b.WriteString("**")
		}
		if arg.Positional {
			p.b.WriteString("# ")
		}
		if arg.Name != "" {
			p.b.WriteString(arg.Name)
			if !arg.Required && arg.Spread == NoSpread {
				p.b.WriteString("?")
			}
			p.b.WriteString(": ")
		}
		p.write(arg.Type)
	}
}

func (t Never) String() string          { return str(t) }
func (t All) String() string            { return str(t) }
func (t Null) String() string           { return str(t) }
func (t Boolean) String() string        { return str(t) }
func (t LiteralBoolean) String() string { return str(t) }
func (t Int) String() string            { return str(t) }
func (t LiteralInt) String() string     { return str(t) }
func (t Float) String() string          { return str(t) }
func (t LiteralFloat) String() string   { return str(t) }
func (t String) String() string         { return str(t) }
func (t LiteralString) String() string  { return str(t) }
func (t Array) String() string          { return str(t) }
func (t Dict) String() string           { return str(t) }
func (t Set) String() string            { return str(t) }
func (t Object) String() string         { return str(t) }
func (t Formula) String() string        { return str(t) }
func (t OneOfType) String() string      { return str(t) }
func (t Generic) String() string        { return str(t) }
func (t Enum) String() string           { return str(t) }
func (t EnumCase) String() string       { return str(t) }
func (t Meta) String() string           { return str(t) }
func (t Namespace) String() string      { return str(t) }
func (t View) String() string           { return str(t) }

// Equal 按结构比较两个类型。
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return key(a) == key(b)
}

func (t Never) Equal(o Type) bool          { return Equal(t, o) }
func (t All) Equal(o Type) bool            { return Equal(t, o) }
func (t Null) Equal(o Type) bool           { return Equal(t, o) }
func (t Boolean) Equal(o Type) bool        { return Equal(t, o) }
func (t LiteralBoolean) Equal(o Type) bool { return Equal(t, o) }
func (t Int) Equal(o Type) bool            { return Equal(t, o) }
func (t LiteralInt) Equal(o Type) bool     { return Equal(t, o) }
func (t Float) Equal(o Type) bool          { return Equal(t, o) }
func (t LiteralFloat) Equal(o Type) bool   { return Equal(t, o) }
func (t String) Equal(o Type) bool         { return Equal(t, o) }
func (t LiteralString) Equal(o Type) bool  { return Equal(t, o) }
func (t Array) Equal(o Type) bool          { return Equal(t, o) }
func (t Dict) Equal(o Type) bool           { return Equal(t, o) }
func (t Set) Equal(o Type) bool            { return Equal(t, o) }
func (t Object) Equal(o Type) bool         { return Equal(t, o) }
func (t Formula) Equal(o Type) bool        { return Equal(t, o) }
func (t OneOfType) Equal(o Type) bool      { return Equal(t, o) }
func (t Generic) Equal(o Type) bool        { return Equal(t, o) }
func (t Enum) Equal(o Type) bool           { return Equal(t, o) }
func (t EnumCase) Equal(o Type) bool       { return Equal(t, o) }
func (t Meta) Equal(o Type) bool           { return Equal(t, o) }
func (t Namespace) Equal(o Type) bool      { return Equal(t, o) }
func (t View) Equal(o Type) bool           { return Equal(t, o) }
