package parser

import (
	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/file"
	. "github.com/formula-lang/formula/parser/lexer"
	"github.com/formula-lang/formula/parser/utils"
)

// viewParser 在源码上直接解析 lexer 整体交出的视图元素：
//
//	<div class="card" hidden title={t}>Hello {name}<Icon /></div>
//
// 属性值与内容中的 `{...}` 交给一个共享配置的子解析器。
type viewParser struct {
	p   *parser
	src file.Source
	pos int
	end int
}

func (p *parser) parseView(token Token) ast.Expression {
	v := &viewParser{p: p, src: p.source, pos: token.From, end: token.To}
	node := v.element()
	if p.err == nil && v.pos != v.end {
		v.errorf(v.pos, "unexpected text after view element")
	}
	if node == nil {
		return p.bad()
	}
	return node
}

func (v *viewParser) errorf(at int, format string, args ...any) {
	v.p.errorAt(Token{Location: file.Location{From: at, To: at + 1}}, format, args...)
}

func (v *viewParser) peek() rune {
	if v.pos >= v.end {
		return -1
	}
	return v.src[v.pos]
}

func (v *viewParser) skipSpace() {
	for v.pos < v.end && utils.IsSpace(v.src[v.pos]) {
		v.pos++
	}
}

func (v *viewParser) accept(s string) bool {
	rs := []rune(s)
	if v.pos+len(rs) > v.end {
		return false
	}
	for i, r := range rs {
		if v.src[v.pos+i] != r {
			return false
		}
	}
	v.pos += len(rs)
	return true
}

func (v *viewParser) name() string {
	start := v.pos
	for v.pos < v.end && (utils.IsAlphaNumeric(v.src[v.pos]) || v.src[v.pos] == '-') {
		v.pos++
	}
	return string(v.src[start:v.pos])
}

// element 解析从 `<` 开始的一个元素。
func (v *viewParser) element() *ast.ViewElement {
	start := v.pos
	if !v.accept("<") {
		v.errorf(v.pos, "expected <")
		return nil
	}
	node := &ast.ViewElement{Tag: v.name()}
	if node.Tag == "" {
		v.errorf(v.pos, "expected a tag name")
		return nil
	}

	for v.p.err == nil {
		v.skipSpace()
		switch {
		case v.accept("/>"):
			return create(v.p, node, file.Location{From: start, To: v.pos})
		case v.accept(">"):
			if !v.content(node) {
				return nil
			}
			return create(v.p, node, file.Location{From: start, To: v.pos})
		}
		if !v.prop(node) {
			return nil
		}
	}
	return nil
}

// prop 解析 `name="text"`、`name={expr}` 或单独的 `name`（等价于 name={true}）。
func (v *viewParser) prop(node *ast.ViewElement) bool {
	at := v.pos
	name := v.name()
	if name == "" {
		v.errorf(at, "unexpected %q in view element", v.peek())
		return false
	}
	if !v.accept("=") {
		value := create(v.p, &ast.BooleanLiteral{Value: true}, file.Location{From: at, To: v.pos})
		node.Props = append(node.Props, ast.ViewProp{Name: name, Value: value})
		return true
	}

	switch r := v.peek(); r {
	case '"', '\'':
		from := v.pos
		to, ok := v.closingQuote(from)
		if !ok {
			v.errorf(from, "literal not terminated")
			return false
		}
		text, err := Unescape(string(v.src[from:to]))
		if err != nil {
			v.errorf(from, "%v", err)
			return false
		}
		v.pos = to
		value := create(v.p, &ast.StringLiteral{Value: text}, file.Location{From: from, To: to})
		node.Props = append(node.Props, ast.ViewProp{Name: name, Value: value})
	case '{':
		value := v.braces()
		if value == nil {
			return false
		}
		node.Props = append(node.Props, ast.ViewProp{Name: name, Value: value})
	default:
		v.errorf(v.pos, "expected a quoted string or {expression} for property %s", name)
		return false
	}
	return true
}

// content 解析开始标签之后的文本、`{expr}` 与子元素，直到对应的结束标签。
func (v *viewParser) content(node *ast.ViewElement) bool {
	for v.p.err == nil {
		switch {
		case v.pos >= v.end:
			v.errorf(v.pos, "view element <%s> is not closed", node.Tag)
			return false

		case v.accept("</"):
			at := v.pos
			if tag := v.name(); tag != node.Tag {
				v.errorf(at, "closing tag </%s> does not match <%s>", tag, node.Tag)
				return false
			}
			v.skipSpace()
			if !v.accept(">") {
				v.errorf(v.pos, "expected >")
				return false
			}
			return true

		case v.peek() == '<':
			child := v.element()
			if child == nil {
				return false
			}
			node.Content = append(node.Content, child)

		case v.peek() == '{':
			expr := v.braces()
			if expr == nil {
				return false
			}
			node.Content = append(node.Content, expr)

		default:
			from := v.pos
			for v.pos < v.end && v.src[v.pos] != '<' && v.src[v.pos] != '{' {
				v.pos++
			}
			if text := v.src[from:v.pos]; !blank(text) {
				node.Content = append(node.Content,
					create(v.p, &ast.ViewText{Text: string(text)}, file.Location{From: from, To: v.pos}))
			}
		}
	}
	return false
}

func blank(rs []rune) bool {
	for _, r := range rs {
		if !utils.IsSpace(r) {
			return false
		}
	}
	return true
}

// braces 解析 `{expr}`，pos 停在 `{` 上。
func (v *viewParser) braces() ast.Expression {
	open := v.pos
	closing, ok := v.matchingBrace(open)
	if !ok {
		v.errorf(open, "unclosed {")
		return nil
	}
	expr := v.p.parseRange(open+1, closing)
	v.pos = closing + 1
	if v.p.err != nil {
		return nil
	}
	return expr
}

// matchingBrace 返回与 open 处 `{` 配对的 `}` 的位置，跳过字符串中的括号。
func (v *viewParser) matchingBrace(open int) (int, bool) {
	depth := 0
	for i := open; i < v.end; i++ {
		switch v.src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		case '"', '\'':
			end, ok := v.closingQuote(i)
			if !ok {
				return 0, false
			}
			i = end - 1
		}
	}
	return 0, false
}

// closingQuote 返回 from 处开始的字符串字面量之后的位置。
func (v *viewParser) closingQuote(from int) (int, bool) {
	quote := v.src[from]
	for i := from + 1; i < v.end; i++ {
		switch v.src[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		case '\n':
			return 0, false
		}
	}
	return 0, false
}

// parseRange 用一个共享配置与节点计数的子解析器解析 source[from:to] 中的表达式。
func (p *parser) parseRange(from, to int) ast.Expression {
	tokens, err := LexRange(p.source, from, to)
	if err != nil {
		if fe, ok := err.(*file.Error); ok && p.err == nil {
			p.err = fe
		} else {
			p.errorAt(Token{Location: file.Location{From: from, To: to}}, "%v", err)
		}
		return p.bad()
	}
	sub := &parser{
		tokens:     tokens,
		current:    tokens[0],
		source:     p.source,
		config:     p.config,
		log:        p.log,
		nodeCount:  p.nodeCount,
		parseDepth: p.parseDepth,
	}
	node := sub.parseExpression(0)
	if sub.err == nil && !sub.current.Is(EOF) {
		sub.error("unexpected token %v", sub.current)
	}
	p.nodeCount = sub.nodeCount
	if sub.err != nil && p.err == nil {
		p.err = sub.err
	}
	return node
}
