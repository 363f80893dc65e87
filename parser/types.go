package parser

import (
	"github.com/formula-lang/formula/ast"
	. "github.com/formula-lang/formula/parser/lexer"
	"github.com/formula-lang/formula/parser/utils"
	"github.com/formula-lang/formula/types"
)

// parseType 解析类型位置上的表达式：
//
//	Int  Int(>=0, <10)  String(length: >=1)  Array(Int)  {a: Int}
//	A | B  T?  fn(# Int): Int  1  "a"  null  User
func (p *parser) parseType() ast.Expression {
	start := p.current
	first := p.parseOptionalType()
	if !p.current.Is(Operator, "|") {
		return first
	}
	union := &ast.UnionType{Of: []ast.Expression{first}}
	for p.current.Is(Operator, "|") && p.err == nil {
		p.next()
		union.Of = append(union.Of, p.parseOptionalType())
	}
	return create(p, union, p.span(start))
}

func (p *parser) parseOptionalType() ast.Expression {
	start := p.current
	t := p.parsePrimaryType()
	for p.current.Is(Operator, "?") && p.err == nil {
		p.next()
		t = create(p, &ast.OptionalType{Of: t}, p.span(start))
	}
	return t
}

func (p *parser) parsePrimaryType() ast.Expression {
	token := p.current
	switch {
	case token.Is(Identifier):
		if ast.BuiltinTypeNames[token.Value] {
			return p.parseBuiltinType()
		}
		p.next()
		return create(p, &ast.TypeReference{Name: token.Value}, token.Location)

	case isLiteralStart(token):
		literal := p.parseLiteral()
		return create(p, &ast.LiteralType{Literal: literal}, p.span(token))

	case token.Is(Bracket, "{"):
		return p.parseObjectType()

	case token.Is(Keyword, "fn"):
		return p.parseFormulaType()

	case token.Is(Bracket, "("):
		p.next()
		t := p.parseType()
		p.expect(Bracket, ")")
		return t
	}
	p.error("expected a type, found %v", token)
	return p.bad()
}

// parseBuiltinType 解析内置类型与它的参数：
//
//	Int(>=0, <10)
//	Float(>0.5)
//	String(length: >=1, matches: "^[a-z]+$")
//	Array(Int, length: <=3)
func (p *parser) parseBuiltinType() ast.Expression {
	token := p.current
	p.next()

	node := &ast.BuiltinType{Name: token.Value}
	if p.current.Is(Bracket, "(") {
		p.next()
		for !p.current.Is(Bracket, ")") && p.err == nil {
			if len(node.Args) > 0 {
				p.expect(Operator, ",")
				if p.current.Is(Bracket, ")") {
					break
				}
			}
			node.Args = append(node.Args, p.parseTypeArg())
		}
		p.expect(Bracket, ")")
	}
	return create(p, node, p.span(token))
}

var boundOperators = []string{">=", ">", "<=", "<", "=", "=="}

func (p *parser) parseTypeArg() ast.TypeArg {
	var arg ast.TypeArg
	// matches 是单词运算符，在这里作为参数名
	if (p.current.Is(Identifier) || p.current.Is(Operator, "matches")) && p.peek().Is(Operator, ":") {
		arg.Name = p.current.Value
		p.next()
		p.next()
	}
	switch {
	case p.current.Is(Operator, boundOperators...):
		arg.Op = p.current.Value
		p.next()
	case arg.Name == "length":
		// length: 3 等价于 length: =3
		arg.Op = "="
	}

	if arg.Name == "" && arg.Op == "" {
		arg.Value = p.parseType()
	} else {
		arg.Value = p.parseLiteral()
	}
	return arg
}

// {a: Int, b: String?}
func (p *parser) parseObjectType() ast.Expression {
	token := p.current
	p.expect(Bracket, "{")

	node := &ast.ObjectType{}
	for !p.current.Is(Bracket, "}") && p.err == nil {
		if len(node.Props) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, "}") {
				break
			}
		}
		name := p.expectName()
		p.expect(Operator, ":")
		node.Props = append(node.Props, ast.ObjectTypeProp{Name: name.Value, Type: p.parseType()})
	}
	p.expect(Bracket, "}")
	return create(p, node, p.span(token))
}

// fn<T>(# a: T, b?: Int, ...# rest: Array(T), **kw: Dict(Int)): T
func (p *parser) parseFormulaType() ast.Expression {
	token := p.current
	p.expect(Keyword, "fn")

	node := &ast.FormulaType{}
	if p.current.Is(Operator, "<") {
		node.Generics = p.parseGenerics()
	}
	node.Args = p.parseFormulaTypeArgs()
	p.expect(Operator, ":")
	node.Return = p.parseType()
	return create(p, node, p.span(token))
}

// parseFormulaTypeArgs 解析 `(# a: T, b?: Int, String)`，名字可以省略。
// enum case 的参数列表使用同样的语法。
func (p *parser) parseFormulaTypeArgs() []ast.FormulaTypeArg {
	p.expect(Bracket, "(")
	var args []ast.FormulaTypeArg
	for !p.current.Is(Bracket, ")") && p.err == nil {
		if len(args) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, ")") {
				break
			}
		}
		var arg ast.FormulaTypeArg
		arg.Spread = p.parseSpreadMarker()
		if p.current.Is(Operator, "#") {
			arg.Positional = true
			p.next()
		}
		if p.current.Is(Identifier) {
			next := p.peek()
			switch {
			case next.Is(Operator, ":"):
				arg.Name = p.current.Value
				p.next()
				p.next()
			case next.Is(Operator, "?") && p.tokens[p.pos+2].Is(Operator, ":"):
				arg.Name = p.current.Value
				arg.Optional = true
				p.next()
				p.next()
				p.next()
			}
		}
		if arg.Name == "" && arg.Spread == types.NoSpread {
			// 没有名字的参数只能按位置传入
			arg.Positional = true
		}
		arg.Type = p.parseType()
		args = append(args, arg)
	}
	p.expect(Bracket, ")")
	return args
}

// parsePattern 解析 switch case 与 is 右侧的模式：
//
//	_  name  1  "a"  null  Int  String | null  .ok(v)  [first, ...rest]
func (p *parser) parsePattern() ast.Pattern {
	token := p.current
	switch {
	case token.Is(Identifier, "_"):
		p.next()
		return create(p, &ast.IgnorePattern{}, token.Location)

	case token.Is(Identifier) && !ast.BuiltinTypeNames[token.Value] && !utils.IsTypeName(token.Value):
		p.next()
		return create(p, &ast.BindingPattern{Name: token.Value}, token.Location)

	case isLiteralStart(token):
		if p.literalUnion() {
			return create(p, &ast.TypePattern{Type: p.parseType()}, p.span(token))
		}
		literal := p.parseLiteral()
		return create(p, &ast.LiteralPattern{Literal: literal}, p.span(token))

	case token.Is(Operator, "."):
		p.next()
		name := p.expectName()
		node := &ast.EnumCasePattern{Name: name.Value}
		if p.current.Is(Bracket, "(") {
			node.Args = p.parsePatterns(")")
		}
		return create(p, node, p.span(token))

	case token.Is(Bracket, "["):
		return p.parseArrayPattern()
	}

	t := p.parseType()
	return create(p, &ast.TypePattern{Type: t}, p.span(token))
}

// literalUnion 判断字面量后面是否跟着 `|` 或 `?`，此时整个模式按类型解析。
func (p *parser) literalUnion() bool {
	i := p.pos + 1
	if p.current.Is(Operator, "-") {
		i++
	}
	return i < len(p.tokens) && p.tokens[i].Is(Operator, "|", "?")
}

func (p *parser) parsePatterns(closing string) []ast.Pattern {
	p.next() // ( 或 [
	var out []ast.Pattern
	for !p.current.Is(Bracket, closing) && p.err == nil {
		if len(out) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, closing) {
				break
			}
		}
		out = append(out, p.parsePattern())
	}
	p.expect(Bracket, closing)
	return out
}

// [first, second, ...rest]
func (p *parser) parseArrayPattern() ast.Pattern {
	token := p.current
	p.expect(Bracket, "[")

	node := &ast.ArrayPattern{}
	for !p.current.Is(Bracket, "]") && p.err == nil {
		if len(node.Items) > 0 || node.HasRest {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, "]") {
				break
			}
		}
		if node.HasRest {
			p.error("rest pattern must be last")
			break
		}
		if p.current.Is(Operator, "...") {
			p.next()
			node.Rest = p.expectName().Value
			node.HasRest = true
			continue
		}
		node.Items = append(node.Items, p.parsePattern())
	}
	p.expect(Bracket, "]")
	return create(p, node, p.span(token))
}
