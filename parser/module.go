package parser

import (
	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	. "github.com/formula-lang/formula/parser/lexer"
)

// ModuleTree 是一个模块源码中的全部顶层声明，按出现顺序排列。
type ModuleTree struct {
	Declarations []ast.Declaration
	Source       file.Source
}

// ParseModule 解析由声明组成的模块：
//
//	type Point = {x: Int, y: Int}
//	enum Result { .ok(# Int), .err(message: String) }
//	class Counter { count: Int = 0, fn next() => this.count + 1 }
//	fn double(# x: Int): Int => x * 2
//	let origin = {x: 0, y: 0}
//	@count: Int = 0
//	action increment(by: Int = 1) => @count + by
//	view Card(title: String) => <div class="card">{title}</div>
//
// 声明之间可以用 `;` 分隔。
func ParseModule(input string, config *conf.Config) (*ModuleTree, error) {
	source := file.NewSource(input)

	p, err := newParser(source, config)
	if err != nil {
		return nil, err
	}

	tree := &ModuleTree{Source: source}
	for !p.current.Is(EOF) && p.err == nil {
		if p.current.Is(Operator, ";") {
			p.next()
			continue
		}
		decl := p.parseDeclaration()
		if decl != nil {
			p.log.Debug("declaration", "name", decl.Declares())
			tree.Declarations = append(tree.Declarations, decl)
		}
	}

	if p.err != nil {
		return tree, p.err.Bind(source)
	}
	return tree, nil
}

func (p *parser) parseDeclaration() ast.Declaration {
	token := p.current
	switch {
	case token.Is(Keyword, "type"):
		p.next()
		name := p.expectName()
		p.expect(Operator, "=")
		t := p.parseType()
		return create(p, &ast.TypeDeclaration{Name: name.Value, Type: t}, p.span(token))

	case token.Is(Keyword, "enum"):
		return p.parseEnum()

	case token.Is(Keyword, "class"):
		return p.parseClass()

	case token.Is(Keyword, "fn"):
		p.next()
		f := p.parseFormula(token, true)
		return create(p, &ast.FormulaDeclaration{Formula: f}, p.span(token))

	case token.Is(Keyword, "let"):
		p.next()
		name := p.expectName()
		decl := &ast.LetDeclaration{Name: name.Value}
		if p.current.Is(Operator, ":") {
			p.next()
			decl.Type = p.parseType()
		}
		p.expect(Operator, "=")
		decl.Value = p.parseExpression(0)
		return create(p, decl, p.span(token))

	case token.Is(Operator, "@"):
		p.next()
		name := p.expectName()
		decl := &ast.StateDeclaration{Name: name.Value}
		if p.current.Is(Operator, ":") {
			p.next()
			decl.Type = p.parseType()
		}
		p.expect(Operator, "=")
		decl.Value = p.parseExpression(0)
		return create(p, decl, p.span(token))

	case token.Is(Keyword, "action"):
		p.next()
		f := p.parseFormula(token, true)
		return create(p, &ast.ActionDeclaration{Formula: f}, p.span(token))

	case token.Is(Keyword, "view"):
		p.next()
		f := p.parseFormula(token, true)
		return create(p, &ast.ViewDeclaration{Formula: f}, p.span(token))
	}

	p.error("expected a declaration, found %v", token)
	return nil
}

// enum Result { .ok(# Int), .err(message: String) }
func (p *parser) parseEnum() ast.Declaration {
	token := p.current
	p.expect(Keyword, "enum")
	node := &ast.EnumDeclaration{Name: p.expectName().Value}

	p.expect(Bracket, "{")
	for !p.current.Is(Bracket, "}") && p.err == nil {
		if len(node.Cases) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, "}") {
				break
			}
		}
		p.expect(Operator, ".")
		c := ast.EnumCaseDeclaration{Name: p.expectName().Value}
		if p.current.Is(Bracket, "(") {
			c.Args = p.parseFormulaTypeArgs()
		}
		for _, prev := range node.Cases {
			if prev.Name == c.Name {
				p.error("duplicate case .%s in enum %s", c.Name, node.Name)
			}
		}
		node.Cases = append(node.Cases, c)
	}
	p.expect(Bracket, "}")
	return create(p, node, p.span(token))
}

// class Point { x: Int = 0, y: Int, fn norm(): Int => this.x + this.y }
// 成员之间的逗号可以省略。
func (p *parser) parseClass() ast.Declaration {
	token := p.current
	p.expect(Keyword, "class")
	node := &ast.ClassDeclaration{Name: p.expectName().Value}

	p.expect(Bracket, "{")
	for !p.current.Is(Bracket, "}") && p.err == nil {
		member := p.current
		switch {
		case member.Is(Operator, ","):
			p.next()
		case member.Is(Keyword, "fn"):
			p.next()
			node.Methods = append(node.Methods, p.parseFormula(member, true))
		default:
			prop := ast.ClassProp{Name: p.expectName().Value}
			if p.current.Is(Operator, ":") {
				p.next()
				prop.Type = p.parseType()
			}
			if p.current.Is(Operator, "=") {
				p.next()
				prop.Default = p.parseExpression(0)
			}
			node.Props = append(node.Props, prop)
		}
	}
	p.expect(Bracket, "}")
	return create(p, node, p.span(token))
}
