package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/operators"
	. "github.com/formula-lang/formula/parser/lexer"
	"github.com/formula-lang/formula/parser/operator"
	"github.com/formula-lang/formula/parser/utils"
	"github.com/formula-lang/formula/types"
)

type parser struct {
	tokens     []Token     // 输入的 token 流
	current    Token       // 当前正在处理的 token
	pos        int         // 当前 token 的索引
	err        *file.Error // 解析错误，遇错停止
	source     file.Source // 视图元素需要回到源码上再次解析
	config     *conf.Config
	log        hclog.Logger
	nodeCount  uint // tracks number of AST nodes created
	parseDepth int  // 用于跟踪日志的缩进
}

type Tree struct {
	Node   ast.Expression
	Source file.Source
}

func Parse(input string) (*Tree, error) {
	return ParseWithConfig(input, nil)
}

func ParseWithConfig(input string, config *conf.Config) (*Tree, error) {
	source := file.NewSource(input)

	p, err := newParser(source, config)
	if err != nil {
		return nil, err
	}

	node := p.parseExpression(0)

	if !p.current.Is(EOF) {
		p.error("unexpected token %v", p.current)
	}

	tree := &Tree{
		Node:   node,
		Source: source,
	}

	if p.err != nil {
		return tree, p.err.Bind(source)
	}

	return tree, nil
}

func newParser(source file.Source, config *conf.Config) (*parser, error) {
	tokens, err := Lex(source)
	if err != nil {
		return nil, err
	}
	return &parser{
		tokens:  tokens,
		current: tokens[0],
		source:  source,
		config:  config,
		log:     config.Log().Named("parser"),
	}, nil
}

// create 设置节点位置并检查节点数量上限，防止解析树过大导致资源耗尽。
func create[T interface{ SetLocation(file.Location) }](p *parser, n T, loc file.Location) T {
	p.nodeCount++
	if limit := p.config.NodeLimit(); limit > 0 && p.nodeCount > limit {
		p.error("compilation failed: expression exceeds maximum allowed nodes")
	}
	n.SetLocation(loc)
	return n
}

// bad 是出错之后返回的占位节点，保证调用方拿到的永远不是 nil。
func (p *parser) bad() ast.Expression {
	return &ast.NullLiteral{}
}

func (p *parser) error(format string, args ...any) {
	p.errorAt(p.current, format, args...)
}

func (p *parser) errorAt(token Token, format string, args ...any) {
	if p.err == nil { // show first error
		p.err = &file.Error{
			Location: token.Location,
			Message:  fmt.Sprintf(format, args...),
		}
	}
}

func (p *parser) next() {
	p.pos++
	if p.pos >= len(p.tokens) {
		p.error("unexpected end of expression")
		p.pos = len(p.tokens) - 1
		return
	}
	p.current = p.tokens[p.pos]
}

// peek 返回下一个 token，不移动位置。
func (p *parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) expect(kind Kind, values ...string) {
	if p.current.Is(kind, values...) {
		p.next()
		return
	}
	p.error("unexpected token %v", p.current)
}

// expectName 消费一个名字并返回它。
func (p *parser) expectName() Token {
	token := p.current
	if !token.Is(Identifier) {
		p.error("expected a name, found %v", token)
		return token
	}
	p.next()
	return token
}

// span 返回从 start 到上一个已消费 token 的区间。
func (p *parser) span(start Token) file.Location {
	end := start.To
	if p.pos > 0 && p.tokens[p.pos-1].To > end {
		end = p.tokens[p.pos-1].To
	}
	return file.Location{From: start.From, To: end}
}

func (p *parser) logf(msg string, args ...any) {
	if !p.log.IsTrace() {
		return
	}
	indent := strings.Repeat(" ", max(p.parseDepth-1, 0)*4)
	p.log.Trace(indent+msg, args...)
}

// parseExpression 把 token 流解析成表达式树（Pratt 解析）。
//
// 每个表达式都有左右两边：当解析到一个运算符时，它的左半部已经解析完成；
// 右半部用更高的优先级递归解析，遇到优先级更低的运算符时返回。
func (p *parser) parseExpression(precedence int) ast.Expression {
	p.parseDepth++
	defer func() { p.parseDepth-- }()

	p.logf("parse expression", "precedence", precedence, "token", p.current.String(), "pos", p.pos)

	if p.err != nil {
		return p.bad()
	}

	start := p.current
	nodeLeft := p.parseUnary()

	for opToken := p.current; opToken.Is(Operator) && p.err == nil; opToken = p.current {
		op, ok := operator.Binary[opToken.Value]
		if !ok {
			p.logf("stop: not a binary operator", "op", opToken.Value)
			break
		}
		if op.Precedence < precedence {
			p.logf("stop: lower precedence", "op", opToken.Value, "precedence", op.Precedence, "required", precedence)
			break
		}
		p.next()

		// is 的右侧是模式
		if opToken.Value == "is" || opToken.Value == "!is" {
			pattern := p.parsePattern()
			nodeLeft = create(p, &operators.IsOperation{
				Subject: nodeLeft,
				Pattern: pattern,
				Negated: opToken.Value == "!is",
			}, p.span(start))
			continue
		}

		var nodeRight ast.Expression
		if op.Associativity == operator.Left {
			nodeRight = p.parseExpression(op.Precedence + 1)
		} else {
			nodeRight = p.parseExpression(op.Precedence)
		}
		if p.err != nil {
			break
		}

		node, err := operators.NewBinary(opToken.Value, nodeLeft, nodeRight)
		if err != nil {
			p.errorAt(opToken, "%v", err)
			break
		}
		nodeLeft = create(p, node, p.span(start))
		p.logf("binary", "op", opToken.Value, "node", nodeLeft.ToCode())
	}

	return nodeLeft
}

func (p *parser) parseUnary() ast.Expression {
	token := p.current
	if token.Is(Operator) {
		if op, ok := operator.Unary[token.Value]; ok {
			p.next()
			operand := p.parseExpression(op.Precedence)
			return create(p, &operators.UnaryOperation{
				Operator: token.Value,
				Operand:  operand,
			}, p.span(token))
		}
	}
	return p.parsePostfixExpression(token, p.parsePrimary())
}

func (p *parser) parsePrimary() ast.Expression {
	token := p.current

	switch token.Kind {
	case Number:
		return p.parseNumber(false, token)

	case String:
		p.next()
		return create(p, &ast.StringLiteral{Value: token.Value}, token.Location)

	case View:
		p.next()
		return p.parseView(token)

	case Identifier:
		if ast.BuiltinTypeNames[token.Value] {
			return p.parseBuiltinType()
		}
		p.next()
		return create(p, &ast.Reference{Name: token.Value}, token.Location)

	case Keyword:
		switch token.Value {
		case "null":
			p.next()
			return create(p, &ast.NullLiteral{}, token.Location)
		case "true", "false":
			p.next()
			return create(p, &ast.BooleanLiteral{Value: token.Value == "true"}, token.Location)
		case "this":
			p.next()
			return create(p, &ast.ThisReference{}, token.Location)
		case "let":
			return p.parseLet()
		case "if":
			return p.parseIf()
		case "switch":
			return p.parseSwitch()
		case "fn":
			p.next()
			return p.parseFormula(token, false)
		}

	case Operator:
		switch token.Value {
		case "@":
			p.next()
			name := p.expectName()
			return create(p, &ast.StateReference{Name: name.Value}, p.span(token))
		case "&":
			p.next()
			name := p.expectName()
			return create(p, &ast.ActionReference{Name: name.Value}, p.span(token))
		case "#":
			p.next()
			return create(p, &ast.PipePlaceholder{}, token.Location)
		}

	case Bracket:
		switch token.Value {
		case "(":
			p.next()
			expr := p.parseExpression(0)
			p.expect(Bracket, ")") // an opened parenthesis is not properly closed
			return expr
		case "[":
			return p.parseArrayExpression(token)
		case "#[":
			return p.parseSetExpression(token)
		case "#{":
			return p.parseDictExpression(token)
		case "{":
			return p.parseObjectExpression(token)
		}
	}

	p.error("unexpected token %v", token)
	return p.bad()
}

// parseNumber 解析数字字面量，negative 表示前面有一个已经消费的负号（只出现在类型与模式中）。
func (p *parser) parseNumber(negative bool, start Token) ast.Expression {
	token := p.current
	if !token.Is(Number) {
		p.error("expected a number, found %v", token)
		return p.bad()
	}
	p.next()

	value := strings.ReplaceAll(token.Value, "_", "")
	valueLower := strings.ToLower(value)
	if negative {
		value = "-" + value
	}
	loc := p.span(start)

	switch {
	case strings.HasPrefix(valueLower, "0x"), strings.HasPrefix(valueLower, "0b"), strings.HasPrefix(valueLower, "0o"):
		number, err := strconv.ParseInt(value, 0, 64)
		if err != nil {
			p.errorAt(token, "invalid integer literal: %v", err)
			return p.bad()
		}
		return create(p, &ast.IntLiteral{Value: number}, loc)
	case strings.ContainsAny(valueLower, ".e"):
		number, err := strconv.ParseFloat(value, 64)
		if err != nil {
			p.errorAt(token, "invalid float literal: %v", err)
			return p.bad()
		}
		return create(p, &ast.FloatLiteral{Value: number}, loc)
	default:
		number, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			p.errorAt(token, "invalid integer literal: %v", err)
			return p.bad()
		}
		return create(p, &ast.IntLiteral{Value: number}, loc)
	}
}

// parseLiteral 解析类型参数与模式中的字面量：数字（可以带负号）、字符串、null、true、false。
func (p *parser) parseLiteral() ast.Expression {
	token := p.current
	switch {
	case token.Is(Operator, "-"):
		p.next()
		return p.parseNumber(true, token)
	case token.Is(Number):
		return p.parseNumber(false, token)
	case token.Is(String), token.Is(Keyword, "null", "true", "false"):
		return p.parsePrimary()
	}
	p.error("expected a literal, found %v", token)
	return p.bad()
}

func isLiteralStart(t Token) bool {
	return t.Is(Number) || t.Is(String) || t.Is(Keyword, "null", "true", "false") || t.Is(Operator, "-")
}

// let a = 1, b: Int = a + 1 in a + b
func (p *parser) parseLet() ast.Expression {
	start := p.current
	p.expect(Keyword, "let")

	let := &ast.Let{}
	for p.err == nil {
		name := p.expectName()
		binding := ast.LetBinding{Name: name.Value}
		if p.current.Is(Operator, ":") {
			p.next()
			binding.Type = p.parseType()
		}
		p.expect(Operator, "=")
		binding.Value = p.parseExpression(0)
		let.Bindings = append(let.Bindings, binding)

		if !p.current.Is(Operator, ",") {
			break
		}
		p.next()
	}

	p.expect(Keyword, "in")
	let.Body = p.parseExpression(0)
	return create(p, let, p.span(start))
}

// 解析 if-else 表达式
//
//	if condition {
//		expr1
//	} else if other {
//		expr2
//	} else {
//		expr3
//	}
//
// 没有 else 分支时，条件不成立的结果是 null。
func (p *parser) parseIf() ast.Expression {
	start := p.current
	p.expect(Keyword, "if")

	node := &ast.If{Cond: p.parseExpression(0)}
	p.expect(Bracket, "{")
	node.Then = p.parseExpression(0)
	p.expect(Bracket, "}")

	if p.current.Is(Keyword, "else") {
		p.next()
		if p.current.Is(Keyword, "if") {
			node.Else = p.parseIf()
		} else {
			p.expect(Bracket, "{")
			node.Else = p.parseExpression(0)
			p.expect(Bracket, "}")
		}
	}
	return create(p, node, p.span(start))
}

// switch subject { case pattern: body, case pattern: body, else: body }
// case 之间的逗号可以省略。
func (p *parser) parseSwitch() ast.Expression {
	start := p.current
	p.expect(Keyword, "switch")

	node := &ast.Switch{Subject: p.parseExpression(0)}
	p.expect(Bracket, "{")
	for !p.current.Is(Bracket, "}") && p.err == nil {
		switch {
		case p.current.Is(Operator, ","):
			p.next()
		case p.current.Is(Keyword, "else"):
			if node.Else != nil {
				p.error("duplicate else in switch")
				return p.bad()
			}
			p.next()
			p.expect(Operator, ":")
			node.Else = p.parseExpression(0)
		default:
			if node.Else != nil {
				p.error("case after else in switch")
				return p.bad()
			}
			p.expect(Keyword, "case")
			pattern := p.parsePattern()
			p.expect(Operator, ":")
			node.Cases = append(node.Cases, ast.SwitchCase{Pattern: pattern, Body: p.parseExpression(0)})
		}
	}
	p.expect(Bracket, "}")
	return create(p, node, p.span(start))
}

// parseFormula 解析 `fn` 之后的部分：
//
//	fn<T>(# a: T, b: Int = 1, ...# rest: Array(T), **kw: Dict(Int)): T => a
//
// requireName 用于声明（fn、action、view），此时名字不能省略。
func (p *parser) parseFormula(start Token, requireName bool) *ast.FormulaExpression {
	f := &ast.FormulaExpression{}
	if requireName || p.current.Is(Identifier) {
		f.Name = p.expectName().Value
	}
	if p.current.Is(Operator, "<") {
		f.Generics = p.parseGenerics()
	}

	p.expect(Bracket, "(")
	for !p.current.Is(Bracket, ")") && p.err == nil {
		if len(f.Args) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, ")") {
				break
			}
		}
		var arg ast.FormulaArg
		arg.Spread = p.parseSpreadMarker()
		if p.current.Is(Operator, "#") {
			arg.Positional = true
			p.next()
		}
		arg.Name = p.expectName().Value
		if p.current.Is(Operator, ":") {
			p.next()
			arg.Type = p.parseType()
		}
		if p.current.Is(Operator, "=") {
			p.next()
			arg.Default = p.parseExpression(0)
		}
		f.Args = append(f.Args, arg)
	}
	p.expect(Bracket, ")")

	if p.current.Is(Operator, ":") {
		p.next()
		f.ReturnType = p.parseType()
	}
	p.expect(Operator, "=>")
	f.Body = p.parseExpression(0)
	return create(p, f, p.span(start))
}

// parseGenerics 解析 `<T, U>`。
func (p *parser) parseGenerics() []string {
	p.expect(Operator, "<")
	var names []string
	for p.err == nil {
		names = append(names, p.expectName().Value)
		if !p.current.Is(Operator, ",") {
			break
		}
		p.next()
	}
	p.expect(Operator, ">")
	return names
}

func (p *parser) parseSpreadMarker() types.Spread {
	switch {
	case p.current.Is(Operator, "..."):
		p.next()
		return types.PositionalSpread
	case p.current.Is(Operator, "**"):
		p.next()
		return types.KwargsSpread
	}
	return types.NoSpread
}

// f(1, b: 2, ...xs, **kw)
func (p *parser) parseArguments() []operators.Argument {
	p.expect(Bracket, "(")
	var args []operators.Argument
	for !p.current.Is(Bracket, ")") && p.err == nil {
		if len(args) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, ")") {
				break
			}
		}
		var arg operators.Argument
		switch {
		case p.current.Is(Operator, "..."):
			p.next()
			arg.Spread = true
		case p.current.Is(Operator, "**"):
			p.next()
			arg.Kwargs = true
		case p.current.Is(Identifier) && p.peek().Is(Operator, ":"):
			arg.Name = p.current.Value
			p.next()
			p.next()
		}
		arg.Value = p.parseExpression(0)
		args = append(args, arg)
	}
	p.expect(Bracket, ")")
	return args
}

// [1, 2, ...xs]
func (p *parser) parseArrayExpression(token Token) ast.Expression {
	items := p.parseItems("]")
	return create(p, &ast.ArrayExpression{Items: items}, p.span(token))
}

// #[1, 2, ...xs]
func (p *parser) parseSetExpression(token Token) ast.Expression {
	items := p.parseItems("]")
	return create(p, &ast.SetExpression{Items: items}, p.span(token))
}

func (p *parser) parseItems(closing string) []ast.Expression {
	p.next() // [ 或 #[
	items := make([]ast.Expression, 0)
	for !p.current.Is(Bracket, closing) && p.err == nil {
		if len(items) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, closing) {
				break
			}
		}
		if p.current.Is(Operator, "...") {
			start := p.current
			p.next()
			value := p.parseExpression(0)
			items = append(items, create(p, &ast.Spread{Value: value}, p.span(start)))
			continue
		}
		items = append(items, p.parseExpression(0))
	}
	p.expect(Bracket, closing)
	return items
}

// #{"a": 1, b: 2, (key): 3, ...other}
//
// key 可以是：
//   - 字符串
//   - 名字，等价于同名字符串
//   - 数字
//   - 括号中的任意表达式
func (p *parser) parseDictExpression(token Token) ast.Expression {
	p.expect(Bracket, "#{")

	node := &ast.DictExpression{}
	for !p.current.Is(Bracket, "}") && p.err == nil {
		if len(node.Entries) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, "}") {
				break
			}
		}

		if p.current.Is(Operator, "...") {
			p.next()
			node.Entries = append(node.Entries, ast.DictEntry{Value: p.parseExpression(0), Spread: true})
			continue
		}

		var key ast.Expression
		switch {
		case p.current.Is(String), p.current.Is(Identifier):
			key = create(p, &ast.StringLiteral{Value: p.current.Value}, p.current.Location)
			p.next()
		case p.current.Is(Number):
			key = p.parseNumber(false, p.current)
		case p.current.Is(Bracket, "("):
			p.next()
			key = p.parseExpression(0)
			p.expect(Bracket, ")")
		default:
			p.error("a dict key must be a quoted string, a number, a name, or an expression enclosed in parentheses (unexpected token %v)", p.current)
			return p.bad()
		}

		p.expect(Operator, ":")
		node.Entries = append(node.Entries, ast.DictEntry{Key: key, Value: p.parseExpression(0)})
	}
	p.expect(Bracket, "}")

	return create(p, node, p.span(token))
}

// {a: 1, b, ...other}，单独的名字 b 等价于 b: b。
func (p *parser) parseObjectExpression(token Token) ast.Expression {
	p.expect(Bracket, "{")

	node := &ast.ObjectExpression{}
	for !p.current.Is(Bracket, "}") && p.err == nil {
		if len(node.Props) > 0 {
			p.expect(Operator, ",")
			if p.current.Is(Bracket, "}") {
				break
			}
		}

		if p.current.Is(Operator, "...") {
			p.next()
			node.Props = append(node.Props, ast.ObjectProp{Value: p.parseExpression(0), Spread: true})
			continue
		}

		name := p.expectName()
		if !p.current.Is(Operator, ":") {
			ref := create(p, &ast.Reference{Name: name.Value}, name.Location)
			node.Props = append(node.Props, ast.ObjectProp{Name: name.Value, Value: ref})
			continue
		}
		p.next()
		node.Props = append(node.Props, ast.ObjectProp{Name: name.Value, Value: p.parseExpression(0)})
	}
	p.expect(Bracket, "}")

	return create(p, node, p.span(token))
}

// parsePostfixExpression 处理属性访问 `.name`、`?.name`，下标 `[i]` 与调用 `(args)`。
func (p *parser) parsePostfixExpression(start Token, node ast.Expression) ast.Expression {
	for postfixToken := p.current; p.err == nil; postfixToken = p.current {
		switch {
		case postfixToken.Is(Operator, ".", "?."):
			p.next()
			propertyToken := p.current
			// 单词运算符与关键字也可以是属性名，例如 `x.type`
			if !propertyToken.Is(Identifier) && !propertyToken.Is(Keyword) &&
				!(propertyToken.Is(Operator) && utils.IsWordOperator(propertyToken.Value)) {
				p.error("expected name")
				return node
			}
			p.next()
			node = create(p, &operators.PropertyAccess{
				Receiver: node,
				Name:     propertyToken.Value,
				Optional: postfixToken.Value == "?.",
			}, p.span(start))

		case postfixToken.Is(Bracket, "["):
			p.next()
			index := p.parseExpression(0)
			p.expect(Bracket, "]")
			node = create(p, &operators.IndexAccess{Receiver: node, Index: index}, p.span(start))

		case postfixToken.Is(Bracket, "("):
			args := p.parseArguments()
			node = create(p, &operators.Invocation{Callee: node, Args: args}, p.span(start))

		default:
			return node
		}
	}
	return node
}
