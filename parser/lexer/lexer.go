package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/formula-lang/formula/file"
)

func Lex(source file.Source) ([]Token, error) {
	return LexRange(source, 0, len(source))
}

// LexRange 只扫描 source[from:to]，token 的位置仍然相对于整个 source。
// 解析器用它解析视图元素中 `{...}` 里的表达式。
func LexRange(source file.Source, from, to int) ([]Token, error) {
	l := &lexer{
		source: source[:to],
		tokens: make([]Token, 0),
		start:  from,
		end:    from,
	}
	l.commit()

	for state := root; state != nil; {
		state = state(l)
	}

	if l.err != nil {
		return nil, l.err.Bind(source)
	}

	return l.tokens, nil
}

type lexer struct {
	source     file.Source
	tokens     []Token
	start, end int
	err        *file.Error
}

const eof rune = -1

func (l *lexer) commit() {
	l.start = l.end
}

func (l *lexer) next() rune {
	if l.end >= len(l.source) {
		l.end++
		return eof
	}
	r := l.source[l.end]
	l.end++
	return r
}

func (l *lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *lexer) backup() {
	l.end--
}

func (l *lexer) emit(t Kind) {
	l.emitValue(t, l.word())
}

// 构造一个 Token 实例，并追加到 l.tokens 切片中。
func (l *lexer) emitValue(t Kind, value string) {
	l.tokens = append(l.tokens, Token{
		Location: file.Location{From: l.start, To: l.end}, // 记录 token 在源码中的位置，用于错误定位
		Kind:     t,
		Value:    value,
	})
	l.commit()
}

func (l *lexer) emitEOF() {
	from := l.end - 2
	if from < 0 {
		from = 0
	}
	to := l.end - 1
	if to < 0 {
		to = 0
	}

	l.tokens = append(l.tokens, Token{
		Location: file.Location{From: from, To: to},
		Kind:     EOF,
	})
	l.commit()
}

func (l *lexer) skip() {
	l.commit()
}

func (l *lexer) word() string {
	if l.start > len(l.source) || l.end > len(l.source) {
		return "__invalid__"
	}
	// 取 [start:end] 区间内容作为当前 word
	return string(l.source[l.start:l.end])
}

func (l *lexer) accept(valid string) bool {
	// 读取下一个字符，不在 valid 中时回退
	if strings.ContainsRune(valid, l.next()) {
		return true
	}
	l.backup()
	return false
}

func (l *lexer) acceptRun(valid string) {
	for strings.ContainsRune(valid, l.next()) {
	}
	l.backup()
}

// prevEndsValue 判断上一个 token 是否是一个值的结尾。
func (l *lexer) prevEndsValue() bool {
	return len(l.tokens) > 0 && l.tokens[len(l.tokens)-1].endsValue()
}

func (l *lexer) error(format string, args ...any) stateFn {
	if l.err == nil { // show first error
		l.err = &file.Error{
			Location: file.Location{
				From: l.end - 1,
				To:   l.end,
			},
			Message: fmt.Sprintf(format, args...),
		}
	}
	return nil
}

func digitVal(ch rune) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch - '0')
	case 'a' <= lower(ch) && lower(ch) <= 'f':
		return int(lower(ch) - 'a' + 10)
	}
	return 16 // larger than any legal digit val
}

func lower(ch rune) rune { return ('a' - 'A') | ch } // returns lower-case ch iff ch is ASCII letter

func (l *lexer) scanDigits(ch rune, base, n int) rune {
	for n > 0 && digitVal(ch) < base {
		ch = l.next()
		n--
	}
	if n > 0 {
		l.error("invalid char escape")
	}
	return ch
}

// scanEscape 在扫描字符串遇到反斜杠时被调用，只校验转义序列，真正的转换由 unescape 完成：
//
//	\n \t \\ \" 等简单转义
//	\141        八进制，最多 3 位
//	\x41        十六进制，2 位
//	\u4E2D      Unicode，4 位
//	\U0001F600  Unicode，8 位
func (l *lexer) scanEscape(quote rune) rune {
	ch := l.next() // read character after '\'
	switch ch {
	case 'a', 'b', 'f', 'n', 'r', 't', 'v', '\\', quote:
		ch = l.next()
	case '0', '1', '2', '3', '4', '5', '6', '7':
		ch = l.scanDigits(ch, 8, 3)
	case 'x':
		ch = l.scanDigits(l.next(), 16, 2)
	case 'u':
		ch = l.scanDigits(l.next(), 16, 4)
	case 'U':
		ch = l.scanDigits(l.next(), 16, 8)
	default:
		l.error("invalid char escape")
	}
	return ch
}

func (l *lexer) scanString(quote rune) (n int) {
	ch := l.next() // read character after quote
	for ch != quote {
		if ch == '\n' || ch == eof {
			l.error("literal not terminated")
			return
		}
		if ch == '\\' {
			ch = l.scanEscape(quote)
		} else {
			ch = l.next()
		}
		n++
	}
	return
}

// Unescape 把带引号的字符串字面量转换为它的值，单引号与双引号的转义规则相同。
func Unescape(value string) (string, error) {
	n := len(value)
	if n < 2 || value[0] != value[n-1] {
		return "", fmt.Errorf("unable to unescape string")
	}
	quote := value[0]
	body := value[1 : n-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}

	var b strings.Builder
	b.Grow(len(body))
	for len(body) > 0 {
		r, multibyte, tail, err := strconv.UnquoteChar(body, quote)
		if err != nil {
			return "", fmt.Errorf("invalid string literal %s", value)
		}
		if r < 0x80 || !multibyte {
			b.WriteByte(byte(r))
		} else {
			b.WriteRune(r)
		}
		body = tail
	}
	return b.String(), nil
}

// scanElement 扫描一个完整的视图元素（'<' 已读取），包括嵌套的元素与 `{...}`。
func (l *lexer) scanElement() bool {
	selfClosing, ok := l.scanTag()
	if !ok {
		return false
	}
	if selfClosing {
		return true
	}
	for {
		switch r := l.next(); r {
		case eof:
			return false
		case '{':
			if !l.scanBraces() {
				return false
			}
		case '<':
			if l.accept("/") {
				for r := l.next(); r != '>'; r = l.next() {
					if r == eof {
						return false
					}
				}
				return true
			}
			if !l.scanElement() {
				return false
			}
		}
	}
}

// scanTag 扫描标签名与属性，直到 `>` 或 `/>`。
func (l *lexer) scanTag() (selfClosing, ok bool) {
	for {
		switch r := l.next(); r {
		case eof:
			return false, false
		case '"', '\'':
			l.scanString(r)
		case '{':
			if !l.scanBraces() {
				return false, false
			}
		case '/':
			if l.accept(">") {
				return true, true
			}
		case '>':
			return false, true
		}
	}
}

// scanBraces 跳过一段配对的 `{...}`（'{' 已读取）。
func (l *lexer) scanBraces() bool {
	depth := 1
	for depth > 0 {
		switch r := l.next(); r {
		case eof:
			return false
		case '{':
			depth++
		case '}':
			depth--
		case '"', '\'':
			l.scanString(r)
		}
	}
	return true
}
