package lexer

import (
	"strings"

	"github.com/formula-lang/formula/parser/utils"
)

type stateFn func(*lexer) stateFn

// root 逐字符扫描源代码，并根据字符的含义进入不同状态函数或直接生成 Token 。
// stateFn 可以返回自身（root）、另一个状态函数（如 number）、或 nil（表示终止扫描）。
func root(l *lexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		l.emitEOF()
		return nil
	case utils.IsSpace(r):
		l.skip()
		return root
	case r == '\'' || r == '"':
		l.scanString(r)
		str, err := Unescape(l.word())
		if err != nil {
			l.error("%v", err)
		}
		l.emitValue(String, str)
	case '0' <= r && r <= '9':
		// 回退当前字符，留给 number 状态函数完整处理整个数字。
		l.backup()
		return number
	case r == '<':
		return angle
	case r == '?':
		return questionMark
	case r == '/':
		return slash
	case r == '#':
		return hash
	case r == '!':
		return bang
	case r == '~':
		if !l.accept("~") {
			return l.error("unrecognized character: %#U", r)
		}
		l.emit(Operator)
	case r == '=':
		l.accept("=>") // == 或 =>
		l.emit(Operator)
	case r == '|':
		l.accept(">")
		l.emit(Operator)
	case r == '>':
		l.accept("=")
		l.emit(Operator)
	case r == '*':
		l.accept("*")
		l.emit(Operator)
	case r == '+':
		l.accept("+")
		l.emit(Operator)
	case strings.ContainsRune("([{", r):
		l.emit(Bracket)
	case strings.ContainsRune(")]}", r):
		l.emit(Bracket)
	case strings.ContainsRune(",;:%-@&", r): // single rune operator
		l.emit(Operator)
	case r == '.':
		// . 有可能是：
		//	- 小数（.5）
		//	- 展开（...xs）
		//	- 属性访问（a.b）与 enum case（.ok）
		l.backup()
		return dot
	case utils.IsAlphabetic(r):
		l.backup()
		return identifier
	default:
		return l.error("unrecognized character: %#U", r)
	}
	return root
}

func number(l *lexer) stateFn {
	if !l.scanNumber() {
		return l.error("bad number syntax: %q", l.word())
	}
	l.emit(Number)
	return root
}

func (l *lexer) scanNumber() bool {
	digits := "0123456789_"
	// Is it hex?
	if l.accept("0") {
		// Note: Leading 0 does not mean octal in floats.
		if l.accept("xX") {
			digits = "0123456789abcdefABCDEF_"
		} else if l.accept("oO") {
			digits = "01234567_"
		} else if l.accept("bB") {
			digits = "01_"
		}
	}
	l.acceptRun(digits)
	end := l.end
	if l.accept(".") {
		// 小数点后面不是数字时（1...），`.` 不属于这个数字。
		if r := l.peek(); r < '0' || r > '9' {
			l.end = end
			return true
		}
		l.acceptRun(digits)
	}
	if l.accept("eE") {
		l.accept("+-")
		l.acceptRun(digits)
	}
	// Next thing mustn't be alphanumeric.
	if utils.IsAlphaNumeric(l.peek()) {
		l.next()
		return false
	}
	return true
}

func dot(l *lexer) stateFn {
	l.next()
	if l.accept("0123456789") {
		l.backup()
		return number
	}
	if l.accept(".") {
		if !l.accept(".") {
			return l.error("unexpected token ..")
		}
	}
	l.emit(Operator)
	return root
}

func identifier(l *lexer) stateFn {
	for utils.IsAlphaNumeric(l.next()) {
		// absorb
	}
	l.backup()
	switch word := l.word(); {
	case utils.IsWordOperator(word):
		l.emit(Operator)
	case utils.IsKeyword(word):
		l.emit(Keyword)
	default:
		l.emit(Identifier)
	}
	return root
}

// bang 处理 `!`、`!=`，以及紧跟单词的 `!is`、`!has`。
func bang(l *lexer) stateFn {
	if l.accept("=") {
		l.emit(Operator)
		return root
	}

	end := l.end

	// Get the next word.
	for utils.IsAlphaNumeric(l.next()) {
		// absorb
	}
	l.backup()

	switch l.word() {
	case "!is", "!has":
	default:
		l.end = end
	}
	l.emit(Operator)
	return root
}

// angle 处理 `<`、`<=`、`<>`；出现在值的位置并且紧跟字母时是视图元素。
func angle(l *lexer) stateFn {
	if !l.prevEndsValue() && utils.IsAlphabetic(l.peek()) {
		if !l.scanElement() {
			return l.error("view element is not closed")
		}
		l.emit(View)
		return root
	}
	l.accept("=>")
	l.emit(Operator)
	return root
}

func questionMark(l *lexer) stateFn {
	switch {
	case l.accept(".?"): // ?. 与 ??
	case l.accept("|"):
		if !l.accept(">") {
			l.backup()
		}
	}
	l.emit(Operator)
	return root
}

func slash(l *lexer) stateFn {
	if l.accept("*") {
		return multiLineComment
	}
	l.accept("/") // 整除
	l.emit(Operator)
	return root
}

func multiLineComment(l *lexer) stateFn {
	for {
		r := l.next()
		if r == eof {
			return l.error("unclosed comment")
		}
		if r == '*' && l.accept("/") {
			break
		}
	}
	l.skip()
	return root
}

// hash 处理 set 字面量 `#[`、dict 字面量 `#{` 与管道占位符 `#`。
func hash(l *lexer) stateFn {
	if l.accept("[{") {
		l.emit(Bracket)
	} else {
		l.emit(Operator)
	}
	return root
}
