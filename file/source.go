package file

import "strings"

// Source 是按 rune 存放的源码，lexer 直接在其上按下标游走。
type Source []rune

func NewSource(contents string) Source {
	return []rune(contents)
}

func (s Source) String() string {
	return string(s)
}

// Position 把 rune 偏移换算成 1-based 的行号与列号。
func (s Source) Position(offset int) (line, column int) {
	line, column = 1, 1
	if offset > len(s) {
		offset = len(s)
	}
	for i := 0; i < offset; i++ {
		if s[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}

// Snippet 返回第 line 行（1-based）的内容。
func (s Source) Snippet(line int) (string, bool) {
	if line < 1 {
		return "", false
	}
	lines := strings.Split(string(s), "\n")
	if line > len(lines) {
		return "", false
	}
	return lines[line-1], true
}
