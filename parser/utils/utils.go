package utils

import (
	"unicode"
	"unicode/utf8"
)

// keywords 是不能作为名字使用的保留字。
var keywords = map[string]bool{
	"let": true, "in": true, "if": true, "else": true,
	"switch": true, "case": true, "fn": true,
	"type": true, "enum": true, "class": true, "action": true, "view": true,
	"this": true, "null": true, "true": true, "false": true,
}

// wordOperators 是由字母组成的运算符。
var wordOperators = map[string]bool{
	"and": true, "or": true, "not": true,
	"is": true, "has": true, "matches": true,
}

func IsKeyword(s string) bool {
	return keywords[s]
}

func IsWordOperator(s string) bool {
	return wordOperators[s]
}

// IsValidIdentifier 验证字符串是否可以作为名字使用
//
// 规则：
//   - 不能为空字符串
//   - 首字符必须是字母、下划线_或美元符号$
//   - 后续字符可以是字母、数字、下划线_或美元符号$
//   - 不能是关键字或单词运算符
func IsValidIdentifier(str string) bool {
	if len(str) == 0 || IsKeyword(str) || IsWordOperator(str) {
		return false
	}
	h, w := utf8.DecodeRuneInString(str)
	if !IsAlphabetic(h) {
		return false
	}
	for _, r := range str[w:] {
		if !IsAlphaNumeric(r) {
			return false
		}
	}
	return true
}

// IsTypeName 判断名字是否以大写字母开头。
// 大写开头的名字在类型位置上是类型引用，在视图中是组件。
func IsTypeName(str string) bool {
	r, _ := utf8.DecodeRuneInString(str)
	return unicode.IsUpper(r)
}

// IsSpace 是否为空白字符
func IsSpace(r rune) bool {
	return unicode.IsSpace(r)
}

// IsAlphaNumeric 是否为字母或数字
func IsAlphaNumeric(r rune) bool {
	return IsAlphabetic(r) || unicode.IsDigit(r)
}

// IsAlphabetic 是否为有效字母字符，允许 _、$ 或任何 Unicode 字母
func IsAlphabetic(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}
