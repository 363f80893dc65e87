package lexer

import (
	"fmt"
	"slices"

	"github.com/formula-lang/formula/file"
)

// Kind 表示 token 类型
type Kind string

const (
	Identifier Kind = "Identifier" // 标识符（变量名、类型名等）
	Keyword    Kind = "Keyword"    // 关键字（let、if、fn、null 等）
	Number     Kind = "Number"     // 数字字面量
	String     Kind = "String"     // 字符串字面量
	Operator   Kind = "Operator"   // 运算符（+、-、and、is 等）
	Bracket    Kind = "Bracket"    // 括号（()、[]、{}、#[、#{）
	View       Kind = "View"       // 整个视图元素 <div>...</div> 的源码，由解析器再次解析
	EOF        Kind = "EOF"        // 文件结束标记
)

type Token struct {
	file.Location        // token 在源码的位置
	Kind          Kind   // 类型
	Value         string // 值
}

// String 将 Token 格式化为可读字符串：
//   - Token{Kind: Identifier, Value: "foo"}.String() // 输出: Identifier("foo")
//   - Token{Kind: EOF}.String()                      // 输出: EOF
func (t Token) String() string {
	if t.Value == "" {
		return string(t.Kind)
	}
	return fmt.Sprintf("%s(%#v)", t.Kind, t.Value)
}

// Is 判断 token 的类型，给出 values 时还要求值是其中之一。
func (t Token) Is(kind Kind, values ...string) bool {
	if t.Kind != kind {
		return false
	}
	return len(values) == 0 || slices.Contains(values, t.Value)
}

// endsValue 判断 token 是否可以是一个值的结尾。
// 紧跟在值后面的 `<` 是比较运算符，否则是视图元素的开始。
func (t Token) endsValue() bool {
	switch t.Kind {
	case Identifier, Number, String, View:
		return true
	case Bracket:
		return t.Value == ")" || t.Value == "]" || t.Value == "}"
	case Keyword:
		// fn<T> 中的 `<` 是泛型参数列表
		return t.Value == "this" || t.Value == "null" || t.Value == "true" || t.Value == "false" || t.Value == "fn"
	case Operator:
		return t.Value == "#"
	}
	return false
}
