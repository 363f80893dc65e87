// Package operator 是运算符的静态属性表，解析器与 ToCode 的加括号规则共用这张表。
package operator

// Associativity 运算符结合性
type Associativity int

const (
	Left  Associativity = iota + 1 // 从左到右计算（左结合）
	Right                          // 从右到左计算（右结合）
)

// Operator 运算符属性
type Operator struct {
	Name          string
	Precedence    int           // 优先级，越大优先级越高
	Associativity Associativity // 结合性
}

// Less 比较两个运算符的优先级，如果 a 的优先级低于 b 则返回 true ，用于确定运算顺序
func Less(a, b string) bool {
	return Binary[a].Precedence < Binary[b].Precedence
}

// IsBoolean 判断是否是布尔运算符
func IsBoolean(op string) bool {
	return op == "and" || op == "or"
}

// IsComparison 判断是否是比较运算符
func IsComparison(op string) bool {
	return op == "<" || op == ">" || op == ">=" || op == "<=" || op == "==" || op == "!="
}

// IsPipe 判断是否是管道运算符
func IsPipe(op string) bool {
	return op == "|>" || op == "?|>"
}

// 运算符优先级规则：
//	- 管道优先级最低，逻辑运算符其次
//	- 比较与模式匹配（is / has / matches）低于 ??
//	- 算术运算符中等优先级，拼接与加减同级
//	- 幂运算优先级最高，并且是右结合的

// Unary 一元运算符
var Unary = map[string]Operator{
	"not": {"not", 50, Left},
	"!":   {"not", 50, Left},
	"-":   {"negate", 90, Left},
	"+":   {"positive", 90, Left},
}

// Binary 二元运算符
var Binary = map[string]Operator{
	"|>":      {"pipe", 2, Left},
	"?|>":     {"null-pipe", 2, Left},
	"or":      {"or", 10, Left},
	"and":     {"and", 15, Left},
	"==":      {"eq", 20, Left},
	"!=":      {"ne", 20, Left},
	"<":       {"lt", 20, Left},
	">":       {"gt", 20, Left},
	">=":      {"ge", 20, Left},
	"<=":      {"le", 20, Left},
	"is":      {"is", 20, Left},
	"!is":     {"is-not", 20, Left},
	"has":     {"has", 20, Left},
	"!has":    {"has-not", 20, Left},
	"matches": {"matches", 20, Left},
	"??":      {"coalesce", 25, Left},
	"+":       {"add", 30, Left},
	"-":       {"sub", 30, Left},
	"<>":      {"concat-string", 30, Left},
	"++":      {"concat-array", 30, Left},
	"~~":      {"merge", 30, Left},
	"*":       {"mul", 60, Left},
	"/":       {"div", 60, Left},
	"//":      {"floor-div", 60, Left},
	"%":       {"mod", 60, Left},
	"**":      {"pow", 100, Right},
}

// Postfix 是属性访问、下标与调用的优先级，高于所有二元与一元运算符。
const Postfix = 200
