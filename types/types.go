// Package types 定义 Formula 的静态类型：一个封闭的、按结构比较的和类型（sum type）。
//
// 所有类型都是不可变的，收窄（narrowing）永远返回新的类型对象。
package types

import (
	"regexp"
	"sync/atomic"
)

// Type 是所有静态类型的公共接口，只能由本包内的变体实现。
type Type interface {
	String() string
	Equal(Type) bool
	isType()
}

type (
	// Never 是底类型，没有任何值属于它。
	Never struct{}

	// All 是顶类型，渐进类型系统中的 "any"。
	All struct{}

	Null struct{}

	Boolean struct{}

	LiteralBoolean struct {
		Value bool
	}

	// Int 的 Min / Max 都是闭区间边界，nil 表示无界。
	Int struct {
		Min, Max *int64
	}

	LiteralInt struct {
		Value int64
	}

	// Float 的边界可以是开区间。
	Float struct {
		Min, Max *FloatBound
	}

	LiteralFloat struct {
		Value float64
	}

	String struct {
		Length  Length
		Regexes []*regexp.Regexp
	}

	LiteralString struct {
		Value string
	}

	Array struct {
		Of     Type
		Length Length
	}

	// Dict 的 Names 是已知一定存在的 key 集合（已排序）。
	Dict struct {
		Of     Type
		Length Length
		Names  []string
	}

	Set struct {
		Of     Type
		Length Length
	}

	// Object 是有序属性的记录类型；Name 非空时表示 class 实例（名义类型）。
	Object struct {
		Name  string
		Props []Prop
	}

	Formula struct {
		Generics []Generic
		Args     []Argument
		Return   Type
	}

	// OneOfType 只能通过 OneOf 构造：扁平、去重，且至少两个成员。
	OneOfType struct {
		Of []Type
	}

	Generic struct {
		Name string
		ID   int64
	}

	Enum struct {
		Name  string
		Cases []EnumCase
	}

	EnumCase struct {
		Enum string
		Name string
		Args []Argument
	}

	// Meta 是类型引用本身的类型，例如表达式 `Int` 或 `User`。
	// Constructor 非空时，该类型可以像 formula 一样被调用（class 构造）。
	Meta struct {
		Of          Type
		Constructor *Formula
	}

	Namespace struct {
		Name    string
		Members []Prop
	}

	// View 是视图元素的类型。
	View struct{}
)

type Prop struct {
	Name string
	Type Type
}

type FloatBound struct {
	Value     float64
	Exclusive bool
}

// Spread 标记参数是否收集剩余参数。
type Spread int

const (
	NoSpread         Spread = iota
	PositionalSpread        // ...# rest: Array(T)
	KwargsSpread            // **kw: Dict(T)
)

type Argument struct {
	Name       string
	Type       Type
	Positional bool
	Required   bool
	Spread     Spread
}

func (Never) isType()          {}
func (All) isType()            {}
func (Null) isType()           {}
func (Boolean) isType()        {}
func (LiteralBoolean) isType() {}
func (Int) isType()            {}
func (LiteralInt) isType()     {}
func (Float) isType()          {}
func (LiteralFloat) isType()   {}
func (String) isType()         {}
func (LiteralString) isType()  {}
func (Array) isType()          {}
func (Dict) isType()           {}
func (Set) isType()            {}
func (Object) isType()         {}
func (Formula) isType()        {}
func (OneOfType) isType()      {}
func (Generic) isType()        {}
func (Enum) isType()           {}
func (EnumCase) isType()       {}
func (Meta) isType()           {}
func (Namespace) isType()      {}
func (View) isType()           {}

var genericID atomic.Int64

// NewGeneric 创建一个进程内唯一的泛型参数。
func NewGeneric(name string) Generic {
	return Generic{Name: name, ID: genericID.Add(1)}
}

func Ptr[T any](v T) *T {
	return &v
}

// IntRange 构造一个整数区间类型，并做规范化：
//   - min > max 时为 Never；
//   - min == max 时退化为字面量类型。
func IntRange(min, max *int64) Type {
	if min != nil && max != nil {
		if *min > *max {
			return Never{}
		}
		if *min == *max {
			return LiteralInt{Value: *min}
		}
	}
	return Int{Min: min, Max: max}
}

// FloatRange 与 IntRange 相同，但边界可以是开区间。
func FloatRange(min, max *FloatBound) Type {
	if min != nil && max != nil {
		if min.Value > max.Value {
			return Never{}
		}
		if min.Value == max.Value {
			if min.Exclusive || max.Exclusive {
				return Never{}
			}
			return LiteralFloat{Value: min.Value}
		}
	}
	return Float{Min: min, Max: max}
}

// Optional 返回 t | null。
func Optional(t Type) Type {
	return OneOf(t, Null{})
}

func (t Formula) RequiredCount() int {
	n := 0
	for _, arg := range t.Args {
		if arg.Required && arg.Spread == NoSpread {
			n++
		}
	}
	return n
}

func (t Enum) Case(name string) (EnumCase, bool) {
	for _, c := range t.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return EnumCase{}, false
}

func (t Object) Prop(name string) (Type, bool) {
	for _, p := range t.Props {
		if p.Name == name {
			return p.Type, true
		}
	}
	return nil, false
}

func (t Namespace) Member(name string) (Type, bool) {
	for _, p := range t.Members {
		if p.Name == name {
			return p.Type, true
		}
	}
	return nil, false
}
