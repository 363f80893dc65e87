// Package values 定义运行时的值。值一旦构造就不可变，容器的拼接/合并总是分配新值。
package values

import (
	"math"
	"sort"

	"github.com/formula-lang/formula/types"
)

type Value interface {
	// Type 返回该值最精确的类型，基础类型返回字面量类型。
	Type() types.Type
	// String 返回值的源码形式。
	String() string
	isValue()
}

type (
	Null    struct{}
	Boolean bool
	Int     int64
	Float   float64
	String  string

	Array struct {
		Items []Value
	}

	// Dict 保持插入顺序，key 只能是基础类型的值。
	Dict struct {
		Entries []Entry
	}

	// Set 保持插入顺序并且去重。
	Set struct {
		Items []Value
	}

	Object struct {
		Name  string
		Props []Prop
	}

	// Formula 是可调用的值。Fn 接收按签名绑定好的参数，
	// 未提供的可选参数为 nil。
	Formula struct {
		Name      string
		Signature types.Formula
		Fn        func(args []Value) (Value, error)
	}

	EnumCase struct {
		Case types.EnumCase
		Args []Value
	}

	// TypeValue 是类型引用在运行时的值，例如 `Int`、`User`。
	TypeValue struct {
		Of          types.Type
		Constructor *Formula
		Cases       []Prop // 枚举的 case 构造器
	}

	Namespace struct {
		Name    string
		Members []Prop
	}

	View struct {
		Tag      string
		Props    []Prop
		Children []Value
	}
)

type Entry struct {
	Key   Value
	Value Value
}

type Prop struct {
	Name  string
	Value Value
}

// NaN 是除以零得到的哨兵值。
var NaN = Float(math.NaN())

func IsNaN(v Value) bool {
	f, ok := v.(Float)
	return ok && math.IsNaN(float64(f))
}

func (Null) isValue()      {}
func (Boolean) isValue()   {}
func (Int) isValue()       {}
func (Float) isValue()     {}
func (String) isValue()    {}
func (Array) isValue()     {}
func (Dict) isValue()      {}
func (Set) isValue()       {}
func (Object) isValue()    {}
func (Formula) isValue()   {}
func (EnumCase) isValue()  {}
func (TypeValue) isValue() {}
func (Namespace) isValue() {}
func (View) isValue()      {}

func (Null) Type() types.Type      { return types.Null{} }
func (v Boolean) Type() types.Type { return types.LiteralBoolean{Value: bool(v)} }
func (v Int) Type() types.Type     { return types.LiteralInt{Value: int64(v)} }
func (v Float) Type() types.Type   { return types.LiteralFloat{Value: float64(v)} }
func (v String) Type() types.Type  { return types.LiteralString{Value: string(v)} }

func (v Array) Type() types.Type {
	return types.Array{Of: typeOfAll(v.Items), Length: types.Exactly(len(v.Items))}
}

func (v Set) Type() types.Type {
	return types.Set{Of: typeOfAll(v.Items), Length: types.Exactly(len(v.Items))}
}

func (v Dict) Type() types.Type {
	vals := make([]Value, len(v.Entries))
	var names []string
	for i, e := range v.Entries {
		vals[i] = e.Value
		if s, ok := e.Key.(String); ok {
			names = append(names, string(s))
		}
	}
	sort.Strings(names)
	return types.Dict{Of: typeOfAll(vals), Length: types.Exactly(len(v.Entries)), Names: names}
}

func (v Object) Type() types.Type {
	props := make([]types.Prop, len(v.Props))
	for i, p := range v.Props {
		props[i] = types.Prop{Name: p.Name, Type: p.Value.Type()}
	}
	return types.Object{Name: v.Name, Props: props}
}

func (v Formula) Type() types.Type  { return v.Signature }
func (v EnumCase) Type() types.Type { return v.Case }

func (v TypeValue) Type() types.Type {
	var ctor *types.Formula
	if v.Constructor != nil {
		ctor = &v.Constructor.Signature
	}
	return types.Meta{Of: v.Of, Constructor: ctor}
}

func (v Namespace) Type() types.Type {
	members := make([]types.Prop, len(v.Members))
	for i, m := range v.Members {
		members[i] = types.Prop{Name: m.Name, Type: m.Value.Type()}
	}
	return types.Namespace{Name: v.Name, Members: members}
}

func (View) Type() types.Type { return types.View{} }

func typeOfAll(items []Value) types.Type {
	ts := make([]types.Type, len(items))
	for i, item := range items {
		ts[i] = item.Type()
	}
	return types.OneOf(ts...)
}

func (v Object) Prop(name string) (Value, bool) {
	for _, p := range v.Props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func (v Namespace) Member(name string) (Value, bool) {
	for _, p := range v.Members {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

func (v Dict) Get(key Value) (Value, bool) {
	for _, e := range v.Entries {
		if Equal(e.Key, key) {
			return e.Value, true
		}
	}
	return nil, false
}

// With 返回设置了 key 的新 Dict，已存在的 key 保持原位置。
func (v Dict) With(key, value Value) Dict {
	entries := make([]Entry, len(v.Entries), len(v.Entries)+1)
	copy(entries, v.Entries)
	for i, e := range entries {
		if Equal(e.Key, key) {
			entries[i].Value = value
			return Dict{Entries: entries}
		}
	}
	return Dict{Entries: append(entries, Entry{Key: key, Value: value})}
}

func (v Set) Contains(item Value) bool {
	for _, i := range v.Items {
		if Equal(i, item) {
			return true
		}
	}
	return false
}

// NewSet 构造集合并去重。
func NewSet(items ...Value) Set {
	out := Set{Items: make([]Value, 0, len(items))}
	for _, item := range items {
		if !out.Contains(item) {
			out.Items = append(out.Items, item)
		}
	}
	return out
}

// Concat 拼接两个数组。
func Concat(a, b Array) Array {
	items := make([]Value, 0, len(a.Items)+len(b.Items))
	items = append(items, a.Items...)
	return Array{Items: append(items, b.Items...)}
}

// Union 合并两个集合。
func Union(a, b Set) Set {
	return NewSet(append(append([]Value{}, a.Items...), b.Items...)...)
}

// Merge 合并字典，后者覆盖前者。
func Merge(a, b Dict) Dict {
	out := Dict{Entries: append([]Entry{}, a.Entries...)}
	for _, e := range b.Entries {
		out = out.With(e.Key, e.Value)
	}
	return out
}

// MergeObjects 合并对象属性，后者覆盖前者，保留第一个对象的名字。
func MergeObjects(a, b Object) Object {
	out := Object{Name: a.Name, Props: append([]Prop{}, a.Props...)}
	for _, p := range b.Props {
		replaced := false
		for i := range out.Props {
			if out.Props[i].Name == p.Name {
				out.Props[i].Value = p.Value
				replaced = true
				break
			}
		}
		if !replaced {
			out.Props = append(out.Props, p)
		}
	}
	return out
}
