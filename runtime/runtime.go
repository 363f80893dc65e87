// Package runtime 实现类型检查与求值共用的作用域链。
//
// 所有作用域层保存在同一个 arena 中，Runtime 只是 {arena, index} 句柄：
//   - Child() 追加一层并返回新句柄，父层永远不会被子层修改；
//   - 读操作沿 parent 链向上查找最近的定义；
//   - 写操作只修改句柄自身所在的层。
//
// 同一个 arena 不能在多个 goroutine 之间共享。
package runtime

import (
	"sort"
	"sync/atomic"

	"github.com/hashicorp/go-set/v3"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

type Runtime struct {
	arena *arena
	index int
}

// TypeRuntime 与 ValueRuntime 共享同一个作用域链：类型检查阶段只写入类型，
// 求值阶段在同样的层里再写入值。
type (
	TypeRuntime  = Runtime
	ValueRuntime = Runtime
)

type arena struct {
	layers []*layer
	locale language.Tag
}

type slot struct {
	typ types.Type
	val values.Value
}

type layer struct {
	parent        int
	locals        map[string]*slot
	state         map[string]*slot
	actions       map[string]*slot
	namespaces    map[string]*slot
	this          *slot
	pipe          *slot
	ids           map[string]int64
	relationships map[int64][]Relationship
}

var refID atomic.Int64

// New 创建根作用域。
func New() Runtime {
	return NewWithLocale(language.English)
}

func NewWithLocale(tag language.Tag) Runtime {
	a := &arena{locale: tag}
	a.layers = append(a.layers, &layer{parent: -1})
	return Runtime{arena: a, index: 0}
}

// Child 在 arena 中追加一个以当前层为父层的新层。
func (rt Runtime) Child() Runtime {
	rt.arena.layers = append(rt.arena.layers, &layer{parent: rt.index})
	return Runtime{arena: rt.arena, index: len(rt.arena.layers) - 1}
}

func (rt Runtime) Parent() (Runtime, bool) {
	p := rt.layer().parent
	if p < 0 {
		return Runtime{}, false
	}
	return Runtime{arena: rt.arena, index: p}, true
}

// Depth 返回当前层到根层的距离。
func (rt Runtime) Depth() int {
	d := 0
	for l := rt.layer(); l.parent >= 0; l = rt.arena.layers[l.parent] {
		d++
	}
	return d
}

func (rt Runtime) Locale() language.Tag {
	return rt.arena.locale
}

func (rt Runtime) layer() *layer {
	return rt.arena.layers[rt.index]
}

// walk 从当前层开始向上遍历，fn 返回 true 时停止。
func (rt Runtime) walk(fn func(l *layer) bool) {
	for i := rt.index; i >= 0; i = rt.arena.layers[i].parent {
		if fn(rt.arena.layers[i]) {
			return
		}
	}
}

func lookupType(rt Runtime, table func(l *layer) map[string]*slot, name string) (t types.Type, ok bool) {
	rt.walk(func(l *layer) bool {
		if s, found := table(l)[name]; found && s.typ != nil {
			t, ok = s.typ, true
			return true
		}
		return false
	})
	return t, ok
}

func lookupValue(rt Runtime, table func(l *layer) map[string]*slot, name string) (v values.Value, ok bool) {
	rt.walk(func(l *layer) bool {
		if s, found := table(l)[name]; found && s.val != nil {
			v, ok = s.val, true
			return true
		}
		return false
	})
	return v, ok
}

func localsOf(l *layer) map[string]*slot     { return l.locals }
func stateOf(l *layer) map[string]*slot      { return l.state }
func actionsOf(l *layer) map[string]*slot    { return l.actions }
func namespacesOf(l *layer) map[string]*slot { return l.namespaces }

func ensure(m *map[string]*slot, name string) *slot {
	if *m == nil {
		*m = map[string]*slot{}
	}
	s, ok := (*m)[name]
	if !ok {
		s = &slot{}
		(*m)[name] = s
	}
	return s
}

// Reads

func (rt Runtime) LocalType(name string) (types.Type, bool) {
	return lookupType(rt, localsOf, name)
}

func (rt Runtime) LocalValue(name string) (values.Value, bool) {
	return lookupValue(rt, localsOf, name)
}

func (rt Runtime) StateType(name string) (types.Type, bool) {
	return lookupType(rt, stateOf, name)
}

func (rt Runtime) StateValue(name string) (values.Value, bool) {
	return lookupValue(rt, stateOf, name)
}

func (rt Runtime) ActionType(name string) (types.Type, bool) {
	return lookupType(rt, actionsOf, name)
}

func (rt Runtime) ActionValue(name string) (values.Value, bool) {
	return lookupValue(rt, actionsOf, name)
}

func (rt Runtime) NamespaceType(name string) (types.Type, bool) {
	return lookupType(rt, namespacesOf, name)
}

func (rt Runtime) NamespaceValue(name string) (values.Value, bool) {
	return lookupValue(rt, namespacesOf, name)
}

func (rt Runtime) ThisType() (t types.Type, ok bool) {
	rt.walk(func(l *layer) bool {
		if l.this != nil && l.this.typ != nil {
			t, ok = l.this.typ, true
			return true
		}
		return false
	})
	return t, ok
}

func (rt Runtime) ThisValue() (v values.Value, ok bool) {
	rt.walk(func(l *layer) bool {
		if l.this != nil && l.this.val != nil {
			v, ok = l.this.val, true
			return true
		}
		return false
	})
	return v, ok
}

func (rt Runtime) PipeType() (t types.Type, ok bool) {
	rt.walk(func(l *layer) bool {
		if l.pipe != nil && l.pipe.typ != nil {
			t, ok = l.pipe.typ, true
			return true
		}
		return false
	})
	return t, ok
}

func (rt Runtime) PipeValue() (v values.Value, ok bool) {
	rt.walk(func(l *layer) bool {
		if l.pipe != nil && l.pipe.val != nil {
			v, ok = l.pipe.val, true
			return true
		}
		return false
	})
	return v, ok
}

// RefID 返回名字最近一次本地定义时分配的引用 id。
func (rt Runtime) RefID(name string) (id int64, ok bool) {
	rt.walk(func(l *layer) bool {
		if found, exists := l.ids[name]; exists {
			id, ok = found, true
			return true
		}
		return false
	})
	return id, ok
}

// Relationships 返回沿作用域链记录的、关于引用 id 的全部事实（内层在前）。
func (rt Runtime) Relationships(id int64) []Relationship {
	var out []Relationship
	rt.walk(func(l *layer) bool {
		out = append(out, l.relationships[id]...)
		return false
	})
	return out
}

// Resolved 返回当前层可见的所有名字；state 带 `@` 前缀，action 带 `&` 前缀。
func (rt Runtime) Resolved() *set.Set[string] {
	names := set.New[string](0)
	rt.walk(func(l *layer) bool {
		for name := range l.locals {
			names.Insert(name)
		}
		for name := range l.namespaces {
			names.Insert(name)
		}
		for name := range l.state {
			names.Insert("@" + name)
		}
		for name := range l.actions {
			names.Insert("&" + name)
		}
		return false
	})
	return names
}

// LocalNames 返回排序后的本地名字，用于 "did you mean" 提示。
func (rt Runtime) LocalNames() []string {
	var out []string
	for _, name := range rt.Resolved().Slice() {
		if name[0] != '@' && name[0] != '&' {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Writes

// AddID 为当前层的名字分配一个新的进程内唯一 id。
func (rt Runtime) AddID(name string) int64 {
	l := rt.layer()
	if l.ids == nil {
		l.ids = map[string]int64{}
	}
	id := refID.Add(1)
	l.ids[name] = id
	return id
}

// AddLocalType 在当前层定义一个新名字（遮蔽外层同名定义）。
func (rt Runtime) AddLocalType(name string, t types.Type) {
	ensure(&rt.layer().locals, name).typ = t
	rt.AddID(name)
}

// AddLocalValue 为当前层的名字写入值；如果名字在当前层还没有 id 则分配一个。
func (rt Runtime) AddLocalValue(name string, v values.Value) {
	l := rt.layer()
	ensure(&l.locals, name).val = v
	if _, ok := l.ids[name]; !ok {
		rt.AddID(name)
	}
}

func (rt Runtime) AddLocal(name string, t types.Type, v values.Value) {
	s := ensure(&rt.layer().locals, name)
	s.typ, s.val = t, v
	rt.AddID(name)
}

// ReplaceType 在当前层覆盖名字的类型，保持原有的引用 id。
func (rt Runtime) ReplaceType(name string, t types.Type) {
	l := rt.layer()
	ensure(&l.locals, name).typ = t
	if id, ok := rt.RefID(name); ok {
		if l.ids == nil {
			l.ids = map[string]int64{}
		}
		l.ids[name] = id
	}
}

func (rt Runtime) AddStateType(name string, t types.Type) {
	ensure(&rt.layer().state, name).typ = t
}

func (rt Runtime) AddStateValue(name string, v values.Value) {
	ensure(&rt.layer().state, name).val = v
}

func (rt Runtime) ReplaceStateType(name string, t types.Type) {
	rt.AddStateType(name, t)
}

func (rt Runtime) AddActionType(name string, t types.Type) {
	ensure(&rt.layer().actions, name).typ = t
}

func (rt Runtime) AddActionValue(name string, v values.Value) {
	ensure(&rt.layer().actions, name).val = v
}

func (rt Runtime) AddNamespace(name string, t types.Type, v values.Value) {
	s := ensure(&rt.layer().namespaces, name)
	s.typ, s.val = t, v
}

func (rt Runtime) SetThisType(t types.Type) {
	l := rt.layer()
	if l.this == nil {
		l.this = &slot{}
	}
	l.this.typ = t
}

func (rt Runtime) SetThisValue(v values.Value) {
	l := rt.layer()
	if l.this == nil {
		l.this = &slot{}
	}
	l.this.val = v
}

func (rt Runtime) SetPipeType(t types.Type) {
	l := rt.layer()
	if l.pipe == nil {
		l.pipe = &slot{}
	}
	l.pipe.typ = t
}

func (rt Runtime) SetPipeValue(v values.Value) {
	l := rt.layer()
	if l.pipe == nil {
		l.pipe = &slot{}
	}
	l.pipe.val = v
}

func (rt Runtime) addRelationship(id int64, rel Relationship) {
	l := rt.layer()
	if l.relationships == nil {
		l.relationships = map[int64][]Relationship{}
	}
	l.relationships[id] = append(l.relationships[id], rel)
}
