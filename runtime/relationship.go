package runtime

import (
	"fmt"

	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// Comparison 是关系公式中的比较符。
type Comparison string

const (
	Eq            Comparison = "=="
	Ne            Comparison = "!="
	Lt            Comparison = "<"
	Le            Comparison = "<="
	Gt            Comparison = ">"
	Ge            Comparison = ">="
	InstanceOf    Comparison = "instanceof"
	NotInstanceOf Comparison = "!instanceof"
	Truthy        Comparison = "truthy"
	Falsey        Comparison = "falsey"
	// Assign 引入一个由模式匹配绑定的新名字。
	Assign Comparison = "assign"
)

// Invert 返回比较不成立时对应的比较符。
func (c Comparison) Invert() Comparison {
	switch c {
	case InstanceOf:
		return NotInstanceOf
	case NotInstanceOf:
		return InstanceOf
	case Truthy:
		return Falsey
	case Falsey:
		return Truthy
	case Assign:
		return Assign
	}
	return Comparison(types.InvertComparison(string(c)))
}

// Flip 交换左右两边：`5 < x` 等价于 `x > 5`。
func (c Comparison) Flip() Comparison {
	return Comparison(types.FlipComparison(string(c)))
}

// Formula 是关系公式中的项。
type Formula interface {
	String() string
	isFormula()
}

type RefKind int

const (
	LocalRef RefKind = iota
	StateRef
	ThisRef
)

type (
	LiteralFormula struct {
		Type types.Type
	}

	// ReferenceFormula 以引用 id 而不是名字标识变量，遮蔽后的同名变量不会被误收窄。
	ReferenceFormula struct {
		Name string
		ID   int64
		Kind RefKind
	}

	PropertyFormula struct {
		Of   Formula
		Name string
	}
)

func (LiteralFormula) isFormula()   {}
func (ReferenceFormula) isFormula() {}
func (PropertyFormula) isFormula()  {}

func (f LiteralFormula) String() string { return f.Type.String() }

func (f ReferenceFormula) String() string {
	switch f.Kind {
	case StateRef:
		return "@" + f.Name
	case ThisRef:
		return "this"
	}
	return f.Name
}

func (f PropertyFormula) String() string { return f.Of.String() + "." + f.Name }

// Relationship 是一条事实：Formula <Comparison> (Right | Type)。
type Relationship struct {
	Formula    Formula
	Comparison Comparison
	Right      Formula
	Type       types.Type
	// Value 仅用于 Assign：求值阶段绑定的值。
	Value values.Value
}

func (r Relationship) String() string {
	rhs := ""
	switch {
	case r.Right != nil:
		rhs = " " + r.Right.String()
	case r.Type != nil:
		rhs = " " + r.Type.String()
	}
	return fmt.Sprintf("%s %s%s", r.Formula, r.Comparison, rhs)
}

// Root 返回公式最终指向的引用。
func Root(f Formula) (ReferenceFormula, bool) {
	switch f := f.(type) {
	case ReferenceFormula:
		return f, true
	case PropertyFormula:
		return Root(f.Of)
	}
	return ReferenceFormula{}, false
}

// Assume 在一个新的子层中应用 rels，返回该子层。原有的 rt 不受影响。
func (rt Runtime) Assume(rels []Relationship) (Runtime, error) {
	child := rt.Child()
	for _, rel := range rels {
		if err := child.apply(rel); err != nil {
			return rt, err
		}
	}
	return child, nil
}

func (rt Runtime) apply(rel Relationship) error {
	if rel.Comparison == Assign {
		ref, ok := rel.Formula.(ReferenceFormula)
		if !ok {
			return fmt.Errorf("cannot assign to %s", rel.Formula)
		}
		if rel.Type != nil {
			rt.AddLocalType(ref.Name, rel.Type)
		}
		if rel.Value != nil {
			rt.AddLocalValue(ref.Name, rel.Value)
		}
		return nil
	}

	current, ok := rt.TypeOf(rel.Formula)
	if !ok {
		return nil
	}
	narrowed, err := rt.narrow(current, rel)
	if err != nil {
		return err
	}
	if err := rt.replace(rel.Formula, narrowed); err != nil {
		return err
	}
	if ref, ok := Root(rel.Formula); ok {
		rt.addRelationship(ref.ID, rel)
	}
	return nil
}

func (rt Runtime) narrow(t types.Type, rel Relationship) (types.Type, error) {
	switch rel.Comparison {
	case InstanceOf:
		return types.NarrowTypeIs(t, rel.Type), nil
	case NotInstanceOf:
		return types.NarrowTypeIsNot(t, rel.Type), nil
	case Truthy:
		return types.ToTruthyType(t), nil
	case Falsey:
		return types.ToFalseyType(t), nil
	case Eq, Ne, Lt, Le, Gt, Ge:
		rhs := rel.Type
		if rhs == nil && rel.Right != nil {
			var ok bool
			if rhs, ok = rt.TypeOf(rel.Right); !ok {
				return t, nil
			}
		}
		if rhs == nil {
			return t, nil
		}
		return types.NarrowCompare(t, string(rel.Comparison), rhs), nil
	}
	return t, fmt.Errorf("unknown comparison %q", rel.Comparison)
}

// TypeOf 在当前作用域下计算公式的类型。被遮蔽的引用没有类型。
func (rt Runtime) TypeOf(f Formula) (types.Type, bool) {
	switch f := f.(type) {
	case LiteralFormula:
		return f.Type, f.Type != nil
	case ReferenceFormula:
		switch f.Kind {
		case StateRef:
			return rt.StateType(f.Name)
		case ThisRef:
			return rt.ThisType()
		}
		if id, ok := rt.RefID(f.Name); !ok || id != f.ID {
			return nil, false
		}
		return rt.LocalType(f.Name)
	case PropertyFormula:
		of, ok := rt.TypeOf(f.Of)
		if !ok {
			return nil, false
		}
		return types.PropType(of, f.Name)
	}
	return nil, false
}

func (rt Runtime) replace(f Formula, t types.Type) error {
	switch f := f.(type) {
	case ReferenceFormula:
		switch f.Kind {
		case StateRef:
			rt.ReplaceStateType(f.Name, t)
		case ThisRef:
			rt.SetThisType(t)
		default:
			rt.ReplaceType(f.Name, t)
		}
	case PropertyFormula:
		of, ok := rt.TypeOf(f.Of)
		if !ok {
			return nil
		}
		return rt.replace(f.Of, types.ReplacingProp(of, f.Name, t))
	}
	return nil
}
