package operators

import (
	"fmt"
	"slices"
	"sort"

	"github.com/formula-lang/formula/ast"
	"github.com/formula-lang/formula/runtime"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
)

// concatString 是字符串拼接 `<>`。
type concatString struct{}

func (concatString) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	if types.IsAll(lt) || types.IsAll(rt) {
		return types.String{}, nil
	}
	if !types.IsString(lt) || !types.IsString(rt) {
		return nil, fmt.Errorf("cannot concatenate %s and %s, <> expects strings", lt, rt)
	}
	l, lok := lt.(types.LiteralString)
	r, rok := rt.(types.LiteralString)
	if lok && rok {
		return types.LiteralString{Value: l.Value + r.Value}, nil
	}
	ll, _ := types.LengthOf(lt)
	rl, _ := types.LengthOf(rt)
	return types.String{Length: ll.Add(rl)}, nil
}

func (concatString) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	l, lok := lv.(values.String)
	r, rok := rv.(values.String)
	if !lok || !rok {
		return nil, fmt.Errorf("cannot concatenate %s and %s", lv, rv)
	}
	return l + r, nil
}

// concatArray 是数组拼接或集合并集 `++`。
type concatArray struct{}

func (concatArray) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	switch l := lt.(type) {
	case types.Array:
		switch r := rt.(type) {
		case types.Array:
			return types.Array{Of: types.OneOf(l.Of, r.Of), Length: l.Length.Add(r.Length)}, nil
		case types.All:
			return types.Array{Of: types.All{}, Length: types.AtLeast(l.Length.Min)}, nil
		}
	case types.Set:
		switch r := rt.(type) {
		case types.Set:
			length := types.AtLeast(max(l.Length.Min, r.Length.Min))
			if sum := l.Length.Add(r.Length); sum.Max != nil {
				length.Max = sum.Max
			}
			return types.Set{Of: types.OneOf(l.Of, r.Of), Length: length}, nil
		case types.All:
			return types.Set{Of: types.All{}, Length: types.AtLeast(l.Length.Min)}, nil
		}
	case types.All:
		switch r := rt.(type) {
		case types.Array:
			return types.Array{Of: types.All{}, Length: types.AtLeast(r.Length.Min)}, nil
		case types.Set:
			return types.Set{Of: types.All{}, Length: types.AtLeast(r.Length.Min)}, nil
		case types.All:
			return types.OneOf(types.Array{Of: types.All{}}, types.Set{Of: types.All{}}), nil
		}
	}
	return nil, fmt.Errorf("cannot concatenate %s and %s, ++ expects two arrays or two sets", lt, rt)
}

func (concatArray) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	switch l := lv.(type) {
	case values.Array:
		if r, ok := rv.(values.Array); ok {
			return values.Concat(l, r), nil
		}
	case values.Set:
		if r, ok := rv.(values.Set); ok {
			return values.Union(l, r), nil
		}
	}
	return nil, fmt.Errorf("cannot concatenate %s and %s", lv, rv)
}

// merge 是字典或对象合并 `~~`，右侧覆盖左侧。
type merge struct{}

func (merge) operatorType(_ runtime.Runtime, lt, rt types.Type, _, _ ast.Expression) (types.Type, error) {
	switch l := lt.(type) {
	case types.Dict:
		if r, ok := rt.(types.Dict); ok {
			names := slices.Clone(l.Names)
			for _, n := range r.Names {
				if !slices.Contains(names, n) {
					names = append(names, n)
				}
			}
			sort.Strings(names)
			length := types.AtLeast(max(l.Length.Min, r.Length.Min, len(names)))
			if sum := l.Length.Add(r.Length); sum.Max != nil {
				length.Max = sum.Max
			}
			return types.Dict{Of: types.OneOf(l.Of, r.Of), Length: length, Names: names}, nil
		}
	case types.Object:
		if r, ok := rt.(types.Object); ok {
			props := slices.Clone(l.Props)
			for _, p := range r.Props {
				replaced := false
				for i := range props {
					if props[i].Name == p.Name {
						props[i] = p
						replaced = true
					}
				}
				if !replaced {
					props = append(props, p)
				}
			}
			return types.Object{Name: l.Name, Props: props}, nil
		}
	case types.All:
		switch rt.(type) {
		case types.Dict, types.All:
			return types.Dict{Of: types.All{}}, nil
		case types.Object:
			return types.All{}, nil
		}
	}
	if _, ok := rt.(types.All); ok {
		switch lt.(type) {
		case types.Dict:
			return types.Dict{Of: types.All{}}, nil
		case types.Object:
			return types.All{}, nil
		}
	}
	return nil, fmt.Errorf("cannot merge %s and %s, ~~ expects two dicts or two objects", lt, rt)
}

func (merge) operatorEval(_ runtime.Runtime, lv values.Value, rhs func() (values.Value, error), _, _ ast.Expression) (values.Value, error) {
	rv, err := rhs()
	if err != nil {
		return nil, err
	}
	switch l := lv.(type) {
	case values.Dict:
		if r, ok := rv.(values.Dict); ok {
			return values.Merge(l, r), nil
		}
	case values.Object:
		if r, ok := rv.(values.Object); ok {
			return values.MergeObjects(l, r), nil
		}
	}
	return nil, fmt.Errorf("cannot merge %s and %s", lv, rv)
}
