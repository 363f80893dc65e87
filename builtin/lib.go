package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/formula-lang/formula/values"
)

func Map(args []values.Value) (values.Value, error) {
	items, f := args[0].(values.Array), args[1].(values.Formula)
	out := make([]values.Value, len(items.Items))
	for i, item := range items.Items {
		v, err := values.Call(f, item)
		if err != nil {
			return nil, fmt.Errorf("map: item %d: %w", i, err)
		}
		out[i] = v
	}
	return values.Array{Items: out}, nil
}

func Filter(args []values.Value) (values.Value, error) {
	items, f := args[0].(values.Array), args[1].(values.Formula)
	out := []values.Value{}
	for i, item := range items.Items {
		keep, err := predicate(f, item)
		if err != nil {
			return nil, fmt.Errorf("filter: item %d: %w", i, err)
		}
		if keep {
			out = append(out, item)
		}
	}
	return values.Array{Items: out}, nil
}

func Reduce(args []values.Value) (values.Value, error) {
	items, f, acc := args[0].(values.Array), args[1].(values.Formula), args[2]
	for i, item := range items.Items {
		v, err := values.Call(f, acc, item)
		if err != nil {
			return nil, fmt.Errorf("reduce: item %d: %w", i, err)
		}
		acc = v
	}
	return acc, nil
}

// Find 返回第一个满足条件的元素，没有时返回 null。
func Find(args []values.Value) (values.Value, error) {
	items, f := args[0].(values.Array), args[1].(values.Formula)
	for i, item := range items.Items {
		ok, err := predicate(f, item)
		if err != nil {
			return nil, fmt.Errorf("find: item %d: %w", i, err)
		}
		if ok {
			return item, nil
		}
	}
	return values.Null{}, nil
}

func predicate(f values.Formula, item values.Value) (bool, error) {
	v, err := values.Call(f, item)
	if err != nil {
		return false, err
	}
	b, ok := v.(values.Boolean)
	if !ok {
		return false, fmt.Errorf("predicate returned %s, expected a Boolean", v)
	}
	return bool(b), nil
}

func Keys(args []values.Value) (values.Value, error) {
	d := args[0].(values.Dict)
	out := make([]values.Value, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Key
	}
	return values.Array{Items: out}, nil
}

func Values(args []values.Value) (values.Value, error) {
	d := args[0].(values.Dict)
	out := make([]values.Value, len(d.Entries))
	for i, e := range d.Entries {
		out[i] = e.Value
	}
	return values.Array{Items: out}, nil
}

// Sum 对整数求和时结果是 Int，出现浮点数时是 Float。
func Sum(args []values.Value) (values.Value, error) {
	var total values.Value = values.Int(0)
	for _, item := range args[0].(values.Array).Items {
		next, err := add(total, item)
		if err != nil {
			return nil, fmt.Errorf("sum: %w", err)
		}
		total = next
	}
	return total, nil
}

func Max(args []values.Value) (values.Value, error) {
	return extreme("max", args, func(a, b float64) bool { return a > b })
}

func Min(args []values.Value) (values.Value, error) {
	return extreme("min", args, func(a, b float64) bool { return a < b })
}

// extreme 在 first 与 rest 中挑出 better 的那个，原样返回（Int 仍是 Int）。
func extreme(name string, args []values.Value, better func(a, b float64) bool) (values.Value, error) {
	best := args[0]
	bf, ok := toFloat(best)
	if !ok {
		return nil, fmt.Errorf("%s: %s is not a number", name, best)
	}
	for _, item := range args[1].(values.Array).Items {
		f, ok := toFloat(item)
		if !ok {
			return nil, fmt.Errorf("%s: %s is not a number", name, item)
		}
		if better(f, bf) {
			best, bf = item, f
		}
	}
	return best, nil
}

func Abs(args []values.Value) (values.Value, error) {
	switch x := args[0].(type) {
	case values.Int:
		if x < 0 {
			return -x, nil
		}
		return x, nil
	case values.Float:
		return values.Float(math.Abs(float64(x))), nil
	}
	return nil, fmt.Errorf("abs: %s is not a number", args[0])
}

func Join(args []values.Value) (values.Value, error) {
	items := args[0].(values.Array)
	sep := ""
	if args[1] != nil {
		sep = string(args[1].(values.String))
	}
	parts := make([]string, len(items.Items))
	for i, item := range items.Items {
		s, ok := item.(values.String)
		if !ok {
			return nil, fmt.Errorf("join: %s is not a String", item)
		}
		parts[i] = string(s)
	}
	return values.String(strings.Join(parts, sep)), nil
}

func Split(args []values.Value) (values.Value, error) {
	s, sep := string(args[0].(values.String)), string(args[1].(values.String))
	parts := strings.Split(s, sep)
	out := make([]values.Value, len(parts))
	for i, p := range parts {
		out[i] = values.String(p)
	}
	return values.Array{Items: out}, nil
}

// upperLower 按 locale 做大小写转换（例如土耳其语的 i / İ）。
func upperLower(tag language.Tag) (upper, lower func([]values.Value) (values.Value, error)) {
	upper = func(args []values.Value) (values.Value, error) {
		return values.String(cases.Upper(tag).String(string(args[0].(values.String)))), nil
	}
	lower = func(args []values.Value) (values.Value, error) {
		return values.String(cases.Lower(tag).String(string(args[0].(values.String)))), nil
	}
	return upper, lower
}

// toStringIn 返回值面向用户的文本，数字按 locale 格式化。
func toStringIn(tag language.Tag) func([]values.Value) (values.Value, error) {
	return func(args []values.Value) (values.Value, error) {
		return values.String(values.Printable(args[0], tag)), nil
	}
}

// ToInt 把字符串、浮点数或布尔值转为整数，字符串无法解析时返回 null。
// 浮点数向零截断，NaN 与无穷大返回 null。
func ToInt(args []values.Value) (values.Value, error) {
	switch x := args[0].(type) {
	case values.Int:
		return x, nil
	case values.Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return values.Null{}, nil
		}
		return values.Int(int64(f)), nil
	case values.Boolean:
		if x {
			return values.Int(1), nil
		}
		return values.Int(0), nil
	case values.String:
		s := strings.ReplaceAll(strings.TrimSpace(string(x)), "_", "")
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return values.Int(i), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return values.Int(int64(f)), nil
		}
		return values.Null{}, nil
	}
	return nil, fmt.Errorf("toInt: cannot convert %s", args[0])
}

// Range 返回 [from, to) 中步长为 step 的整数，step 为负数时递减。
func Range(args []values.Value) (values.Value, error) {
	from, to := int64(args[0].(values.Int)), int64(args[1].(values.Int))
	step := int64(1)
	if args[2] != nil {
		step = int64(args[2].(values.Int))
	}
	if step == 0 {
		return nil, fmt.Errorf("range: step cannot be 0")
	}
	out := []values.Value{}
	for i := from; (step > 0 && i < to) || (step < 0 && i > to); i += step {
		if len(out) >= MaxRange {
			return nil, fmt.Errorf("range: more than %d items", MaxRange)
		}
		out = append(out, values.Int(i))
	}
	return values.Array{Items: out}, nil
}

// MaxRange 限制 range 生成的数组长度。
const MaxRange = 1_000_000

func Floor(args []values.Value) (values.Value, error) {
	return rounding("floor", args[0], math.Floor)
}

func Ceil(args []values.Value) (values.Value, error) {
	return rounding("ceil", args[0], math.Ceil)
}

func Round(args []values.Value) (values.Value, error) {
	return rounding("round", args[0], math.Round)
}

func rounding(name string, v values.Value, fn func(float64) float64) (values.Value, error) {
	switch x := v.(type) {
	case values.Int:
		return x, nil
	case values.Float:
		f := fn(float64(x))
		if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
			return nil, fmt.Errorf("%s: %s is out of the Int range", name, v)
		}
		return values.Int(int64(f)), nil
	}
	return nil, fmt.Errorf("%s: %s is not a number", name, v)
}

// Sqrt 对负数返回 NaN，与除以零一样不报错。
func Sqrt(args []values.Value) (values.Value, error) {
	f, ok := toFloat(args[0])
	if !ok {
		return nil, fmt.Errorf("sqrt: %s is not a number", args[0])
	}
	if f < 0 {
		return values.NaN, nil
	}
	return values.Float(math.Sqrt(f)), nil
}
