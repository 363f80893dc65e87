package values

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/formula-lang/formula/types"
)

type NamedArg struct {
	Name  string
	Value Value
}

// IsShorthand 判断是否启用"按位置改名"：
// 调用只传位置参数且没有展开，formula 的参数全部是具名参数，且实参个数不多于形参个数。
func IsShorthand(sig types.Formula, positional int, named int, spread bool) bool {
	if positional == 0 || named > 0 || spread || positional > len(sig.Args) {
		return false
	}
	for _, arg := range sig.Args {
		if arg.Positional || arg.Spread != types.NoSpread {
			return false
		}
	}
	return true
}

// Bind 按签名把实参分配到形参上：
//   - 位置参数依次填入 `#` 形参，`...#` 形参收集剩余的位置参数；
//   - 具名参数按名字匹配，`**` 形参收集未知名字；
//   - 缺失的必填参数、多余的参数与重复的名字都会被一并报告。
func Bind(sig types.Formula, positional []Value, named []NamedArg) ([]Value, error) {
	if IsShorthand(sig, len(positional), len(named), false) {
		for i, v := range positional {
			named = append(named, NamedArg{Name: sig.Args[i].Name, Value: v})
		}
		positional = nil
	}

	var errs *multierror.Error
	out := make([]Value, len(sig.Args))
	pi := 0
	kwargs := -1
	for i, arg := range sig.Args {
		switch {
		case arg.Spread == types.PositionalSpread:
			rest := Array{}
			if pi < len(positional) {
				rest.Items = append(rest.Items, positional[pi:]...)
				pi = len(positional)
			}
			out[i] = rest
		case arg.Spread == types.KwargsSpread:
			kwargs = i
			out[i] = Dict{}
		case arg.Positional:
			if pi < len(positional) {
				out[i] = positional[pi]
				pi++
			}
		}
	}
	if pi < len(positional) {
		errs = multierror.Append(errs, fmt.Errorf("too many arguments: expected %d, got %d", pi, len(positional)))
	}

	for _, n := range named {
		idx := -1
		for i, arg := range sig.Args {
			if arg.Name == n.Name && !arg.Positional && arg.Spread == types.NoSpread {
				idx = i
				break
			}
		}
		switch {
		case idx >= 0 && out[idx] != nil:
			errs = multierror.Append(errs, fmt.Errorf("argument %q passed more than once", n.Name))
		case idx >= 0:
			out[idx] = n.Value
		case kwargs >= 0:
			out[kwargs] = out[kwargs].(Dict).With(String(n.Name), n.Value)
		default:
			errs = multierror.Append(errs, fmt.Errorf("unknown argument %q", n.Name))
		}
	}

	for i, arg := range sig.Args {
		if out[i] == nil && arg.Required {
			errs = multierror.Append(errs, fmt.Errorf("missing required argument %q", arg.Name))
		}
	}
	return out, errs.ErrorOrNil()
}

// Call 以位置参数调用 formula，供内置函数回调使用。
func Call(f Formula, args ...Value) (Value, error) {
	return CallNamed(f, args, nil)
}

func CallNamed(f Formula, positional []Value, named []NamedArg) (Value, error) {
	bound, err := Bind(f.Signature, positional, named)
	if err != nil {
		return nil, err
	}
	return f.Fn(bound)
}
