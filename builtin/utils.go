package builtin

import (
	"fmt"
	"math"

	"github.com/formula-lang/formula/values"
)

func toFloat(v values.Value) (float64, bool) {
	switch x := v.(type) {
	case values.Int:
		return float64(x), true
	case values.Float:
		return float64(x), true
	}
	return 0, false
}

// add 两个整数相加溢出时报错，其它情况按浮点数相加。
func add(a, b values.Value) (values.Value, error) {
	if x, ok := a.(values.Int); ok {
		if y, ok := b.(values.Int); ok {
			sum := x + y
			if (y > 0 && sum < x) || (y < 0 && sum > x) {
				return nil, fmt.Errorf("integer overflow adding %d and %d", x, y)
			}
			return sum, nil
		}
	}
	x, ok := toFloat(a)
	if !ok {
		return nil, fmt.Errorf("%s is not a number", a)
	}
	y, ok := toFloat(b)
	if !ok {
		return nil, fmt.Errorf("%s is not a number", b)
	}
	return values.Float(x + y), nil
}

var pi = values.Float(math.Pi)
