package file

import "fmt"

// Location 是源码中的一个半开区间 [From, To)，按 rune 偏移计数。
type Location struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (loc Location) String() string {
	return fmt.Sprintf("[%d:%d]", loc.From, loc.To)
}

// Span 返回同时覆盖 loc 与 other 的最小区间。
func (loc Location) Span(other Location) Location {
	out := loc
	if other.From < out.From {
		out.From = other.From
	}
	if other.To > out.To {
		out.To = other.To
	}
	return out
}
