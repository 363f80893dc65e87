// Package deref 处理宿主值中的指针与接口。
package deref

import (
	"reflect"
)

// Value 对 v 进行指针和接口的循环解引用，例如 **T、*any 都得到 T。
// 途中遇到 nil 或无效值时返回 false，调用方把它当作 null 处理。
func Value(v reflect.Value) (reflect.Value, bool) {
	if !v.IsValid() {
		return v, false
	}
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, true
}
