package conf

import (
	"fmt"
	"reflect"

	"github.com/formula-lang/formula/internal/deref"
	"github.com/formula-lang/formula/values"
)

// Env 把宿主提供的环境转换为根作用域中的变量。
//
// 转换逻辑：
//
//	nil → 空环境
//	map[string]values.Value → 直接使用
//	values.Object → 每个属性成为一个变量
//	struct / 以 string 为 key 的 map → 通过 values.FromGo 转换后按属性展开
//	其它类型 → 错误
//
// 示例：
//
//	type Config struct {
//		Timeout int    `json:"timeout"`
//		Name    string `json:"name"`
//	}
//	vars, _ := Env(Config{Timeout: 30, Name: "a"})
//
//	返回:
//	{
//		"timeout": Int(30),
//		"name":    String("a"),
//	}
func Env(env any) (map[string]values.Value, error) {
	if env == nil {
		return map[string]values.Value{}, nil
	}

	switch env := env.(type) {
	case map[string]values.Value:
		return env, nil
	case values.Object:
		return fromObject(env), nil
	}

	d, ok := deref.Value(reflect.ValueOf(env))
	if !ok {
		return map[string]values.Value{}, nil
	}
	switch d.Kind() {
	case reflect.Struct:
	case reflect.Map:
		if d.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("env map must have string keys, found %s", d.Type().Key())
		}
	default:
		return nil, fmt.Errorf("unknown env type %T", env)
	}

	v, err := values.FromGo(env)
	if err != nil {
		return nil, fmt.Errorf("env: %w", err)
	}
	obj, ok := v.(values.Object)
	if !ok {
		return nil, fmt.Errorf("unknown env type %T", env)
	}
	return fromObject(obj), nil
}

// EnvJSON 把 JSON 对象转换为环境变量。
func EnvJSON(doc string) (map[string]values.Value, error) {
	v, err := values.FromJSON(doc)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(values.Object)
	if !ok {
		return nil, fmt.Errorf("env JSON must be an object, found %s", v.Type())
	}
	return fromObject(obj), nil
}

func fromObject(obj values.Object) map[string]values.Value {
	out := make(map[string]values.Value, len(obj.Props))
	for _, p := range obj.Props {
		out[p.Name] = p.Value
	}
	return out
}
