package values

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/formula-lang/formula/internal/deref"
)

// FromGo 把宿主 Go 值转换为运行时值：
//   - 指针与接口会被解引用，nil 转为 null；
//   - 以 string 为 key 的 map 与 struct 转为 Object（map 的 key 排序以保证确定性）；
//   - 其它 map 转为 Dict，slice / array 转为 Array。
func FromGo(v any) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	if value, ok := v.(Value); ok {
		return value, nil
	}
	rv, ok := deref.Value(reflect.ValueOf(v))
	if !ok {
		return Null{}, nil
	}
	return fromReflect(rv)
}

func fromReflect(rv reflect.Value) (Value, error) {
	if rv.CanInterface() {
		if value, ok := rv.Interface().(Value); ok {
			return value, nil
		}
	}
	switch rv.Kind() {
	case reflect.Bool:
		return Boolean(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Int(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return String(rv.Bytes()), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := element(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = item
		}
		return Array{Items: items}, nil
	case reflect.Map:
		return fromMap(rv)
	case reflect.Struct:
		return fromStruct(rv)
	}
	return nil, fmt.Errorf("unsupported host value of type %s", rv.Type())
}

func element(rv reflect.Value) (Value, error) {
	d, ok := deref.Value(rv)
	if !ok {
		return Null{}, nil
	}
	return fromReflect(d)
}

func fromMap(rv reflect.Value) (Value, error) {
	keys := rv.MapKeys()
	if rv.Type().Key().Kind() == reflect.String {
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		obj := Object{Props: make([]Prop, 0, len(keys))}
		for _, k := range keys {
			item, err := element(rv.MapIndex(k))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k.String(), err)
			}
			obj.Props = append(obj.Props, Prop{Name: k.String(), Value: item})
		}
		return obj, nil
	}
	dict := Dict{}
	for _, k := range keys {
		key, err := element(k)
		if err != nil {
			return nil, err
		}
		item, err := element(rv.MapIndex(k))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		dict = dict.With(key, item)
	}
	sort.SliceStable(dict.Entries, func(i, j int) bool {
		return dict.Entries[i].Key.String() < dict.Entries[j].Key.String()
	})
	return dict, nil
}

func fromStruct(rv reflect.Value) (Value, error) {
	t := rv.Type()
	obj := Object{}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		item, err := element(rv.Field(i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		obj.Props = append(obj.Props, Prop{Name: name, Value: item})
	}
	return obj, nil
}

// FromJSON 解析 JSON 文本：对象转为 Object（保持文档顺序），
// 没有小数点与指数的数字转为 Int，其余数字转为 Float。
func FromJSON(s string) (Value, error) {
	var p fastjson.Parser
	v, err := p.Parse(s)
	if err != nil {
		return nil, err
	}
	return fromJSON(v)
}

func fromJSON(v *fastjson.Value) (Value, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return Null{}, nil
	case fastjson.TypeTrue:
		return Boolean(true), nil
	case fastjson.TypeFalse:
		return Boolean(false), nil
	case fastjson.TypeString:
		return String(v.GetStringBytes()), nil
	case fastjson.TypeNumber:
		raw := v.String()
		if !strings.ContainsAny(raw, ".eE") {
			if i, err := v.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return Float(f), nil
	case fastjson.TypeArray:
		arr, _ := v.Array()
		items := make([]Value, len(arr))
		for i, item := range arr {
			converted, err := fromJSON(item)
			if err != nil {
				return nil, err
			}
			items[i] = converted
		}
		return Array{Items: items}, nil
	case fastjson.TypeObject:
		o, _ := v.Object()
		obj := Object{}
		var err error
		o.Visit(func(key []byte, item *fastjson.Value) {
			if err != nil {
				return
			}
			var converted Value
			converted, err = fromJSON(item)
			obj.Props = append(obj.Props, Prop{Name: string(key), Value: converted})
		})
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	return nil, fmt.Errorf("unsupported JSON value %s", v.Type())
}
