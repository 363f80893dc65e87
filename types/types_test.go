package types_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/formula-lang/formula/types"
)

func TestOneOf(t *testing.T) {
	tests := []struct {
		name string
		in   []Type
		want string
	}{
		{"empty", nil, "Never"},
		{"single", []Type{Int{}}, "Int"},
		{"flatten", []Type{OneOf(LiteralInt{1}, LiteralInt{2}), LiteralInt{3}}, "1 | 2 | 3"},
		{"dedupe", []Type{LiteralString{"a"}, LiteralString{"a"}, Null{}}, `"a" | null`},
		{"drop never", []Type{Never{}, Boolean{}}, "Boolean"},
		{"absorb all", []Type{Int{}, All{}}, "Any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OneOf(tt.in...).String())
		})
	}
}

func TestCanBeAssignedTo(t *testing.T) {
	tests := []struct {
		t, dest Type
		want    bool
	}{
		{LiteralInt{5}, Int{Min: Ptr[int64](0)}, true},
		{LiteralInt{-1}, Int{Min: Ptr[int64](0)}, false},
		{Int{Min: Ptr[int64](1), Max: Ptr[int64](3)}, Int{Min: Ptr[int64](0)}, true},
		{Int{}, Int{Min: Ptr[int64](0)}, false},
		{Int{}, Float{}, true},
		{Float{}, Int{}, false},
		{LiteralString{"abc"}, String{Length: AtLeast(1)}, true},
		{LiteralString{""}, String{Length: AtLeast(1)}, false},
		{Boolean{}, OneOf(LiteralBoolean{true}, LiteralBoolean{false}), true},
		{OneOf(LiteralInt{1}, LiteralInt{2}), Int{}, true},
		{OneOf(LiteralInt{1}, Null{}), Int{}, false},
		{Array{Of: LiteralInt{1}, Length: Exactly(2)}, Array{Of: Int{}, Length: AtLeast(1)}, true},
		{Array{Of: Int{}}, Array{Of: Int{}, Length: AtLeast(1)}, false},
		{Object{Props: []Prop{{"a", Int{}}, {"b", String{}}}}, Object{Props: []Prop{{"a", Int{}}}}, true},
		{Object{Props: []Prop{{"b", String{}}}}, Object{Props: []Prop{{"a", Int{}}}}, false},
		{Never{}, Int{}, true},
		{Int{}, All{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.t.String()+" -> "+tt.dest.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CanBeAssignedTo(tt.t, tt.dest))
		})
	}
}

func TestNarrowTypeIs(t *testing.T) {
	u := OneOf(Int{}, String{}, Null{})
	assert.Equal(t, "Int", NarrowTypeIs(u, Int{}).String())
	assert.Equal(t, "String | null", NarrowTypeIsNot(u, Int{}).String())
	assert.Equal(t, "Int(>=0, <=9)", NarrowTypeIs(Int{Min: Ptr[int64](0)}, Int{Max: Ptr[int64](9)}).String())
	assert.Equal(t, "Never", NarrowTypeIs(Int{Min: Ptr[int64](10)}, Int{Max: Ptr[int64](9)}).String())
	assert.Equal(t, "true", NarrowTypeIsNot(Boolean{}, LiteralBoolean{false}).String())
}

func TestNarrowCompare(t *testing.T) {
	tests := []struct {
		t    Type
		op   string
		rhs  Type
		want string
	}{
		{Int{}, ">", LiteralInt{5}, "Int(>=6)"},
		{Int{}, ">=", LiteralInt{5}, "Int(>=5)"},
		{Int{}, "<", LiteralInt{5}, "Int(<=4)"},
		{Int{}, "<=", LiteralFloat{5.5}, "Int(<=5)"},
		{Int{}, ">", LiteralFloat{5.5}, "Int(>=6)"},
		{Float{}, ">", LiteralInt{0}, "Float(>0.0)"},
		{Int{}, "==", LiteralInt{3}, "3"},
		{LiteralInt{3}, ">", LiteralInt{5}, "Never"},
		{Int{Min: Ptr[int64](0)}, "!=", LiteralInt{0}, "Int(>=1)"},
		{OneOf(Int{}, String{}), ">", LiteralInt{1}, "Int(>=2) | String"},
		{Int{}, ">", Int{Min: Ptr[int64](3)}, "Int(>=4)"},
	}
	for _, tt := range tests {
		t.Run(tt.t.String()+tt.op+tt.rhs.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, NarrowCompare(tt.t, tt.op, tt.rhs).String())
		})
	}
}

func TestNarrowingIsIdempotent(t *testing.T) {
	base := OneOf(Int{}, String{}, Array{Of: Int{}})
	once := NarrowLength(base, ">=", 2)
	twice := NarrowLength(once, ">=", 2)
	assert.True(t, once.Equal(twice), "%s != %s", once, twice)

	n1 := NarrowCompare(Int{}, ">", LiteralInt{5})
	n2 := NarrowCompare(n1, ">", LiteralInt{5})
	assert.True(t, n1.Equal(n2))
}

func TestNarrowLength(t *testing.T) {
	assert.Equal(t, "String(length: >=6)", NarrowLength(String{}, ">", 5).String())
	assert.Equal(t, "Array(Int, length: =3)", NarrowLength(Array{Of: Int{}}, "==", 3).String())
	assert.Equal(t, "Never", NarrowLength(LiteralString{"ab"}, ">", 5).String())
	assert.Equal(t, "Int | Array(Int, length: >=1)", NarrowLength(OneOf(Int{}, Array{Of: Int{}}), "!=", 0).String())
}

func TestNarrowNamesAndRegex(t *testing.T) {
	a := Object{Props: []Prop{{"a", Int{}}}}
	b := Object{Props: []Prop{{"b", Int{}}}}
	assert.Equal(t, "{a: Int}", NarrowNames(OneOf(a, b), "a", true).String())
	assert.Equal(t, "{b: Int}", NarrowNames(OneOf(a, b), "a", false).String())
	assert.Equal(t, `Dict(Int, length: >=1, keys: ["x"])`, NarrowNames(Dict{Of: Int{}}, "x", true).String())

	re := regexp.MustCompile("^a")
	assert.Equal(t, `String(matches: "^a")`, NarrowRegex(String{}, re).String())
	assert.Equal(t, "Never", NarrowRegex(LiteralString{"b"}, re).String())
}

func TestTruthiness(t *testing.T) {
	u := OneOf(Null{}, Boolean{}, Int{Min: Ptr[int64](0)}, String{})
	assert.Equal(t, "true | Int(>=1) | String(length: >=1)", ToTruthyType(u).String())
	assert.Equal(t, `null | false | 0 | ""`, ToFalseyType(u).String())
	assert.Equal(t, "Never", ToFalseyType(Array{Of: Int{}}).String())
}

func TestCompatibleWithBothTypes(t *testing.T) {
	assert.Equal(t, `"test1" | "test2"`, CompatibleWithBothTypes(LiteralString{"test1"}, LiteralString{"test2"}).String())
	assert.Equal(t, "Int", CompatibleWithBothTypes(LiteralInt{1}, Int{}).String())
	assert.Equal(t, "Int(>=0, <=9)", CompatibleWithBothTypes(
		Int{Min: Ptr[int64](0), Max: Ptr[int64](3)},
		Int{Min: Ptr[int64](5), Max: Ptr[int64](9)},
	).String())
}

func TestPropTypeAndReplacing(t *testing.T) {
	obj := Object{Props: []Prop{{"name", String{}}, {"age", OneOf(Int{}, Null{})}}}
	p, ok := PropType(obj, "age")
	require.True(t, ok)
	assert.Equal(t, "Int | null", p.String())

	replaced := ReplacingProp(obj, "age", Int{})
	assert.Equal(t, "{name: String, age: Int}", replaced.String())

	l, ok := PropType(String{Length: AtLeast(2)}, "length")
	require.True(t, ok)
	assert.Equal(t, "Int(>=2)", l.String())

	u := OneOf(String{}, Array{Of: Int{}, Length: Between(0, 3)})
	narrowed := ReplacingProp(u, "length", Int{Min: Ptr[int64](5)})
	assert.Equal(t, "String(length: >=5)", narrowed.String())
}

func TestGenerics(t *testing.T) {
	T := NewGeneric("T")
	U := NewGeneric("U")
	assert.False(t, T.Equal(U))

	m := map[int64]Type{T.ID: nil, U.ID: nil}
	param := Array{Of: T}
	ResolveGenerics(param, Array{Of: OneOf(LiteralInt{1}, LiteralInt{2})}, m)
	ResolveGenerics(Formula{Args: []Argument{{Name: "x", Type: T}}, Return: U}, Formula{Return: String{}}, m)
	assert.Equal(t, "1 | 2", m[T.ID].String())
	assert.Equal(t, "String", m[U.ID].String())

	sub := Substitute(Formula{Generics: []Generic{T, U}, Args: []Argument{{Name: "a", Type: T, Positional: true, Required: true}}, Return: Array{Of: U}}, m)
	assert.Equal(t, "fn(# a: 1 | 2): Array(String)", sub.String())
	assert.Len(t, FreeGenerics(Optional(Array{Of: T})), 1)
}

func TestIndexType(t *testing.T) {
	arr := Array{Of: Int{}, Length: AtLeast(2)}
	got, err := IndexType(arr, LiteralInt{1})
	require.NoError(t, err)
	assert.Equal(t, "Int", got.String())

	got, err = IndexType(arr, LiteralInt{2})
	require.NoError(t, err)
	assert.Equal(t, "Int | null", got.String())

	_, err = IndexType(arr, String{})
	assert.Error(t, err)
}
