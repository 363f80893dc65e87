package deref_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/internal/deref"
)

func TestValue(t *testing.T) {
	var face any = &struct{ A int }{A: 1}
	v, ok := deref.Value(reflect.ValueOf(&face))
	require.True(t, ok)
	assert.Equal(t, reflect.Struct, v.Kind())
	assert.Equal(t, int64(1), v.Field(0).Int())

	i := 42
	p := &i
	v, ok = deref.Value(reflect.ValueOf(&p))
	require.True(t, ok)
	assert.Equal(t, int64(42), v.Int())
}

func TestValue_nil(t *testing.T) {
	_, ok := deref.Value(reflect.ValueOf((*int)(nil)))
	assert.False(t, ok)

	var face any
	_, ok = deref.Value(reflect.ValueOf(&face))
	assert.False(t, ok)

	_, ok = deref.Value(reflect.Value{})
	assert.False(t, ok)
}
