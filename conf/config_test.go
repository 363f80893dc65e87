package conf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/values"
)

type user struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email *string
	Skip  int `json:"-"`
	inner int
}

func TestEnv(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		vars, err := conf.Env(nil)
		require.NoError(t, err)
		assert.Empty(t, vars)
	})

	t.Run("struct", func(t *testing.T) {
		vars, err := conf.Env(&user{Name: "ada", Age: 36})
		require.NoError(t, err)
		assert.Equal(t, values.String("ada"), vars["name"])
		assert.Equal(t, values.Int(36), vars["age"])
		assert.Equal(t, values.Null{}, vars["Email"])
		assert.NotContains(t, vars, "Skip")
		assert.NotContains(t, vars, "inner")
	})

	t.Run("map", func(t *testing.T) {
		vars, err := conf.Env(map[string]any{"xs": []int{1, 2}})
		require.NoError(t, err)
		assert.Equal(t, values.Array{Items: []values.Value{values.Int(1), values.Int(2)}}, vars["xs"])
	})

	t.Run("non-string keys", func(t *testing.T) {
		_, err := conf.Env(map[int]any{1: 2})
		require.Error(t, err)
	})

	t.Run("scalar", func(t *testing.T) {
		_, err := conf.Env(42)
		require.EqualError(t, err, "unknown env type int")
	})
}

func TestEnvJSON(t *testing.T) {
	vars, err := conf.EnvJSON(`{"count": 3, "ratio": 0.5, "tags": ["a"]}`)
	require.NoError(t, err)
	assert.Equal(t, values.Int(3), vars["count"])
	assert.Equal(t, values.Float(0.5), vars["ratio"])

	_, err = conf.EnvJSON(`[1, 2]`)
	require.Error(t, err)
}

func TestConfig(t *testing.T) {
	c := conf.New()
	assert.Equal(t, conf.DefaultMaxNodes, c.NodeLimit())
	assert.NotNil(t, c.Log())

	require.NoError(t, c.WithEnv(map[string]any{"a": 1}))
	require.NoError(t, c.WithEnv(map[string]any{"a": 2, "b": "x"}))
	assert.Equal(t, values.Int(2), c.Env["a"])
	assert.Equal(t, values.String("x"), c.Env["b"])

	c.Disable("map", "filter")
	assert.True(t, c.IsDisabled("map"))
	assert.False(t, c.IsDisabled("reduce"))

	var nilConfig *conf.Config
	assert.Equal(t, conf.DefaultMaxNodes, nilConfig.NodeLimit())
	assert.False(t, nilConfig.IsDisabled("map"))
}
