package vm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formula-lang/formula/compiler"
	"github.com/formula-lang/formula/conf"
	"github.com/formula-lang/formula/file"
	"github.com/formula-lang/formula/parser"
	"github.com/formula-lang/formula/types"
	"github.com/formula-lang/formula/values"
	"github.com/formula-lang/formula/vm"
)

func compile(t *testing.T, input string, config *conf.Config) *vm.Program {
	t.Helper()
	tree, err := parser.Parse(input)
	require.NoError(t, err)
	program, err := compiler.Compile(tree, config)
	require.NoError(t, err)
	return program
}

func TestRun(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)
	program := compile(t, "x * 2", config)

	out, err := vm.Run(program, nil)
	require.NoError(t, err)
	assert.Equal(t, values.Int(6), out)

	out, err = vm.Run(program, map[string]values.Value{"x": values.Int(5)})
	require.NoError(t, err)
	assert.Equal(t, values.Int(10), out)
}

func TestRun_envType(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)
	program := compile(t, "x * 2", config)

	_, err := vm.Run(program, map[string]values.Value{"x": values.String("a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value "a" is not assignable to Int`)
}

func TestRun_missingEnv(t *testing.T) {
	config := conf.New()
	config.Declare("x", types.Int{})
	program := compile(t, "x + 1", config)

	_, err := vm.Run(program, nil)
	require.Error(t, err)
	assert.Equal(t, "missing env variable x of type Int", err.Error())

	out, err := vm.Run(program, map[string]values.Value{"x": values.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, values.Int(2), out)
}

func TestRun_runtimeError(t *testing.T) {
	config := conf.New()
	config.Env["n"] = values.Int(3)
	program := compile(t, "range(0, n, 0)", config)

	_, err := vm.Run(program, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step cannot be 0")

	var fe *file.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Line)
}

func TestRun_divisionByZero(t *testing.T) {
	config := conf.New()
	config.Env["n"] = values.Int(5)
	program := compile(t, "n / 0", config)

	out, err := vm.Run(program, nil)
	require.NoError(t, err)
	assert.True(t, values.IsNaN(out))
}

func TestRun_panic(t *testing.T) {
	config := conf.New()
	config.Env["boom"] = values.Formula{
		Name:      "boom",
		Signature: types.Formula{Return: types.Int{}},
		Fn: func([]values.Value) (values.Value, error) {
			panic("kaboom")
		},
	}
	program := compile(t, "boom() + 1", config)

	_, err := vm.Run(program, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	var fe *file.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Column)
}

func TestRun_nilProgram(t *testing.T) {
	_, err := vm.Run(nil, nil)
	assert.EqualError(t, err, "program is nil")
}

func TestVM_scope(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)
	program := compile(t, "x", config)

	machine := vm.VM{}
	_, err := machine.Run(program, map[string]values.Value{"x": values.Int(4)})
	require.NoError(t, err)

	v, ok := machine.Scope.LocalValue("x")
	require.True(t, ok)
	assert.Equal(t, values.Int(4), v)
}

func TestProgram_Disassemble(t *testing.T) {
	config := conf.New()
	config.Env["x"] = values.Int(3)
	program := compile(t, "x + 1 * 2", config)

	out := program.Disassemble()
	assert.Contains(t, out, "BinaryOperation x + 2")
	assert.Contains(t, out, "IntLiteral 2")
}
