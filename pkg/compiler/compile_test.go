package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCleanProgram(t *testing.T) {
	src := `
int limit = 6;
fn fib(int n) int {
	if (n < 2) { return n; }
	return fib(n - 1) + fib(n - 2);
}
fn main() int {
	return fib(limit);
}
`
	ir, err := Compile(src)
	require.NoError(t, err)
	require.Len(t, ir.Globals, 1)
	require.Len(t, ir.Functions, 2)
	assert.Contains(t, ir.String(), "global int limit = 6")
	assert.Contains(t, ir.String(), "function fib(n)")
}

func TestCompileHaltsAtLexError(t *testing.T) {
	_, err := Compile("int x = @;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lex error")
}

func TestCompileHaltsAtParseError(t *testing.T) {
	_, err := Compile("int x = 1")
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, UnexpectedEOF, pe.Kind)
}

// A pass with diagnostics stops the pipeline at that pass boundary.
func TestCompileHaltsAtResolveErrors(t *testing.T) {
	_, err := Compile("fn k() { u = 3; }")
	require.Error(t, err)
	var stage *StageError
	require.True(t, errors.As(err, &stage))
	assert.Equal(t, "scope analysis", stage.Stage)
	require.Len(t, stage.Lines, 1)
	assert.Equal(t, "[UndeclaredVariableAccessed] u: use of undeclared variable", stage.Lines[0])
}

func TestCompileHaltsAtTypeErrors(t *testing.T) {
	_, err := Compile(`fn f() { int y; y = 1 + true; }`)
	require.Error(t, err)
	var stage *StageError
	require.True(t, errors.As(err, &stage))
	assert.Equal(t, "type checking", stage.Stage)
	require.Len(t, stage.Lines, 1)
	assert.Equal(t, "[AttemptedAddOpOnNonNumeric] arithmetic operators require numeric operands", stage.Lines[0])
}

func TestFrontendReturnsResolution(t *testing.T) {
	prog, res, err := Frontend("fn f(int a) int { return a; }")
	require.NoError(t, err)
	require.NotNil(t, prog)
	require.NotNil(t, res)
	assert.False(t, res.HasErrors())
}
