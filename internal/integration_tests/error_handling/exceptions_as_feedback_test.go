package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/tracegridgo/internal/app"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/testutil"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// Test for: a raising builtin becomes an exception node whose parents are
// the call inputs, and feedback is propagated from it.
func TestErrorHandling_DivisionByZero_IsFeedback(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	program := `
param "a" {
  value = 1
}

input "b" {
  type = number
}

call "quotient" {
  operator = "divide"
  args     = [param.a, input.b]
}

output "quotient" {
  value = call.quotient
}
`
	files := map[string]string{testutil.ProgramFile: program}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, func(cfg *app.Config) {
		cfg.Inputs = map[string]string{"b": "0"}
		cfg.Feedback = "Do not divide by zero."
	})

	// --- Assert ---
	require.ErrorIs(t, result.Err, app.ErrProgramFailed)
	var execErr *operator.ExecutionError
	require.ErrorAs(t, result.Err, &execErr)
	require.Len(t, execErr.Node.Parents(), 2)

	require.Contains(t, result.Output, "quotient raised (ZeroDivisionError) division by zero\n")
	require.Contains(t, result.Output, "#Variables\n(number) a0=1\n")
	require.Contains(t, result.Output, "#Inputs\n(number) b0=0\n")
	require.Contains(t, result.Output, "#Feedback\nDo not divide by zero.")
}

// Test for: trainable code rewritten into invalid syntax fails with an
// exception node whose only parent is the code parameter.
func TestErrorHandling_BrokenTrainableCode(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	program := `
input "x" {
  default = 21
}

operator "double" {
  params    = ["x"]
  trainable = true
  code      = "result = x * 2"
}

call "doubled" {
  operator = "double"
  args     = [input.x]
}

output "doubled" {
  value = call.doubled
}
`
	blob, err := value.EncodeBlob(map[string]cty.Value{
		"double.__code": cty.StringVal("# double(x)\nresult = x *"),
	})
	require.NoError(t, err)
	params := filepath.Join(t.TempDir(), "params.bin")
	require.NoError(t, os.WriteFile(params, blob, 0o600))

	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{testutil.ProgramFile: program}, func(cfg *app.Config) {
		cfg.LoadParams = params
		cfg.Feedback = "Fix the code."
	})

	// --- Assert ---
	var execErr *operator.ExecutionError
	require.ErrorAs(t, result.Err, &execErr)
	require.Contains(t, execErr.Node.Peek().AsString(), "(SyntaxError)")
	parents := execErr.Node.Parents()
	require.Len(t, parents, 1)
	require.True(t, parents[0].IsParameter())
	require.Equal(t, operator.CodeInput+":0", parents[0].Name())

	require.Contains(t, result.Output, "doubled raised (SyntaxError)")
	require.Contains(t, result.Output, "#Feedback\nFix the code.")
}

// Test for: invalid hcl is rejected
func TestErrorHandling_InvalidHCL_IsRejected(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// An HCL string with a clear syntax error (a missing closing brace).
	invalidHCL := `
call "a" {
  operator = "upper"
`
	// --- Act ---
	result := testutil.RunIntegrationTest(t, map[string]string{testutil.ProgramFile: invalidHCL}, nil)

	// --- Assert ---
	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), "failed to parse program")
	require.Empty(t, result.Output)
}

// Test for: an input the program does not declare is rejected before any
// call runs.
func TestErrorHandling_UndeclaredInput(t *testing.T) {
	t.Parallel()

	program := `
input "name" {
  default = "Ada"
}

call "loud" {
  operator = "upper"
  args     = [input.name]
}
`
	result := testutil.RunIntegrationTest(t, map[string]string{testutil.ProgramFile: program}, func(cfg *app.Config) {
		cfg.Inputs = map[string]string{"nmae": "Bo"}
	})

	require.Error(t, result.Err)
	require.Contains(t, result.Err.Error(), `undeclared input "nmae"`)
	require.NotContains(t, result.LogOutput, "Performing call")
}
