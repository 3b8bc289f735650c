package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const greetProgram = `
param "greeting" {
  value      = "Hello, "
  constraint = "A salutation ending with a space."
}

input "name" {
  type = string
}

call "shout" {
  operator = "upper"
  args     = [call.message]
}

call "message" {
  operator = "add"
  args     = [param.greeting, input.name]
}

output "shout" {
  value = call.shout
}

output "message" {
  value = call.message
}
`

const failingProgram = `
param "items" {
  value = ["a", "b"]
}

call "third" {
  operator = "getitem"
  args     = [param.items, 5]
}

output "third" {
  value = call.third
}
`

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func newTestConfig(t *testing.T, src string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ProgramPath = writeProgram(t, src)
	cfg.Inputs = map[string]string{"name": "Ada"}
	return &cfg
}

func TestRunPrintsOutputs(t *testing.T) {
	cfg := newTestConfig(t, greetProgram)
	a, out, logs := SetupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "shout = HELLO, ADA\nmessage = Hello, Ada\n", out.String())
	assert.Contains(t, logs.String(), "run_id=")
	assert.Contains(t, logs.String(), "Program finished.")
}

func TestRunWithFeedback(t *testing.T) {
	cfg := newTestConfig(t, greetProgram)
	cfg.Feedback = "Too loud."
	cfg.FeedbackOutput = "message"
	a, out, _ := SetupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))
	text := out.String()
	assert.Contains(t, text, "#Code\nadd0 = add(x=greeting0, y=name0)\n")
	assert.Contains(t, text, "#Variables\n(string) greeting0=Hello, \n")
	assert.Contains(t, text, "#Constraints\n(string) greeting0: A salutation ending with a space.\n")
	assert.Contains(t, text, "#Feedback\nToo loud.")
	assert.NotContains(t, text, "upper0 =")
}

func TestRunWithYAMLFeedback(t *testing.T) {
	cfg := newTestConfig(t, greetProgram)
	cfg.Feedback = "Too loud."
	cfg.Format = FormatYAML
	a, out, _ := SetupAppTest(t, cfg)

	require.NoError(t, a.Run(context.Background()))
	_, doc, found := strings.Cut(out.String(), "message = Hello, Ada\n\n")
	require.True(t, found, out.String())

	var decoded struct {
		Code     []string `yaml:"code"`
		Feedback string   `yaml:"feedback"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &decoded))
	assert.Equal(t, []string{"add0 = add(x=greeting0, y=name0)", "upper0 = upper(x=add0)"}, decoded.Code)
	assert.Equal(t, "Too loud.", decoded.Feedback)
}

func TestRunFailedProgram(t *testing.T) {
	cfg := newTestConfig(t, failingProgram)
	cfg.Inputs = nil
	cfg.Feedback = "It crashed."
	a, out, _ := SetupAppTest(t, cfg)

	err := a.Run(context.Background())
	require.ErrorIs(t, err, ErrProgramFailed)
	assert.Contains(t, err.Error(), `call "third"`)

	text := out.String()
	assert.Contains(t, text, "third raised (IndexError) list index out of range\n")
	assert.Contains(t, text, "#Variables\n(tuple) items0=[\"a\",\"b\"]\n")
	assert.Contains(t, text, "#Feedback\nIt crashed.")
}

func TestRunSavesAndLoadsParameters(t *testing.T) {
	dir := t.TempDir()
	params := filepath.Join(dir, "params.bin")

	cfg := newTestConfig(t, greetProgram)
	cfg.SaveParams = params
	a, _, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	require.FileExists(t, params)

	cfg = newTestConfig(t, greetProgram)
	cfg.LoadParams = params
	a, out, _ := SetupAppTest(t, cfg)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "message = Hello, Ada\n")

	cfg = newTestConfig(t, greetProgram)
	cfg.LoadParams = filepath.Join(dir, "missing.bin")
	a, _, _ = SetupAppTest(t, cfg)
	assert.ErrorContains(t, a.Run(context.Background()), "failed to load parameters")
}

func TestRunErrors(t *testing.T) {
	cfg := newTestConfig(t, greetProgram)
	cfg.Inputs = nil
	a, _, _ := SetupAppTest(t, cfg)
	assert.ErrorContains(t, a.Run(context.Background()), `missing value for input "name"`)

	cfg = newTestConfig(t, `call "a" {`)
	a, _, _ = SetupAppTest(t, cfg)
	assert.ErrorContains(t, a.Run(context.Background()), "failed to parse program")

	cfg = newTestConfig(t, greetProgram)
	cfg.Feedback = "x"
	cfg.FeedbackOutput = "nope"
	a, _, _ = SetupAppTest(t, cfg)
	assert.ErrorContains(t, a.Run(context.Background()), `feedback output "nope" is not declared`)
}

func TestLibraryPath(t *testing.T) {
	lib := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(lib, "ops.hcl"), []byte(`
operator "exclaim" {
  params = ["x"]
  code   = "result = \"$${x}!\""
}
`), 0o600))

	cfg := newTestConfig(t, `
input "name" {}

call "loud" {
  operator = "exclaim"
  args     = [input.name]
}

output "loud" {
  value = call.loud
}
`)
	cfg.LibraryPath = lib
	a, out, _ := SetupAppTest(t, cfg)

	_, ok := a.Registry().Lookup("exclaim")
	require.True(t, ok)
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "loud = Ada!\n", out.String())
}

func TestHealthcheckServer(t *testing.T) {
	cfg := newTestConfig(t, greetProgram)
	a, _, _ := SetupAppTest(t, cfg)
	ctx := context.Background()

	require.NoError(t, a.startHealthcheckServer(ctx, 0))
	defer a.closeHealthcheckServer(ctx)

	get := func(path string) string {
		resp, err := http.Get("http://" + a.healthAddr + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Equal(t, "OK\n", get("/health"))
	assert.Contains(t, get("/metrics"), "tracegrid_backward_passes_total 0")

	require.NoError(t, a.closeHealthcheckServer(ctx))
	require.NoError(t, a.closeHealthcheckServer(ctx), "closing twice is a no-op")
}
