package integration_tests

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/tracegridgo/internal/app"
	"github.com/specialistvlad/tracegridgo/internal/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const greetingProgram = `
param "greeting" {
  value       = "Hello, "
  description = "How the message opens."
}

input "name" {
  type = string
}

call "message" {
  operator = "add"
  args     = [param.greeting, input.name]
}

output "message" {
  value = call.message
}
`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// Test for: the configuration file supplies defaults and flags override it.
func TestCLIBehavior_ConfigFileAndFlags(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := writeFiles(t, map[string]string{
		"main.hcl": greetingProgram,
		"tracegrid.toml": `
format          = "yaml"
feedback_output = "message"
log_level       = "debug"

[inputs]
name = "Bo"
`,
	})
	args := []string{
		"run", filepath.Join(dir, "main.hcl"),
		"--config", filepath.Join(dir, "tracegrid.toml"),
		"-i", "name=Ada",
		"-f", "Too formal.",
	}

	// --- Act ---
	cfg, shouldExit, err := cli.Parse(args, &strings.Builder{})
	require.NoError(t, err)
	require.False(t, shouldExit)

	out, logs := &app.SafeBuffer{}, &app.SafeBuffer{}
	a, err := app.NewApp(out, logs, cfg)
	require.NoError(t, err)
	require.NoError(t, a.Run(context.Background()))

	// --- Assert ---
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, map[string]string{"name": "Ada"}, cfg.Inputs)

	_, doc, found := strings.Cut(out.String(), "message = Hello, Ada\n\n")
	require.True(t, found, out.String())

	var decoded struct {
		Code     []string `yaml:"code"`
		Feedback string   `yaml:"feedback"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &decoded))
	assert.Equal(t, []string{"add0 = add(x=greeting0, y=name0)"}, decoded.Code)
	assert.Equal(t, "Too formal.", decoded.Feedback)
}

// Test for: a misspelled setting stops the CLI before anything runs.
func TestCLIBehavior_UnknownSetting(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{
		"main.hcl":       greetingProgram,
		"tracegrid.toml": "fromat = \"yaml\"\n",
	})

	_, _, err := cli.Parse([]string{
		"run", filepath.Join(dir, "main.hcl"),
		"-c", filepath.Join(dir, "tracegrid.toml"),
	}, &strings.Builder{})

	var exitErr *cli.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, `unknown setting "fromat"`)
}

// Test for: an unknown feedback output is reported after the outputs were printed.
func TestCLIBehavior_UnknownFeedbackOutput(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"main.hcl": greetingProgram})
	cfg, _, err := cli.Parse([]string{
		"run", filepath.Join(dir, "main.hcl"),
		"-i", "name=Ada",
		"-f", "Shorter.",
		"--feedback-output", "missing",
	}, &strings.Builder{})
	require.NoError(t, err)

	out, logs := &app.SafeBuffer{}, &app.SafeBuffer{}
	a, err := app.NewApp(out, logs, cfg)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `feedback output "missing" is not declared`)
	assert.Equal(t, "message = Hello, Ada\n", out.String())
}
