// Package testutil provides the harness used by the integration tests: it
// lays out program files in a temporary directory, runs the application
// on them and captures what it printed.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/tracegridgo/internal/app"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/stretchr/testify/require"
)

// ProgramFile is the file the harness runs.
const ProgramFile = "main.hcl"

// LibraryDir is loaded as the operator library when a test provides files
// below it.
const LibraryDir = "lib"

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
	Dir       string
}

// RunIntegrationTest provides a standardized harness for running integration tests
// using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, configure, modules...)
}

// RunIntegrationTestWithContext provides a standardized harness for running integration
// tests with a specific context provided by the caller. configure may adjust
// the configuration before the app is created; it may be nil.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, configure func(*app.Config), modules ...registry.Module) *HarnessResult {
	t.Helper()

	// 1. Create a temporary root directory and write every file into it.
	//    The test provides relative paths (e.g., "lib/ops.hcl"), which
	//    naturally creates the subdirectory structure.
	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}

	// 2. Configure the app with the laid out files.
	cfg := app.DefaultConfig()
	cfg.ProgramPath = filepath.Join(tmpDir, ProgramFile)
	cfg.LogLevel = "debug"
	if _, err := os.Stat(filepath.Join(tmpDir, LibraryDir)); err == nil {
		cfg.LibraryPath = filepath.Join(tmpDir, LibraryDir)
	}
	if configure != nil {
		configure(&cfg)
	}

	outBuffer := &app.SafeBuffer{}
	logBuffer := &app.SafeBuffer{}
	result := &HarnessResult{Dir: tmpDir}

	// 3. Create the app, turning a startup panic into an error.
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		result.App, result.Err = app.NewApp(outBuffer, logBuffer, &cfg, modules...)
	}()

	// 4. Run it.
	if result.Err == nil {
		result.Err = result.App.Run(ctx)
	}

	if os.Getenv("TRACEGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
	}

	result.Output = outBuffer.String()
	result.LogOutput = logBuffer.String()
	return result
}
