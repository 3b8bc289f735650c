package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/tracegridgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// flags holds the raw command-line values before they are merged over the
// configuration file.
type flags struct {
	configPath      string
	library         string
	inputs          []string
	feedback        string
	feedbackOutput  string
	format          string
	loadParams      string
	saveParams      string
	logFormat       string
	logLevel        string
	healthcheckPort int
	httpTimeout     string
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		config *app.Config
		f      flags
	)

	root := &cobra.Command{
		Use:   "tracegrid",
		Short: "Trace programs and propagate feedback to their parameters",
		Long: `TraceGrid runs programs written in HCL while recording every operator call
in a trace graph. Feedback on an output is propagated backward through the
graph and summarized into the problem an optimizer would be given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	run := &cobra.Command{
		Use:   "run PROGRAM",
		Short: "Run a program and optionally propagate feedback",
		Long: `Run a program file, print its outputs and, when --feedback is given,
propagate the feedback backward and print the summarized problem.

Examples:
  tracegrid run greet.hcl --input name=Ada
  tracegrid run greet.hcl -i name=Ada --feedback "Too formal." --format yaml
  tracegrid run greet.hcl -i name=Ada --load-params params.bin --save-params params.bin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args[0], f)
			if err != nil {
				return err
			}
			config = cfg
			return nil
		},
	}

	fs := run.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to a TOML configuration file.")
	fs.StringVarP(&f.library, "library", "l", "", "Path to a directory or file of operator definitions.")
	fs.StringArrayVarP(&f.inputs, "input", "i", nil, "Program input as name=value; may be repeated.")
	fs.StringVarP(&f.feedback, "feedback", "f", "", "Feedback to propagate from the output.")
	fs.StringVar(&f.feedbackOutput, "feedback-output", "", "Output that receives the feedback (default: the first output).")
	fs.StringVar(&f.format, "format", app.FormatText, "Summary format. Options: 'text' or 'yaml'.")
	fs.StringVar(&f.loadParams, "load-params", "", "Load parameter values from this file before running.")
	fs.StringVar(&f.saveParams, "save-params", "", "Save parameter values to this file after running.")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	fs.StringVar(&f.httpTimeout, "http-timeout", "30s", "Timeout of the http_request operator.")

	root.AddCommand(run)
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if config == nil {
		// cobra printed the help text.
		slog.Debug("No command to run, exiting.")
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "program", config.ProgramPath)
	return config, false, nil
}

// buildConfig layers defaults, the configuration file and the flags that
// were set explicitly, in that order.
func buildConfig(cmd *cobra.Command, programPath string, f flags) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if f.configPath != "" {
		if err := app.LoadConfigFile(f.configPath, &cfg); err != nil {
			return nil, &ExitError{Code: 2, Message: err.Error()}
		}
		slog.Debug("Configuration file loaded.", "path", f.configPath)
	}

	changed := cmd.Flags().Changed
	if changed("library") {
		cfg.LibraryPath = f.library
	}
	if changed("feedback") {
		cfg.Feedback = f.feedback
	}
	if changed("feedback-output") {
		cfg.FeedbackOutput = f.feedbackOutput
	}
	if changed("format") {
		cfg.Format = strings.ToLower(f.format)
	}
	if changed("load-params") {
		cfg.LoadParams = f.loadParams
	}
	if changed("save-params") {
		cfg.SaveParams = f.saveParams
	}
	if changed("log-format") {
		cfg.LogFormat = strings.ToLower(f.logFormat)
	}
	if changed("log-level") {
		cfg.LogLevel = strings.ToLower(f.logLevel)
	}
	if changed("healthcheck-port") {
		cfg.HealthcheckPort = f.healthcheckPort
	}
	if changed("http-timeout") {
		cfg.HTTPTimeout = f.httpTimeout
	}

	if len(f.inputs) > 0 && cfg.Inputs == nil {
		cfg.Inputs = make(map[string]string, len(f.inputs))
	}
	for _, raw := range f.inputs {
		name, val, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return nil, &ExitError{Code: 2, Message: fmt.Sprintf("invalid input %q: expected name=value", raw)}
		}
		cfg.Inputs[name] = val
	}
	cfg.ProgramPath = programPath

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, nil
}
