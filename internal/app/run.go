package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/module"
	"github.com/specialistvlad/tracegridgo/internal/optim"
	"github.com/specialistvlad/tracegridgo/internal/program"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// ErrProgramFailed is returned when a call of the program raised. The
// outputs are not printed, but feedback is still propagated from the
// exception node.
var ErrProgramFailed = errors.New("program failed")

// Run executes the main application logic: load the program, run it, print
// its outputs and, when feedback was given, propagate it and print the
// summarized problem.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.closeModules()

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(ctx, a.config.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	p, err := program.LoadFile(ctx, a.config.ProgramPath, a.registry)
	if err != nil {
		return err
	}

	g, ctx := graph.Open(ctx, graph.WithMetrics(a.metrics))
	defer g.Close(ctx)
	a.logger.Debug("Trace graph opened.", "graph_id", g.ID())

	inst, err := p.Instantiate(ctx, g)
	if err != nil {
		return fmt.Errorf("failed to instantiate program: %w", err)
	}
	if a.config.LoadParams != "" {
		if err := module.LoadFile(a.config.LoadParams, inst); err != nil {
			return fmt.Errorf("failed to load parameters: %w", err)
		}
		a.logger.Info("Parameters loaded.", "path", a.config.LoadParams)
	}

	inputs := make(map[string]cty.Value, len(a.config.Inputs))
	for name, raw := range a.config.Inputs {
		inputs[name] = program.ParseInputValue(raw)
	}

	a.logger.Info("🚀 Running program...", "path", p.Path, "calls", len(p.Calls))
	res, runErr := inst.Run(ctx, inputs)
	if runErr != nil && (res == nil || res.Failed == nil) {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	var target *graph.Node
	if res.Failed != nil {
		a.logger.Error("Program raised.", "call", res.FailedCall, "error", value.Format(res.Failed.Peek()))
		fmt.Fprintf(a.outW, "%s raised %s\n", res.FailedCall, value.Format(res.Failed.Peek()))
		target = res.Failed
	} else {
		a.logger.Info("🏁 Program finished.", "outputs", len(res.Outputs))
		if err := a.writeOutputs(res); err != nil {
			return err
		}
		if target, err = a.feedbackTarget(res); err != nil {
			return err
		}
	}

	if a.config.Feedback != "" && target != nil {
		if err := a.propagate(ctx, inst, target); err != nil {
			return err
		}
	}

	if a.config.SaveParams != "" {
		if err := module.SaveFile(a.config.SaveParams, inst); err != nil {
			return fmt.Errorf("failed to save parameters: %w", err)
		}
		a.logger.Info("Parameters saved.", "path", a.config.SaveParams)
	}

	a.logger.Debug("App.Run method finished.")
	if res.Failed != nil {
		return fmt.Errorf("%w: call %q: %w", ErrProgramFailed, res.FailedCall, runErr)
	}
	return nil
}

func (a *App) writeOutputs(res *program.Result) error {
	for _, out := range res.Outputs {
		if _, err := fmt.Fprintf(a.outW, "%s = %s\n", out.Name, value.Format(out.Node.Peek())); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) feedbackTarget(res *program.Result) (*graph.Node, error) {
	if len(res.Outputs) == 0 {
		return nil, nil
	}
	if a.config.FeedbackOutput == "" {
		return res.Outputs[0].Node, nil
	}
	i := slices.IndexFunc(res.Outputs, func(o program.OutputNode) bool { return o.Name == a.config.FeedbackOutput })
	if i < 0 {
		return nil, fmt.Errorf("feedback output %q is not declared", a.config.FeedbackOutput)
	}
	return res.Outputs[i].Node, nil
}

// propagate sends the configured feedback backward from target and writes
// the problem an optimizer would be given.
func (a *App) propagate(ctx context.Context, inst *program.Instance, target *graph.Node) error {
	opt, err := optim.New(inst.Parameters(), nil)
	if errors.Is(err, optim.ErrNoParameters) {
		a.logger.Warn("Feedback ignored: the program has no trainable parameters.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := opt.Backward(ctx, target, a.config.Feedback, false); err != nil {
		return fmt.Errorf("failed to propagate feedback: %w", err)
	}
	problem, err := opt.Summarize()
	if err != nil {
		return fmt.Errorf("failed to summarize feedback: %w", err)
	}
	if problem.Empty() {
		a.logger.Warn("Feedback did not reach any trainable parameter.", "node", target.Name())
		return nil
	}

	fmt.Fprintln(a.outW)
	if a.config.Format == FormatYAML {
		return problem.WriteYAML(a.outW)
	}
	return problem.Render(a.outW)
}
