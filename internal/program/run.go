package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/module"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/zclconf/go-cty/cty"
)

// ModuleName is the name of the self node of every program instance.
const ModuleName = "program"

// Instance is a program bound to a graph. Its parameters and operators
// belong to the embedded module, so they can be saved, loaded and handed
// to an optimizer.
type Instance struct {
	module.Base

	program *Program
	params  map[string]*graph.Node
	ops     map[string]*operator.Operator
}

// Result holds the nodes produced by one run.
type Result struct {
	Inputs  map[string]*graph.Node
	Calls   map[string]*graph.Node
	Outputs []OutputNode

	// Failed is the exception node of the call that raised, if any.
	Failed     *graph.Node
	FailedCall string
}

// OutputNode is a declared output and the node it resolved to.
type OutputNode struct {
	Name        string
	Description string
	Node        *graph.Node
}

// Output returns the node of the named output, or nil.
func (r *Result) Output(name string) *graph.Node {
	for _, o := range r.Outputs {
		if o.Name == name {
			return o.Node
		}
	}
	return nil
}

// Instantiate creates the parameter nodes and operator instances of p on g.
func (p *Program) Instantiate(ctx context.Context, g *graph.Graph) (*Instance, error) {
	inst := &Instance{
		program: p,
		params:  make(map[string]*graph.Node, len(p.Params)),
		ops:     map[string]*operator.Operator{},
	}
	if err := inst.Init(g, ModuleName); err != nil {
		return nil, err
	}

	for _, param := range p.Params {
		opts := []graph.NodeOption{
			graph.WithDescription(param.Description),
			graph.WithConstraint(param.Constraint),
		}
		if !param.Trainable {
			opts = append(opts, graph.Frozen())
		}
		n, err := inst.Param(param.Name, param.Value, opts...)
		if err != nil {
			return nil, err
		}
		inst.params[param.Name] = n
	}

	for _, call := range p.Calls {
		if _, ok := inst.ops[call.Operator]; ok {
			continue
		}
		t, ok := p.Template(call.Operator)
		if !ok {
			return nil, fmt.Errorf("call %q: unknown operator %q", call.Name, call.Operator)
		}
		op, err := inst.Operator(call.Operator, t)
		if err != nil {
			return nil, err
		}
		inst.ops[call.Operator] = op
	}

	ctxlog.FromContext(ctx).Debug("Instantiated program",
		"path", p.Path, "params", len(inst.params), "operators", len(inst.ops))
	return inst, nil
}

// Program returns the declarations the instance was created from.
func (inst *Instance) Program() *Program { return inst.program }

// ParamNode returns the node of the named parameter, or nil.
func (inst *Instance) ParamNode(name string) *graph.Node { return inst.params[name] }

// Run creates the input nodes and performs every call. When a call raises,
// the partial result is returned together with the error; Failed holds the
// exception node so that feedback can still be given on it.
func (inst *Instance) Run(ctx context.Context, inputs map[string]cty.Value) (*Result, error) {
	ctx, logger := ctxlog.With(ctx, "program", inst.program.Path)
	g := inst.Graph()

	values, err := inst.program.ResolveInputs(inputs)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Inputs: make(map[string]*graph.Node, len(values)),
		Calls:  make(map[string]*graph.Node, len(inst.program.Calls)),
	}
	for _, input := range inst.program.Inputs {
		n, err := g.NewNode(values[input.Name],
			graph.WithName(input.Name),
			graph.WithDescription(input.Description))
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", input.Name, err)
		}
		res.Inputs[input.Name] = n
	}

	for _, call := range inst.program.Calls {
		args := make([]any, 0, len(call.Args)+1)
		for _, a := range call.Args {
			args = append(args, inst.resolve(res, a))
		}
		if len(call.Kwargs) > 0 {
			kwargs := make(operator.Kwargs, len(call.Kwargs))
			for _, a := range call.Kwargs {
				kwargs[a.Name] = inst.resolve(res, a)
			}
			args = append(args, kwargs)
		}

		callCtx, callLogger := ctxlog.With(ctx, "call", call.Name)
		callLogger.Debug("Performing call", "operator", call.Operator)
		out, err := inst.ops[call.Operator].Call(callCtx, args...)
		if err != nil {
			var execErr *operator.ExecutionError
			if errors.As(err, &execErr) {
				res.Failed = execErr.Node
				res.FailedCall = call.Name
			}
			return res, fmt.Errorf("call %q: %w", call.Name, err)
		}
		res.Calls[call.Name] = out
	}

	for _, output := range inst.program.Outputs {
		res.Outputs = append(res.Outputs, OutputNode{
			Name:        output.Name,
			Description: output.Description,
			Node:        inst.lookup(res, output.Ref),
		})
	}
	logger.Info("Program run finished", "calls", len(res.Calls), "outputs", len(res.Outputs))
	return res, nil
}

func (inst *Instance) resolve(res *Result, a Arg) any {
	if a.Ref == nil {
		return a.Const
	}
	return inst.lookup(res, *a.Ref)
}

func (inst *Instance) lookup(res *Result, ref Ref) *graph.Node {
	switch ref.Kind {
	case RefParam:
		return inst.params[ref.Name]
	case RefInput:
		return res.Inputs[ref.Name]
	case RefCall:
		return res.Calls[ref.Name]
	}
	return nil
}
