package optim

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/summary"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// ErrNoParameters is returned when an optimizer has nothing to train.
var ErrNoParameters = errors.New("no trainable parameters")

// Proposer suggests new values for the variables of a problem. Keys are
// variable names as rendered in the problem (Node.PyName).
type Proposer interface {
	Propose(ctx context.Context, problem *summary.FunctionFeedback) (map[string]cty.Value, error)
}

// ProposerFunc adapts a function to Proposer.
type ProposerFunc func(ctx context.Context, problem *summary.FunctionFeedback) (map[string]cty.Value, error)

func (f ProposerFunc) Propose(ctx context.Context, problem *summary.FunctionFeedback) (map[string]cty.Value, error) {
	return f(ctx, problem)
}

// Projection maps a proposed value onto the feasible set of a parameter.
type Projection interface {
	Project(n *graph.Node, proposed cty.Value) (cty.Value, error)
}

// ProjectionFunc adapts a function to Projection.
type ProjectionFunc func(n *graph.Node, proposed cty.Value) (cty.Value, error)

func (f ProjectionFunc) Project(n *graph.Node, proposed cty.Value) (cty.Value, error) {
	return f(n, proposed)
}

// Optimizer updates a fixed set of parameters from feedback.
type Optimizer struct {
	params      []*graph.Node
	propagator  graph.Propagator
	proposer    Proposer
	projections []Projection
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithPropagator sets the propagator used for backward passes and
// summaries. Defaults to a GraphPropagator.
func WithPropagator(p graph.Propagator) Option {
	return func(o *Optimizer) { o.propagator = p }
}

// WithProjections adds projections, applied in order on every update.
func WithProjections(ps ...Projection) Option {
	return func(o *Optimizer) { o.projections = append(o.projections, ps...) }
}

// New creates an optimizer over the trainable nodes of params.
func New(params []*graph.Node, proposer Proposer, opts ...Option) (*Optimizer, error) {
	o := &Optimizer{proposer: proposer}
	for _, p := range params {
		if p.IsParameter() && p.Trainable() {
			o.params = append(o.params, p)
		}
	}
	if len(o.params) == 0 {
		return nil, ErrNoParameters
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.propagator == nil {
		o.propagator = graph.NewGraphPropagator()
	}
	return o, nil
}

// Parameters returns the trained parameters.
func (o *Optimizer) Parameters() []*graph.Node {
	return append([]*graph.Node(nil), o.params...)
}

// Propagator returns the propagator in use.
func (o *Optimizer) Propagator() graph.Propagator { return o.propagator }

// ZeroFeedback clears the feedback of every parameter.
func (o *Optimizer) ZeroFeedback() {
	for _, p := range o.params {
		p.ZeroFeedback()
	}
}

// Backward propagates feedback from n with the optimizer's propagator.
func (o *Optimizer) Backward(ctx context.Context, n *graph.Node, feedback any, retainGraph bool) error {
	return n.Backward(ctx, feedback, graph.BackwardOptions{Propagator: o.propagator, RetainGraph: retainGraph})
}

// Summarize builds the problem from the parameters' current feedback.
func (o *Optimizer) Summarize() (*summary.FunctionFeedback, error) {
	return summary.Summarize(o.params, o.propagator)
}

// Update writes new values. Nodes that are not trainable parameters of
// this optimizer are skipped. All projection failures are reported
// together; the remaining updates are still applied.
func (o *Optimizer) Update(ctx context.Context, updates map[*graph.Node]cty.Value) error {
	logger := ctxlog.FromContext(ctx)
	owned := make(map[*graph.Node]bool, len(o.params))
	for _, p := range o.params {
		owned[p] = true
	}

	var result *multierror.Error
	for _, p := range o.params {
		proposed, ok := updates[p]
		if !ok {
			continue
		}
		projected, err := o.project(p, proposed)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("parameter %s: %w", p.Name(), err))
			continue
		}
		if err := p.SetData(projected); err != nil {
			result = multierror.Append(result, fmt.Errorf("parameter %s: %w", p.Name(), err))
			continue
		}
		logger.Debug("Parameter updated.", "node", p.Name(), "value", value.ForLogs(projected))
	}
	for n := range updates {
		if !owned[n] {
			logger.Debug("Skipping update of a node the optimizer does not train.", "node", n.Name())
		}
	}
	return result.ErrorOrNil()
}

func (o *Optimizer) project(n *graph.Node, v cty.Value) (cty.Value, error) {
	for _, p := range o.projections {
		var err error
		if v, err = p.Project(n, v); err != nil {
			return cty.NilVal, err
		}
	}
	return v, nil
}

// Step summarizes the feedback, asks the proposer for new values and
// applies them. It returns the updates that were requested for known
// variables. Without feedback nothing is proposed.
func (o *Optimizer) Step(ctx context.Context) (map[*graph.Node]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	if o.proposer == nil {
		return nil, errors.New("optimizer has no proposer")
	}

	problem, err := o.Summarize()
	if err != nil {
		return nil, err
	}
	if problem.Empty() {
		logger.Debug("No feedback reached the parameters; skipping step.")
		return nil, nil
	}

	proposal, err := o.proposer.Propose(ctx, problem)
	if err != nil {
		return nil, fmt.Errorf("proposing update: %w", err)
	}

	byName := make(map[string]*graph.Node, len(o.params))
	for _, p := range o.params {
		byName[p.PyName()] = p
	}
	updates := make(map[*graph.Node]cty.Value, len(proposal))
	for name, v := range proposal {
		p, ok := byName[name]
		if !ok {
			logger.Warn("Proposal names an unknown variable.", "variable", name)
			continue
		}
		updates[p] = v
	}
	if err := o.Update(ctx, updates); err != nil {
		return updates, err
	}
	logger.Info("Optimizer step applied.", "updated", len(updates))
	return updates, nil
}
