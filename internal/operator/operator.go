package operator

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/metrics"
	"github.com/specialistvlad/tracegridgo/internal/script"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Func is an operator body.
type Func func(ctx context.Context, in *Args) (any, error)

// Operator is a traced function bound to one graph.
type Operator struct {
	g           *graph.Graph
	desc        Descriptor
	opts        Options
	fn          Func
	description string
	nodeName    string

	// bound arguments are prepended to every call.
	bound []any

	// code holds the script of a trainable operator.
	code     *graph.Node
	compiled *script.Program
}

// New creates an operator on g. Descriptor and description problems are
// reported here, before any call.
func New(g *graph.Graph, desc Descriptor, fn Func, opts Options) (*Operator, error) {
	t, err := NewTemplate(desc, fn, opts)
	if err != nil {
		return nil, err
	}
	return t.New(g)
}

// Name returns the operator name.
func (o *Operator) Name() string { return o.desc.Name }

// Descriptor returns the operator descriptor.
func (o *Operator) Descriptor() Descriptor { return o.desc }

// Description returns the description given to output nodes.
func (o *Operator) Description() string { return o.description }

// Options returns the options the operator was created with.
func (o *Operator) Options() Options { return o.opts }

// Code returns the parameter holding the script of a trainable operator.
func (o *Operator) Code() *graph.Node { return o.code }

// Parameters returns the trainable parameters owned by the operator.
func (o *Operator) Parameters() []*graph.Node {
	if o.code == nil {
		return nil
	}
	return []*graph.Node{o.code}
}

// Call invokes the operator and returns its single output node.
func (o *Operator) Call(ctx context.Context, args ...any) (*graph.Node, error) {
	if o.opts.Outputs > 1 {
		return nil, fmt.Errorf("%w: %s returns %d outputs, use CallN", ErrBind, o.desc.Name, o.opts.Outputs)
	}
	out, err := o.call(ctx, args)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// CallN invokes an operator declared with several outputs.
func (o *Operator) CallN(ctx context.Context, args ...any) ([]*graph.Node, error) {
	return o.call(ctx, args)
}

func (o *Operator) call(ctx context.Context, args []any) ([]*graph.Node, error) {
	args = append(append([]any(nil), o.bound...), args...)

	if !o.g.Tracing() || o.intercepted(ctx) {
		return o.callUntraced(ctx, args)
	}

	logger := ctxlog.FromContext(ctx).With("operator", o.desc.Name)
	collector := o.g.Metrics()

	b, err := bind(o.desc, args, registeredWrap(o.g))
	if err != nil {
		collector.OperatorCall(o.desc.Name, metrics.OutcomeBindError)
		return nil, err
	}
	b.args.traceable = o.opts.TraceableCode
	inputs := b.args.inputs
	if o.code != nil {
		inputs = append(inputs, graph.Input{Name: CodeInput, Node: o.code})
	}

	mark := o.g.Seq()
	tracker := o.g.Track()
	result, source, err := o.execute(withActive(ctx, o), b.args)
	used := tracker.Stop()

	if err != nil {
		var missing *TraceMissingInputsError
		if errors.As(err, &missing) {
			collector.OperatorCall(o.desc.Name, metrics.OutcomeMissingInputs)
			return nil, err
		}
		collector.OperatorCall(o.desc.Name, metrics.OutcomeExecutionError)
		if !o.opts.CatchExecutionError {
			return nil, err
		}
		excInputs := inputs
		var compileErr *compileError
		if errors.As(err, &compileErr) {
			excInputs = []graph.Input{{Name: CodeInput, Node: o.code}}
		}
		exc, excErr := o.exceptionNode(err, excInputs, b, source)
		if excErr != nil {
			return nil, errors.Join(err, excErr)
		}
		logger.Debug("Operator raised.", "node", exc.Name(), "error", err)
		return nil, &ExecutionError{Node: exc, Err: err}
	}

	external := externalDependencies(used, inputs, mark)
	if len(external) > 0 && !o.opts.AllowExternalDependencies {
		collector.OperatorCall(o.desc.Name, metrics.OutcomeMissingInputs)
		return nil, &TraceMissingInputsError{Operator: o.desc.Name, Missing: external}
	}

	results, err := o.splitResults(result)
	if err != nil {
		collector.OperatorCall(o.desc.Name, metrics.OutcomeExecutionError)
		return nil, err
	}

	outs := make([]*graph.Node, 0, len(results))
	for _, r := range results {
		data, inner, err := o.resultData(r)
		if err != nil {
			collector.OperatorCall(o.desc.Name, metrics.OutcomeExecutionError)
			return nil, err
		}
		info := o.info(b, source)
		info.External = external
		info.Output = inner
		out, err := o.g.NewMessage(data, graph.MessageSpec{
			Name:        o.nodeName,
			Description: o.description,
			Inputs:      inputs,
			External:    external,
			Info:        info,
		})
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}

	collector.OperatorCall(o.desc.Name, metrics.OutcomeOK)
	logger.Debug("Operator traced.", "node", outs[0].Name(), "level", outs[0].Level())
	return outs, nil
}

// callUntraced runs the body without creating nodes, for suspended tracing
// and intercepted recursion. Results are detached nodes; errors are raw.
func (o *Operator) callUntraced(ctx context.Context, args []any) ([]*graph.Node, error) {
	b, err := bind(o.desc, args, detachedWrap(o.g))
	if err != nil {
		return nil, err
	}
	b.args.traceable = o.opts.TraceableCode

	result, _, err := o.execute(withActive(ctx, o), b.args)
	if err != nil {
		return nil, err
	}
	results, err := o.splitResults(result)
	if err != nil {
		return nil, err
	}
	outs := make([]*graph.Node, 0, len(results))
	for _, r := range results {
		data, _, err := o.resultData(r)
		if err != nil {
			return nil, err
		}
		outs = append(outs, o.g.Detached(data))
	}
	return outs, nil
}

// execute runs the Go body or the current script. source is the text the
// call actually ran, used for error annotation.
func (o *Operator) execute(ctx context.Context, args *Args) (any, string, error) {
	if o.code != nil {
		return o.runScript(args)
	}
	res, err := o.fn(ctx, args)
	return res, o.desc.Source, err
}

func (o *Operator) splitResults(result any) ([]any, error) {
	if o.opts.Outputs < 2 {
		return []any{result}, nil
	}
	var items []any
	switch r := result.(type) {
	case []any:
		items = r
	case []*graph.Node:
		for _, n := range r {
			items = append(items, n)
		}
	case []cty.Value:
		for _, v := range r {
			items = append(items, v)
		}
	case cty.Value:
		if r.IsKnown() && !r.IsNull() && (r.Type().IsTupleType() || r.Type().IsListType()) {
			for it := r.ElementIterator(); it.Next(); {
				_, v := it.Element()
				items = append(items, v)
			}
		}
	}
	if len(items) != o.opts.Outputs {
		return nil, Errorf("ValueError", "operator %s must return %d outputs, got %T", o.desc.Name, o.opts.Outputs, result)
	}
	return items, nil
}

// resultData converts one body result into node data. A returned node is
// kept as the inner output when the operator traces its code.
func (o *Operator) resultData(r any) (cty.Value, *graph.Node, error) {
	if n, ok := r.(*graph.Node); ok {
		if o.opts.TraceableCode && !n.Detached() {
			return n.Peek(), n, nil
		}
		return n.Peek(), nil, nil
	}
	v, err := value.FromGo(r)
	if err != nil {
		return cty.NilVal, nil, fmt.Errorf("operator %s result: %w", o.desc.Name, err)
	}
	return v, nil, nil
}

func (o *Operator) info(b *binding, source string) *graph.Info {
	info := &graph.Info{
		FunName:   o.desc.Name,
		Doc:       o.desc.Doc,
		Signature: o.desc.Signature(),
		Source:    source,
		Kwargs:    map[string]cty.Value{},
	}
	if source != "" {
		info.Line = 1
	}
	for _, n := range b.positions {
		info.Args = append(info.Args, n.Peek())
	}
	for k, n := range b.keywords {
		info.Kwargs[k] = n.Peek()
	}
	return info
}

func (o *Operator) exceptionNode(err error, inputs []graph.Input, b *binding, source string) (*graph.Node, error) {
	typ, msg := describe(err)
	info := o.info(b, source)
	info.ErrorComment = fmt.Sprintf("(%s) %s", typ, msg)
	if line := sourceLine(err); line > 0 && source != "" {
		info.Line = line
		info.ErrorComment = script.Annotate(source, line, typ, msg)
	}
	return o.g.NewMessage(cty.StringVal(fmt.Sprintf("(%s) %s", typ, msg)), graph.MessageSpec{
		Name:        "exception_" + o.nodeName,
		Description: fmt.Sprintf("[exception] The operator %s raises an exception.", o.nodeName),
		Inputs:      inputs,
		Info:        info,
		Exception:   true,
	})
}

// externalDependencies returns used nodes that are not inputs and were
// created before the call started.
func externalDependencies(used []*graph.Node, inputs []graph.Input, mark uint64) []*graph.Node {
	declared := make(map[*graph.Node]bool, len(inputs))
	for _, in := range inputs {
		declared[in.Node] = true
	}
	var external []*graph.Node
	for _, n := range used {
		if declared[n] || n.Seq() > mark {
			continue
		}
		external = append(external, n)
	}
	return external
}
