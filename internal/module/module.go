package module

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/nodeid"
	"github.com/specialistvlad/tracegridgo/internal/operator"
)

// Module is anything that owns parameters.
type Module interface {
	Parameters() []*graph.Node
	ParametersDict() map[string]*graph.Node
}

type namedParam struct {
	name string
	node *graph.Node
}

type namedMethod struct {
	name string
	op   *operator.Operator
}

type namedSub struct {
	name string
	mod  Module
}

// Base is embedded by model types.
type Base struct {
	g       *graph.Graph
	name    string
	self    *graph.Node
	params  []namedParam
	methods []namedMethod
	subs    []namedSub
}

// Init binds the model to g. name labels the model's self node.
func (b *Base) Init(g *graph.Graph, name string) error {
	if err := nodeid.ValidateBase(name); err != nil {
		return fmt.Errorf("module name: %w", err)
	}
	b.g = g
	b.name = name
	return nil
}

// Graph returns the graph the model lives on.
func (b *Base) Graph() *graph.Graph { return b.g }

// Name returns the model name.
func (b *Base) Name() string { return b.name }

// Self returns the node standing for the model instance, created on first
// use.
func (b *Base) Self() (*graph.Node, error) {
	if b.self != nil {
		return b.self, nil
	}
	if b.g == nil {
		return nil, fmt.Errorf("module %q: %w", b.name, graph.ErrNoGraph)
	}
	self, err := b.g.NewNode(b.name, graph.WithName("self"),
		graph.WithDescription(fmt.Sprintf("[Node] The instance of %s.", b.name)))
	if err != nil {
		return nil, err
	}
	b.self = self
	return self, nil
}

// Param declares a trainable parameter.
func (b *Base) Param(name string, v any, opts ...graph.NodeOption) (*graph.Node, error) {
	if err := b.claim(name); err != nil {
		return nil, err
	}
	opts = append([]graph.NodeOption{graph.WithName(name)}, opts...)
	n, err := b.g.NewParameter(v, opts...)
	if err != nil {
		return nil, fmt.Errorf("module %q parameter %q: %w", b.name, name, err)
	}
	b.params = append(b.params, namedParam{name: name, node: n})
	return n, nil
}

// Method binds t to this instance. The template's first parameter receives
// the self node.
func (b *Base) Method(name string, t *operator.Template) (*operator.Operator, error) {
	if err := b.claim(name); err != nil {
		return nil, err
	}
	self, err := b.Self()
	if err != nil {
		return nil, err
	}
	op, err := t.Bind(b.g, self)
	if err != nil {
		return nil, fmt.Errorf("module %q method %q: %w", b.name, name, err)
	}
	b.methods = append(b.methods, namedMethod{name: name, op: op})
	return op, nil
}

// Operator instantiates t for this model without binding a receiver.
func (b *Base) Operator(name string, t *operator.Template) (*operator.Operator, error) {
	if err := b.claim(name); err != nil {
		return nil, err
	}
	op, err := t.New(b.g)
	if err != nil {
		return nil, fmt.Errorf("module %q operator %q: %w", b.name, name, err)
	}
	b.methods = append(b.methods, namedMethod{name: name, op: op})
	return op, nil
}

// Sub nests m under name.
func (b *Base) Sub(name string, m Module) error {
	if err := b.claim(name); err != nil {
		return err
	}
	b.subs = append(b.subs, namedSub{name: name, mod: m})
	return nil
}

func (b *Base) claim(name string) error {
	if b.g == nil {
		return fmt.Errorf("module %q: %w", b.name, graph.ErrNoGraph)
	}
	if err := nodeid.ValidateBase(name); err != nil {
		return fmt.Errorf("module %q member: %w", b.name, err)
	}
	taken := slices.ContainsFunc(b.params, func(p namedParam) bool { return p.name == name }) ||
		slices.ContainsFunc(b.methods, func(m namedMethod) bool { return m.name == name }) ||
		slices.ContainsFunc(b.subs, func(s namedSub) bool { return s.name == name })
	if taken {
		return fmt.Errorf("module %q: member %q already declared", b.name, name)
	}
	return nil
}

// Parameters returns the trainable parameters of the model, its methods
// and its sub-models, in declaration order.
func (b *Base) Parameters() []*graph.Node {
	var out []*graph.Node
	for _, p := range b.params {
		if p.node.Trainable() {
			out = append(out, p.node)
		}
	}
	for _, m := range b.methods {
		out = append(out, m.op.Parameters()...)
	}
	for _, s := range b.subs {
		out = append(out, s.mod.Parameters()...)
	}
	return out
}

// ParametersDict returns every parameter keyed by its dotted path. Frozen
// parameters are included so they are persisted.
func (b *Base) ParametersDict() map[string]*graph.Node {
	out := make(map[string]*graph.Node)
	for _, p := range b.params {
		out[p.name] = p.node
	}
	for _, m := range b.methods {
		for _, n := range m.op.Parameters() {
			out[m.name+"."+n.ID().Base] = n
		}
	}
	for _, s := range b.subs {
		for k, n := range s.mod.ParametersDict() {
			out[s.name+"."+k] = n
		}
	}
	return out
}
