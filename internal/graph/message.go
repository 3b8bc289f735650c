package graph

import (
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Input is a named parent of a message node.
type Input struct {
	Name string
	Node *Node
}

// Info records how a message node was produced.
type Info struct {
	FunName   string
	Doc       string
	Signature string
	Source    string
	// Line is the 1-based line of the call body within Source.
	Line int

	Args   []cty.Value
	Kwargs map[string]cty.Value

	// ErrorComment is the source annotated at the failing line.
	ErrorComment string

	// External lists nodes read by the body that were not declared inputs.
	External []*Node

	// Output is the node the body itself returned, when it returned one.
	Output *Node
}

// MessageSpec describes a message node to create.
type MessageSpec struct {
	Name        string
	Description string
	Inputs      []Input
	// External nodes become parents without a named input.
	External []*Node
	Info     *Info
	// Exception produces an exception node.
	Exception bool
}

// NewMessage registers a message node computed from spec.Inputs.
func (g *Graph) NewMessage(data cty.Value, spec MessageSpec) (*Node, error) {
	if err := ValidateDescription(spec.Description); err != nil {
		return nil, err
	}
	if err := nodeid.ValidateBase(spec.Name); err != nil {
		return nil, err
	}

	kind := KindMessage
	if spec.Exception {
		kind = KindException
	}
	n := &Node{
		graph:       g,
		seq:         g.nextSeq(),
		kind:        kind,
		name:        nodeid.New(spec.Name, g.currentScope()...),
		data:        data,
		description: spec.Description,
		info:        spec.Info,
		paramDeps:   nodeSet{},
		expandDeps:  nodeSet{},
	}

	for _, in := range spec.Inputs {
		if in.Node == nil {
			return nil, fmt.Errorf("input %q of %s is nil", in.Name, spec.Name)
		}
		if in.Node.detached {
			return nil, fmt.Errorf("input %q of %s: %w", in.Name, spec.Name, ErrDetached)
		}
		n.inputs = append(n.inputs, in)
		if err := n.link(in.Node); err != nil {
			return nil, err
		}
	}
	for _, ext := range spec.External {
		if ext.detached {
			continue
		}
		if err := n.link(ext); err != nil {
			return nil, err
		}
	}

	if len(n.hiddenDependencies()) > 0 {
		n.expandDeps.add(n)
	}

	if err := g.register(n); err != nil {
		return nil, err
	}
	n.attach()
	return n, nil
}

func (n *Node) link(p *Node) error {
	if err := n.addParent(p); err != nil {
		return err
	}
	n.level = max(n.level, p.level+1)
	n.paramDeps.union(p.paramDeps)
	n.expandDeps.union(p.expandDeps)
	return nil
}
