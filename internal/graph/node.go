package graph

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/specialistvlad/tracegridgo/internal/nodeid"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// Kind distinguishes the node variants.
type Kind int

const (
	KindValue Kind = iota
	KindParameter
	KindMessage
	KindException
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindParameter:
		return "parameter"
	case KindMessage:
		return "message"
	case KindException:
		return "exception"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

const (
	DefaultValueDescription     = "[Node] This is a node in a computational graph."
	DefaultParameterDescription = "[ParameterNode] This is a ParameterNode in a computational graph."
)

var descriptionPattern = regexp.MustCompile(`^\[([^\[\]]+)\]`)

// ValidateDescription checks that desc starts with a bracketed operator name.
func ValidateDescription(desc string) error {
	if !descriptionPattern.MatchString(desc) {
		return fmt.Errorf("%w: %q", ErrInvalidDescription, desc)
	}
	return nil
}

// OperatorName extracts the bracketed prefix of a description.
func OperatorName(desc string) string {
	m := descriptionPattern.FindStringSubmatch(desc)
	if m == nil {
		return ""
	}
	return m[1]
}

// Node is a vertex of the trace graph.
type Node struct {
	graph *Graph
	seq   uint64
	kind  Kind
	name  nodeid.Name
	data  cty.Value
	level int

	parents  []*Node
	children []*Node

	trainable   bool
	constraint  string
	description string
	detached    bool
	backwarded  bool

	feedback []FeedbackEntry

	// message nodes only
	inputs []Input
	info   *Info

	paramDeps  nodeSet
	expandDeps nodeSet
}

// NodeOption configures a node at creation.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	name        string
	description string
	constraint  string
	trainable   *bool
}

// WithName sets the base name. Defaults to "node" or "param".
func WithName(name string) NodeOption {
	return func(c *nodeConfig) { c.name = name }
}

// WithDescription sets the `[operator] text` description.
func WithDescription(desc string) NodeOption {
	return func(c *nodeConfig) { c.description = desc }
}

// WithConstraint attaches a free-text constraint read by optimizers.
func WithConstraint(constraint string) NodeOption {
	return func(c *nodeConfig) { c.constraint = constraint }
}

// Trainable marks the node as a parameter the optimizer may update.
func Trainable() NodeOption {
	return func(c *nodeConfig) { t := true; c.trainable = &t }
}

// Frozen marks a parameter node as not trainable.
func Frozen() NodeOption {
	return func(c *nodeConfig) { t := false; c.trainable = &t }
}

// NewNode wraps v in a value node, or a parameter node when Trainable is
// given. A *Node argument is returned unchanged.
func (g *Graph) NewNode(v any, opts ...NodeOption) (*Node, error) {
	if n, ok := v.(*Node); ok {
		return n, nil
	}
	cfg := nodeConfig{name: "node", description: DefaultValueDescription}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.trainable != nil && *cfg.trainable {
		return g.newParameter(v, cfg)
	}
	return g.newLeaf(v, KindValue, cfg)
}

// NewParameter wraps v in a trainable parameter node unless Frozen is given.
func (g *Graph) NewParameter(v any, opts ...NodeOption) (*Node, error) {
	cfg := nodeConfig{name: "param", description: DefaultParameterDescription}
	for _, opt := range opts {
		opt(&cfg)
	}
	return g.newParameter(v, cfg)
}

func (g *Graph) newParameter(v any, cfg nodeConfig) (*Node, error) {
	if cfg.description == DefaultValueDescription {
		cfg.description = DefaultParameterDescription
	}
	n, err := g.newLeaf(v, KindParameter, cfg)
	if err != nil {
		return nil, err
	}
	n.paramDeps.add(n)
	return n, nil
}

func (g *Graph) newLeaf(v any, kind Kind, cfg nodeConfig) (*Node, error) {
	data, err := value.FromGo(v)
	if err != nil {
		return nil, err
	}
	if err := nodeid.ValidateBase(cfg.name); err != nil {
		return nil, err
	}
	if err := ValidateDescription(cfg.description); err != nil {
		return nil, err
	}
	n := &Node{
		graph:       g,
		seq:         g.nextSeq(),
		kind:        kind,
		name:        nodeid.New(cfg.name, g.currentScope()...),
		data:        data,
		trainable:   cfg.trainable == nil || *cfg.trainable,
		constraint:  cfg.constraint,
		description: cfg.description,
		paramDeps:   nodeSet{},
		expandDeps:  nodeSet{},
	}
	if kind != KindParameter {
		n.trainable = false
	}
	if err := g.register(n); err != nil {
		return nil, err
	}
	return n, nil
}

// Detached returns an unregistered value node. Detached nodes are never
// tracked, have no edges and cannot be backwarded.
func (g *Graph) Detached(v cty.Value) *Node {
	return &Node{
		graph:       g,
		seq:         g.nextSeq(),
		kind:        KindValue,
		name:        nodeid.New("detached"),
		data:        v,
		description: DefaultValueDescription,
		detached:    true,
		paramDeps:   nodeSet{},
		expandDeps:  nodeSet{},
	}
}

// Data returns the node's value and records the read when a tracked
// operator call is in progress.
func (n *Node) Data() cty.Value {
	if !n.detached && n.graph != nil {
		n.graph.recordUse(n)
	}
	return n.data
}

// Peek returns the node's value without recording the read.
func (n *Node) Peek() cty.Value {
	return n.data
}

// SetData overwrites the value of a parameter node.
func (n *Node) SetData(v any) error {
	if n.kind != KindParameter {
		return fmt.Errorf("%w: %s is a %s node", ErrNotParameter, n.Name(), n.kind)
	}
	data, err := value.FromGo(v)
	if err != nil {
		return err
	}
	n.data = data
	return nil
}

func (n *Node) Name() string { return n.name.String() }
func (n *Node) ID() nodeid.Name { return n.name }
func (n *Node) PyName() string { return n.name.PyName() }
func (n *Node) Kind() Kind { return n.kind }
func (n *Node) Seq() uint64 { return n.seq }
func (n *Node) Level() int { return n.level }
func (n *Node) Graph() *Graph { return n.graph }
func (n *Node) Trainable() bool { return n.trainable }
func (n *Node) Constraint() string { return n.constraint }
func (n *Node) Description() string {
	return n.description
}
func (n *Node) Backwarded() bool { return n.backwarded }
func (n *Node) Detached() bool { return n.detached }
func (n *Node) Info() *Info { return n.info }

// OperatorName returns the bracketed prefix of the node's description.
func (n *Node) OperatorName() string {
	return OperatorName(n.description)
}

func (n *Node) Parents() []*Node { return slices.Clone(n.parents) }
func (n *Node) Children() []*Node { return slices.Clone(n.children) }
func (n *Node) IsRoot() bool { return len(n.parents) == 0 }
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

func (n *Node) IsParameter() bool { return n.kind == KindParameter }

// IsMessage is true for message and exception nodes.
func (n *Node) IsMessage() bool {
	return n.kind == KindMessage || n.kind == KindException
}

func (n *Node) IsException() bool { return n.kind == KindException }

// Inputs returns the named inputs of a message node in declaration order.
func (n *Node) Inputs() []Input { return slices.Clone(n.inputs) }

// Input returns the named input, or nil.
func (n *Node) Input(name string) *Node {
	for _, in := range n.inputs {
		if in.Name == name {
			return in.Node
		}
	}
	return nil
}

func (n *Node) String() string {
	return fmt.Sprintf("Node: (%s, dtype=%s, data=%s)", n.Name(), n.data.Type().FriendlyName(), value.Format(n.data))
}

// addParent records p as a parent of n. The child edge on p is added by
// attach once n is registered.
func (n *Node) addParent(p *Node) error {
	if p == n || p.isDescendantOf(n) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, p.Name(), n.Name())
	}
	if slices.Contains(n.parents, p) {
		return nil
	}
	n.parents = append(n.parents, p)
	return nil
}

// attach adds n to the children of its parents.
func (n *Node) attach() {
	for _, p := range n.parents {
		p.children = append(p.children, n)
	}
}

// isDescendantOf reports whether n is reachable from a by child edges.
// New nodes have no children, so this only triggers on misuse.
func (n *Node) isDescendantOf(a *Node) bool {
	if len(a.children) == 0 {
		return false
	}
	seen := map[*Node]bool{}
	stack := slices.Clone(a.children)
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c == n {
			return true
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		stack = append(stack, c.children...)
	}
	return false
}
