package graph

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/metrics"
	"github.com/specialistvlad/tracegridgo/internal/nodeid"
)

// Graph is the registry of every node created during a run.
type Graph struct {
	id uuid.UUID

	// mutex protects the registry during concurrent access.
	mutex sync.RWMutex
	// nodes stores registered nodes keyed by their scoped base name; a
	// node's index is its position in the slice.
	nodes map[string][]*Node
	// order keeps registration order for deterministic enumeration.
	order  []*Node
	seq    uint64
	closed bool

	scopes  []string
	tracing bool
	used    []*usedSet

	metrics *metrics.Collector
}

// Option configures a Graph.
type Option func(*Graph)

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Graph) { g.metrics = c }
}

// New creates an empty, open graph with tracing enabled.
func New(opts ...Option) *Graph {
	g := &Graph{
		id:      uuid.New(),
		nodes:   make(map[string][]*Node),
		tracing: true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Open creates a graph and returns a context carrying it.
func Open(ctx context.Context, opts ...Option) (*Graph, context.Context) {
	g := New(opts...)
	ctx, logger := ctxlog.With(ctx, "graph", g.id.String())
	logger.Debug("Trace graph opened.")
	return g, WithGraph(ctx, g)
}

// Metrics returns the attached collector, which may be nil.
func (g *Graph) Metrics() *metrics.Collector {
	return g.metrics
}

// Seq returns the creation sequence of the most recently created node.
// Nodes created later have a larger Node.Seq.
func (g *Graph) Seq() uint64 {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.seq
}

// ID returns the graph's session identifier.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Close drops every node and rejects further registrations.
func (g *Graph) Close(ctx context.Context) {
	g.Clear()
	g.mutex.Lock()
	g.closed = true
	g.mutex.Unlock()
	ctxlog.FromContext(ctx).Debug("Trace graph closed.", "graph", g.id.String())
}

// Closed reports whether Close has been called.
func (g *Graph) Closed() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.closed
}

// Clear drops every registered node. Nodes already handed out keep working
// but can no longer be looked up by name.
func (g *Graph) Clear() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.nodes = make(map[string][]*Node)
	g.order = nil
}

// register assigns n a unique index under its scoped base name.
func (g *Graph) register(n *Node) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.closed {
		return ErrClosed
	}

	key := n.name.Key()
	n.name = n.name.WithIndex(len(g.nodes[key]))
	g.nodes[key] = append(g.nodes[key], n)
	g.order = append(g.order, n)
	g.metrics.NodeRegistered(n.kind.String())
	return nil
}

func (g *Graph) nextSeq() uint64 {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.seq++
	return g.seq
}

// Get looks a node up by its exact `scope/base:index` name.
func (g *Graph) Get(name string) (*Node, error) {
	parsed, err := nodeid.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedName, err)
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	candidates := g.nodes[parsed.Key()]
	if parsed.Index >= len(candidates) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return candidates[parsed.Index], nil
}

// Nodes returns every registered node in registration order.
func (g *Graph) Nodes() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Clone(g.order)
}

// Roots returns every registered node without parents.
func (g *Graph) Roots() []*Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var roots []*Node
	for _, n := range g.order {
		if len(n.parents) == 0 {
			roots = append(roots, n)
		}
	}
	return roots
}

// Len returns the number of registered nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// PushScope pushes a name scope; nodes created until pop is called are named
// `scope/base:index`. Scopes nest.
func (g *Graph) PushScope(name string) (pop func(), err error) {
	if err := nodeid.ValidateBase(name); err != nil {
		return nil, fmt.Errorf("invalid scope: %w", err)
	}
	g.mutex.Lock()
	g.scopes = append(g.scopes, name)
	depth := len(g.scopes)
	g.mutex.Unlock()

	return func() {
		g.mutex.Lock()
		defer g.mutex.Unlock()
		if len(g.scopes) >= depth {
			g.scopes = g.scopes[:depth-1]
		}
	}, nil
}

func (g *Graph) currentScope() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return slices.Clone(g.scopes)
}

// Tracing reports whether data reads and operator calls are being recorded.
func (g *Graph) Tracing() bool {
	return g.tracing
}

// Suspend turns tracing off until restore is called. Restore puts back the
// state observed at suspension, so nested suspensions unwind correctly.
func (g *Graph) Suspend() (restore func()) {
	prev := g.tracing
	g.tracing = false
	return func() { g.tracing = prev }
}
