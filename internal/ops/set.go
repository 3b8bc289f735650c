package ops

import (
	"context"
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/operator"
)

// Set holds the builtin operators instantiated on one graph.
type Set struct {
	g   *graph.Graph
	ops map[string]*operator.Operator
}

// NewSet instantiates every builtin on g.
func NewSet(g *graph.Graph) (*Set, error) {
	s := &Set{g: g, ops: make(map[string]*operator.Operator, len(templates))}
	for name, t := range templates {
		op, err := t.New(g)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", name, err)
		}
		s.ops[name] = op
	}
	return s, nil
}

// Graph returns the graph the set is bound to.
func (s *Set) Graph() *graph.Graph { return s.g }

// Get returns the named builtin.
func (s *Set) Get(name string) (*operator.Operator, bool) {
	op, ok := s.ops[name]
	return op, ok
}

// Call invokes the named builtin.
func (s *Set) Call(ctx context.Context, name string, args ...any) (*graph.Node, error) {
	op, ok := s.ops[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin operator %q", name)
	}
	return op.Call(ctx, args...)
}

type setKey struct{}

// WithSet returns a context carrying s.
func WithSet(ctx context.Context, s *Set) context.Context {
	return context.WithValue(ctx, setKey{}, s)
}

// FromContext returns the set carried by ctx. Without one, a set is built
// for the graph carried by ctx.
func FromContext(ctx context.Context) (*Set, error) {
	if s, ok := ctx.Value(setKey{}).(*Set); ok && s != nil {
		return s, nil
	}
	g, err := graph.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return NewSet(g)
}
