package graph

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// BackwardOptions configures a backward pass.
type BackwardOptions struct {
	// Propagator defaults to a GraphPropagator.
	Propagator Propagator
	// RetainGraph leaves visited nodes eligible for another pass.
	RetainGraph bool
}

// Backward sends feedback from n to every node it was computed from.
//
// Nodes are visited highest level first: a node's children all sit at a
// higher level, so they have sent their feedback by the time it is popped.
// A failed pass leaves feedback partially zeroed; use a fresh graph.
func (n *Node) Backward(ctx context.Context, feedback any, opts BackwardOptions) error {
	logger := loggerFor(ctx, n.graph)

	if n.detached {
		return fmt.Errorf("backward on %s: %w", n.Name(), ErrDetached)
	}
	if n.backwarded {
		return fmt.Errorf("backward on %s: %w", n.Name(), ErrAlreadyBackwarded)
	}
	p := opts.Propagator
	if p == nil {
		p = NewGraphPropagator()
	}

	oracle := &Node{
		graph:       n.graph,
		kind:        KindValue,
		name:        nodeid.New("FEEDBACK_ORACLE"),
		data:        cty.NullVal(cty.DynamicPseudoType),
		description: "[oracle] Source of user feedback.",
		detached:    true,
	}
	if err := n.AddFeedback(oracle, p.InitFeedback(n, feedback)); err != nil {
		return err
	}

	if n.IsRoot() {
		n.backwarded = !opts.RetainGraph
		n.graph.metrics.BackwardPass(0)
		logger.Debug("Feedback terminated at root.", "node", n.Name())
		return nil
	}

	queue := &levelQueue{}
	heap.Push(queue, n)
	queued := map[*Node]bool{n: true}
	visited := 0

	for queue.Len() > 0 {
		node := heap.Pop(queue).(*Node)

		if !node.IsMessage() || node.IsRoot() {
			return fmt.Errorf("%w: %s (%s)", ErrNotPropagatable, node.Name(), node.kind)
		}
		if node.backwarded {
			return fmt.Errorf("backward reached %s: %w", node.Name(), ErrAlreadyBackwarded)
		}

		propagated, err := p.Propagate(node)
		if err != nil {
			return fmt.Errorf("propagating feedback from %s: %w", node.Name(), err)
		}
		node.ZeroFeedback()

		for _, parent := range node.parents {
			fb, ok := propagated[parent]
			if !ok {
				return fmt.Errorf("%w: %s -> %s", ErrIncompletePropagation, node.Name(), parent.Name())
			}
			if err := parent.AddFeedback(node, fb); err != nil {
				return err
			}
			if !parent.IsRoot() && !queued[parent] {
				heap.Push(queue, parent)
				queued[parent] = true
			}
		}

		node.backwarded = !opts.RetainGraph
		visited++
	}

	n.graph.metrics.BackwardPass(visited)
	logger.Debug("Backward pass completed.", "node", n.Name(), "visited", visited)
	return nil
}

// levelQueue pops the highest level first; ties go to the older node.
type levelQueue []*Node

func (q levelQueue) Len() int { return len(q) }

func (q levelQueue) Less(i, j int) bool {
	if q[i].level != q[j].level {
		return q[i].level > q[j].level
	}
	return q[i].seq < q[j].seq
}

func (q levelQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *levelQueue) Push(x any) { *q = append(*q, x.(*Node)) }

func (q *levelQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}
