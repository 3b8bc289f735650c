package graph

import (
	"fmt"
	"reflect"
	"slices"
)

// LevelNode pairs a node with the level it had when visited.
type LevelNode struct {
	Level int
	Node  *Node
}

// TraceGraph is the feedback payload of GraphPropagator: the subgraph
// visited so far, ordered by level, plus the user's feedback.
type TraceGraph struct {
	Graph        []LevelNode
	UserFeedback any
}

// Add merges two trace graphs. Nodes already present in t are kept, nodes
// only in other are merged in level order; when levels tie, entries of t
// come first. Both sides may carry user feedback only if it is equal.
func (t TraceGraph) Add(other TraceGraph) (TraceGraph, error) {
	var fb any
	switch {
	case t.UserFeedback == nil:
		fb = other.UserFeedback
	case other.UserFeedback == nil:
		fb = t.UserFeedback
	case reflect.DeepEqual(t.UserFeedback, other.UserFeedback):
		fb = t.UserFeedback
	default:
		return TraceGraph{}, fmt.Errorf("%w: %v != %v", ErrFeedbackConflict, t.UserFeedback, other.UserFeedback)
	}

	present := make(map[*Node]bool, len(t.Graph))
	for _, e := range t.Graph {
		present[e.Node] = true
	}
	var complement []LevelNode
	for _, e := range other.Graph {
		if !present[e.Node] {
			present[e.Node] = true
			complement = append(complement, e)
		}
	}

	merged := make([]LevelNode, 0, len(t.Graph)+len(complement))
	i, j := 0, 0
	for i < len(t.Graph) && j < len(complement) {
		if complement[j].Level < t.Graph[i].Level {
			merged = append(merged, complement[j])
			j++
		} else {
			merged = append(merged, t.Graph[i])
			i++
		}
	}
	merged = append(merged, t.Graph[i:]...)
	merged = append(merged, complement[j:]...)

	return TraceGraph{Graph: merged, UserFeedback: fb}, nil
}

// Nodes returns the visited nodes in level order.
func (t TraceGraph) Nodes() []*Node {
	out := make([]*Node, len(t.Graph))
	for i, e := range t.Graph {
		out[i] = e.Node
	}
	return out
}

// Contains reports whether n was visited.
func (t TraceGraph) Contains(n *Node) bool {
	return slices.ContainsFunc(t.Graph, func(e LevelNode) bool { return e.Node == n })
}

// Depth is the level of the deepest visited node, or -1 when empty.
func (t TraceGraph) Depth() int {
	if len(t.Graph) == 0 {
		return -1
	}
	return t.Graph[len(t.Graph)-1].Level
}

// Empty reports whether the graph has no nodes and no user feedback.
func (t TraceGraph) Empty() bool {
	return len(t.Graph) == 0 && t.UserFeedback == nil
}
