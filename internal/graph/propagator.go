package graph

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Propagator decides what feedback a node sends to its parents.
type Propagator interface {
	// InitFeedback wraps the raw feedback given to Backward.
	InitFeedback(n *Node, feedback any) any
	// Propagate computes the feedback for every parent of child.
	Propagate(child *Node) (map[*Node]any, error)
	// Aggregate combines the feedback a node received from its children.
	Aggregate(entries []FeedbackEntry) (any, error)
}

// GraphPropagator sends each parent the trace graph of everything visited
// downstream of it. It is the default propagator.
type GraphPropagator struct{}

func NewGraphPropagator() *GraphPropagator {
	return &GraphPropagator{}
}

func (p *GraphPropagator) InitFeedback(n *Node, feedback any) any {
	return TraceGraph{Graph: []LevelNode{{Level: n.level, Node: n}}, UserFeedback: feedback}
}

func (p *GraphPropagator) Propagate(child *Node) (map[*Node]any, error) {
	agg, err := p.Aggregate(child.Feedback())
	if err != nil {
		return nil, err
	}

	parents := make([]LevelNode, 0, len(child.parents))
	for _, parent := range child.parents {
		parents = append(parents, LevelNode{Level: parent.level, Node: parent})
	}
	slices.SortStableFunc(parents, func(a, b LevelNode) int { return cmp.Compare(a.Level, b.Level) })

	fb, err := agg.(TraceGraph).Add(TraceGraph{Graph: parents})
	if err != nil {
		return nil, err
	}

	out := make(map[*Node]any, len(child.parents))
	for _, parent := range child.parents {
		out[parent] = fb
	}
	for _, hidden := range child.HiddenDependencies() {
		if err := hidden.AddFeedback(child, fb); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Aggregate sums the trace graphs received from every child.
func (p *GraphPropagator) Aggregate(entries []FeedbackEntry) (any, error) {
	var sum TraceGraph
	for _, e := range entries {
		for _, v := range e.Values {
			tg, ok := v.(TraceGraph)
			if !ok {
				return nil, fmt.Errorf("%w: %T from %s", ErrFeedbackType, v, e.From.Name())
			}
			var err error
			if sum, err = sum.Add(tg); err != nil {
				return nil, err
			}
		}
	}
	return sum, nil
}

// SumPropagator passes feedback through unchanged and combines feedback
// from several children by concatenating text or adding numbers.
type SumPropagator struct{}

func NewSumPropagator() *SumPropagator {
	return &SumPropagator{}
}

func (p *SumPropagator) InitFeedback(_ *Node, feedback any) any {
	return feedback
}

func (p *SumPropagator) Propagate(child *Node) (map[*Node]any, error) {
	fb, err := p.Aggregate(child.Feedback())
	if err != nil {
		return nil, err
	}
	out := make(map[*Node]any, len(child.parents))
	for _, parent := range child.parents {
		out[parent] = fb
	}
	return out, nil
}

func (p *SumPropagator) Aggregate(entries []FeedbackEntry) (any, error) {
	var values []any
	for _, e := range entries {
		values = append(values, e.Values...)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no feedback to aggregate", ErrFeedbackType)
	}

	switch first := values[0].(type) {
	case string:
		var b strings.Builder
		for _, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixed %T and %T", ErrFeedbackType, first, v)
			}
			b.WriteString(s)
		}
		return b.String(), nil
	case float64:
		var total float64
		for _, v := range values {
			f, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: mixed %T and %T", ErrFeedbackType, first, v)
			}
			total += f
		}
		return total, nil
	case int:
		total := 0
		for _, v := range values {
			i, ok := v.(int)
			if !ok {
				return nil, fmt.Errorf("%w: mixed %T and %T", ErrFeedbackType, first, v)
			}
			total += i
		}
		return total, nil
	case cty.Value:
		if len(values) == 1 {
			return first, nil
		}
		return nil, fmt.Errorf("%w: cannot sum %d cty values", ErrFeedbackType, len(values))
	default:
		if len(values) == 1 {
			return first, nil
		}
		return nil, fmt.Errorf("%w: %T", ErrFeedbackType, first)
	}
}
