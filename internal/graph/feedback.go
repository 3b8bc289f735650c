package graph

import (
	"fmt"
	"slices"
)

// FeedbackEntry is the feedback one child sent to a node.
type FeedbackEntry struct {
	From   *Node
	Values []any
}

// Feedback returns the received feedback grouped by sender in arrival order.
func (n *Node) Feedback() []FeedbackEntry {
	out := make([]FeedbackEntry, len(n.feedback))
	for i, e := range n.feedback {
		out[i] = FeedbackEntry{From: e.From, Values: slices.Clone(e.Values)}
	}
	return out
}

// FeedbackFrom returns the feedback sent by child.
func (n *Node) FeedbackFrom(child *Node) []any {
	for _, e := range n.feedback {
		if e.From == child {
			return slices.Clone(e.Values)
		}
	}
	return nil
}

// ZeroFeedback discards all received feedback. The backwarded flag is kept.
func (n *Node) ZeroFeedback() {
	n.feedback = nil
}

// AddFeedback records feedback from child. Message nodes accept one
// feedback per child; other nodes accumulate.
func (n *Node) AddFeedback(child *Node, fb any) error {
	for i := range n.feedback {
		if n.feedback[i].From != child {
			continue
		}
		if n.IsMessage() {
			return fmt.Errorf("%w: %s already received feedback from %s", ErrDuplicateFeedback, n.Name(), child.Name())
		}
		n.feedback[i].Values = append(n.feedback[i].Values, fb)
		return nil
	}
	n.feedback = append(n.feedback, FeedbackEntry{From: child, Values: []any{fb}})
	return nil
}
