package summary

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/zclconf/go-cty/cty"
)

// Call is one line of the pseudo-code listing.
type Call struct {
	Level int
	Text  string
}

// Entry is a named value in one of the tables.
type Entry struct {
	Name       string
	Value      cty.Value
	Constraint string
	node       *graph.Node
}

// Doc is the description of one operator.
type Doc struct {
	Operator    string
	Description string
}

// FunctionFeedback is the problem statement derived from a trace.
type FunctionFeedback struct {
	Graph         []Call
	Documentation []Doc
	Roots         []Entry
	Others        []Entry
	Outputs       []Entry

	// Variables and Inputs partition Roots. They are filled by Summarize.
	Variables []Entry
	Inputs    []Entry

	UserFeedback any
}

// FromTraceGraph classifies the visited nodes of tg.
func FromTraceGraph(tg graph.TraceGraph) *FunctionFeedback {
	ff := &FunctionFeedback{UserFeedback: tg.UserFeedback}
	depth := tg.Depth()

	visited := make(map[*graph.Node]bool, len(tg.Graph))
	for _, e := range tg.Graph {
		n := e.Node
		visited[n] = true

		if n.IsRoot() || !allVisited(n.Parents(), visited) {
			ff.Roots = append(ff.Roots, entry(n))
			continue
		}

		op := funName(n)
		if !slices.ContainsFunc(ff.Documentation, func(d Doc) bool { return d.Operator == op }) {
			ff.Documentation = append(ff.Documentation, Doc{Operator: op, Description: n.Description()})
		}
		ff.Graph = append(ff.Graph, Call{Level: e.Level, Text: callText(n, op)})
		if e.Level == depth {
			ff.Outputs = append(ff.Outputs, entry(n))
		} else {
			ff.Others = append(ff.Others, entry(n))
		}
	}
	return ff
}

// Summarize aggregates the feedback of every trainable parameter with p
// and classifies the resulting trace. A nil propagator means a
// GraphPropagator.
func Summarize(params []*graph.Node, p graph.Propagator) (*FunctionFeedback, error) {
	if p == nil {
		p = graph.NewGraphPropagator()
	}

	var total graph.TraceGraph
	trainable := make(map[*graph.Node]bool)
	for _, n := range params {
		if !n.Trainable() {
			continue
		}
		trainable[n] = true
		agg, err := p.Aggregate(n.Feedback())
		if err != nil {
			return nil, fmt.Errorf("aggregating feedback of %s: %w", n.Name(), err)
		}
		tg, ok := agg.(graph.TraceGraph)
		if !ok {
			return nil, fmt.Errorf("%w: %s aggregated to %T", graph.ErrFeedbackType, n.Name(), agg)
		}
		if total, err = total.Add(tg); err != nil {
			return nil, err
		}
	}

	ff := FromTraceGraph(total)
	for _, e := range ff.Roots {
		if trainable[e.node] {
			ff.Variables = append(ff.Variables, e)
		} else {
			ff.Inputs = append(ff.Inputs, e)
		}
	}
	return ff, nil
}

// Empty reports whether no node was visited.
func (ff *FunctionFeedback) Empty() bool {
	return len(ff.Roots) == 0 && len(ff.Graph) == 0
}

// Code returns the pseudo-code listing, one call per line.
func (ff *FunctionFeedback) Code() string {
	lines := make([]string, len(ff.Graph))
	for i, c := range ff.Graph {
		lines[i] = c.Text
	}
	return strings.Join(lines, "\n")
}

func allVisited(nodes []*graph.Node, visited map[*graph.Node]bool) bool {
	for _, n := range nodes {
		if !visited[n] {
			return false
		}
	}
	return true
}

func entry(n *graph.Node) Entry {
	return Entry{Name: n.PyName(), Value: n.Peek(), Constraint: n.Constraint(), node: n}
}

// funName prefers the bracketed operator name of the description, which is
// `eval` for trainable operators and `exception` for exception nodes.
func funName(n *graph.Node) string {
	if op := n.OperatorName(); op != "" {
		return op
	}
	if info := n.Info(); info != nil && info.FunName != "" {
		return info.FunName
	}
	return n.ID().Base
}

func callText(n *graph.Node, op string) string {
	args := make([]string, 0, len(n.Inputs()))
	for _, in := range n.Inputs() {
		args = append(args, in.Name+"="+in.Node.PyName())
	}
	return fmt.Sprintf("%s = %s(%s)", n.PyName(), op, strings.Join(args, ", "))
}
