package graph

import (
	"cmp"
	"slices"
)

type nodeSet map[*Node]struct{}

func (s nodeSet) add(n *Node) { s[n] = struct{}{} }

func (s nodeSet) has(n *Node) bool {
	_, ok := s[n]
	return ok
}

func (s nodeSet) union(other nodeSet) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// sorted returns the set ordered by creation.
func (s nodeSet) sorted() []*Node {
	out := make([]*Node, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.SortFunc(out, func(a, b *Node) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

// ParameterDependencies returns every parameter node this node depends on
// through its ancestry.
func (n *Node) ParameterDependencies() []*Node {
	return n.paramDeps.sorted()
}

// ExpandableDependencies returns every ancestor (or n itself) that has
// hidden parameter dependencies.
func (n *Node) ExpandableDependencies() []*Node {
	return n.expandDeps.sorted()
}

// HiddenDependencies returns the parameters the operator body used
// internally that are not visible through the node's own parents. Inner
// nodes that are themselves expandable are expanded recursively.
func (n *Node) HiddenDependencies() []*Node {
	return n.hiddenDependencies().sorted()
}

func (n *Node) hiddenDependencies() nodeSet {
	if n.info == nil || n.info.Output == nil {
		return nil
	}
	inner := collectParameters(n.info.Output, map[*Node]bool{})
	hidden := nodeSet{}
	for p := range inner {
		if !n.paramDeps.has(p) {
			hidden.add(p)
		}
	}
	return hidden
}

func collectParameters(n *Node, seen map[*Node]bool) nodeSet {
	out := nodeSet{}
	out.union(n.paramDeps)
	for e := range n.expandDeps {
		if seen[e] {
			continue
		}
		seen[e] = true
		if e.info != nil && e.info.Output != nil {
			out.union(collectParameters(e.info.Output, seen))
		}
	}
	return out
}
