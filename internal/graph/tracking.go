package graph

import "slices"

type usedSet struct {
	order []*Node
	seen  map[*Node]bool
}

// Tracker collects the registered nodes whose data is read while it is
// active. Trackers nest; a read is recorded only by the innermost one, so a
// nested operator call keeps its reads to itself.
type Tracker struct {
	g   *Graph
	set *usedSet
}

// Track starts recording data reads.
func (g *Graph) Track() *Tracker {
	set := &usedSet{seen: map[*Node]bool{}}
	g.used = append(g.used, set)
	return &Tracker{g: g, set: set}
}

// Stop ends recording and returns the nodes read, in first-read order.
func (t *Tracker) Stop() []*Node {
	if i := slices.Index(t.g.used, t.set); i >= 0 {
		t.g.used = slices.Delete(t.g.used, i, i+1)
	}
	return slices.Clone(t.set.order)
}

func (g *Graph) recordUse(n *Node) {
	if !g.tracing || len(g.used) == 0 {
		return
	}
	set := g.used[len(g.used)-1]
	if !set.seen[n] {
		set.seen[n] = true
		set.order = append(set.order, n)
	}
}
