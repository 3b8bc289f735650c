package operator

import (
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Args gives an operator body access to its bound inputs.
type Args struct {
	inputs    []graph.Input
	varargs   []*graph.Node
	keywords  []graph.Input
	traceable bool
}

// Value returns the data of the named input and records the read. Unknown
// names yield a null value.
func (a *Args) Value(name string) cty.Value {
	if n := a.lookup(name); n != nil {
		return n.Data()
	}
	return cty.NullVal(cty.DynamicPseudoType)
}

// Decode converts the named input into target via gocty.
func (a *Args) Decode(name string, target any) error {
	n := a.lookup(name)
	if n == nil {
		return fmt.Errorf("%w: no input %q", ErrBind, name)
	}
	if err := gocty.FromCtyValue(n.Data(), target); err != nil {
		return Errorf("TypeError", "argument %s: %s", name, err)
	}
	return nil
}

// Node returns the named input node. It is nil unless the operator uses
// traceable code.
func (a *Args) Node(name string) *graph.Node {
	if !a.traceable {
		return nil
	}
	return a.lookup(name)
}

// Has reports whether an input with that name was bound.
func (a *Args) Has(name string) bool {
	return a.lookup(name) != nil
}

// Varargs returns the nodes bound to the variadic parameter.
func (a *Args) Varargs() []*graph.Node {
	return append([]*graph.Node(nil), a.varargs...)
}

// VarValues returns the data of the variadic inputs, recording the reads.
func (a *Args) VarValues() []cty.Value {
	out := make([]cty.Value, len(a.varargs))
	for i, n := range a.varargs {
		out[i] = n.Data()
	}
	return out
}

// Keywords returns the inputs bound to the keywords parameter.
func (a *Args) Keywords() []graph.Input {
	return append([]graph.Input(nil), a.keywords...)
}

// Values returns the data of every input keyed by input name.
func (a *Args) Values() map[string]cty.Value {
	out := make(map[string]cty.Value, len(a.inputs))
	for _, in := range a.inputs {
		out[in.Name] = in.Node.Data()
	}
	return out
}

func (a *Args) lookup(name string) *graph.Node {
	for _, in := range a.inputs {
		if in.Name == name {
			return in.Node
		}
	}
	return nil
}
