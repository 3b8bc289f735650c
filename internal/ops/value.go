package ops

import (
	"context"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/operator"
)

// Value chains builtin operator calls. The first error sticks: later
// calls are skipped and Node returns it.
type Value struct {
	ctx  context.Context
	set  *Set
	node *graph.Node
	err  error
}

// On starts a chain from x, which may be a node or a plain value.
func On(ctx context.Context, x any) *Value {
	v := &Value{ctx: ctx}
	v.set, v.err = FromContext(ctx)
	if v.err != nil {
		return v
	}
	v.node, v.err = v.set.g.NewNode(x)
	return v
}

// Node returns the node at the end of the chain.
func (v *Value) Node() (*graph.Node, error) {
	return v.node, v.err
}

// Err returns the first error of the chain.
func (v *Value) Err() error { return v.err }

// Call applies the named builtin with the chain's node as first argument.
func (v *Value) Call(name string, args ...any) *Value {
	if v.err != nil {
		return v
	}
	unwrapped := make([]any, 0, len(args)+1)
	unwrapped = append(unwrapped, v.node)
	for _, a := range args {
		if other, ok := a.(*Value); ok {
			if other.err != nil {
				return &Value{ctx: v.ctx, set: v.set, err: other.err}
			}
			a = other.node
		}
		unwrapped = append(unwrapped, a)
	}
	out, err := v.set.Call(v.ctx, name, unwrapped...)
	return &Value{ctx: v.ctx, set: v.set, node: out, err: err}
}

func (v *Value) Add(y any) *Value { return v.Call(Add, y) }
func (v *Value) Sub(y any) *Value { return v.Call(Subtract, y) }
func (v *Value) Mul(y any) *Value { return v.Call(Multiply, y) }
func (v *Value) Div(y any) *Value { return v.Call(Divide, y) }
func (v *Value) FloorDiv(y any) *Value { return v.Call(FloorDivide, y) }
func (v *Value) Mod(y any) *Value { return v.Call(Mod, y) }
func (v *Value) Neg() *Value { return v.Call(Neg) }
func (v *Value) Abs() *Value { return v.Call(Abs) }
func (v *Value) Eq(y any) *Value { return v.Call(Eq, y) }
func (v *Value) Neq(y any) *Value { return v.Call(Neq, y) }
func (v *Value) Lt(y any) *Value { return v.Call(Lt, y) }
func (v *Value) Le(y any) *Value { return v.Call(Le, y) }
func (v *Value) Gt(y any) *Value { return v.Call(Gt, y) }
func (v *Value) Ge(y any) *Value { return v.Call(Ge, y) }
func (v *Value) Not() *Value { return v.Call(Not) }
func (v *Value) GetItem(index any) *Value { return v.Call(GetItem, index) }
func (v *Value) Len() *Value { return v.Call(Len) }
func (v *Value) Contains(y any) *Value { return v.Call(Contains, y) }
func (v *Value) Concat(y any) *Value { return v.Call(Concat, y) }
func (v *Value) Split(sep any) *Value { return v.Call(Split, sep) }
func (v *Value) Upper() *Value { return v.Call(Upper) }
func (v *Value) Lower() *Value { return v.Call(Lower) }
func (v *Value) Strip() *Value { return v.Call(Strip) }
func (v *Value) Title() *Value { return v.Call(Title) }

// Replace substitutes every occurrence of from with to.
func (v *Value) Replace(from, to any) *Value { return v.Call(Replace, from, to) }

// Format substitutes `{key}` placeholders with the keyword values.
func (v *Value) Format(kwargs map[string]any) *Value {
	return v.Call(Format, operator.Kwargs(kwargs))
}

// Join joins items using the chain's value as separator.
func (v *Value) Join(items ...any) *Value { return v.Call(Join, items...) }
