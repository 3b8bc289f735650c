package operator

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/nodeid"
	"github.com/specialistvlad/tracegridgo/internal/value"
)

// Kwargs passes keyword arguments; it must be the last argument of a call.
type Kwargs map[string]any

// wrapFunc turns a raw argument into a node named after its input.
type wrapFunc func(name string, v any) (*graph.Node, error)

type binding struct {
	args      *Args
	positions []*graph.Node
	keywords  map[string]*graph.Node
}

// bind matches call arguments against the descriptor and wraps every
// non-node argument (defaults included) with wrap.
func bind(desc Descriptor, callArgs []any, wrap wrapFunc) (*binding, error) {
	var kwargs Kwargs
	if len(callArgs) > 0 {
		if kw, ok := callArgs[len(callArgs)-1].(Kwargs); ok {
			kwargs = kw
			callArgs = callArgs[:len(callArgs)-1]
		}
	}

	b := &binding{args: &Args{}, keywords: map[string]*graph.Node{}}
	add := func(name string, v any) (*graph.Node, error) {
		n, err := wrap(name, v)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		b.args.inputs = append(b.args.inputs, graph.Input{Name: name, Node: n})
		return n, nil
	}

	pos := 0
	used := map[string]bool{}
	for _, p := range desc.Params {
		switch p.Kind {
		case Positional:
			var (
				v              any
				found, fromPos bool
			)
			if pos < len(callArgs) {
				v, found, fromPos = callArgs[pos], true, true
				pos++
				if _, dup := kwargs[p.Name]; dup {
					return nil, fmt.Errorf("%w: %s got multiple values for argument %q", ErrBind, desc.Name, p.Name)
				}
			} else if kv, ok := kwargs[p.Name]; ok {
				v, found = kv, true
				used[p.Name] = true
			} else if p.HasDefault {
				v, found = p.Default, true
			}
			if !found {
				return nil, fmt.Errorf("%w: %s missing required argument %q", ErrBind, desc.Name, p.Name)
			}
			n, err := add(p.Name, v)
			if err != nil {
				return nil, err
			}
			if fromPos {
				b.positions = append(b.positions, n)
			} else {
				b.keywords[p.Name] = n
			}

		case Variadic:
			for i := 0; pos < len(callArgs); i++ {
				n, err := add(p.Name+"_"+strconv.Itoa(i), callArgs[pos])
				if err != nil {
					return nil, err
				}
				b.args.varargs = append(b.args.varargs, n)
				b.positions = append(b.positions, n)
				pos++
			}

		case Keywords:
			keys := make([]string, 0, len(kwargs))
			for k := range kwargs {
				if !used[k] && !isPositional(desc, k) {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			for _, k := range keys {
				if err := nodeid.ValidateBase(k); err != nil {
					return nil, fmt.Errorf("%w: %s keyword %q: %v", ErrBind, desc.Name, k, err)
				}
				if b.args.lookup(k) != nil || k == CodeInput {
					return nil, fmt.Errorf("%w: %s keyword %q collides with another input", ErrBind, desc.Name, k)
				}
				n, err := add(k, kwargs[k])
				if err != nil {
					return nil, err
				}
				b.args.keywords = append(b.args.keywords, graph.Input{Name: k, Node: n})
				b.keywords[k] = n
				used[k] = true
			}
		}
	}

	if pos < len(callArgs) {
		return nil, fmt.Errorf("%w: %s takes %d positional arguments but %d were given", ErrBind, desc.Name, pos, len(callArgs))
	}
	for k := range kwargs {
		if !used[k] {
			return nil, fmt.Errorf("%w: %s got an unexpected keyword argument %q", ErrBind, desc.Name, k)
		}
	}
	return b, nil
}

func isPositional(desc Descriptor, name string) bool {
	for _, p := range desc.Params {
		if p.Kind == Positional && p.Name == name {
			return true
		}
	}
	return false
}

// registeredWrap wraps raw arguments as registered value nodes.
func registeredWrap(g *graph.Graph) wrapFunc {
	return func(name string, v any) (*graph.Node, error) {
		if n, ok := v.(*graph.Node); ok {
			return n, nil
		}
		return g.NewNode(v, graph.WithName(name))
	}
}

// detachedWrap wraps raw arguments as detached nodes that never enter the graph.
func detachedWrap(g *graph.Graph) wrapFunc {
	return func(_ string, v any) (*graph.Node, error) {
		if n, ok := v.(*graph.Node); ok {
			return n, nil
		}
		val, err := value.FromGo(v)
		if err != nil {
			return nil, err
		}
		return g.Detached(val), nil
	}
}
