package operator

import (
	"fmt"

	"github.com/specialistvlad/tracegridgo/internal/graph"
)

// Template is an operator definition that is not yet bound to a graph.
// Each New or Bind creates an independent operator with its own trainable
// parameters.
type Template struct {
	desc        Descriptor
	fn          Func
	opts        Options
	description string
}

// NewTemplate validates the descriptor, options and, for trainable
// operators, the initial script.
func NewTemplate(desc Descriptor, fn Func, opts Options) (*Template, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptor, err)
	}

	description := opts.Description
	if description == "" {
		description = desc.DefaultDescription()
	}
	if err := graph.ValidateDescription(description); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDescriptor, desc.Name, err)
	}

	if opts.Trainable {
		for _, p := range desc.Params {
			if p.Kind != Positional {
				return nil, fmt.Errorf("%w: trainable operator %s cannot declare %s parameter %q",
					ErrDescriptor, desc.Name, kindName(p.Kind), p.Name)
			}
		}
		if desc.Source == "" {
			return nil, fmt.Errorf("%w: trainable operator %s has no source", ErrDescriptor, desc.Name)
		}
		if _, err := compileScript(desc, desc.Source, opts); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDescriptor, desc.Name, err)
		}
		description = trainableDescription(description)
	} else if fn == nil {
		return nil, fmt.Errorf("%w: operator %s has no body", ErrDescriptor, desc.Name)
	}

	return &Template{desc: desc, fn: fn, opts: opts, description: description}, nil
}

// Name returns the operator name.
func (t *Template) Name() string { return t.desc.Name }

// Descriptor returns the operator descriptor.
func (t *Template) Descriptor() Descriptor { return t.desc }

// Options returns the operator options.
func (t *Template) Options() Options { return t.opts }

// New creates an operator on g.
func (t *Template) New(g *graph.Graph) (*Operator, error) {
	return t.instantiate(g, nil)
}

// Bind creates an operator whose first parameter is fixed to self.
func (t *Template) Bind(g *graph.Graph, self *graph.Node) (*Operator, error) {
	if len(t.desc.Params) == 0 || t.desc.Params[0].Kind != Positional {
		return nil, fmt.Errorf("%w: %s has no receiver parameter to bind", ErrDescriptor, t.desc.Name)
	}
	return t.instantiate(g, []any{self})
}

func (t *Template) instantiate(g *graph.Graph, bound []any) (*Operator, error) {
	o := &Operator{
		g:           g,
		desc:        t.desc,
		opts:        t.opts,
		fn:          t.fn,
		description: t.description,
		nodeName:    t.desc.Name,
		bound:       bound,
	}
	if t.opts.Trainable {
		code, err := g.NewParameter(t.desc.Source,
			graph.WithName(CodeInput),
			graph.WithDescription(fmt.Sprintf("[ParameterNode] The code of operator %s.", t.desc.Name)),
			graph.WithConstraint(codeConstraint(t.desc.Signature())),
		)
		if err != nil {
			return nil, err
		}
		o.code = code
		o.nodeName = evalName
	}
	return o, nil
}

func kindName(k ParamKind) string {
	switch k {
	case Variadic:
		return "variadic"
	case Keywords:
		return "keywords"
	default:
		return "positional"
	}
}
