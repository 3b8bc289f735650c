package operator

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// CodeInput is the input name under which a trainable operator's script
// parameter is attached to its output nodes.
const CodeInput = "__code"

// evalName is the node name of trainable operator outputs.
const evalName = "eval"

const evalDescription = "[eval] This operator eval(__code, *args, **kwargs) evaluates the code block, " +
	"where __code is the code (str) and *args and **kwargs are the arguments of the function. " +
	"The output is the result of the evaluation, i.e., __code(*args, **kwargs)."

// trainableDescription keeps the operator's own documentation after the
// fixed eval text, since the script source carries no doc of its own.
func trainableDescription(description string) string {
	doc := strings.TrimPrefix(description, "["+graph.OperatorName(description)+"]")
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return evalDescription
	}
	return evalDescription + " " + doc
}

// compileError marks a script that could not be compiled; its exception
// node depends on the code parameter only.
type compileError struct {
	err error
}

func (e *compileError) Error() string { return e.err.Error() }
func (e *compileError) Unwrap() error { return e.err }

// codeConstraint tells the optimizer which line must be preserved.
func codeConstraint(signature string) string {
	return "The code should start with:\n" + script.Header(signature)
}

// runScript compiles the current code parameter, if it changed, and runs it.
func (o *Operator) runScript(args *Args) (any, string, error) {
	data := o.code.Data()
	if !data.IsKnown() || data.IsNull() || !data.Type().Equals(cty.String) {
		return nil, "", &compileError{&script.Error{Type: script.SyntaxError, Line: 1, Detail: "code must be a string"}}
	}
	src := data.AsString()

	prog, err := o.program(src)
	if err != nil {
		return nil, src, &compileError{err}
	}

	vals := make(map[string]cty.Value, len(o.desc.Params))
	for _, p := range o.desc.Params {
		vals[p.Name] = args.Value(p.Name)
	}
	out, err := prog.Run(vals, o.opts.Globals)
	if err != nil {
		return nil, src, err
	}
	return out, src, nil
}

func (o *Operator) program(src string) (*script.Program, error) {
	if o.compiled != nil && o.compiled.Source == src {
		return o.compiled, nil
	}
	prog, err := compileScript(o.desc, src, o.opts)
	if err != nil {
		return nil, err
	}
	o.compiled = prog
	return prog, nil
}

func compileScript(desc Descriptor, src string, opts Options) (*script.Program, error) {
	names := make([]string, len(desc.Params))
	for i, p := range desc.Params {
		names[i] = p.Name
	}
	return script.Compile(src, desc.Signature(), names, script.Functions(opts.Functions))
}

// NewScriptTemplate builds an operator whose body is the script in
// desc.Source. A trainable template keeps the script in its code
// parameter; otherwise the script is compiled once and run as is.
func NewScriptTemplate(desc Descriptor, opts Options) (*Template, error) {
	if opts.Trainable {
		return NewTemplate(desc, nil, opts)
	}
	for _, p := range desc.Params {
		if p.Kind != Positional {
			return nil, fmt.Errorf("%w: script operator %s cannot declare %s parameter %q",
				ErrDescriptor, desc.Name, kindName(p.Kind), p.Name)
		}
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDescriptor, err)
	}
	prog, err := compileScript(desc, desc.Source, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDescriptor, desc.Name, err)
	}
	fn := func(_ context.Context, in *Args) (any, error) {
		vals := make(map[string]cty.Value, len(desc.Params))
		for _, p := range desc.Params {
			vals[p.Name] = in.Value(p.Name)
		}
		return prog.Run(vals, opts.Globals)
	}
	return NewTemplate(desc, fn, opts)
}
