package operator

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Options configure how an operator is traced.
type Options struct {
	// Description must start with `[operator_name]`. Defaults to `[name] doc.`.
	Description string
	// Trainable makes the operator's script a parameter.
	Trainable bool
	// CatchExecutionError turns body failures into exception nodes.
	CatchExecutionError bool
	// AllowExternalDependencies permits reading nodes that are not inputs.
	AllowExternalDependencies bool
	// TraceableCode lets the body see input nodes and return a node.
	TraceableCode bool
	// OverwriteRecursion records recursive calls as separate nodes.
	OverwriteRecursion bool
	// Outputs is the number of result nodes; values below 2 mean one.
	Outputs int
	// Functions and Globals extend the script environment of trainable operators.
	Functions map[string]function.Function
	Globals   map[string]cty.Value
}

// DefaultOptions returns the options of a plain traced operator.
func DefaultOptions() Options {
	return Options{CatchExecutionError: true}
}
