package program

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ResolveInputs checks supplied values against the declared inputs, fills
// in defaults and converts each value to its declared type.
func (p *Program) ResolveInputs(supplied map[string]cty.Value) (map[string]cty.Value, error) {
	var result *multierror.Error

	declared := map[string]bool{}
	out := make(map[string]cty.Value, len(p.Inputs))
	for _, input := range p.Inputs {
		declared[input.Name] = true
		v, ok := supplied[input.Name]
		if !ok {
			if !input.HasDefault {
				result = multierror.Append(result, fmt.Errorf("missing value for input %q", input.Name))
				continue
			}
			v = input.Default
		}
		converted, err := convertInput(input, v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("input %q: %w", input.Name, err))
			continue
		}
		out[input.Name] = converted
	}

	extra := make([]string, 0)
	for name := range supplied {
		if !declared[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		result = multierror.Append(result, fmt.Errorf("undeclared input %q", name))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func convertInput(input *Input, v cty.Value) (cty.Value, error) {
	if input.Type == cty.DynamicPseudoType || input.Type == cty.NilType {
		return v, nil
	}
	converted, err := convert.Convert(v, input.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("expected %s: %w", input.Type.FriendlyName(), err)
	}
	return converted, nil
}

// ParseInputValue reads a value given on the command line. Anything that
// parses as a constant HCL expression (`3`, `true`, `["a", "b"]`,
// `"quoted"`) is used as such; everything else is taken as a plain string.
func ParseInputValue(raw string) cty.Value {
	expr, diags := hclsyntax.ParseExpression([]byte(raw), "<input>", hcl.InitialPos)
	if diags.HasErrors() || len(expr.Variables()) > 0 {
		return cty.StringVal(raw)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() || !v.IsWhollyKnown() {
		return cty.StringVal(raw)
	}
	return v
}
