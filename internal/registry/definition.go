package registry

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// OperatorBlockSchema is the header of an `operator "name" {}` block.
var OperatorBlockSchema = hcl.BlockHeaderSchema{Type: "operator", LabelNames: []string{"name"}}

// operatorBlock is the decoded body of an operator block.
type operatorBlock struct {
	Name        string    `hcl:"name,label"`
	Doc         string    `hcl:"doc,optional"`
	Description string    `hcl:"description,optional"`
	Params      []string  `hcl:"params,optional"`
	Defaults    cty.Value `hcl:"defaults,optional"`
	Code        string    `hcl:"code"`
	Trainable   bool      `hcl:"trainable,optional"`

	AllowExternalDependencies bool  `hcl:"allow_external_dependencies,optional"`
	CatchExecutionError       *bool `hcl:"catch_execution_error,optional"`
}

// DecodeOperator turns an operator block into a script template. When the
// code does not start with a comment line, the signature header is
// prepended.
func DecodeOperator(block *hcl.Block) (*operator.Template, hcl.Diagnostics) {
	var def operatorBlock
	diags := gohcl.DecodeBody(block.Body, nil, &def)
	if diags.HasErrors() {
		return nil, diags
	}
	def.Name = block.Labels[0]

	params, paramDiags := def.params(block)
	diags = append(diags, paramDiags...)
	if diags.HasErrors() {
		return nil, diags
	}

	desc := operator.Descriptor{Name: def.Name, Doc: def.Doc, Params: params}
	desc.Source = withHeader(def.Code, desc.Signature())

	opts := operator.DefaultOptions()
	opts.Description = def.Description
	opts.Trainable = def.Trainable
	opts.AllowExternalDependencies = def.AllowExternalDependencies
	if def.CatchExecutionError != nil {
		opts.CatchExecutionError = *def.CatchExecutionError
	}

	t, err := operator.NewScriptTemplate(desc, opts)
	if err != nil {
		return nil, append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid operator",
			Detail:   fmt.Sprintf("Operator %q: %s.", def.Name, err),
			Subject:  block.DefRange.Ptr(),
		})
	}
	return t, diags
}

// params builds positional parameters; names listed in defaults become
// optional and must come last.
func (d *operatorBlock) params(block *hcl.Block) ([]operator.Param, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	defaults := map[string]cty.Value{}
	if !d.Defaults.IsNull() {
		if !d.Defaults.Type().IsObjectType() && !d.Defaults.Type().IsMapType() {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid defaults",
				Detail:   fmt.Sprintf("Operator %q: defaults must be an object.", d.Name),
				Subject:  block.DefRange.Ptr(),
			}}
		}
		defaults = d.Defaults.AsValueMap()
	}

	known := make(map[string]bool, len(d.Params))
	params := make([]operator.Param, 0, len(d.Params))
	for _, name := range d.Params {
		known[name] = true
		if v, ok := defaults[name]; ok {
			params = append(params, operator.Optional(name, v))
			continue
		}
		params = append(params, operator.Required(name))
	}
	for name := range defaults {
		if !known[name] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown parameter default",
				Detail:   fmt.Sprintf("Operator %q has a default for undeclared parameter %q.", d.Name, name),
				Subject:  block.DefRange.Ptr(),
			})
		}
	}
	return params, diags
}

func withHeader(code, signature string) string {
	if strings.HasPrefix(strings.TrimSpace(code), "#") {
		return code
	}
	return script.Header(signature) + "\n" + code
}
