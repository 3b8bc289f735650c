package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/dag"
	"github.com/specialistvlad/tracegridgo/internal/hclexpr"
)

// link resolves references and operator names, then reorders the calls so
// that every call comes after the calls it reads from.
func (p *Program) link(ctx context.Context) hcl.Diagnostics {
	var diags hcl.Diagnostics

	known := map[string]bool{}
	for _, param := range p.Params {
		known[Ref{Kind: RefParam, Name: param.Name}.ID()] = true
	}
	for _, input := range p.Inputs {
		known[Ref{Kind: RefInput, Name: input.Name}.ID()] = true
	}

	deps := dag.New()
	byID := map[string]*Call{}
	for _, call := range p.Calls {
		id := Ref{Kind: RefCall, Name: call.Name}.ID()
		known[id] = true
		byID[id] = call
		deps.AddNode(id)
	}

	params := map[string]bool{}
	for _, param := range p.Params {
		params[param.Name] = true
	}
	for _, call := range p.Calls {
		if _, ok := p.Template(call.Operator); !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown operator",
				Detail:   fmt.Sprintf("Call %q uses operator %q, which is neither declared in the program nor registered.", call.Name, call.Operator),
				Subject:  call.Range.Ptr(),
			})
		}
		if params[call.Operator] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Name collision",
				Detail:   fmt.Sprintf("Parameter %q has the same name as the operator used by call %q.", call.Operator, call.Name),
				Subject:  call.Range.Ptr(),
			})
		}

		exprs := hclexpr.NewContainer()
		exprs.Add(call.exprs...)
		for _, traversal := range exprs.References() {
			ref, ok := refFromTraversal(traversal)
			if !ok {
				continue
			}
			if !known[ref.ID()] {
				diags = append(diags, unknownRef(ref, traversal.SourceRange()))
				continue
			}
			if ref.Kind != RefCall {
				continue
			}
			if ref.Name == call.Name {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Self reference",
					Detail:   fmt.Sprintf("Call %q cannot use its own result.", call.Name),
					Subject:  traversal.SourceRange().Ptr(),
				})
				continue
			}
			if err := deps.AddEdge(ref.ID(), Ref{Kind: RefCall, Name: call.Name}.ID()); err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid dependency",
					Detail:   err.Error(),
					Subject:  traversal.SourceRange().Ptr(),
				})
			}
		}
	}

	for _, output := range p.Outputs {
		if !known[output.Ref.ID()] {
			diags = append(diags, unknownRef(output.Ref, hcl.Range{Filename: p.Path}))
		}
	}
	if diags.HasErrors() {
		return diags
	}

	order, err := deps.TopologicalOrder()
	if err != nil {
		summary := "Invalid call graph"
		if errors.Is(err, dag.ErrCycle) {
			summary = "Dependency cycle"
		}
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  summary,
			Detail:   err.Error(),
		})
	}

	calls := make([]*Call, 0, len(order))
	for _, id := range order {
		calls = append(calls, byID[id])
	}
	p.Calls = calls
	ctxlog.FromContext(ctx).Debug("Linked program calls", "order", order)
	return diags
}

func unknownRef(ref Ref, rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Reference to undeclared " + string(ref.Kind),
		Detail:   fmt.Sprintf("There is no %s named %q.", ref.Kind, ref.Name),
		Subject:  rng.Ptr(),
	}
}
