// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file decodes program files into declarations.
//
// Decoding is done in two passes, the same way runner manifests are read:
// the first pass decodes every block on its own and collects all
// diagnostics, so a user sees every mistake in a file at once; the second
// pass (see link.go) resolves references between blocks and orders the
// calls.
package program

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/hclexpr"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "param", LabelNames: []string{"name"}},
		{Type: "input", LabelNames: []string{"name"}},
		registry.OperatorBlockSchema,
		{Type: "call", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

var callSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "operator", Required: true},
		{Name: "args"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "arguments"},
	},
}

// paramBlock represents a single 'param' block for decoding purposes.
type paramBlock struct {
	Value       cty.Value `hcl:"value"`
	Description string    `hcl:"description,optional"`
	Constraint  string    `hcl:"constraint,optional"`
	Trainable   *bool     `hcl:"trainable,optional"`
}

// LoadFile reads and parses the program at path.
func LoadFile(ctx context.Context, path string, reg *registry.Registry) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}
	return Parse(ctx, src, path, reg)
}

// Parse decodes a program. Operators that are not declared in the program
// are looked up in reg.
func Parse(ctx context.Context, src []byte, filename string, reg *registry.Registry) (*Program, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing program", "file_path", filename)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse program %s: %w", filename, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to read program %s: %w", filename, diags)
	}

	p := &Program{Path: filename, registry: reg}
	declared := map[string]*hcl.Block{}
	for _, block := range content.Blocks {
		id := block.Type + "." + block.Labels[0]
		if prev, dup := declared[id]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate declaration",
				Detail:   fmt.Sprintf("%s %q was already declared at %s.", block.Type, block.Labels[0], prev.DefRange),
				Subject:  block.DefRange.Ptr(),
			})
			continue
		}
		declared[id] = block

		var blockDiags hcl.Diagnostics
		switch block.Type {
		case "param":
			blockDiags = p.decodeParam(block)
		case "input":
			blockDiags = p.decodeInput(block)
		case "operator":
			blockDiags = p.decodeOperator(block)
		case "call":
			blockDiags = p.decodeCall(block)
		case "output":
			blockDiags = p.decodeOutput(block)
		}
		diags = append(diags, blockDiags...)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid program %s: %w", filename, diags)
	}

	if diags := p.link(ctx); diags.HasErrors() {
		return nil, fmt.Errorf("invalid program %s: %w", filename, diags)
	}

	logger.Debug("Successfully parsed program",
		"params", len(p.Params), "inputs", len(p.Inputs), "operators", len(p.Operators),
		"calls", len(p.Calls), "outputs", len(p.Outputs))
	return p, nil
}

func (p *Program) decodeParam(block *hcl.Block) hcl.Diagnostics {
	var pb paramBlock
	diags := gohcl.DecodeBody(block.Body, nil, &pb)
	if diags.HasErrors() {
		return diags
	}
	param := &Param{
		Name:        block.Labels[0],
		Value:       pb.Value,
		Description: pb.Description,
		Constraint:  pb.Constraint,
		Trainable:   pb.Trainable == nil || *pb.Trainable,
	}
	diags = append(diags, checkName(block)...)
	diags = append(diags, checkDescription(block, &param.Description, graph.DefaultParameterDescription)...)
	p.Params = append(p.Params, param)
	return diags
}

func (p *Program) decodeInput(block *hcl.Block) hcl.Diagnostics {
	input := &Input{Name: block.Labels[0], Type: cty.DynamicPseudoType}
	diags := checkName(block)

	attrs, attrDiags := block.Body.JustAttributes()
	diags = append(diags, attrDiags...)
	for name, attr := range attrs {
		switch name {
		case "type":
			ty, tyDiags := hclexpr.TypeFromExpr(attr.Expr)
			diags = append(diags, tyDiags...)
			input.Type = ty
		case "default":
			v, valDiags := attr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			input.Default, input.HasDefault = v, !v.IsNull()
		case "description":
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &input.Description)...)
		default:
			diags = append(diags, unsupported(attr, "input"))
		}
	}
	diags = append(diags, checkDescription(block, &input.Description, graph.DefaultValueDescription)...)
	if diags.HasErrors() {
		return diags
	}
	if input.HasDefault {
		v, err := convertInput(input, input.Default)
		if err != nil {
			return append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid default value",
				Detail:   err.Error(),
				Subject:  attrs["default"].Expr.Range().Ptr(),
			})
		}
		input.Default = v
	}
	p.Inputs = append(p.Inputs, input)
	return diags
}

func (p *Program) decodeOperator(block *hcl.Block) hcl.Diagnostics {
	t, diags := registry.DecodeOperator(block)
	if diags.HasErrors() {
		return diags
	}
	if p.registry != nil {
		if _, exists := p.registry.Lookup(t.Name()); exists {
			return append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Operator name in use",
				Detail:   fmt.Sprintf("Operator %q is already registered and cannot be redeclared.", t.Name()),
				Subject:  block.DefRange.Ptr(),
			})
		}
	}
	p.Operators = append(p.Operators, t)
	return diags
}

func (p *Program) decodeCall(block *hcl.Block) hcl.Diagnostics {
	call := &Call{Name: block.Labels[0], Range: block.DefRange}
	diags := checkName(block)

	content, contentDiags := block.Body.Content(callSchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return diags
	}

	diags = append(diags, gohcl.DecodeExpression(content.Attributes["operator"].Expr, nil, &call.Operator)...)

	if attr, ok := content.Attributes["args"]; ok {
		tuple, isTuple := attr.Expr.(*hclsyntax.TupleConsExpr)
		if !isTuple {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid args",
				Detail:   "The args attribute must be a list written out in place, e.g. [param.x, 2].",
				Subject:  attr.Expr.Range().Ptr(),
			})
		} else {
			for _, expr := range tuple.Exprs {
				arg, argDiags := parseArg(expr)
				diags = append(diags, argDiags...)
				call.Args = append(call.Args, arg)
				call.exprs = append(call.exprs, expr)
			}
		}
	}

	argsBlock, blockDiags := hclexpr.FindUniqueBlock(content.Blocks, "arguments")
	diags = append(diags, blockDiags...)
	if argsBlock != nil {
		attrs, attrDiags := argsBlock.Body.JustAttributes()
		diags = append(diags, attrDiags...)
		names := make([]string, 0, len(attrs))
		for name := range attrs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			arg, argDiags := parseArg(attrs[name].Expr)
			diags = append(diags, argDiags...)
			arg.Name = name
			call.Kwargs = append(call.Kwargs, arg)
			call.exprs = append(call.exprs, attrs[name].Expr)
		}
	}

	p.Calls = append(p.Calls, call)
	return diags
}

func (p *Program) decodeOutput(block *hcl.Block) hcl.Diagnostics {
	output := &Output{Name: block.Labels[0]}
	diags := checkName(block)

	attrs, attrDiags := block.Body.JustAttributes()
	diags = append(diags, attrDiags...)
	for name, attr := range attrs {
		switch name {
		case "value":
			ref, refDiags := parseRef(attr.Expr)
			diags = append(diags, refDiags...)
			output.Ref = ref
		case "description":
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &output.Description)...)
		default:
			diags = append(diags, unsupported(attr, "output"))
		}
	}
	if _, ok := attrs["value"]; !ok && !attrDiags.HasErrors() {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing required argument",
			Detail:   fmt.Sprintf("Output %q needs a value.", output.Name),
			Subject:  block.DefRange.Ptr(),
		})
	}
	p.Outputs = append(p.Outputs, output)
	return diags
}

// parseArg classifies an argument expression. Constants are evaluated
// right away; everything else must be a plain reference.
func parseArg(expr hcl.Expression) (Arg, hcl.Diagnostics) {
	arg := Arg{Range: expr.Range()}
	if len(expr.Variables()) == 0 {
		v, diags := expr.Value(nil)
		arg.Const = v
		return arg, diags
	}
	ref, diags := parseRef(expr)
	arg.Ref = &ref
	return arg, diags
}

func parseRef(expr hcl.Expression) (Ref, hcl.Diagnostics) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return Ref{}, hcl.Diagnostics{invalidRef(expr.Range())}
	}
	ref, ok := refFromTraversal(traversal)
	if !ok {
		return Ref{}, hcl.Diagnostics{invalidRef(expr.Range())}
	}
	return ref, nil
}

func refFromTraversal(traversal hcl.Traversal) (Ref, bool) {
	if len(traversal) != 2 {
		return Ref{}, false
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return Ref{}, false
	}
	kind := RefKind(traversal.RootName())
	switch kind {
	case RefParam, RefInput, RefCall:
		return Ref{Kind: kind, Name: attr.Name}, true
	}
	return Ref{}, false
}

func invalidRef(rng hcl.Range) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Invalid reference",
		Detail:   "Expected a reference such as param.name, input.name or call.name, or a constant value. Computed values must be produced by an operator call.",
		Subject:  rng.Ptr(),
	}
}

func unsupported(attr *hcl.Attribute, blockType string) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  "Unsupported argument",
		Detail:   fmt.Sprintf("An argument named %q is not expected in %s blocks.", attr.Name, blockType),
		Subject:  attr.NameRange.Ptr(),
	}
}

func checkName(block *hcl.Block) hcl.Diagnostics {
	name := block.Labels[0]
	if !hclsyntax.ValidIdentifier(name) {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid name",
			Detail:   fmt.Sprintf("%q is not a valid %s name; use letters, digits, underscores and dashes.", name, block.Type),
			Subject:  block.LabelRanges[0].Ptr(),
		}}
	}
	return nil
}

// checkDescription prefixes plain descriptions with the bracketed kind of
// the node they end up on.
func checkDescription(block *hcl.Block, desc *string, fallback string) hcl.Diagnostics {
	if *desc == "" {
		*desc = fallback
		return nil
	}
	if graph.ValidateDescription(*desc) == nil {
		return nil
	}
	kind := graph.OperatorName(fallback)
	*desc = fmt.Sprintf("[%s] %s", kind, *desc)
	if err := graph.ValidateDescription(*desc); err != nil {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid description",
			Detail:   err.Error(),
			Subject:  block.DefRange.Ptr(),
		}}
	}
	return nil
}
