// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the format-agnostic declarations of a program file.
//
// A Program is a static description: parsing it touches no graph. Every
// call argument has already been classified as a reference or a constant,
// and calls are stored in an order in which each one only refers to
// declarations that come before it. Instantiating and running a Program
// can therefore walk the slices front to back without further checks.
package program

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// RefKind is the root name of a reference.
type RefKind string

const (
	RefParam RefKind = "param"
	RefInput RefKind = "input"
	RefCall  RefKind = "call"
)

// Ref points at another declaration.
type Ref struct {
	Kind RefKind
	Name string
}

// ID returns the dotted form, e.g. `call.answer`.
func (r Ref) ID() string { return string(r.Kind) + "." + r.Name }

// Arg is one call argument: a reference or a constant.
type Arg struct {
	// Name is the keyword; empty for positional arguments.
	Name  string
	Ref   *Ref
	Const cty.Value
	Range hcl.Range
}

// Param declares a parameter node.
type Param struct {
	Name        string
	Value       cty.Value
	Description string
	Constraint  string
	Trainable   bool
}

// Input declares a value supplied at run time.
type Input struct {
	Name        string
	Description string
	// Type is cty.DynamicPseudoType when no type was declared.
	Type       cty.Type
	Default    cty.Value
	HasDefault bool
}

// Call invokes an operator.
type Call struct {
	Name     string
	Operator string
	Args     []Arg
	Kwargs   []Arg
	Range    hcl.Range

	exprs []hcl.Expression
}

// Output names a value to report.
type Output struct {
	Name        string
	Description string
	Ref         Ref
}

// Program is a parsed and ordered program file.
type Program struct {
	Path      string
	Params    []*Param
	Inputs    []*Input
	Operators []*operator.Template
	// Calls are in dependency order.
	Calls   []*Call
	Outputs []*Output

	registry *registry.Registry
}

// Template resolves an operator name, preferring operators declared in
// the program.
func (p *Program) Template(name string) (*operator.Template, bool) {
	for _, t := range p.Operators {
		if t.Name() == name {
			return t, true
		}
	}
	if p.registry == nil {
		return nil, false
	}
	return p.registry.Lookup(name)
}
