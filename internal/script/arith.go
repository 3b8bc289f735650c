package script

import (
	"errors"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// ZeroDivisionError is reported when a script divides by zero. cty itself
// returns an infinity for `x / 0` and x for `x % 0`.
const ZeroDivisionError = "ZeroDivisionError"

var (
	errDivisionByZero = errors.New("division by zero")
	errModuloByZero   = errors.New("integer division or modulo by zero")
)

var (
	opDivide = &hclsyntax.Operation{Impl: guardZero(stdlib.DivideFunc, errDivisionByZero), Type: cty.Number}
	opModulo = &hclsyntax.Operation{Impl: guardZero(stdlib.ModuloFunc, errModuloByZero), Type: cty.Number}
)

func guardZero(fn function.Function, zeroErr error) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "a", Type: cty.Number},
			{Name: "b", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if args[1].AsBigFloat().Sign() == 0 {
				return cty.UnknownVal(cty.Number), zeroErr
			}
			return fn.Call(args)
		},
	})
}

// guardArithmetic swaps the division and modulo operations of every
// attribute for ones that fail on a zero divisor.
func guardArithmetic(attrs []*hclsyntax.Attribute) {
	for _, attr := range attrs {
		hclsyntax.VisitAll(attr.Expr, func(n hclsyntax.Node) hcl.Diagnostics {
			if e, ok := n.(*hclsyntax.BinaryOpExpr); ok {
				switch e.Op {
				case hclsyntax.OpDivide:
					e.Op = opDivide
				case hclsyntax.OpModulo:
					e.Op = opModulo
				}
			}
			return nil
		})
	}
}

// zeroDivision finds a failed guarded operation in diags. hclsyntax keeps
// only the message of the failing operation.
func zeroDivision(diags hcl.Diagnostics) (*Error, bool) {
	for _, d := range diags {
		for _, err := range []error{errDivisionByZero, errModuloByZero} {
			if d.Severity == hcl.DiagError && strings.Contains(d.Detail, err.Error()) {
				line := 1
				if d.Subject != nil {
					line = d.Subject.Start.Line
				}
				return &Error{Type: ZeroDivisionError, Line: line, Detail: err.Error()}, true
			}
		}
	}
	return nil, false
}
