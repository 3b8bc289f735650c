package script

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/specialistvlad/tracegridgo/internal/hclexpr"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// ResultAttr names the attribute holding the script's output.
const ResultAttr = "result"

// GlobalsName is the root name under which globals are visible.
const GlobalsName = "global"

// Program is a compiled script.
type Program struct {
	Signature string
	Params    []string
	Source    string

	attrs     []*hclsyntax.Attribute
	functions map[string]function.Function
}

// Header renders the signature comment a script must start with.
func Header(signature string) string {
	return "# " + signature
}

// Compile parses src and checks its signature line and references.
// functions is the complete function table, usually from Functions.
func Compile(src, signature string, params []string, functions map[string]function.Function) (*Program, error) {
	if err := checkHeader(src, signature); err != nil {
		return nil, err
	}

	file, diags := hclsyntax.ParseConfig([]byte(src), "script.hcl", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diagError(SyntaxError, diags, 1)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, &Error{Type: SyntaxError, Line: 1, Detail: "script is not in native syntax"}
	}
	if len(body.Blocks) > 0 {
		b := body.Blocks[0]
		return nil, &Error{Type: SyntaxError, Line: b.TypeRange.Start.Line, Detail: fmt.Sprintf("blocks are not allowed, found %q", b.Type)}
	}
	if _, ok := body.Attributes[ResultAttr]; !ok {
		return nil, &Error{Type: SyntaxError, Line: lastLine(src), Detail: fmt.Sprintf("missing %q attribute", ResultAttr)}
	}

	p := &Program{
		Signature: signature,
		Params:    append([]string(nil), params...),
		Source:    src,
		attrs:     hclexpr.OrderedAttributes(body),
		functions: functions,
	}
	guardArithmetic(p.attrs)
	if err := p.audit(); err != nil {
		return nil, err
	}
	return p, nil
}

func checkHeader(src, signature string) error {
	want := Header(signature)
	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if trimmed != want {
			return &Error{Type: SignatureError, Line: i + 1, Detail: fmt.Sprintf("first line must be %q", want)}
		}
		return nil
	}
	return &Error{Type: SignatureError, Line: 1, Detail: fmt.Sprintf("empty script, first line must be %q", want)}
}

// audit rejects references to anything that is not a parameter, an earlier
// attribute, a global or a known function.
func (p *Program) audit() error {
	known := map[string]bool{GlobalsName: true}
	for _, name := range p.Params {
		known[name] = true
	}

	for _, attr := range p.attrs {
		c := hclexpr.NewContainer()
		c.Add(attr.Expr)
		line := attr.SrcRange.Start.Line

		for _, ref := range c.References() {
			if !known[ref.RootName()] {
				return &Error{Type: NameError, Line: ref.SourceRange().Start.Line, Detail: fmt.Sprintf("name %q is not defined", ref.RootName())}
			}
		}
		for _, fn := range c.CalledFunctions() {
			if _, ok := p.functions[fn]; !ok {
				return &Error{Type: NameError, Line: line, Detail: fmt.Sprintf("function %q is not defined", fn)}
			}
		}
		known[attr.Name] = true
	}
	return nil
}

// Run evaluates the script with the given arguments.
func (p *Program) Run(args map[string]cty.Value, globals map[string]cty.Value) (cty.Value, error) {
	vars := make(map[string]cty.Value, len(args)+len(p.attrs)+1)
	for _, name := range p.Params {
		v, ok := args[name]
		if !ok {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		vars[name] = v
	}
	if len(globals) > 0 {
		vars[GlobalsName] = cty.ObjectVal(globals)
	} else {
		vars[GlobalsName] = cty.EmptyObjectVal
	}

	evalCtx := &hcl.EvalContext{Variables: vars, Functions: p.functions}
	for _, attr := range p.attrs {
		v, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			if err, ok := zeroDivision(diags); ok {
				return cty.NilVal, err
			}
			return cty.NilVal, diagError(EvalError, diags, attr.SrcRange.Start.Line)
		}
		vars[attr.Name] = v
	}
	return vars[ResultAttr], nil
}

func diagError(typ string, diags hcl.Diagnostics, fallbackLine int) *Error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line := fallbackLine
		if d.Subject != nil {
			line = d.Subject.Start.Line
		}
		detail := d.Summary
		if d.Detail != "" {
			detail += ": " + d.Detail
		}
		return &Error{Type: typ, Line: line, Detail: detail}
	}
	return &Error{Type: typ, Line: fallbackLine, Detail: diags.Error()}
}

func lastLine(src string) int {
	return strings.Count(strings.TrimRight(src, "\n"), "\n") + 1
}
