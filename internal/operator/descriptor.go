package operator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/tracegridgo/internal/nodeid"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
)

// ParamKind classifies an operator parameter.
type ParamKind int

const (
	// Positional parameters bind by position or by name.
	Positional ParamKind = iota
	// Variadic collects surplus positional arguments as `<name>_<i>` inputs.
	Variadic
	// Keywords collects surplus keyword arguments under their own keys.
	Keywords
)

// Param describes one operator parameter.
type Param struct {
	Name       string
	Kind       ParamKind
	Default    any
	HasDefault bool
}

// Required declares a positional parameter without default.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a positional parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// VarArgs declares a variadic parameter.
func VarArgs(name string) Param {
	return Param{Name: name, Kind: Variadic}
}

// KwArgs declares a keyword-collecting parameter.
func KwArgs(name string) Param {
	return Param{Name: name, Kind: Keywords}
}

// Descriptor is the static description of an operator.
type Descriptor struct {
	Name   string
	Doc    string
	Params []Param
	// Source is the displayed implementation. For trainable operators it
	// is the initial script.
	Source string
}

// Signature renders the call signature, e.g. `scale(x, factor=2, *rest)`.
func (d Descriptor) Signature() string {
	parts := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		switch p.Kind {
		case Variadic:
			parts = append(parts, "*"+p.Name)
		case Keywords:
			parts = append(parts, "**"+p.Name)
		default:
			if p.HasDefault {
				parts = append(parts, p.Name+"="+renderDefault(p.Default))
			} else {
				parts = append(parts, p.Name)
			}
		}
	}
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
}

func renderDefault(v any) string {
	val, err := value.FromGo(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	if val.IsKnown() && !val.IsNull() && val.Type() == cty.String {
		return strconv.Quote(val.AsString())
	}
	return value.Format(val)
}

// Validate checks names and parameter ordering.
func (d Descriptor) Validate() error {
	if err := nodeid.ValidateBase(d.Name); err != nil {
		return fmt.Errorf("operator name: %w", err)
	}

	seen := map[string]bool{}
	var sawDefault, sawVariadic, sawKeywords bool
	for _, p := range d.Params {
		if err := nodeid.ValidateBase(p.Name); err != nil {
			return fmt.Errorf("operator %s parameter: %w", d.Name, err)
		}
		if p.Name == CodeInput {
			return fmt.Errorf("operator %s: parameter name %q is reserved", d.Name, CodeInput)
		}
		if seen[p.Name] {
			return fmt.Errorf("operator %s: duplicate parameter %q", d.Name, p.Name)
		}
		seen[p.Name] = true

		if sawKeywords {
			return fmt.Errorf("operator %s: parameter %q follows the keywords parameter", d.Name, p.Name)
		}
		switch p.Kind {
		case Positional:
			if sawVariadic {
				return fmt.Errorf("operator %s: positional parameter %q follows the variadic parameter", d.Name, p.Name)
			}
			if p.HasDefault {
				sawDefault = true
			} else if sawDefault {
				return fmt.Errorf("operator %s: required parameter %q follows a parameter with a default", d.Name, p.Name)
			}
		case Variadic:
			if sawVariadic {
				return fmt.Errorf("operator %s: more than one variadic parameter", d.Name)
			}
			sawVariadic = true
		case Keywords:
			sawKeywords = true
		}
	}
	return nil
}

// DefaultDescription renders `[name] doc.`.
func (d Descriptor) DefaultDescription() string {
	doc := strings.TrimSpace(d.Doc)
	if doc == "" {
		return "[" + d.Name + "]"
	}
	return "[" + d.Name + "] " + strings.TrimSuffix(doc, ".") + "."
}
