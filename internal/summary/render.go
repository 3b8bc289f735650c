package summary

import (
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// Render writes the labeled problem listing.
func (ff *FunctionFeedback) Render(w io.Writer) error {
	variables := ff.Variables
	inputs := ff.Inputs
	if variables == nil && inputs == nil {
		inputs = ff.Roots
	}

	var constraints []string
	for _, e := range variables {
		if e.Constraint != "" {
			constraints = append(constraints, fmt.Sprintf("(%s) %s: %s", typeName(e.Value), e.Name, e.Constraint))
		}
	}
	docs := make([]string, len(ff.Documentation))
	for i, d := range ff.Documentation {
		docs[i] = d.Description
	}

	sections := []struct {
		title string
		body  string
	}{
		{"#Code", ff.Code()},
		{"#Documentation", strings.Join(docs, "\n")},
		{"#Variables", table(variables)},
		{"#Constraints", strings.Join(constraints, "\n")},
		{"#Inputs", table(inputs)},
		{"#Others", table(ff.Others)},
		{"#Outputs", table(ff.Outputs)},
		{"#Feedback", feedbackText(ff.UserFeedback)},
	}
	for i, s := range sections {
		sep := "\n"
		if i == len(sections)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n%s", s.title, s.body, sep); err != nil {
			return err
		}
	}
	return nil
}

// String renders the listing into a string.
func (ff *FunctionFeedback) String() string {
	var b strings.Builder
	_ = ff.Render(&b)
	return b.String()
}

func table(entries []Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("(%s) %s=%s", typeName(e.Value), e.Name, value.Format(e.Value))
	}
	return strings.Join(lines, "\n")
}

func typeName(v cty.Value) string {
	if v == cty.NilVal {
		return "invalid"
	}
	return v.Type().FriendlyName()
}

func feedbackText(fb any) string {
	switch v := fb.(type) {
	case nil:
		return ""
	case cty.Value:
		return value.Format(v)
	default:
		return fmt.Sprint(v)
	}
}

type yamlEntry struct {
	Type       string `yaml:"type"`
	Value      any    `yaml:"value"`
	Constraint string `yaml:"constraint,omitempty"`
}

type yamlFeedback struct {
	Code          []string             `yaml:"code"`
	Documentation map[string]string    `yaml:"documentation"`
	Variables     map[string]yamlEntry `yaml:"variables,omitempty"`
	Inputs        map[string]yamlEntry `yaml:"inputs,omitempty"`
	Roots         map[string]yamlEntry `yaml:"roots,omitempty"`
	Others        map[string]yamlEntry `yaml:"others"`
	Outputs       map[string]yamlEntry `yaml:"outputs"`
	Feedback      string               `yaml:"feedback"`
}

// MarshalYAML implements yaml.Marshaler.
func (ff *FunctionFeedback) MarshalYAML() (any, error) {
	out := yamlFeedback{
		Code:          make([]string, len(ff.Graph)),
		Documentation: make(map[string]string, len(ff.Documentation)),
		Others:        yamlTable(ff.Others),
		Outputs:       yamlTable(ff.Outputs),
		Feedback:      feedbackText(ff.UserFeedback),
	}
	for i, c := range ff.Graph {
		out.Code[i] = c.Text
	}
	for _, d := range ff.Documentation {
		out.Documentation[d.Operator] = d.Description
	}
	if ff.Variables == nil && ff.Inputs == nil {
		out.Roots = yamlTable(ff.Roots)
	} else {
		out.Variables = yamlTable(ff.Variables)
		out.Inputs = yamlTable(ff.Inputs)
	}
	return out, nil
}

// WriteYAML encodes the summary as a YAML document.
func (ff *FunctionFeedback) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ff); err != nil {
		return err
	}
	return enc.Close()
}

func yamlTable(entries []Entry) map[string]yamlEntry {
	out := make(map[string]yamlEntry, len(entries))
	for _, e := range entries {
		out[e.Name] = yamlEntry{Type: typeName(e.Value), Value: value.ForLogs(e.Value), Constraint: e.Constraint}
	}
	return out
}
