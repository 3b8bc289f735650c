// Package print provides the print operator, which writes a value and
// passes it through unchanged.
package print

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/specialistvlad/tracegridgo/internal/value"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out defaults to os.Stdout.
	Out io.Writer
}

// Register registers the print operator.
func (m *Module) Register(r *registry.Registry) {
	desc := operator.Descriptor{
		Name:   "print",
		Doc:    "This prints x and returns it unchanged",
		Params: []operator.Param{operator.Required("x"), operator.Optional("label", "")},
	}
	t, err := operator.NewTemplate(desc, m.onRunPrint, operator.DefaultOptions())
	if err != nil {
		panic(fmt.Sprintf("print: %v", err))
	}
	r.Register(t)
}

func (m *Module) onRunPrint(ctx context.Context, in *operator.Args) (any, error) {
	var label string
	if err := in.Decode("label", &label); err != nil {
		return nil, err
	}
	x := in.Value("x")
	ctxlog.FromContext(ctx).Info("Printing input", "label", label)

	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	line := value.Format(x)
	if label != "" {
		line = label + " = " + line
	}
	if _, err := fmt.Fprintln(out, line); err != nil {
		return nil, operator.Errorf("IOError", "%s", err)
	}
	return x, nil
}
