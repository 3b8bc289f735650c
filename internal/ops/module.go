package ops

import (
	"slices"

	"github.com/specialistvlad/tracegridgo/internal/registry"
)

// Module registers the builtin operators.
type Module struct{}

// Register adds every builtin template to r.
func (m *Module) Register(r *registry.Registry) {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		r.Register(templates[name])
	}
}
