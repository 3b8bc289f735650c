package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/specialistvlad/tracegridgo/internal/operator"
)

// Module is implemented by packages that contribute operators.
type Module interface {
	Register(r *Registry)
}

// Registry holds operator templates by name.
type Registry struct {
	mutex     sync.RWMutex
	templates map[string]*operator.Template
}

// New creates a registry populated by the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{templates: make(map[string]*operator.Template)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a template. Registering a name twice panics.
func (r *Registry) Register(t *operator.Template) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.templates[t.Name()]; exists {
		panic(fmt.Sprintf("operator with name '%s' already registered", t.Name()))
	}
	slog.Debug("Registering operator.", "name", t.Name(), "trainable", t.Options().Trainable)
	r.templates[t.Name()] = t
}

// Lookup returns the template registered under name.
func (r *Registry) Lookup(name string) (*operator.Template, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.templates)
}
