// Package env_vars provides operators that read the process environment.
package env_vars

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ replaces os.Environ, mainly for tests.
	Environ func() []string
}

// Register registers the getenv and environ operators.
func (m *Module) Register(r *registry.Registry) {
	m.register(r, operator.Descriptor{
		Name:   "getenv",
		Doc:    "This reads the environment variable name, or default when it is unset",
		Params: []operator.Param{operator.Required("name"), operator.Optional("default", nil)},
	}, m.onRunGetenv)
	m.register(r, operator.Descriptor{
		Name:   "environ",
		Doc:    "This returns every environment variable starting with prefix",
		Params: []operator.Param{operator.Optional("prefix", "")},
	}, m.onRunEnviron)
}

func (m *Module) register(r *registry.Registry, desc operator.Descriptor, fn operator.Func) {
	t, err := operator.NewTemplate(desc, fn, operator.DefaultOptions())
	if err != nil {
		panic(fmt.Sprintf("env_vars: %v", err))
	}
	r.Register(t)
}

func (m *Module) environ() map[string]string {
	list := os.Environ()
	if m.Environ != nil {
		list = m.Environ()
	}
	envMap := make(map[string]string, len(list))
	for _, e := range list {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}

func (m *Module) onRunGetenv(_ context.Context, in *operator.Args) (any, error) {
	var name string
	if err := in.Decode("name", &name); err != nil {
		return nil, err
	}
	if v, ok := m.environ()[name]; ok {
		return cty.StringVal(v), nil
	}
	return in.Value("default"), nil
}

func (m *Module) onRunEnviron(_ context.Context, in *operator.Args) (any, error) {
	var prefix string
	if err := in.Decode("prefix", &prefix); err != nil {
		return nil, err
	}
	all := map[string]cty.Value{}
	for k, v := range m.environ() {
		if strings.HasPrefix(k, prefix) {
			all[k] = cty.StringVal(v)
		}
	}
	if len(all) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(all), nil
}
