package app

import (
	"io"

	"github.com/specialistvlad/tracegridgo/internal/ops"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/specialistvlad/tracegridgo/modules/env_vars"
	"github.com/specialistvlad/tracegridgo/modules/http_client"
	"github.com/specialistvlad/tracegridgo/modules/print"
)

// coreModules is the definitive list of all operator modules that are
// compiled into the tracegrid binary.
func coreModules(cfg *Config, outW io.Writer) []registry.Module {
	return []registry.Module{
		&ops.Module{},
		&env_vars.Module{},
		&print.Module{Out: outW},
		&http_client.Module{Timeout: cfg.HTTPTimeout},
	}
}
