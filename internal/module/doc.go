// Package module groups trainable parameters and operators into reusable
// models.
//
// A model is a Go type that embeds Base. Its constructor declares
// parameters with Param, binds operator templates as methods with Method
// and nests other models with Sub. Every instance owns its parameters:
// binding a trainable template gives the instance a private code
// parameter, so updating one instance never changes another's output.
//
// Save and Load persist a model's parameter data keyed by the stable
// dotted path of each parameter (for example `planner.reply.__code`), so a
// structurally identical model built on another graph can be restored.
package module
