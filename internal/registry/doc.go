// Package registry maps operator names to operator templates.
//
// Builtin operators are compiled into the binary and registered by modules
// (see Module). Script operators are declared in HCL `operator` blocks and
// decoded here, either from a program file or from a library directory.
// Programs look operators up by name and instantiate them on their own
// graph, so one registry can serve any number of runs.
//
// The registry is populated at startup and validated once; duplicate names
// are programming errors and panic.
package registry
