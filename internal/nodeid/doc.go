// internal/nodeid/doc.go

/*
Package nodeid provides a structured, type-safe representation for trace
node names, based on the canonical format `scope/base:index`.

The scope is an optional slash-separated prefix produced by nested name
scopes, e.g. `agent/planner/format:3`. The index is assigned by the graph
registry and makes every name unique within one graph.

This package enforces the naming schema and centralizes all formatting and
parsing logic.
*/
package nodeid
