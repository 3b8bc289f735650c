// Package summary turns the feedback collected at trainable parameters
// into a structured problem an optimizer can read.
//
// FromTraceGraph walks a TraceGraph in level order and renames the visited
// subgraph into a pseudo-code listing ("out = op(arg=parent, ...)"), a
// documentation table and labeled value tables. Nodes are classified as
//
//	roots    no parents, or a blanket node whose parents were not all
//	         visited (the edge of the window the optimizer sees)
//	outputs  operator results at the deepest visited level
//	others   operator results below that level
//
// Summarize does the same for the aggregated feedback of a parameter set
// and splits the roots into trainable variables and fixed inputs.
package summary
