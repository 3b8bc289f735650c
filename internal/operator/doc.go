// Package operator turns plain Go functions and trainable scripts into
// traced operators: every call binds its arguments to graph nodes, runs the
// body while recording which nodes it reads, audits those reads against the
// declared inputs and wraps the result in a message node.
//
// Failures inside the body become exception nodes, so "the program
// crashed" reaches the optimizer as feedback like any other.
package operator
