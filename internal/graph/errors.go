package graph

import "errors"

var (
	// ErrClosed is returned when registering into a closed graph.
	ErrClosed = errors.New("graph is closed")
	// ErrNoGraph is returned when a context carries no graph.
	ErrNoGraph = errors.New("no graph in context")
	// ErrNotFound is returned by Get for unknown names.
	ErrNotFound = errors.New("node not found")
	// ErrMalformedName is returned by Get for names without a `:index` suffix.
	ErrMalformedName = errors.New("malformed node name")
	// ErrInvalidDescription is returned for descriptions without a `[operator]` prefix.
	ErrInvalidDescription = errors.New("description must start with [operator_name]")
	// ErrNotParameter is returned when mutating the data of a non-parameter node.
	ErrNotParameter = errors.New("only parameter nodes can be updated")
	// ErrDuplicateFeedback is returned when a message node receives feedback
	// twice from the same child before ZeroFeedback.
	ErrDuplicateFeedback = errors.New("duplicate feedback from child")
	// ErrAlreadyBackwarded is returned when backward reaches a node that was
	// already the subject of a backward pass without RetainGraph.
	ErrAlreadyBackwarded = errors.New("node has already been backwarded")
	// ErrNotPropagatable is returned when the traversal pops a node that is
	// not a message node with parents.
	ErrNotPropagatable = errors.New("node cannot propagate feedback")
	// ErrIncompletePropagation is returned when a propagator omits a parent.
	ErrIncompletePropagation = errors.New("propagator did not produce feedback for every parent")
	// ErrFeedbackConflict is returned when two trace graphs carry different user feedback.
	ErrFeedbackConflict = errors.New("conflicting user feedback")
	// ErrFeedbackType is returned when a propagator receives feedback of a type it cannot aggregate.
	ErrFeedbackType = errors.New("unsupported feedback type")
	// ErrDetached is returned for operations that need a registered node.
	ErrDetached = errors.New("node is detached from the graph")
	// ErrCycle is returned when a node would become its own ancestor.
	ErrCycle = errors.New("edge would create a cycle")
)
