package operator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/value"
)

// ErrBind is returned when call arguments do not match the signature.
var ErrBind = errors.New("cannot bind arguments")

// ErrDescriptor is returned by New for invalid descriptors or options.
var ErrDescriptor = errors.New("invalid operator")

// ExecutionError reports a failed operator body. Node is the exception
// node recorded in the graph.
type ExecutionError struct {
	Node *graph.Node
	Err  error
}

func (e *ExecutionError) Error() string {
	return "execution error: " + value.Format(e.Node.Peek())
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TraceMissingInputsError reports nodes read by an operator body that were
// not declared as inputs.
type TraceMissingInputsError struct {
	Operator string
	Missing  []*graph.Node
}

func (e *TraceMissingInputsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, n := range e.Missing {
		names[i] = n.Name()
	}
	return fmt.Sprintf("operator %s read nodes that are not inputs: %s; declare them as inputs or allow external dependencies",
		e.Operator, strings.Join(names, ", "))
}

// TypedError attaches an error class to a body failure. The class is shown
// in exception nodes as `(Type) message`.
type TypedError struct {
	Type string
	Err  error
}

func (e *TypedError) Error() string { return e.Err.Error() }
func (e *TypedError) Unwrap() error { return e.Err }
func (e *TypedError) ErrorType() string { return e.Type }
func (e *TypedError) Message() string { return e.Err.Error() }

// Errorf builds a TypedError.
func Errorf(typ, format string, args ...any) error {
	return &TypedError{Type: typ, Err: fmt.Errorf(format, args...)}
}

type typed interface {
	ErrorType() string
}

type messaged interface {
	Message() string
}

type located interface {
	SourceLine() int
}

// describe returns the class and message shown for err.
func describe(err error) (typ, msg string) {
	typ, msg = "Error", err.Error()
	var t typed
	if errors.As(err, &t) {
		typ = t.ErrorType()
		if m, ok := t.(messaged); ok {
			msg = m.Message()
		}
	}
	return typ, msg
}

func sourceLine(err error) int {
	var l located
	if errors.As(err, &l) {
		return l.SourceLine()
	}
	return 0
}
