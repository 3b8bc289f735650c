package script

import (
	"fmt"
	"strings"
)

// Error classes reported by Compile and Run.
const (
	SyntaxError    = "SyntaxError"
	SignatureError = "SignatureError"
	NameError      = "NameError"
	EvalError      = "EvalError"
)

// Error is a script failure located at a source line.
type Error struct {
	Type   string
	Line   int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("(%s) line %d: %s", e.Type, e.Line, e.Detail)
}

// ErrorType returns the error class, e.g. "SyntaxError".
func (e *Error) ErrorType() string { return e.Type }

// SourceLine returns the 1-based line the error refers to.
func (e *Error) SourceLine() int { return e.Line }

// Message is the error without its location.
func (e *Error) Message() string { return e.Detail }

// Annotate returns src with `<--- (typ) detail` appended to the given
// 1-based line. Out-of-range lines leave src unchanged.
func Annotate(src string, line int, typ, detail string) string {
	lines := strings.Split(src, "\n")
	if line < 1 || line > len(lines) {
		return src
	}
	lines[line-1] = fmt.Sprintf("%s <--- (%s) %s", lines[line-1], typ, detail)
	return strings.Join(lines, "\n")
}
