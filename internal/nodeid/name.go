// internal/nodeid/name.go
package nodeid

import (
	"reflect"
	"strconv"
	"strings"
)

// Key returns the scoped base name without the index. Names sharing a key
// are numbered from zero by the registry.
func (n Name) Key() string {
	if len(n.Scope) == 0 {
		return n.Base
	}
	return strings.Join(n.Scope, ScopeSeparator) + ScopeSeparator + n.Base
}

// String serializes the Name into its canonical `scope/base:index` form.
// Unregistered names render without the index.
func (n Name) String() string {
	if !n.Registered() {
		return n.Key()
	}
	return n.Key() + Separator + strconv.Itoa(n.Index)
}

// PyName is the identifier-style rendering used in function-call listings:
// the canonical name with the index separator dropped.
func (n Name) PyName() string {
	return strings.ReplaceAll(n.String(), Separator, "")
}

// Equal checks for deep equality between two names.
func (n Name) Equal(other Name) bool {
	return n.Base == other.Base && n.Index == other.Index &&
		(len(n.Scope) == 0 && len(other.Scope) == 0 || reflect.DeepEqual(n.Scope, other.Scope))
}
