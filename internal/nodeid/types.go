// internal/nodeid/types.go
package nodeid

// Separator joins the base name and the registry index.
const Separator = ":"

// ScopeSeparator joins nested name scopes.
const ScopeSeparator = "/"

// Name is the structured representation of a unique node name.
type Name struct {
	Scope []string
	Base  string
	Index int // -1 indicates the name has not been registered yet.
}

// New creates an unregistered name for the given base within the scope.
func New(base string, scope ...string) Name {
	return Name{Scope: append([]string(nil), scope...), Base: base, Index: -1}
}

// WithIndex returns a copy of the name carrying the given registry index.
func (n Name) WithIndex(index int) Name {
	n.Scope = append([]string(nil), n.Scope...)
	n.Index = index
	return n
}

// Registered returns true if the name carries a registry index.
func (n Name) Registered() bool {
	return n.Index >= 0
}
