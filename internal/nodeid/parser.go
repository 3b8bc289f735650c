// internal/nodeid/parser.go
package nodeid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentRegex is used to validate a single scope segment or base name.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return segmentRegex.MatchString(name)
}

// ValidateBase reports whether base can be used as a node base name.
func ValidateBase(base string) error {
	if base == "" {
		return fmt.Errorf("base name cannot be empty")
	}
	if !isValidSegmentName(base) {
		return fmt.Errorf("invalid base name: %q", base)
	}
	return nil
}

// Parse creates a Name by parsing its canonical `scope/base:index` form.
// The index suffix is mandatory.
func Parse(raw string) (Name, error) {
	if raw == "" {
		return Name{}, fmt.Errorf("name cannot be empty")
	}

	sep := strings.LastIndex(raw, Separator)
	if sep < 0 {
		return Name{}, fmt.Errorf("name %q is missing the %q index suffix", raw, Separator)
	}

	index, err := strconv.Atoi(raw[sep+1:])
	if err != nil || index < 0 {
		return Name{}, fmt.Errorf("name %q has an invalid index %q", raw, raw[sep+1:])
	}

	path := raw[:sep]
	if path == "" {
		return Name{}, fmt.Errorf("name %q has an empty base", raw)
	}

	segments := strings.Split(path, ScopeSeparator)
	for _, segment := range segments {
		if segment == "" {
			return Name{}, fmt.Errorf("name %q contains an empty scope segment", raw)
		}
		if !isValidSegmentName(segment) {
			return Name{}, fmt.Errorf("invalid segment name: %q", segment)
		}
	}

	name := Name{Base: segments[len(segments)-1], Index: index}
	if len(segments) > 1 {
		name.Scope = segments[:len(segments)-1]
	}
	return name, nil
}
