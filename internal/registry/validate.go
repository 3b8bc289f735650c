package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/operator"
)

// Validate checks every registered template and reports all problems at
// once. Each template is instantiated on a scratch graph, so trainable
// operators also prove their initial code compiles.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	scratch := graph.New()
	defer scratch.Close(ctx)

	var result *multierror.Error
	for _, name := range r.Names() {
		t, _ := r.Lookup(name)
		if err := validateTemplate(scratch, name, t); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		opts := t.Options()
		if opts.AllowExternalDependencies {
			logger.Warn("Operator allows external dependencies; hidden reads will not be audited.", "operator", name)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	logger.Debug("Registry validated.", "operators", r.Len())
	return nil
}

func validateTemplate(scratch *graph.Graph, name string, t *operator.Template) error {
	desc := t.Descriptor()
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("operator %q: %w", name, err)
	}
	description := t.Options().Description
	if description == "" {
		description = desc.DefaultDescription()
	}
	if err := graph.ValidateDescription(description); err != nil {
		return fmt.Errorf("operator %q: %w", name, err)
	}
	if _, err := t.New(scratch); err != nil {
		return fmt.Errorf("operator %q: %w", name, err)
	}
	return nil
}
