package graph

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/tracegridgo/internal/ctxlog"
)

// key is an unexported type to prevent collisions with context keys from other packages.
type key struct{}

var graphKey = key{}

// WithGraph returns a new context with the provided graph embedded.
func WithGraph(ctx context.Context, g *Graph) context.Context {
	return context.WithValue(ctx, graphKey, g)
}

// FromContext extracts the graph from a context.
func FromContext(ctx context.Context) (*Graph, error) {
	if g, ok := ctx.Value(graphKey).(*Graph); ok && g != nil {
		return g, nil
	}
	return nil, ErrNoGraph
}

func loggerFor(ctx context.Context, g *Graph) *slog.Logger {
	logger := ctxlog.FromContext(ctx)
	if g != nil {
		logger = logger.With("graph", g.id.String())
	}
	return logger
}
