package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestPrintPassesValueThrough(t *testing.T) {
	var buf bytes.Buffer
	r := registry.New(&Module{Out: &buf})
	tmpl, ok := r.Lookup("print")
	require.True(t, ok)

	g, ctx := graph.Open(context.Background())
	op, err := tmpl.New(g)
	require.NoError(t, err)

	x, err := g.NewNode("hello", graph.WithName("x"))
	require.NoError(t, err)
	out, err := op.Call(ctx, x)
	require.NoError(t, err)
	assert.True(t, out.Peek().RawEquals(cty.StringVal("hello")))
	assert.Same(t, x, out.Input("x"))

	_, err = op.Call(ctx, 3, operator.Kwargs{"label": "count"})
	require.NoError(t, err)

	assert.Equal(t, "hello\ncount = 3\n", buf.String())
}
