package optim

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/ops"
	"github.com/specialistvlad/tracegridgo/internal/summary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestNewRequiresTrainableParameters(t *testing.T) {
	g := graph.New()
	frozen, err := g.NewParameter(1, graph.Frozen())
	require.NoError(t, err)
	plain, err := g.NewNode(2)
	require.NoError(t, err)

	_, err = New([]*graph.Node{frozen, plain}, nil)
	assert.ErrorIs(t, err, ErrNoParameters)
}

func TestStepRewritesCode(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	opts := operator.DefaultOptions()
	opts.Trainable = true
	op, err := operator.New(g, operator.Descriptor{
		Name:   "greet",
		Params: []operator.Param{operator.Required("name")},
		Source: "# greet(name)\nresult = \"Hi ${name}\"\n",
	}, nil, opts)
	require.NoError(t, err)

	var seen *summary.FunctionFeedback
	proposer := ProposerFunc(func(_ context.Context, problem *summary.FunctionFeedback) (map[string]cty.Value, error) {
		seen = problem
		return map[string]cty.Value{
			op.Code().PyName(): cty.StringVal("# greet(name)\nresult = \"Hello, ${name}!\"\n"),
			"ghost0":           cty.StringVal("ignored"),
		}, nil
	})
	opt, err := New(op.Parameters(), proposer)
	require.NoError(t, err)
	assert.Equal(t, op.Parameters(), opt.Parameters())

	out, err := op.Call(ctx, "Ada")
	require.NoError(t, err)
	require.NoError(t, opt.Backward(ctx, out, "Be more enthusiastic.", false))

	updates, err := opt.Step(ctx)
	require.NoError(t, err)
	assert.Len(t, updates, 1)
	require.NotNil(t, seen)
	assert.Equal(t, "Be more enthusiastic.", seen.UserFeedback)
	assert.Len(t, seen.Variables, 1)
	assert.Contains(t, seen.String(), "#Constraints\n(string) __code0: The code should start with:\n# greet(name)")

	opt.ZeroFeedback()
	assert.Empty(t, op.Code().Feedback())

	out, err = op.Call(ctx, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada!", out.Peek().AsString())

	t.Run("no feedback, no step", func(t *testing.T) {
		seen = nil
		updates, err := opt.Step(ctx)
		require.NoError(t, err)
		assert.Nil(t, updates)
		assert.Nil(t, seen)
	})
}

func TestUpdate(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	x, err := g.NewParameter(1, graph.WithName("x"))
	require.NoError(t, err)
	frozen, err := g.NewParameter(1, graph.WithName("k"), graph.Frozen())
	require.NoError(t, err)

	clamp := ProjectionFunc(func(_ *graph.Node, v cty.Value) (cty.Value, error) {
		if v.Type() != cty.Number {
			return cty.NilVal, errors.New("not a number")
		}
		if v.AsBigFloat().Cmp(big.NewFloat(10)) > 0 {
			return cty.NumberIntVal(10), nil
		}
		return v, nil
	})
	opt, err := New([]*graph.Node{x, frozen}, nil, WithProjections(clamp))
	require.NoError(t, err)

	require.NoError(t, opt.Update(ctx, map[*graph.Node]cty.Value{
		x:      cty.NumberIntVal(42),
		frozen: cty.NumberIntVal(7),
	}))
	assert.True(t, x.Peek().RawEquals(cty.NumberIntVal(10)))
	assert.True(t, frozen.Peek().RawEquals(cty.NumberIntVal(1)))

	err = opt.Update(ctx, map[*graph.Node]cty.Value{x: cty.StringVal("nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")
	assert.True(t, x.Peek().RawEquals(cty.NumberIntVal(10)))

	_, err = opt.Step(ctx)
	assert.Error(t, err)
}

func TestStepWithOps(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	x, err := g.NewNode(1, graph.Trainable(), graph.WithName("x"))
	require.NoError(t, err)

	forward := func() *graph.Node {
		z, err := ops.On(ctx, x).Mul(2).Add(1).Node()
		require.NoError(t, err)
		return z
	}

	opt, err := New([]*graph.Node{x}, ProposerFunc(func(_ context.Context, p *summary.FunctionFeedback) (map[string]cty.Value, error) {
		return map[string]cty.Value{"x0": cty.NumberIntVal(4)}, nil
	}))
	require.NoError(t, err)

	require.NoError(t, opt.Backward(ctx, forward(), "want 9", false))
	_, err = opt.Step(ctx)
	require.NoError(t, err)
	assert.True(t, forward().Peek().RawEquals(cty.NumberIntVal(9)))

	t.Run("proposer failures surface", func(t *testing.T) {
		failing, err := New([]*graph.Node{x}, ProposerFunc(func(context.Context, *summary.FunctionFeedback) (map[string]cty.Value, error) {
			return nil, errors.New("llm down")
		}))
		require.NoError(t, err)
		failing.ZeroFeedback()
		require.NoError(t, failing.Backward(ctx, forward(), "again", false))
		_, err = failing.Step(ctx)
		assert.ErrorContains(t, err, "llm down")
	})
}
