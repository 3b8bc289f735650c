package operator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/specialistvlad/tracegridgo/internal/graph"
	"github.com/specialistvlad/tracegridgo/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

func divide(ctx context.Context, in *Args) (any, error) {
	var a, b float64
	if err := in.Decode("a", &a); err != nil {
		return nil, err
	}
	if err := in.Decode("b", &b); err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, Errorf("ZeroDivisionError", "division by zero")
	}
	return a / b, nil
}

var divideDesc = Descriptor{
	Name:   "bad",
	Doc:    "Divides a by b",
	Params: []Param{Required("a"), Required("b")},
	Source: "bad(a, b) = a / b",
}

func toInt(t *testing.T, v cty.Value) int {
	t.Helper()
	var i int
	require.NoError(t, gocty.FromCtyValue(v, &i))
	return i
}

func TestCallWrapsResult(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op, err := New(g, divideDesc, divide, DefaultOptions())
	require.NoError(t, err)

	a, _ := g.NewNode(6, graph.WithName("a"))
	out, err := op.Call(ctx, a, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, toInt(t, out.Peek()))
	assert.True(t, out.IsMessage())
	assert.Equal(t, "bad:0", out.Name())
	assert.Equal(t, "[bad] Divides a by b.", out.Description())
	assert.Same(t, a, out.Input("a"))
	require.NotNil(t, out.Input("b"))
	assert.Equal(t, "b:0", out.Input("b").Name())
	assert.Len(t, out.Parents(), 2)
	assert.Equal(t, 1, out.Level())

	info := out.Info()
	require.NotNil(t, info)
	assert.Equal(t, "bad", info.FunName)
	assert.Equal(t, "bad(a, b)", info.Signature)
	assert.Len(t, info.Args, 2)
}

func TestCallOnClosedGraphLeavesInputsUnlinked(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op, err := New(g, divideDesc, divide, DefaultOptions())
	require.NoError(t, err)
	a, _ := g.NewNode(6, graph.WithName("a"))
	b, _ := g.NewNode(3, graph.WithName("b"))

	g.Close(ctx)
	_, err = op.Call(ctx, a, b)

	require.ErrorIs(t, err, graph.ErrClosed)
	assert.Empty(t, a.Children())
	assert.Empty(t, b.Children())
}

func TestExecutionErrorBecomesExceptionNode(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op, err := New(g, divideDesc, divide, DefaultOptions())
	require.NoError(t, err)

	a, _ := g.NewNode(1, graph.WithName("a"))
	b, _ := g.NewNode(0, graph.WithName("b"))
	_, err = op.Call(ctx, a, b)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	exc := execErr.Node
	assert.True(t, exc.IsException())
	assert.ElementsMatch(t, []*graph.Node{a, b}, exc.Parents())
	assert.Equal(t, "(ZeroDivisionError) division by zero", exc.Peek().AsString())
	assert.Equal(t, "exception_bad:0", exc.Name())
	assert.Equal(t, "exception", exc.OperatorName())
	assert.Equal(t, "(ZeroDivisionError) division by zero", exc.Info().ErrorComment)

	t.Run("exception node can be backwarded", func(t *testing.T) {
		require.NoError(t, exc.Backward(ctx, "avoid dividing by zero", graph.BackwardOptions{}))
		assert.Len(t, b.Feedback(), 1)
	})
}

func TestCatchExecutionErrorDisabled(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	opts := DefaultOptions()
	opts.CatchExecutionError = false
	op, err := New(g, divideDesc, divide, opts)
	require.NoError(t, err)

	_, err = op.Call(ctx, 1, 0)
	var typedErr *TypedError
	require.True(t, errors.As(err, &typedErr))
	assert.Equal(t, "ZeroDivisionError", typedErr.ErrorType())
	var execErr *ExecutionError
	assert.False(t, errors.As(err, &execErr))
}

func TestBinding(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	desc := Descriptor{
		Name:   "collect",
		Params: []Param{Required("first"), Optional("second", "two"), VarArgs("rest"), KwArgs("opts")},
	}
	var seen *Args
	op, err := New(g, desc, func(_ context.Context, in *Args) (any, error) {
		seen = in
		return len(in.Values()), nil
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, `collect(first, second="two", *rest, **opts)`, desc.Signature())

	t.Run("defaults varargs and keywords", func(t *testing.T) {
		out, err := op.Call(ctx, 1, 2, 3, 4, Kwargs{"zeta": "z", "alpha": "a"})
		require.NoError(t, err)
		names := make([]string, 0)
		for _, in := range out.Inputs() {
			names = append(names, in.Name)
		}
		assert.Equal(t, []string{"first", "second", "rest_0", "rest_1", "alpha", "zeta"}, names)
		assert.Len(t, seen.Varargs(), 2)
		assert.Len(t, seen.Keywords(), 2)
		assert.Len(t, out.Info().Args, 4)
	})

	t.Run("default applied", func(t *testing.T) {
		out, err := op.Call(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "two", out.Input("second").Peek().AsString())
		assert.Contains(t, out.Info().Kwargs, "second")
	})

	t.Run("keyword for positional", func(t *testing.T) {
		out, err := op.Call(ctx, Kwargs{"first": 1, "second": 2})
		require.NoError(t, err)
		assert.Equal(t, 1, toInt(t, out.Input("first").Peek()))
	})

	bindErrors := map[string][]any{
		"missing required":  {},
		"multiple values":   {1, Kwargs{"first": 2}},
		"invalid keyword":   {1, Kwargs{"bad key": 2}},
		"reserved keyword":  {1, Kwargs{CodeInput: 2}},
		"collides with var": {1, 2, 3, Kwargs{"rest_0": 2}},
	}
	for name, args := range bindErrors {
		t.Run(name, func(t *testing.T) {
			_, err := op.Call(ctx, args...)
			assert.ErrorIs(t, err, ErrBind)
		})
	}

	t.Run("too many positional without variadic", func(t *testing.T) {
		strict, err := New(g, Descriptor{Name: "one", Params: []Param{Required("x")}},
			func(_ context.Context, in *Args) (any, error) { return in.Value("x"), nil }, DefaultOptions())
		require.NoError(t, err)
		_, err = strict.Call(ctx, 1, 2)
		assert.ErrorIs(t, err, ErrBind)
		_, err = strict.Call(ctx, 1, Kwargs{"y": 2})
		assert.ErrorIs(t, err, ErrBind)
	})
}

func TestDescriptorValidation(t *testing.T) {
	body := func(context.Context, *Args) (any, error) { return nil, nil }
	tests := map[string]struct {
		desc Descriptor
		opts Options
	}{
		"bad name":               {Descriptor{Name: "a b"}, DefaultOptions()},
		"duplicate param":        {Descriptor{Name: "f", Params: []Param{Required("x"), Required("x")}}, DefaultOptions()},
		"required after default": {Descriptor{Name: "f", Params: []Param{Optional("x", 1), Required("y")}}, DefaultOptions()},
		"param after keywords":   {Descriptor{Name: "f", Params: []Param{KwArgs("kw"), Required("y")}}, DefaultOptions()},
		"two variadics":          {Descriptor{Name: "f", Params: []Param{VarArgs("a"), VarArgs("b")}}, DefaultOptions()},
		"reserved param":         {Descriptor{Name: "f", Params: []Param{Required(CodeInput)}}, DefaultOptions()},
		"malformed description":  {Descriptor{Name: "f"}, Options{Description: "no brackets"}},
		"trainable without code": {Descriptor{Name: "f"}, Options{Trainable: true}},
		"trainable variadic": {
			Descriptor{Name: "f", Params: []Param{VarArgs("a")}, Source: "# f(*a)\nresult = 1\n"},
			Options{Trainable: true},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewTemplate(tc.desc, body, tc.opts)
			assert.ErrorIs(t, err, ErrDescriptor)
		})
	}

	_, err := NewTemplate(Descriptor{Name: "f"}, nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrDescriptor)
}

func TestDependencyAudit(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	hidden, _ := g.NewParameter(10, graph.WithName("hidden"))
	desc := Descriptor{Name: "peek", Params: []Param{Required("x")}}
	body := func(_ context.Context, in *Args) (any, error) {
		var x, h int
		if err := in.Decode("x", &x); err != nil {
			return nil, err
		}
		if err := gocty.FromCtyValue(hidden.Data(), &h); err != nil {
			return nil, err
		}
		return x + h, nil
	}

	t.Run("undeclared read is rejected", func(t *testing.T) {
		op, err := New(g, desc, body, DefaultOptions())
		require.NoError(t, err)
		_, err = op.Call(ctx, 1)
		var missing *TraceMissingInputsError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []*graph.Node{hidden}, missing.Missing)
		assert.Contains(t, err.Error(), "hidden:0")
	})

	t.Run("allowed external becomes a parent", func(t *testing.T) {
		opts := DefaultOptions()
		opts.AllowExternalDependencies = true
		op, err := New(g, desc, body, opts)
		require.NoError(t, err)
		out, err := op.Call(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 11, toInt(t, out.Peek()))
		assert.Contains(t, out.Parents(), hidden)
		assert.Nil(t, out.Input("hidden"))
		assert.Equal(t, []*graph.Node{hidden}, out.Info().External)
		assert.Equal(t, []*graph.Node{hidden}, out.ParameterDependencies())
	})
}

func TestTraceableCodeHiddenDependencies(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	weight, _ := g.NewParameter(3, graph.WithName("weight"))

	mul, err := New(g, Descriptor{Name: "mul", Params: []Param{Required("a"), Required("b")}},
		func(_ context.Context, in *Args) (any, error) {
			var a, b int
			if err := in.Decode("a", &a); err != nil {
				return nil, err
			}
			if err := in.Decode("b", &b); err != nil {
				return nil, err
			}
			return a * b, nil
		}, DefaultOptions())
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.TraceableCode = true
	scale, err := New(g, Descriptor{Name: "scale", Params: []Param{Required("x")}},
		func(ctx context.Context, in *Args) (any, error) {
			return mul.Call(ctx, in.Node("x"), weight)
		}, opts)
	require.NoError(t, err)

	x, _ := g.NewNode(2, graph.WithName("x"))
	out, err := scale.Call(ctx, x)
	require.NoError(t, err)

	assert.Equal(t, 6, toInt(t, out.Peek()))
	assert.Equal(t, []*graph.Node{x}, out.Parents())
	require.NotNil(t, out.Info().Output)
	assert.Equal(t, "mul:0", out.Info().Output.Name())
	assert.Equal(t, []*graph.Node{weight}, out.HiddenDependencies())
	assert.Equal(t, []*graph.Node{out}, out.ExpandableDependencies())

	require.NoError(t, out.Backward(ctx, "make it bigger", graph.BackwardOptions{}))
	fb := weight.FeedbackFrom(out)
	require.Len(t, fb, 1)
	assert.Equal(t, "make it bigger", fb[0].(graph.TraceGraph).UserFeedback)
}

func TestArgsNodeRequiresTraceableCode(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	var got *graph.Node
	op, err := New(g, Descriptor{Name: "id", Params: []Param{Required("x")}},
		func(_ context.Context, in *Args) (any, error) {
			got = in.Node("x")
			return in.Value("x"), nil
		}, DefaultOptions())
	require.NoError(t, err)
	_, err = op.Call(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func factorial(t *testing.T, g *graph.Graph, opts Options) *Operator {
	t.Helper()
	var fact *Operator
	fact, err := New(g, Descriptor{Name: "factorial", Params: []Param{Required("n")}},
		func(ctx context.Context, in *Args) (any, error) {
			var n int
			if err := in.Decode("n", &n); err != nil {
				return nil, err
			}
			if n <= 1 {
				return 1, nil
			}
			sub, err := fact.Call(ctx, n-1)
			if err != nil {
				return nil, err
			}
			var s int
			if err := gocty.FromCtyValue(sub.Data(), &s); err != nil {
				return nil, err
			}
			return n * s, nil
		}, opts)
	require.NoError(t, err)
	return fact
}

func TestRecursion(t *testing.T) {
	t.Run("recursive calls are intercepted", func(t *testing.T) {
		g, ctx := graph.Open(context.Background())
		out, err := factorial(t, g, DefaultOptions()).Call(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, 120, toInt(t, out.Peek()))
		assert.Equal(t, 2, g.Len(), "one input and one output node")
	})

	t.Run("overwrite recursion traces every call", func(t *testing.T) {
		g, ctx := graph.Open(context.Background())
		opts := DefaultOptions()
		opts.OverwriteRecursion = true
		out, err := factorial(t, g, opts).Call(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, 120, toInt(t, out.Peek()))
		assert.Equal(t, 10, g.Len())
	})
}

func TestSuspendedTracing(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op, err := New(g, divideDesc, divide, DefaultOptions())
	require.NoError(t, err)

	restore := g.Suspend()
	out, err := op.Call(ctx, 6, 2)
	restore()

	require.NoError(t, err)
	assert.True(t, out.Detached())
	assert.Equal(t, 3, toInt(t, out.Peek()))
	assert.Equal(t, 0, g.Len())
}

func TestMultipleOutputs(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	opts := DefaultOptions()
	opts.Outputs = 2
	op, err := New(g, Descriptor{Name: "divmod", Params: []Param{Required("a"), Required("b")}},
		func(_ context.Context, in *Args) (any, error) {
			var a, b int
			if err := in.Decode("a", &a); err != nil {
				return nil, err
			}
			if err := in.Decode("b", &b); err != nil {
				return nil, err
			}
			return []any{a / b, a % b}, nil
		}, opts)
	require.NoError(t, err)

	outs, err := op.CallN(ctx, 7, 2)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, 3, toInt(t, outs[0].Peek()))
	assert.Equal(t, 1, toInt(t, outs[1].Peek()))
	assert.Equal(t, "divmod:0", outs[0].Name())
	assert.Equal(t, "divmod:1", outs[1].Name())

	_, err = op.Call(ctx, 7, 2)
	assert.ErrorIs(t, err, ErrBind)
}

const greetScript = `# greet(name)
result = "Hello, ${name}"
`

func trainableGreet(t *testing.T, g *graph.Graph) *Operator {
	t.Helper()
	opts := DefaultOptions()
	opts.Trainable = true
	op, err := New(g, Descriptor{Name: "greet", Params: []Param{Required("name")}, Source: greetScript}, nil, opts)
	require.NoError(t, err)
	return op
}

func TestTrainableOperator(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op := trainableGreet(t, g)

	code := op.Code()
	require.NotNil(t, code)
	assert.True(t, code.Trainable())
	assert.Equal(t, "__code:0", code.Name())
	assert.Equal(t, "The code should start with:\n# greet(name)", code.Constraint())
	assert.Equal(t, []*graph.Node{code}, op.Parameters())

	out, err := op.Call(ctx, "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Hello, Ada", out.Peek().AsString())
	assert.Equal(t, "eval:0", out.Name())
	assert.Equal(t, "eval", out.OperatorName())
	assert.Same(t, code, out.Input(CodeInput))
	assert.Equal(t, greetScript, out.Info().Source)

	t.Run("updated code takes effect on the next call", func(t *testing.T) {
		require.NoError(t, code.SetData("# greet(name)\nresult = upper(name)\n"))
		out, err := op.Call(ctx, "Ada")
		require.NoError(t, err)
		assert.Equal(t, "ADA", out.Peek().AsString())
	})
}

func TestTrainableOperatorDescription(t *testing.T) {
	g, ctx := graph.Open(context.Background())

	tests := []struct {
		name        string
		doc         string
		description string
		want        string
	}{
		{"doc is appended", "Greets someone by name", "", evalDescription + " Greets someone by name."},
		{"description is appended", "", "[greet] Says hello to name.", evalDescription + " Says hello to name."},
		{"no doc", "", "", evalDescription},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Trainable = true
			opts.Description = tc.description
			desc := Descriptor{Name: "greet", Doc: tc.doc, Params: []Param{Required("name")}, Source: greetScript}
			op, err := New(g, desc, nil, opts)
			require.NoError(t, err)

			out, err := op.Call(ctx, "Ada")
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.Description())
			assert.Equal(t, "eval", out.OperatorName())
		})
	}
}

func TestTrainableSyntaxError(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op := trainableGreet(t, g)
	broken := "# greet(name)\nresult = \"Hello, ${name\n"
	require.NoError(t, op.Code().SetData(broken))

	_, err := op.Call(ctx, "Ada")
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	exc := execErr.Node
	assert.Contains(t, exc.Peek().AsString(), "SyntaxError")
	assert.Equal(t, []*graph.Node{op.Code()}, exc.Parents())
	assert.Equal(t, "exception_eval:0", exc.Name())
	assert.Contains(t, exc.Info().ErrorComment, "<--- (SyntaxError)")
}

func TestTrainableSignatureAndRuntimeErrors(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	op := trainableGreet(t, g)

	t.Run("signature tampering", func(t *testing.T) {
		require.NoError(t, op.Code().SetData("# greet(name, extra)\nresult = name\n"))
		_, err := op.Call(ctx, "Ada")
		var execErr *ExecutionError
		require.True(t, errors.As(err, &execErr))
		assert.True(t, strings.HasPrefix(execErr.Node.Peek().AsString(), "("+script.SignatureError+")"))
		assert.Equal(t, []*graph.Node{op.Code()}, execErr.Node.Parents())
	})

	t.Run("runtime failure depends on every input", func(t *testing.T) {
		require.NoError(t, op.Code().SetData("# greet(name)\nresult = name + 1\n"))
		name, _ := g.NewNode("Ada", graph.WithName("name"))
		_, err := op.Call(ctx, name)
		var execErr *ExecutionError
		require.True(t, errors.As(err, &execErr))
		assert.Contains(t, execErr.Node.Peek().AsString(), "(EvalError)")
		assert.ElementsMatch(t, []*graph.Node{name, op.Code()}, execErr.Node.Parents())
		assert.Equal(t, 2, execErr.Node.Info().Line)
		assert.Contains(t, execErr.Node.Info().ErrorComment, "result = name + 1 <--- (EvalError)")
	})

	t.Run("division by zero matches the builtin", func(t *testing.T) {
		require.NoError(t, op.Code().SetData("# greet(name)\nresult = strlen(name) / 0\n"))
		_, err := op.Call(ctx, "Ada")
		var execErr *ExecutionError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, "(ZeroDivisionError) division by zero", execErr.Node.Peek().AsString())
		assert.Contains(t, execErr.Node.Info().ErrorComment, "result = strlen(name) / 0 <--- (ZeroDivisionError) division by zero")
	})
}

func TestTemplateBindGivesIndependentOperators(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	opts := DefaultOptions()
	opts.Trainable = true
	tmpl, err := NewTemplate(Descriptor{
		Name:   "describe",
		Params: []Param{Required("self"), Required("x")},
		Source: "# describe(self, x)\nresult = \"${self}:${x}\"\n",
	}, nil, opts)
	require.NoError(t, err)

	selfA, _ := g.NewNode("a", graph.WithName("self"))
	selfB, _ := g.NewNode("b", graph.WithName("self"))
	opA, err := tmpl.Bind(g, selfA)
	require.NoError(t, err)
	opB, err := tmpl.Bind(g, selfB)
	require.NoError(t, err)
	assert.NotSame(t, opA.Code(), opB.Code())

	require.NoError(t, opA.Code().SetData("# describe(self, x)\nresult = upper(x)\n"))

	outA, err := opA.Call(ctx, "v")
	require.NoError(t, err)
	outB, err := opB.Call(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, "V", outA.Peek().AsString())
	assert.Equal(t, "b:v", outB.Peek().AsString())
	assert.Same(t, selfB, outB.Input("self"))
}

func TestScriptTemplate(t *testing.T) {
	g, ctx := graph.Open(context.Background())
	desc := Descriptor{
		Name:   "shout",
		Doc:    "Shouts a word",
		Params: []Param{Required("word"), Optional("suffix", "!")},
		Source: "# shout(word, suffix=\"!\")\nloud = upper(word)\nresult = \"${loud}${suffix}\"\n",
	}

	tmpl, err := NewScriptTemplate(desc, DefaultOptions())
	require.NoError(t, err)
	op, err := tmpl.New(g)
	require.NoError(t, err)
	assert.Nil(t, op.Code())

	out, err := op.Call(ctx, "hey")
	require.NoError(t, err)
	assert.Equal(t, "HEY!", out.Peek().AsString())
	assert.Equal(t, "shout:0", out.Name())
	assert.Equal(t, "[shout] Shouts a word.", out.Description())

	t.Run("runtime errors are annotated", func(t *testing.T) {
		_, err := op.Call(ctx, 1, []any{})
		var execErr *ExecutionError
		require.True(t, errors.As(err, &execErr))
		assert.Contains(t, execErr.Node.Peek().AsString(), "(EvalError)")
		assert.Equal(t, 3, execErr.Node.Info().Line)
	})

	t.Run("bad scripts fail at construction", func(t *testing.T) {
		bad := desc
		bad.Source = "# shout(word, suffix=\"!\")\nresult = missing\n"
		_, err := NewScriptTemplate(bad, DefaultOptions())
		assert.ErrorIs(t, err, ErrDescriptor)

		variadic := desc
		variadic.Params = []Param{VarArgs("words")}
		_, err = NewScriptTemplate(variadic, DefaultOptions())
		assert.ErrorIs(t, err, ErrDescriptor)
	})
}
