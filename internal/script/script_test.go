package script

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

const greet = `# greet(name, punctuation)
upper_name = upper(name)
result     = "Hello, ${upper_name}${punctuation}"
`

func TestCompileAndRun(t *testing.T) {
	p, err := Compile(greet, "greet(name, punctuation)", []string{"name", "punctuation"}, Functions(nil))
	require.NoError(t, err)

	out, err := p.Run(map[string]cty.Value{
		"name":        cty.StringVal("world"),
		"punctuation": cty.StringVal("!"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello, WORLD!", out.AsString())
}

func TestRunWithGlobals(t *testing.T) {
	src := "# scale(x)\nresult = x * global.factor\n"
	p, err := Compile(src, "scale(x)", []string{"x"}, Functions(nil))
	require.NoError(t, err)

	out, err := p.Run(map[string]cty.Value{"x": cty.NumberIntVal(4)}, map[string]cty.Value{"factor": cty.NumberIntVal(3)})
	require.NoError(t, err)
	assert.True(t, out.RawEquals(cty.NumberIntVal(12)))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantType string
		wantLine int
	}{
		{
			name:     "syntax error",
			src:      "# f(a)\nresult = a +\n",
			wantType: SyntaxError,
			wantLine: -1,
		},
		{
			name:     "signature changed",
			src:      "# g(a)\nresult = a\n",
			wantType: SignatureError,
			wantLine: 1,
		},
		{
			name:     "empty script",
			src:      "\n\n",
			wantType: SignatureError,
			wantLine: 1,
		},
		{
			name:     "undefined name",
			src:      "# f(a)\ntmp = a\nresult = tmp + missing\n",
			wantType: NameError,
			wantLine: 3,
		},
		{
			name:     "forward reference",
			src:      "# f(a)\nresult = later\nlater = a\n",
			wantType: NameError,
			wantLine: 2,
		},
		{
			name:     "unknown function",
			src:      "# f(a)\nresult = shout(a)\n",
			wantType: NameError,
			wantLine: 2,
		},
		{
			name:     "missing result",
			src:      "# f(a)\nvalue = a\n",
			wantType: SyntaxError,
			wantLine: 2,
		},
		{
			name:     "blocks rejected",
			src:      "# f(a)\nresult = a\nnested {\n}\n",
			wantType: SyntaxError,
			wantLine: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(tc.src, "f(a)", []string{"a"}, Functions(nil))
			require.Error(t, err)
			var scriptErr *Error
			require.True(t, errors.As(err, &scriptErr))
			assert.Equal(t, tc.wantType, scriptErr.ErrorType())
			if tc.wantLine < 0 {
				assert.GreaterOrEqual(t, scriptErr.SourceLine(), 2)
				return
			}
			assert.Equal(t, tc.wantLine, scriptErr.SourceLine())
		})
	}
}

func TestRunEvalError(t *testing.T) {
	src := "# f(a)\nfirst = a\nresult = first + 1\n"
	p, err := Compile(src, "f(a)", []string{"a"}, Functions(nil))
	require.NoError(t, err)

	_, err = p.Run(map[string]cty.Value{"a": cty.StringVal("not a number")}, nil)
	var scriptErr *Error
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, EvalError, scriptErr.Type)
	assert.Equal(t, 3, scriptErr.Line)
}

func TestRunZeroDivision(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		b      int
		want   cty.Value
		detail string
	}{
		{"divide", "result = a / b", 0, cty.NilVal, "division by zero"},
		{"zero by zero", "result = b / b", 0, cty.NilVal, "division by zero"},
		{"modulo", "result = a % b", 0, cty.NilVal, "integer division or modulo by zero"},
		{"nested", "half = a / 2\nresult = [half, a / b]", 0, cty.NilVal, "division by zero"},
		{"nonzero divisor", "result = a / b", 4, cty.NumberFloatVal(1.5), ""},
		{"nonzero modulo", "result = a % b", 4, cty.NumberIntVal(2), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := "# f(a, b)\n" + tc.body + "\n"
			p, err := Compile(src, "f(a, b)", []string{"a", "b"}, Functions(nil))
			require.NoError(t, err)

			out, err := p.Run(map[string]cty.Value{"a": cty.NumberIntVal(6), "b": cty.NumberIntVal(int64(tc.b))}, nil)
			if tc.detail == "" {
				require.NoError(t, err)
				assert.True(t, out.Equals(tc.want).True(), out.GoString())
				return
			}
			var scriptErr *Error
			require.True(t, errors.As(err, &scriptErr), "%v", err)
			assert.Equal(t, ZeroDivisionError, scriptErr.Type)
			assert.Equal(t, tc.detail, scriptErr.Detail)
			assert.Equal(t, strings.Count(tc.body, "\n")+2, scriptErr.Line)
		})
	}
}

func TestAnnotate(t *testing.T) {
	src := "# f(a)\nresult = a +\n"
	got := Annotate(src, 2, SyntaxError, "bad")
	assert.Equal(t, "# f(a)\nresult = a + <--- (SyntaxError) bad\n", got)
	assert.Equal(t, src, Annotate(src, 9, SyntaxError, "bad"))
}

func TestFunctionsOverride(t *testing.T) {
	fns := Functions(nil)
	assert.Contains(t, fns, "upper")
	assert.Contains(t, fns, "join")

	custom := Functions(map[string]function.Function{"upper": fns["lower"]})
	assert.Contains(t, custom, "upper")
	_, stillBuiltin := builtins["upper"]
	assert.True(t, stillBuiltin)
}
