package ops

import (
	"context"
	"fmt"
	"maps"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/specialistvlad/tracegridgo/internal/operator"
	"github.com/specialistvlad/tracegridgo/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Operator names.
const (
	Identity    = "identity"
	Add         = "add"
	Subtract    = "subtract"
	Multiply    = "multiply"
	Divide      = "divide"
	FloorDivide = "floor_divide"
	Mod         = "mod"
	Neg         = "neg"
	Abs         = "abs"
	Eq          = "eq"
	Neq         = "neq"
	Lt          = "lt"
	Le          = "le"
	Gt          = "gt"
	Ge          = "ge"
	Not         = "not"
	GetItem     = "getitem"
	Len         = "len"
	Contains    = "contains"
	Format      = "format"
	Concat      = "concat"
	Join        = "join"
	Split       = "split"
	Replace     = "replace"
	Upper       = "upper"
	Lower       = "lower"
	Strip       = "strip"
	Title       = "title"
)

var templates = map[string]*operator.Template{}

func register(name, doc string, params []operator.Param, fn operator.Func) {
	desc := operator.Descriptor{Name: name, Doc: doc, Params: params}
	opts := operator.DefaultOptions()
	opts.Description = fmt.Sprintf("[%s] %s", name, doc)
	t, err := operator.NewTemplate(desc, fn, opts)
	if err != nil {
		panic(fmt.Sprintf("ops: builtin %s: %v", name, err))
	}
	templates[name] = t
}

// Templates returns the builtin operator templates keyed by name.
func Templates() map[string]*operator.Template {
	return maps.Clone(templates)
}

var (
	unary  = []operator.Param{operator.Required("x")}
	binary = []operator.Param{operator.Required("x"), operator.Required("y")}
)

func init() {
	register(Identity, "This is an identity operator.", unary, func(_ context.Context, in *operator.Args) (any, error) {
		return in.Value("x"), nil
	})

	register(Add, "This is an add operator of x and y.", binary, binaryFunc(add))
	register(Subtract, "This is a subtract operator of x and y.", binary, binaryFunc(numeric(stdlib.Subtract)))
	register(Multiply, "This is a multiply operator of x and y.", binary, binaryFunc(multiply))
	register(Divide, "This is a divide operator of x and y.", binary, binaryFunc(divide))
	register(FloorDivide, "This is a floor_divide operator of x and y.", binary, binaryFunc(floorDivide))
	register(Mod, "This is a mod operator of x and y.", binary, binaryFunc(mod))
	register(Neg, "This is a neg operator of x.", unary, unaryFunc(func(x cty.Value) (cty.Value, error) {
		return callNumeric(stdlib.Negate, x)
	}))
	register(Abs, "This is an abs operator of x.", unary, unaryFunc(func(x cty.Value) (cty.Value, error) {
		return callNumeric(stdlib.Absolute, x)
	}))

	register(Eq, "This is an eq operator of x and y.", binary, binaryFunc(func(x, y cty.Value) (cty.Value, error) {
		return cty.BoolVal(equal(x, y)), nil
	}))
	register(Neq, "This is a neq operator of x and y.", binary, binaryFunc(func(x, y cty.Value) (cty.Value, error) {
		return cty.BoolVal(!equal(x, y)), nil
	}))
	register(Lt, "This is a lt operator of x and y.", binary, binaryFunc(numeric(stdlib.LessThan)))
	register(Le, "This is a le operator of x and y.", binary, binaryFunc(numeric(stdlib.LessThanOrEqualTo)))
	register(Gt, "This is a gt operator of x and y.", binary, binaryFunc(numeric(stdlib.GreaterThan)))
	register(Ge, "This is a ge operator of x and y.", binary, binaryFunc(numeric(stdlib.GreaterThanOrEqualTo)))
	register(Not, "This is a not operator of x.", unary, unaryFunc(func(x cty.Value) (cty.Value, error) {
		return cty.BoolVal(!truthy(x)), nil
	}))

	register(GetItem, "This is a getitem operator of x based on index.",
		[]operator.Param{operator.Required("x"), operator.Required("index")},
		func(_ context.Context, in *operator.Args) (any, error) {
			return getItem(in.Value("x"), in.Value("index"))
		})
	register(Len, "This is a len operator of x.", unary, unaryFunc(length))
	register(Contains, "This checks whether y is in x.", binary, binaryFunc(contains))

	register(Format, "This formats x using keyword arguments.",
		[]operator.Param{operator.Required("x"), operator.KwArgs("kwargs")},
		func(_ context.Context, in *operator.Args) (any, error) {
			x, err := str(in.Value("x"))
			if err != nil {
				return nil, err
			}
			pairs := make([]string, 0)
			for _, kw := range in.Keywords() {
				pairs = append(pairs, "{"+kw.Name+"}", value.Format(kw.Node.Data()))
			}
			return strings.NewReplacer(pairs...).Replace(x), nil
		})
	register(Concat, "This is a concatenation operator of x and y.", binary, binaryFunc(func(x, y cty.Value) (cty.Value, error) {
		return cty.StringVal(value.Format(x) + value.Format(y)), nil
	}))
	register(Join, "This joins the nodes with x as the separator.",
		[]operator.Param{operator.Required("x"), operator.VarArgs("nodes")},
		func(_ context.Context, in *operator.Args) (any, error) {
			sep, err := str(in.Value("x"))
			if err != nil {
				return nil, err
			}
			vals := in.VarValues()
			parts := make([]string, len(vals))
			for i, v := range vals {
				parts[i] = value.Format(v)
			}
			return strings.Join(parts, sep), nil
		})
	register(Split, "This splits x by the separator y.", binary, binaryFunc(func(x, y cty.Value) (cty.Value, error) {
		s, err := str(x)
		if err != nil {
			return cty.NilVal, err
		}
		sep, err := str(y)
		if err != nil {
			return cty.NilVal, err
		}
		if sep == "" {
			return cty.NilVal, operator.Errorf("ValueError", "empty separator")
		}
		parts := strings.Split(s, sep)
		vals := make([]cty.Value, len(parts))
		for i, p := range parts {
			vals[i] = cty.StringVal(p)
		}
		return cty.TupleVal(vals), nil
	}))
	register(Replace, "This replaces old with new in x.",
		[]operator.Param{operator.Required("x"), operator.Required("old"), operator.Required("new")},
		func(_ context.Context, in *operator.Args) (any, error) {
			x, err := str(in.Value("x"))
			if err != nil {
				return nil, err
			}
			oldS, err := str(in.Value("old"))
			if err != nil {
				return nil, err
			}
			newS, err := str(in.Value("new"))
			if err != nil {
				return nil, err
			}
			return strings.ReplaceAll(x, oldS, newS), nil
		})
	register(Upper, "This makes x upper case.", unary, stringFunc(strings.ToUpper))
	register(Lower, "This makes x lower case.", unary, stringFunc(strings.ToLower))
	register(Strip, "This removes leading and trailing whitespace of x.", unary, stringFunc(strings.TrimSpace))
	register(Title, "This makes the first letter of every word in x upper case.", unary, unaryFunc(func(x cty.Value) (cty.Value, error) {
		if _, err := str(x); err != nil {
			return cty.NilVal, err
		}
		return stdlib.Title(x)
	}))
}

func unaryFunc(f func(x cty.Value) (cty.Value, error)) operator.Func {
	return func(_ context.Context, in *operator.Args) (any, error) {
		return f(in.Value("x"))
	}
}

func binaryFunc(f func(x, y cty.Value) (cty.Value, error)) operator.Func {
	return func(_ context.Context, in *operator.Args) (any, error) {
		return f(in.Value("x"), in.Value("y"))
	}
}

func stringFunc(f func(string) string) operator.Func {
	return unaryFunc(func(x cty.Value) (cty.Value, error) {
		s, err := str(x)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(f(s)), nil
	})
}

func isNumber(v cty.Value) bool {
	return v.IsKnown() && !v.IsNull() && v.Type() == cty.Number
}

func isString(v cty.Value) bool {
	return v.IsKnown() && !v.IsNull() && v.Type() == cty.String
}

func str(v cty.Value) (string, error) {
	if !isString(v) {
		return "", operator.Errorf("TypeError", "expected a string, got %s", v.Type().FriendlyName())
	}
	return v.AsString(), nil
}

func numeric(f func(a, b cty.Value) (cty.Value, error)) func(x, y cty.Value) (cty.Value, error) {
	return func(x, y cty.Value) (cty.Value, error) {
		if !isNumber(x) || !isNumber(y) {
			return cty.NilVal, operator.Errorf("TypeError", "unsupported operand types: %s and %s",
				x.Type().FriendlyName(), y.Type().FriendlyName())
		}
		return f(x, y)
	}
}

func callNumeric(f func(cty.Value) (cty.Value, error), x cty.Value) (cty.Value, error) {
	if !isNumber(x) {
		return cty.NilVal, operator.Errorf("TypeError", "bad operand type: %s", x.Type().FriendlyName())
	}
	return f(x)
}

func add(x, y cty.Value) (cty.Value, error) {
	if isString(x) && isString(y) {
		return cty.StringVal(x.AsString() + y.AsString()), nil
	}
	if x.IsKnown() && y.IsKnown() && !x.IsNull() && !y.IsNull() &&
		(x.Type().IsTupleType() || x.Type().IsListType()) && (y.Type().IsTupleType() || y.Type().IsListType()) {
		var vals []cty.Value
		for _, c := range []cty.Value{x, y} {
			for it := c.ElementIterator(); it.Next(); {
				_, v := it.Element()
				vals = append(vals, v)
			}
		}
		return cty.TupleVal(vals), nil
	}
	return numeric(stdlib.Add)(x, y)
}

func multiply(x, y cty.Value) (cty.Value, error) {
	if isString(x) && isNumber(y) {
		return repeat(x, y)
	}
	if isNumber(x) && isString(y) {
		return repeat(y, x)
	}
	return numeric(stdlib.Multiply)(x, y)
}

func repeat(s, n cty.Value) (cty.Value, error) {
	count, acc := n.AsBigFloat().Int64()
	if acc != big.Exact {
		return cty.NilVal, operator.Errorf("TypeError", "can't multiply sequence by non-int")
	}
	if count < 0 {
		count = 0
	}
	return cty.StringVal(strings.Repeat(s.AsString(), int(count))), nil
}

func isZero(v cty.Value) bool {
	return v.AsBigFloat().Sign() == 0
}

func divide(x, y cty.Value) (cty.Value, error) {
	if isNumber(y) && isZero(y) {
		return cty.NilVal, operator.Errorf("ZeroDivisionError", "division by zero")
	}
	return numeric(stdlib.Divide)(x, y)
}

func floorDivide(x, y cty.Value) (cty.Value, error) {
	q, err := divide(x, y)
	if err != nil {
		return cty.NilVal, err
	}
	return stdlib.Floor(q)
}

func mod(x, y cty.Value) (cty.Value, error) {
	if isNumber(y) && isZero(y) {
		return cty.NilVal, operator.Errorf("ZeroDivisionError", "integer division or modulo by zero")
	}
	return numeric(stdlib.Modulo)(x, y)
}

func equal(x, y cty.Value) bool {
	if !x.IsKnown() || !y.IsKnown() {
		return false
	}
	if x.IsNull() || y.IsNull() {
		return x.IsNull() && y.IsNull()
	}
	if !x.Type().Equals(y.Type()) {
		return false
	}
	return x.Equals(y).True()
}

func truthy(v cty.Value) bool {
	if !v.IsKnown() || v.IsNull() {
		return false
	}
	switch {
	case v.Type() == cty.Bool:
		return v.True()
	case v.Type() == cty.Number:
		return !isZero(v)
	case v.Type() == cty.String:
		return v.AsString() != ""
	case v.CanIterateElements():
		return v.LengthInt() > 0
	default:
		return true
	}
}

func length(x cty.Value) (cty.Value, error) {
	switch {
	case isString(x):
		return cty.NumberIntVal(int64(utf8.RuneCountInString(x.AsString()))), nil
	case x.IsKnown() && !x.IsNull() && x.CanIterateElements():
		return cty.NumberIntVal(int64(x.LengthInt())), nil
	default:
		return cty.NilVal, operator.Errorf("TypeError", "object of type %s has no len()", x.Type().FriendlyName())
	}
}

func getItem(x, index cty.Value) (cty.Value, error) {
	if !x.IsKnown() || x.IsNull() {
		return cty.NilVal, operator.Errorf("TypeError", "object is not subscriptable")
	}
	ty := x.Type()
	switch {
	case ty.IsTupleType() || ty.IsListType() || ty == cty.String:
		if !isNumber(index) {
			return cty.NilVal, operator.Errorf("TypeError", "indices must be integers, not %s", index.Type().FriendlyName())
		}
		i, acc := index.AsBigFloat().Int64()
		if acc != big.Exact {
			return cty.NilVal, operator.Errorf("TypeError", "indices must be integers")
		}
		if ty == cty.String {
			runes := []rune(x.AsString())
			if i < 0 {
				i += int64(len(runes))
			}
			if i < 0 || i >= int64(len(runes)) {
				return cty.NilVal, operator.Errorf("IndexError", "string index out of range")
			}
			return cty.StringVal(string(runes[i])), nil
		}
		n := int64(x.LengthInt())
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return cty.NilVal, operator.Errorf("IndexError", "list index out of range")
		}
		return x.Index(cty.NumberIntVal(i)), nil
	case ty.IsObjectType():
		key, err := str(index)
		if err != nil {
			return cty.NilVal, err
		}
		if !ty.HasAttribute(key) {
			return cty.NilVal, operator.Errorf("KeyError", "%q", key)
		}
		return x.GetAttr(key), nil
	case ty.IsMapType():
		key, err := str(index)
		if err != nil {
			return cty.NilVal, err
		}
		if !x.HasIndex(index).True() {
			return cty.NilVal, operator.Errorf("KeyError", "%q", key)
		}
		return x.Index(index), nil
	default:
		return cty.NilVal, operator.Errorf("TypeError", "%s object is not subscriptable", ty.FriendlyName())
	}
}

func contains(x, y cty.Value) (cty.Value, error) {
	switch {
	case isString(x):
		s, err := str(y)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.BoolVal(strings.Contains(x.AsString(), s)), nil
	case x.IsKnown() && !x.IsNull() && x.Type().IsObjectType():
		key, err := str(y)
		if err != nil {
			return cty.NilVal, err
		}
		return cty.BoolVal(x.Type().HasAttribute(key)), nil
	case x.IsKnown() && !x.IsNull() && x.CanIterateElements():
		for it := x.ElementIterator(); it.Next(); {
			k, v := it.Element()
			if x.Type().IsMapType() {
				v = k
			}
			if equal(v, y) {
				return cty.True, nil
			}
		}
		return cty.False, nil
	default:
		return cty.NilVal, operator.Errorf("TypeError", "argument of type %s is not iterable", x.Type().FriendlyName())
	}
}
