package operator

import "context"

type activeKey struct{}

// frame is one operator call in progress on the current call path.
type frame struct {
	op     *Operator
	parent *frame
}

func withActive(ctx context.Context, o *Operator) context.Context {
	parent, _ := ctx.Value(activeKey{}).(*frame)
	return context.WithValue(ctx, activeKey{}, &frame{op: o, parent: parent})
}

// intercepted reports whether this call is a recursive call of o from its
// own body that should run without producing nodes. Trainable operators
// are never intercepted.
func (o *Operator) intercepted(ctx context.Context) bool {
	if o.opts.OverwriteRecursion || o.opts.Trainable {
		return false
	}
	for f, _ := ctx.Value(activeKey{}).(*frame); f != nil; f = f.parent {
		if f.op == o {
			return true
		}
	}
	return false
}
