// Package ops provides the builtin traced operators (arithmetic,
// comparison, indexing and string handling) and a fluent Value wrapper
// that chains them:
//
//	z, err := ops.On(ctx, x).Mul(2).Add(ops.On(ctx, y).Mul(3)).Add(1).Node()
//
// Each method maps to exactly one operator call and therefore one node.
package ops
