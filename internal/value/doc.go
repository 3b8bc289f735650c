// Package value converts between Go values and the cty.Value representation
// carried by every trace node, and renders values for logs and for the
// textual problem listings handed to optimizers.
package value
