package value

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/msgpack"
)

// EncodeBlob serializes a name to value mapping into a self-describing
// msgpack blob. Type information travels with the data, so DecodeBlob
// needs no schema.
func EncodeBlob(values map[string]cty.Value) ([]byte, error) {
	obj := cty.EmptyObjectVal
	if len(values) > 0 {
		obj = cty.ObjectVal(values)
	}
	buf, err := msgpack.Marshal(obj, cty.DynamicPseudoType)
	if err != nil {
		return nil, fmt.Errorf("encoding values: %w", err)
	}
	return buf, nil
}

// DecodeBlob restores a mapping written by EncodeBlob.
func DecodeBlob(buf []byte) (map[string]cty.Value, error) {
	obj, err := msgpack.Unmarshal(buf, cty.DynamicPseudoType)
	if err != nil {
		return nil, fmt.Errorf("decoding values: %w", err)
	}
	if !obj.Type().IsObjectType() {
		return nil, fmt.Errorf("decoding values: expected an object, got %s", obj.Type().FriendlyName())
	}
	out := make(map[string]cty.Value)
	for it := obj.ElementIterator(); it.Next(); {
		k, v := it.Element()
		out[k.AsString()] = v
	}
	return out, nil
}
