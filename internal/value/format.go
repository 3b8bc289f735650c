package value

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Format renders a value the way it is shown to an optimizer: strings
// verbatim, numbers in their shortest exact form, everything else as JSON.
func Format(val cty.Value) string {
	switch {
	case val == cty.NilVal:
		return "<nil>"
	case !val.IsKnown():
		return "<unknown>"
	case val.IsNull():
		return "null"
	}
	switch val.Type() {
	case cty.String:
		return val.AsString()
	case cty.Number:
		return val.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if val.True() {
			return "true"
		}
		return "false"
	}
	buf, err := json.Marshal(ctyjson.SimpleJSONValue{Value: val})
	if err != nil {
		return fmt.Sprintf("[unformattable %s: %v]", val.Type().FriendlyName(), err)
	}
	return string(buf)
}

// ForLogs converts a value to its loggable representation.
func ForLogs(val cty.Value) any {
	converted, err := ToGo(val)
	if err != nil {
		return fmt.Sprintf("[unloggable cty.Value: %v]", err)
	}
	return converted
}
