package bridge

import (
	"encoding/json"
	"fmt"
)

// encodeResult serializes a tool result into its wire JSON value.
//
// Strings become JSON strings, raw JSON passes through untouched when valid,
// and anything else is structurally encoded. Serialization failure is
// recovered locally with a string-wrapped representation; it never aborts
// the turn.
func encodeResult(result any) json.RawMessage {
	switch v := result.(type) {
	case nil:
		return json.RawMessage("null")

	case json.RawMessage:
		if json.Valid(v) {
			return v
		}
		return mustString(string(v))

	case []byte:
		if json.Valid(v) {
			return json.RawMessage(append([]byte(nil), v...))
		}
		return mustString(string(v))

	case string:
		return mustString(v)

	case error:
		return mustString(v.Error())

	default:
		data, err := json.Marshal(v)
		if err != nil {
			return mustString(fmt.Sprint(v))
		}
		return data
	}
}

// mustString JSON-encodes s. Encoding a plain string cannot fail.
func mustString(s string) json.RawMessage {
	data, _ := json.Marshal(s)
	return data
}
