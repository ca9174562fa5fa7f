package connect

import (
	"encoding/json"
)

// jsonCodec replaces connect's protojson codec so plain Go structs can be
// used as messages. It is registered under the same name, so requests with
// Content-Type application/json are decoded by it.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal accepts an empty body as an empty message.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
