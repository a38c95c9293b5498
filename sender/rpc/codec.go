package rpc

import (
	"encoding/json"
	"fmt"
)

// jsonCodec carries the plain Go API types over connect. It replaces
// connect's protojson codec under the same name, so clients speak
// application/json and application/connect+json.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}
