package kafka

import (
	"encoding/json"
	"fmt"
)

// MustMarshal is for values we construct ourselves; a marshal failure there
// is a programming error, not an input error.
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// UnmarshalEnvelope decodes a raw message body into an event envelope.
func UnmarshalEnvelope(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	return nil
}

// UnwrapPayload decodes an envelope payload into its concrete event type.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
