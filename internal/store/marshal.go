package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/boardsync/internal/ir"
)

// marshalPayload converts a payload to canonical JSON TEXT for storage.
// A nil payload is stored as "{}".
func marshalPayload(payload ir.Object) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT. An empty object reads back
// as nil so stored records compare equal to the ones written.
func unmarshalPayload(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// nullableKey maps the empty key to SQL NULL.
func nullableKey(key string) any {
	if key == "" {
		return nil
	}
	return key
}
