package persistence

import (
	"encoding/json"
	"fmt"
)

// Field value types stored in entity_fields
const (
	fieldTypeText   = "text"
	fieldTypeNumber = "number"
	fieldTypeJSON   = "json"
)

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode field payload: %w", err)
	}
	return string(data), nil
}

func decodeJSON(value string, out any) error {
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("decode field payload: %w", err)
	}
	return nil
}
