package m2m

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString decodes a JSON string or number (ids are returned either way by the service)
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("FlexString: %w", err)
		}
		*s = FlexString(n.String())
	}
	return nil
}

// FlexMap decodes a JSON object of strings or numbers. The service returns
// an empty array instead of an empty object.
type FlexMap map[string]string

// UnmarshalJSON implements json.Unmarshaler
func (m *FlexMap) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}
	if b[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(b, &arr); err != nil {
			return fmt.Errorf("FlexMap: %w", err)
		}
		if len(arr) > 0 {
			return fmt.Errorf("FlexMap: expecting an object, got a non-empty array")
		}
		*m = FlexMap{}
		return nil
	}
	var raw map[string]FlexString
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("FlexMap: %w", err)
	}
	*m = make(FlexMap, len(raw))
	for k, v := range raw {
		(*m)[k] = string(v)
	}
	return nil
}
