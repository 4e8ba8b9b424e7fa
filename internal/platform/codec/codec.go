package codec

import (
	"encoding/json"
	"fmt"
)

type Validater interface {
	Validate() error
}

// EncodeValid refuses to marshal payloads that fail their own validation, so nothing malformed
// reaches a topic.
func EncodeValid(v Validater) ([]byte, error) {
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	return json.Marshal(v)
}

func DecodeValid(b []byte, v Validater) error {
	if err := json.Unmarshal(b, v); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
