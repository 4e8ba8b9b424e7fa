package messaging

import (
	"encoding/json"

	"github.com/cicconee/cbledger/internal/platform/codec"
)

// DecodeEnvelopeValid accepts either a bare payload or one wrapped as {"payload": ...} by a connector,
// then validates it.
func DecodeEnvelopeValid(b []byte, v codec.Validater) error {
	var env struct {
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(b, &env); err == nil && len(env.Payload) > 0 && env.Payload[0] == '{' {
		return codec.DecodeValid(env.Payload, v)
	}

	return codec.DecodeValid(b, v)
}
