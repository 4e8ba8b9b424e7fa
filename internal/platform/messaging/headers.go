package messaging

import (
	"slices"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType        = "event_type"
	HeaderTraceID          = "trace_id"
	HeaderIdempotencyToken = "idempotency_token"
)

type Headers map[string][]byte

func NewHeaders(headers []kafka.Header) Headers {
	m := make(Headers, len(headers))
	for _, h := range headers {
		m[h.Key] = h.Value
	}
	return m
}

func (h Headers) String(key string) (string, bool) {
	v, ok := h[key]
	if !ok {
		return "", false
	}
	return string(v), true
}

func (h Headers) Set(key, value string) Headers {
	h[key] = []byte(value)
	return h
}

// Kafka returns the headers sorted by key so messages are deterministic.
func (h Headers) Kafka() []kafka.Header {
	out := make([]kafka.Header, 0, len(h))
	for _, k := range sortedKeys(h) {
		out = append(out, kafka.Header{Key: k, Value: h[k]})
	}
	return out
}

func sortedKeys(h Headers) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
