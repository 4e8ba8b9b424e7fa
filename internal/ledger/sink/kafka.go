package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cicconee/cbledger/internal/platform/codec"
	"github.com/cicconee/cbledger/internal/platform/messaging"
	"github.com/cicconee/cbledger/internal/shared/ledger"
)

// MessageWriter is the part of messaging.Writer the sink needs.
type MessageWriter interface {
	WriteMessage(ctx context.Context, key []byte, value []byte, headers messaging.Headers) error
}

// Kafka publishes withdrawal outcomes keyed by account id, so every event for one account lands
// on the same partition in the order it was published.
type Kafka struct {
	w MessageWriter
}

func NewKafka(w MessageWriter) *Kafka {
	return &Kafka{w: w}
}

func (k *Kafka) Publish(ctx context.Context, evt ledger.WithdrawalOutcomePayload, traceID string) error {
	value, err := codec.EncodeValid(&evt)
	if err != nil {
		return err
	}

	headers := messaging.Headers{}.
		Set(messaging.HeaderEventType, ledger.EventTypeForStatus(evt.Status)).
		Set(messaging.HeaderIdempotencyToken, evt.IdempotencyToken)
	if traceID != "" {
		headers.Set(messaging.HeaderTraceID, traceID)
	}

	key := []byte(strconv.FormatInt(evt.AccountID, 10))
	if err := k.w.WriteMessage(ctx, key, value, headers); err != nil {
		return fmt.Errorf("publish withdrawal outcome: %w", err)
	}
	return nil
}
