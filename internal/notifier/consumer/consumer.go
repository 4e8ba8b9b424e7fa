package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/cicconee/cbledger/internal/notifier/repo"
	"github.com/cicconee/cbledger/internal/platform/db/postgres"
	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/cicconee/cbledger/internal/platform/messaging"
	"github.com/cicconee/cbledger/internal/platform/retry"
	"github.com/cicconee/cbledger/internal/shared/ledger"
	"github.com/segmentio/kafka-go"
)

// MessageReader is satisfied by *kafka.Reader in consumer-group mode.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Store interface {
	Record(ctx context.Context, n repo.Notification) (bool, error)
}

// Notifier turns withdrawal outcome events into customer notifications. It never touches balances:
// replaying an event only finds the existing notification row.
type Notifier struct {
	r     MessageReader
	store Store
	log   *logging.Logger
	retry retry.Config
	now   func() time.Time
}

func New(r MessageReader, store Store, log *logging.Logger) *Notifier {
	return &Notifier{
		r:     r,
		store: store,
		log:   log,
		retry: retry.Config{
			MaxAttempts: 5,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			IsRetryable: postgres.IsRetryablePostgres,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (n *Notifier) Close() error {
	return n.r.Close()
}

func (n *Notifier) Run(ctx context.Context) error {
	n.log.Info("notifier consumer started")

	for {
		m, err := n.r.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				n.log.Info("notifier consumer stopped")
				return nil
			}
			return err
		}

		if err := n.handle(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				n.log.Info("notifier consumer stopped")
				return nil
			}
			return err
		}

		// Offsets advance only after the notification row is durable.
		if err := n.r.CommitMessages(ctx, m); err != nil {
			n.log.Error("CommitMessages failed", "err", err, "partition", m.Partition, "offset", m.Offset)
			return err
		}
	}
}

func (n *Notifier) handle(ctx context.Context, m kafka.Message) error {
	headers := messaging.NewHeaders(m.Headers)
	traceID, _ := headers.String(messaging.HeaderTraceID)

	var evt ledger.WithdrawalOutcomePayload
	if err := messaging.DecodeEnvelopeValid(m.Value, &evt); err != nil {
		// Malformed events are logged and committed past.
		n.log.Error("dropping malformed withdrawal outcome",
			"err", err,
			"partition", m.Partition,
			"offset", m.Offset,
			"trace_id", traceID,
		)
		return nil
	}

	eventType, ok := headers.String(messaging.HeaderEventType)
	if !ok || eventType == "" {
		eventType = ledger.EventTypeForStatus(evt.Status)
	}

	var inserted bool
	err := retry.Do(ctx, n.retry, func() error {
		var err error
		inserted, err = n.store.Record(ctx, repo.Notification{
			IdempotencyToken: evt.IdempotencyToken,
			AccountID:        evt.AccountID,
			Amount:           evt.AmountDecimal(),
			Status:           evt.Status,
			EventType:        eventType,
			TraceID:          traceID,
			Partition:        m.Partition,
			Offset:           m.Offset,
			ReceivedAt:       n.now(),
		})
		return err
	})
	if err != nil {
		n.log.Error("record notification failed", "err", err, "idempotency_token", evt.IdempotencyToken)
		return err
	}

	if !inserted {
		n.log.Info("duplicate withdrawal outcome ignored",
			"idempotency_token", evt.IdempotencyToken,
			"account_id", evt.AccountID,
		)
		return nil
	}

	n.log.Info("withdrawal notification sent",
		"idempotency_token", evt.IdempotencyToken,
		"account_id", evt.AccountID,
		"amount", evt.Amount,
		"status", evt.Status,
		"event_type", eventType,
		"trace_id", traceID,
	)
	return nil
}
