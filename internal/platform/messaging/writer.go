package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/segmentio/kafka-go"
)

type WriterOptions struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Writer is a synchronous producer: WriteMessage returns only after the brokers acknowledged the
// message (or failed to).
type Writer struct {
	w   *kafka.Writer
	log *logging.Logger
}

func NewWriter(opts WriterOptions, log *logging.Logger) *Writer {
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  opts.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		BatchSize:              1,
		WriteTimeout:           writeTimeout,
		AllowAutoTopicCreation: false,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Warn("kafka writer", "detail", fmt.Sprintf(msg, args...))
		}),
	}

	return &Writer{w: w, log: log}
}

func (w *Writer) Topic() string {
	return w.w.Topic
}

func (w *Writer) WriteMessage(ctx context.Context, key []byte, value []byte, headers Headers) error {
	return w.w.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: headers.Kafka(),
		Time:    time.Now().UTC(),
	})
}

func (w *Writer) Close() error {
	return w.w.Close()
}
