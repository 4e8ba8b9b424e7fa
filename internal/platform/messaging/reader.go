package messaging

import (
	"time"

	"github.com/segmentio/kafka-go"
)

type ReaderOptions struct {
	Brokers []string
	GroupID string
	Topic   string
}

func NewReader(opts ReaderOptions) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        opts.Brokers,
		GroupID:        opts.GroupID,
		Topic:          opts.Topic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10mb
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
}
