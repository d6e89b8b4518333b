// Package worker relays audit events from the transactional outbox to Kafka.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "namespaces/pkg/platform/audit"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Outbox is the relay's view of the outbox table.
type Outbox interface {
	ProcessBatch(ctx context.Context, limit int, publish func(ctx context.Context, entries []audit.OutboxEntry) error) (int, error)
}

// Producer publishes records synchronously. *kgo.Client satisfies it.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay polls the outbox and publishes each batch to topic. A batch is only
// marked processed once every record in it has been acknowledged, so
// delivery is at least once.
type Relay struct {
	outbox    Outbox
	producer  Producer
	topic     string
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
	relayed   func(n int)
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRelayedHook is called with the size of every published batch.
func WithRelayedHook(fn func(n int)) Option {
	return func(r *Relay) {
		r.relayed = fn
	}
}

func NewRelay(outbox Outbox, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		logger:    slog.Default(),
		batchSize: defaultBatchSize,
		interval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Publish failures are logged and retried
// on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes at most one batch and reports how many events it sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	n, err := r.outbox.ProcessBatch(ctx, r.batchSize, r.publish)
	if err != nil {
		return 0, err
	}
	if n > 0 && r.relayed != nil {
		r.relayed(n)
	}
	return n, nil
}

func (r *Relay) publish(ctx context.Context, entries []audit.OutboxEntry) error {
	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(e.EventType)},
				{Key: "event_id", Value: []byte(e.ID.String())},
			},
			Timestamp: e.CreatedAt,
		})
	}
	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	return nil
}
