// Package outbox publishes the walk and progression events recorded in the
// outbox table to Kafka, and retries the ones that could not be delivered.
package outbox

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

// Publisher writes records to a Kafka topic.
type Publisher interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// SchemaResolver returns the registry id for a subject, registering the
// schema when the subject is new.
type SchemaResolver interface {
	EnsureSchema(ctx context.Context, subject, schema string) (int, error)
}

const defaultClaimTTL = 5 * time.Minute

// Dispatcher polls the outbox and publishes unpublished events in id order.
// Events that cannot be published are parked in outbox_dlq; either way the
// outbox row is settled so the batch never blocks later events.
type Dispatcher struct {
	pool      *pgxpool.Pool
	publisher Publisher
	schemas   SchemaResolver
	interval  time.Duration
	batchSize int
	claimTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	schemaIDs map[string]int

	done chan struct{}
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClaimTTL sets how long a claimed batch stays invisible to other
// dispatchers before it is considered abandoned.
func WithClaimTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.claimTTL = ttl
		}
	}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(pool *pgxpool.Pool, publisher Publisher, schemas SchemaResolver, interval time.Duration, batchSize int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pool:      pool,
		publisher: publisher,
		schemas:   schemas,
		interval:  interval,
		batchSize: batchSize,
		claimTTL:  defaultClaimTTL,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		schemaIDs: make(map[string]int),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start polls until ctx is cancelled. Run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error("outbox dispatch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

func (d *Dispatcher) drain(ctx context.Context) error {
	batch, err := d.claim(ctx)
	if err != nil || len(batch) == 0 {
		return err
	}
	timer := prometheus.NewTimer(batchDuration)
	defer timer.ObserveDuration()

	failures := d.publish(ctx, batch)
	if len(failures) > 0 {
		if err := parkDeadLetters(ctx, d.pool, failures); err != nil {
			// Rows stay claimed and are retried once the lease lapses.
			return fmt.Errorf("park dead letters: %w", err)
		}
		for _, f := range failures {
			d.logger.Warn("outbox event dead-lettered", "event_id", f.event.ID, "event_type", f.event.Type, "topic", f.event.Topic, "reason", f.reason)
			countEvents(f.event.Topic, outcomeDeadLettered, 1)
		}
	}
	return d.settle(ctx, batch)
}

// claim leases up to batchSize unpublished events. Rows claimed by another
// dispatcher are skipped until their lease expires.
func (d *Dispatcher) claim(ctx context.Context) ([]Event, error) {
	const query = `UPDATE outbox SET claimed_at = NOW()
         WHERE event_id IN (
             SELECT event_id FROM outbox
              WHERE published_at IS NULL
                AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
              ORDER BY event_id
              LIMIT $1
              FOR UPDATE SKIP LOCKED)
     RETURNING event_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload`

	rows, err := d.pool.Query(ctx, query, d.batchSize, d.claimTTL)
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	batch, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.Type, &e.Topic, &e.SchemaSubject, &e.PartitionKey, &e.Payload)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("claim outbox events: %w", err)
	}
	// RETURNING does not preserve the subquery order.
	slices.SortFunc(batch, func(a, b Event) int { return cmp.Compare(a.ID, b.ID) })
	return batch, nil
}

type failure struct {
	event  Event
	reason string
}

// publish writes batch topic by topic in event order. It returns the events
// that could not be published; a broker error fails the whole topic group.
func (d *Dispatcher) publish(ctx context.Context, batch []Event) []failure {
	var (
		failures []failure
		topics   []string
		byTopic  = make(map[string][]Event)
	)
	for _, e := range batch {
		if _, seen := byTopic[e.Topic]; !seen {
			topics = append(topics, e.Topic)
		}
		byTopic[e.Topic] = append(byTopic[e.Topic], e)
	}

	now := d.now()
	for _, topic := range topics {
		var (
			sent    []Event
			records []kafka.Message
		)
		for _, e := range byTopic[topic] {
			schemaID, err := d.schemaID(ctx, e)
			if err != nil {
				failures = append(failures, failure{event: e, reason: err.Error()})
				continue
			}
			sent = append(sent, e)
			records = append(records, e.record(schemaID, now))
		}
		if len(records) == 0 {
			continue
		}
		if err := d.publisher.WriteMessages(ctx, topic, records...); err != nil {
			for _, e := range sent {
				failures = append(failures, failure{event: e, reason: fmt.Sprintf("publish to %s: %v", topic, err)})
			}
			continue
		}
		countEvents(topic, outcomePublished, len(sent))
	}
	return failures
}

func (d *Dispatcher) schemaID(ctx context.Context, e Event) (int, error) {
	schema, ok := schemaCatalog[e.Type]
	if !ok {
		return 0, fmt.Errorf("no schema for event type %q", e.Type)
	}

	d.mu.Lock()
	id, cached := d.schemaIDs[e.SchemaSubject]
	d.mu.Unlock()
	if cached {
		return id, nil
	}

	id, err := d.schemas.EnsureSchema(ctx, e.SchemaSubject, schema)
	if err != nil {
		return 0, fmt.Errorf("resolve schema %s: %w", e.SchemaSubject, err)
	}
	d.mu.Lock()
	d.schemaIDs[e.SchemaSubject] = id
	d.mu.Unlock()
	return id, nil
}

// settle marks every event of the batch published, dead-lettered or not.
func (d *Dispatcher) settle(ctx context.Context, batch []Event) error {
	ids := make([]int64, len(batch))
	for i, e := range batch {
		ids[i] = e.ID
	}
	if _, err := d.pool.Exec(ctx, `UPDATE outbox SET published_at = NOW() WHERE event_id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("settle outbox events: %w", err)
	}
	return nil
}

