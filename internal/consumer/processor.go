// Package consumer reads the walk and progression events published by the
// outbox dispatcher and hands them to a Handler.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader is the part of *kafka.Reader the processor uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler processes one decoded event. It must be idempotent: a record may be
// delivered again after a restart.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Message) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithRetryDelay sets the first pause after a fetch or handler error. Handler
// retries double it each attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Processor) {
		p.retryDelay = max(d, 0)
	}
}

// WithHandlerAttempts bounds how often a record is handed to the handler
// before Run gives up.
func WithHandlerAttempts(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// Processor fetches records, decodes them and commits each one after its
// handler succeeds. Undecodable records are committed and skipped.
type Processor struct {
	reader     Reader
	handler    Handler
	logger     *slog.Logger
	retryDelay time.Duration
	attempts   int
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:     reader,
		handler:    handler,
		logger:     slog.Default(),
		retryDelay: time.Second,
		attempts:   5,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled. It returns a non-context error
// only when a record keeps failing its handler; the record is left
// uncommitted so the group redelivers it after a restart.
func (p *Processor) Run(ctx context.Context) error {
	for {
		rec, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Warn("kafka fetch failed", "error", err)
			if err := p.sleep(ctx, p.retryDelay); err != nil {
				return err
			}
			continue
		}

		msg, err := Decode(rec)
		if err != nil {
			p.logger.Warn("skipping undecodable record", "error", err)
			countRecord(rec.Topic, eventTypeOf(rec), outcomeUndecodable)
			p.commit(ctx, rec)
			continue
		}

		if err := p.handle(ctx, msg); err != nil {
			return err
		}
		p.commit(ctx, rec)
		markHandled(msg)
	}
}

func (p *Processor) handle(ctx context.Context, msg Message) error {
	logger := p.logger.With("topic", msg.Topic, "offset", msg.Offset, "event_type", msg.EventType, "user_id", msg.UserID)
	delay := p.retryDelay

	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		countRecord(msg.Topic, msg.EventType, outcomeHandlerFailed)
		if attempt >= p.attempts {
			logger.Error("handler gave up", "attempts", attempt, "error", err)
			return fmt.Errorf("handle %s at %s/%d@%d: %w", msg.EventType, msg.Topic, msg.Partition, msg.Offset, err)
		}
		logger.Warn("handler failed, retrying", "attempt", attempt, "error", err)
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

func (p *Processor) commit(ctx context.Context, rec kafka.Message) {
	if err := p.reader.CommitMessages(ctx, rec); err != nil {
		p.logger.Error("kafka commit failed", "topic", rec.Topic, "offset", rec.Offset, "error", err)
	}
}

func (p *Processor) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
