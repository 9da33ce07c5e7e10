package outbox

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

// stubProducer records writes; topics listed in failing are rejected.
type stubProducer struct {
	mu      sync.Mutex
	failing map[string]error
	writes  []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failing[topic]; err != nil {
		return err
	}
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: append([]kafka.Message(nil), msgs...)})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(_ context.Context, subject, _ string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, subject)
	if s.err != nil {
		return 0, s.err
	}
	return s.id, nil
}
