package consumer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/lazywalker/internal/outbox"
)

// Message is a decoded walk or progression event.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	EventID       string
	UserID        string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// DecodeError reports a record that can never be handled.
type DecodeError struct {
	Topic     string
	Partition int
	Offset    int64
	Reason    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable record %s/%d@%d: %s", e.Topic, e.Partition, e.Offset, e.Reason)
}

// Decode unwraps a record framed by the outbox dispatcher: magic byte 0, a
// four byte schema id, then a JSON body. The event_type header is required.
func Decode(rec kafka.Message) (Message, error) {
	fail := func(format string, args ...any) (Message, error) {
		return Message{}, &DecodeError{Topic: rec.Topic, Partition: rec.Partition, Offset: rec.Offset, Reason: fmt.Sprintf(format, args...)}
	}

	if len(rec.Value) < 5 {
		return fail("frame too short (%d bytes)", len(rec.Value))
	}
	if rec.Value[0] != 0 {
		return fail("unknown magic byte %d", rec.Value[0])
	}
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	eventType := headers[outbox.HeaderEventType]
	if eventType == "" {
		return fail("missing %s header", outbox.HeaderEventType)
	}
	body := rec.Value[5:]
	if !json.Valid(body) {
		return fail("body is not JSON")
	}

	return Message{
		Topic:         rec.Topic,
		Partition:     rec.Partition,
		Offset:        rec.Offset,
		Timestamp:     rec.Time,
		EventType:     eventType,
		EventID:       headers[outbox.HeaderEventID],
		UserID:        string(rec.Key),
		SchemaSubject: headers[outbox.HeaderSchemaSubject],
		SchemaID:      int(binary.BigEndian.Uint32(rec.Value[1:5])),
		Payload:       append(json.RawMessage(nil), body...),
	}, nil
}

// eventTypeOf labels a record that failed to decode.
func eventTypeOf(rec kafka.Message) string {
	for _, h := range rec.Headers {
		if h.Key == outbox.HeaderEventType && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return "unknown"
}
