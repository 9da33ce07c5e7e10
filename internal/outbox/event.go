package outbox

import (
	"encoding/binary"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka header names set on every published record.
const (
	HeaderEventType     = "event_type"
	HeaderSchemaSubject = "schema_subject"
	HeaderEventID       = "event_id"
)

// Event is one outbox row awaiting publication.
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Topic         string
	SchemaSubject string
	PartitionKey  string // user id; keeps a user's events ordered on one partition
	Payload       json.RawMessage
}

// record builds the Kafka message for e framed with schemaID.
func (e Event) record(schemaID int, now time.Time) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.PartitionKey),
		Value: frame(schemaID, e.Payload),
		Time:  now,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
			{Key: HeaderSchemaSubject, Value: []byte(e.SchemaSubject)},
			{Key: HeaderEventID, Value: []byte(strconv.FormatInt(e.ID, 10))},
		},
	}
}

// frame prefixes payload with the Confluent wire header: magic byte 0 and a
// big-endian schema id.
func frame(schemaID int, payload []byte) []byte {
	out := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(out[1:5], uint32(schemaID))
	copy(out[5:], payload)
	return out
}
