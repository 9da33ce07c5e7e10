package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/lazywalker/internal/events"
	"example.com/lazywalker/internal/observability"
)

const (
	walkSubject  = "walk_events-value"
	kudosSubject = "progression_events-kudos-value"
)

func walkEvent(id int64, user string) Event {
	return Event{ID: id, Type: events.TypeWalkCompleted, Topic: events.TopicWalkEvents, SchemaSubject: walkSubject, PartitionKey: user, Payload: []byte(`{"walk_id":"w` + user + `"}`)}
}

func kudosEvent(id int64, user string) Event {
	return Event{ID: id, Type: events.TypeKudosGranted, Topic: events.TopicProgressionEvents, SchemaSubject: kudosSubject, PartitionKey: user, Payload: []byte(`{"grant_id":"k1"}`)}
}

func newTestDispatcher(p Publisher, r SchemaResolver) *Dispatcher {
	d := NewDispatcher(nil, p, r, time.Second, 10, WithLogger(observability.DiscardLogger()))
	d.now = func() time.Time { return time.Date(2024, 5, 15, 18, 0, 0, 0, time.UTC) }
	return d
}

func headers(t *testing.T, batch writtenBatch, i int) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, h := range batch.messages[i].Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestPublishGroupsByTopicInEventOrder(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 7}
	d := newTestDispatcher(producer, registry)

	published := testutil.ToFloat64(eventsTotal.WithLabelValues(events.TopicWalkEvents, outcomePublished))
	failures := d.publish(context.Background(), []Event{walkEvent(1, "u1"), kudosEvent(2, "u1"), walkEvent(3, "u2")})
	require.Empty(t, failures)

	require.Len(t, producer.writes, 2)
	require.Equal(t, events.TopicWalkEvents, producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 2)
	require.Equal(t, events.TopicProgressionEvents, producer.writes[1].topic)
	require.Equal(t, published+2, testutil.ToFloat64(eventsTotal.WithLabelValues(events.TopicWalkEvents, outcomePublished)))

	first := producer.writes[0].messages[0]
	require.Equal(t, "u1", string(first.Key))
	require.Equal(t, byte(0), first.Value[0])
	require.Equal(t, uint32(7), binary.BigEndian.Uint32(first.Value[1:5]))
	require.JSONEq(t, `{"walk_id":"wu1"}`, string(first.Value[5:]))
	require.Equal(t, d.now(), first.Time)
	require.Equal(t, "u2", string(producer.writes[0].messages[1].Key))

	h := headers(t, producer.writes[0], 0)
	require.Equal(t, events.TypeWalkCompleted, h[HeaderEventType])
	require.Equal(t, walkSubject, h[HeaderSchemaSubject])
	require.Equal(t, "1", h[HeaderEventID])

	require.Equal(t, []string{walkSubject, kudosSubject}, registry.calls, "schema ids are cached per subject")
}

func TestPublishIsolatesFailingTopic(t *testing.T) {
	producer := &stubProducer{failing: map[string]error{events.TopicProgressionEvents: errors.New("leader not available")}}
	d := newTestDispatcher(producer, &stubRegistry{id: 3})

	failures := d.publish(context.Background(), []Event{walkEvent(1, "u1"), kudosEvent(2, "u1"), kudosEvent(3, "u2")})

	require.Len(t, producer.writes, 1)
	require.Equal(t, events.TopicWalkEvents, producer.writes[0].topic)
	require.Len(t, failures, 2)
	require.Equal(t, int64(2), failures[0].event.ID)
	require.Contains(t, failures[1].reason, "leader not available")
}

func TestPublishDeadLettersUnroutableEvents(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 1}
	d := newTestDispatcher(producer, registry)

	unknown := walkEvent(9, "u1")
	unknown.Type = "walk.unknown"
	failures := d.publish(context.Background(), []Event{unknown, walkEvent(10, "u1")})

	require.Len(t, failures, 1)
	require.Equal(t, int64(9), failures[0].event.ID)
	require.Contains(t, failures[0].reason, `no schema for event type "walk.unknown"`)
	require.Len(t, producer.writes, 1)
	require.Len(t, producer.writes[0].messages, 1)
}

func TestPublishSurfacesRegistryErrors(t *testing.T) {
	producer := &stubProducer{}
	d := newTestDispatcher(producer, &stubRegistry{err: errors.New("registry down")})

	failures := d.publish(context.Background(), []Event{kudosEvent(1, "u1")})
	require.Len(t, failures, 1)
	require.Contains(t, failures[0].reason, "registry down")
	require.Empty(t, producer.writes)
}

func TestFrame(t *testing.T) {
	require.Equal(t, []byte{0, 0, 0, 1, 2, '{', '}'}, frame(258, []byte("{}")))
}

func TestSchemaCatalogCoversPublishedEvents(t *testing.T) {
	for _, eventType := range []string{events.TypeWalkCompleted, events.TypeBadgeGranted, events.TypeKudosGranted} {
		require.Contains(t, schemaCatalog, eventType)
	}
}

func TestBackoffDelay(t *testing.T) {
	m := NewDLQManager(nil, 5, time.Minute, nil)
	require.Equal(t, time.Minute, m.backoffDelay(0))
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(7))
	require.Equal(t, time.Hour, m.backoffDelay(64))
}

func TestReportHandled(t *testing.T) {
	require.Equal(t, 6, Report{Requeued: 1, Rescheduled: 2, Quarantined: 3}.Handled())
	require.Zero(t, Report{}.Handled())
}
