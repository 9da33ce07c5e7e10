//go:build integration

package consumer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/lazywalker/internal/consumer"
	"example.com/lazywalker/internal/events"
	"example.com/lazywalker/internal/testsupport"
)

func TestAuditLogRecordsEventsOnce(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)
	handler := consumer.NewAuditLog(pool)

	msg := consumer.Message{
		Topic:         events.TopicProgressionEvents,
		Partition:     1,
		Offset:        99,
		Timestamp:     time.Now().UTC(),
		EventType:     events.TypeKudosGranted,
		EventID:       "5",
		UserID:        "user-1",
		SchemaSubject: "progression_events-kudos-value",
		SchemaID:      3,
		Payload:       json.RawMessage(`{"kudos_type":"first_walk"}`),
	}
	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM progression_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var userID, payload string
	require.NoError(t, pool.QueryRow(ctx, `SELECT user_id, payload::text FROM progression_event_log`).Scan(&userID, &payload))
	require.Equal(t, "user-1", userID)
	require.JSONEq(t, `{"kudos_type":"first_walk"}`, payload)
}
