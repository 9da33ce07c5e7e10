//go:build integration

package outbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/lazywalker/internal/consumer"
	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/events"
	"example.com/lazywalker/internal/observability"
	"example.com/lazywalker/internal/outbox"
	"example.com/lazywalker/internal/persistence/postgres"
	"example.com/lazywalker/internal/testsupport"
)

// A submission's walk, milestone and kudos events travel outbox -> Kafka ->
// audit consumer and land once in progression_event_log.
func TestSubmissionEventsReachAuditLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	pool := testsupport.StartPostgres(ctx, t)
	broker := testsupport.StartKafka(ctx, t, events.TopicWalkEvents, events.TopicProgressionEvents)
	logger := observability.DiscardLogger()

	svc := domain.NewService(postgres.NewRepository(pool), domain.WithLogger(logger))
	result, err := svc.SubmitWalk(ctx, domain.SubmitWalkInput{UserID: "user-1", DurationMin: 15})
	require.NoError(t, err)
	require.Len(t, result.NewMilestones, 1)
	require.Len(t, result.NewKudos, 2)
	require.Equal(t, 4, countRows(t, ctx, pool, `SELECT COUNT(*) FROM outbox`))

	producer := outbox.NewKafkaProducer([]string{broker})
	defer producer.Close()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	dispatcher := outbox.NewDispatcher(pool, producer, fixedRegistry{id: 11}, 100*time.Millisecond, 10, outbox.WithLogger(logger))
	go dispatcher.Start(runCtx)

	reader := consumer.NewKafkaReader([]string{broker}, "lazywalker-integration", []string{events.TopicWalkEvents, events.TopicProgressionEvents})
	defer reader.Close()
	proc := consumer.NewProcessor(reader, consumer.NewAuditLog(pool), consumer.WithLogger(logger))
	go func() { _ = proc.Run(runCtx) }()

	require.Eventually(t, func() bool {
		var n int
		err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM progression_event_log`).Scan(&n)
		return err == nil && n == 4
	}, 90*time.Second, 500*time.Millisecond)

	stop()
	dispatcher.Wait()

	require.Equal(t, 0, countRows(t, ctx, pool, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`))
	require.Equal(t, 1, countRows(t, ctx, pool,
		`SELECT COUNT(*) FROM progression_event_log WHERE event_type = '`+events.TypeWalkCompleted+`'`))
	require.Equal(t, 0, countRows(t, ctx, pool, `SELECT COUNT(*) FROM outbox_dlq`))
}
