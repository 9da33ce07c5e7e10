//go:build integration

package testsupport

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// StartKafka launches a single-node Kafka broker, creates topics and returns
// the broker address.
func StartKafka(ctx context.Context, t *testing.T, topics ...string) string {
	t.Helper()

	kafkaC, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkacontainer.WithClusterID("lazywalker-test"),
		testcontainers.WithEnv(map[string]string{
			"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	if len(topics) > 0 {
		conn, err := kafka.Dial("tcp", brokers[0])
		require.NoError(t, err)
		defer conn.Close()

		configs := make([]kafka.TopicConfig, 0, len(topics))
		for _, topic := range topics {
			configs = append(configs, kafka.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
		}
		require.NoError(t, conn.CreateTopics(configs...))
	}
	return brokers[0]
}
