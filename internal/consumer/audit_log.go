package consumer

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog appends consumed events to progression_event_log. Records are keyed
// by topic, partition and offset, so redeliveries are no-ops.
type AuditLog struct {
	pool *pgxpool.Pool
}

// NewAuditLog creates an AuditLog backed by pool.
func NewAuditLog(pool *pgxpool.Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

// Handle implements Handler.
func (a *AuditLog) Handle(ctx context.Context, msg Message) error {
	const stmt = `INSERT INTO progression_event_log
        (event_id, event_type, user_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (topic, partition, record_offset) DO NOTHING`

	if _, err := a.pool.Exec(ctx, stmt,
		msg.EventID, msg.EventType, msg.UserID, msg.SchemaID, msg.SchemaSubject,
		msg.Topic, msg.Partition, msg.Offset, []byte(msg.Payload), msg.Timestamp,
	); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}
