package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxBackoff = time.Hour

// parkDeadLetters stores failed events in outbox_dlq, due for an immediate
// first retry.
func parkDeadLetters(ctx context.Context, pool *pgxpool.Pool, failures []failure) error {
	const stmt = `INSERT INTO outbox_dlq (event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9, NOW())`

	batch := &pgx.Batch{}
	for _, f := range failures {
		e := f.event
		batch.Queue(stmt, e.ID, e.Type, e.Topic, e.Payload, f.reason, e.AggregateType, e.AggregateID, e.SchemaSubject, e.PartitionKey)
	}
	return pool.SendBatch(ctx, batch).Close()
}

// Report summarises one DLQ pass.
type Report struct {
	Requeued    int
	Rescheduled int
	Quarantined int
}

// Handled is the number of entries the pass acted on.
func (r Report) Handled() int {
	return r.Requeued + r.Rescheduled + r.Quarantined
}

// DLQManager moves due dead letters back into the outbox and quarantines
// entries that have used up their retries.
type DLQManager struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewDLQManager constructs a DLQManager. Zero values fall back to 5 retries,
// a one minute base delay and the default logger.
func NewDLQManager(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *DLQManager {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DLQManager{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// RunOnce handles up to batchSize due entries. Entries locked by a concurrent
// manager are skipped. Per-entry errors are joined and do not stop the pass.
func (m *DLQManager) RunOnce(ctx context.Context, batchSize int) (Report, error) {
	var report Report

	ids, err := m.dueIDs(ctx, batchSize)
	if err != nil {
		return report, err
	}

	var errs []error
	for _, id := range ids {
		outcome, err := m.handle(ctx, id)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("dlq entry %d: %w", id, err))
		case outcome == outcomeRequeued:
			report.Requeued++
		case outcome == outcomeRescheduled:
			report.Rescheduled++
		case outcome == outcomeQuarantined:
			report.Quarantined++
		}
	}

	if err := m.refreshBacklog(ctx); err != nil {
		m.logger.Warn("dlq backlog refresh failed", "error", err)
	}
	return report, errors.Join(errs...)
}

func (m *DLQManager) dueIDs(ctx context.Context, limit int) ([]int64, error) {
	rows, err := m.pool.Query(ctx, `SELECT dlq_id FROM outbox_dlq
         WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
         ORDER BY created_at, dlq_id
         LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list due dlq entries: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// handle locks one entry and applies its outcome in a single transaction. An
// empty outcome means the entry was taken by someone else.
func (m *DLQManager) handle(ctx context.Context, id int64) (string, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := lockDeadLetter(ctx, tx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	logger := m.logger.With("dlq_id", entry.ID, "event_type", entry.Type, "topic", entry.Topic, "retries", entry.RetryCount)

	outcome := outcomeRequeued
	switch {
	case entry.RetryCount >= m.maxRetries:
		outcome = outcomeQuarantined
		_, err = tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $2 WHERE dlq_id = $1`,
			entry.ID, fmt.Sprintf("gave up after %d retries: %s", entry.RetryCount, entry.Reason))
	default:
		err = requeue(ctx, tx, entry)
		if err != nil {
			outcome = outcomeRescheduled
			delay := m.backoffDelay(entry.RetryCount + 1)
			_, err = tx.Exec(ctx, `UPDATE outbox_dlq
                   SET retry_count = retry_count + 1, last_attempt_at = NOW(),
                       next_retry_at = NOW() + $2::interval, reason = $3
                 WHERE dlq_id = $1`, entry.ID, delay, err.Error())
		}
	}
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}

	countDeadLetter(entry, outcome)
	logger.Info("dlq entry handled", "outcome", outcome)
	return outcome, nil
}

// requeue copies the entry back into the outbox and deletes it. It runs in a
// savepoint so a failed insert leaves tx usable for rescheduling.
func requeue(ctx context.Context, tx pgx.Tx, entry deadLetter) error {
	if entry.SchemaSubject == "" {
		return fmt.Errorf("dead letter %d has no schema subject", entry.ID)
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sp.Rollback(ctx) }()

	if _, err := sp.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
         VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.AggregateType, entry.AggregateID, entry.Type, entry.Topic, entry.SchemaSubject, entry.PartitionKey, entry.Payload,
	); err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	if _, err := sp.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID); err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	return sp.Commit(ctx)
}

// backoffDelay doubles baseDelay per attempt, capped at one hour.
func (m *DLQManager) backoffDelay(attempt int) time.Duration {
	delay := m.baseDelay
	for i := 1; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	return min(delay, maxBackoff)
}

func (m *DLQManager) refreshBacklog(ctx context.Context) error {
	var n int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&n); err != nil {
		return err
	}
	deadLetterBacklog.Set(float64(n))
	return nil
}

// deadLetter is a locked outbox_dlq row.
type deadLetter struct {
	Event
	ID         int64
	Reason     string
	RetryCount int
}

func lockDeadLetter(ctx context.Context, tx pgx.Tx, id int64) (deadLetter, error) {
	var d deadLetter
	err := tx.QueryRow(ctx, `SELECT dlq_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count
           FROM outbox_dlq
          WHERE dlq_id = $1 AND quarantined_at IS NULL
          FOR UPDATE SKIP LOCKED`, id).
		Scan(&d.ID, &d.Event.ID, &d.Type, &d.Topic, &d.Payload, &d.Reason, &d.AggregateType, &d.AggregateID, &d.SchemaSubject, &d.PartitionKey, &d.RetryCount)
	return d, err
}
