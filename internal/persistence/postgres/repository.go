// Package postgres implements domain.Store on PostgreSQL and records outbox
// events in the same transaction as the rows they describe.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/events"
	"example.com/lazywalker/internal/persistence"
)

// Repository provides Postgres-backed persistence for walks, grants and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const walkColumns = `walk_id::text, user_id, duration_min, calendar_date::text, completed_at, notes, created_at`

// CreateWalk appends the walk and its walk.completed event atomically.
func (r *Repository) CreateWalk(ctx context.Context, walk domain.Walk) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx,
		`INSERT INTO walks (walk_id, user_id, duration_min, calendar_date, completed_at, notes, created_at)
         VALUES ($1,$2,$3,$4::date,$5,$6,$7)`,
		walk.ID, walk.UserID, walk.DurationMin, walk.CalendarDate, walk.CompletedAt, walk.Notes, walk.CreatedAt,
	)
	if err != nil {
		return err
	}

	if err = insertOutbox(ctx, tx, "walk", walk.ID, walk.UserID, events.TypeWalkCompleted, events.WalkCompleted{
		WalkID:       walk.ID,
		UserID:       walk.UserID,
		DurationMin:  walk.DurationMin,
		CalendarDate: walk.CalendarDate,
		CompletedAt:  walk.CompletedAt,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetWalk returns nil, nil when the walk does not exist for the user.
func (r *Repository) GetWalk(ctx context.Context, userID, walkID string) (*domain.Walk, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+walkColumns+` FROM walks WHERE user_id=$1 AND walk_id::text=$2`, userID, walkID)
	walk, err := scanWalk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &walk, nil
}

// ListWalks returns the user's full walk log, newest first.
func (r *Repository) ListWalks(ctx context.Context, userID string) ([]domain.Walk, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+walkColumns+` FROM walks WHERE user_id=$1
        ORDER BY completed_at DESC, walk_id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWalks(rows, 0)
}

// ListWalksPage returns walks ordered by completion time using keyset pagination.
func (r *Repository) ListWalksPage(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Walk, *domain.Cursor, error) {
	limit = persistence.ClampLimit(limit)
	args := []any{userID, limit}
	query := `SELECT ` + walkColumns + ` FROM walks WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (completed_at, walk_id) < ($3, $4::uuid)`
		args = append(args, cursor.CompletedAt, cursor.ID)
	}
	query += ` ORDER BY completed_at DESC, walk_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	walks, err := collectWalks(rows, limit)
	if err != nil {
		return nil, nil, err
	}
	return walks, persistence.NextCursor(walks, limit), nil
}

// ListRecentWalks returns the latest walks across all users with owner details.
func (r *Repository) ListRecentWalks(ctx context.Context, limit int) ([]domain.WalkSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT w.walk_id::text, w.user_id, w.duration_min, w.calendar_date::text, w.completed_at, w.notes, w.created_at,
                COALESCE(u.email, ''), COALESCE(u.display_name, '')
           FROM walks w LEFT JOIN users u ON u.user_id = w.user_id
          ORDER BY w.completed_at DESC, w.walk_id DESC
          LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.WalkSummary, 0, limit)
	for rows.Next() {
		var s domain.WalkSummary
		if err := rows.Scan(&s.ID, &s.UserID, &s.DurationMin, &s.CalendarDate, &s.CompletedAt, &s.Notes, &s.CreatedAt, &s.UserEmail, &s.UserDisplayName); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// ListBadges returns every badge held by the user, newest first.
func (r *Repository) ListBadges(ctx context.Context, userID string) ([]domain.BadgeGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT grant_id::text, user_id, badge_type, earned_at
        FROM badge_grants WHERE user_id=$1 ORDER BY earned_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.BadgeGrant, 0)
	for rows.Next() {
		var g domain.BadgeGrant
		if err := rows.Scan(&g.ID, &g.UserID, &g.Type, &g.EarnedAt); err != nil {
			return nil, err
		}
		g.Milestone = domain.IsMilestone(g.Type)
		results = append(results, g)
	}
	return results, rows.Err()
}

// GrantBadge inserts the badge and its badge.granted event. It returns
// domain.ErrAlreadyGranted without writing anything when the user already
// holds the badge.
func (r *Repository) GrantBadge(ctx context.Context, grant domain.BadgeGrant) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO badge_grants (grant_id, user_id, badge_type, earned_at)
         VALUES ($1,$2,$3,$4)
         ON CONFLICT (user_id, badge_type) DO NOTHING`,
		grant.ID, grant.UserID, string(grant.Type), grant.EarnedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyGranted
	}

	if err = insertOutbox(ctx, tx, "badge_grant", grant.ID, grant.UserID, events.TypeBadgeGranted, events.BadgeGranted{
		GrantID:   grant.ID,
		UserID:    grant.UserID,
		BadgeType: string(grant.Type),
		Milestone: domain.IsMilestone(grant.Type),
		EarnedAt:  grant.EarnedAt,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListKudos returns every kudos held by the user, newest first.
func (r *Repository) ListKudos(ctx context.Context, userID string) ([]domain.KudosGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT grant_id::text, user_id, kudos_type, period, title, description, earned_at
        FROM kudos_grants WHERE user_id=$1 ORDER BY earned_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.KudosGrant, 0)
	for rows.Next() {
		var g domain.KudosGrant
		if err := rows.Scan(&g.ID, &g.UserID, &g.Type, &g.Period, &g.Title, &g.Description, &g.EarnedAt); err != nil {
			return nil, err
		}
		results = append(results, g)
	}
	return results, rows.Err()
}

// GrantKudos inserts the kudos and its kudos.granted event unless the
// (user, type, period) key already exists.
func (r *Repository) GrantKudos(ctx context.Context, grant domain.KudosGrant) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO kudos_grants (grant_id, user_id, kudos_type, period, title, description, earned_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (user_id, kudos_type, period) DO NOTHING`,
		grant.ID, grant.UserID, string(grant.Type), grant.Period, grant.Title, grant.Description, grant.EarnedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyGranted
	}

	if err = insertOutbox(ctx, tx, "kudos_grant", grant.ID, grant.UserID, events.TypeKudosGranted, events.KudosGranted{
		GrantID:   grant.ID,
		UserID:    grant.UserID,
		KudosType: string(grant.Type),
		Period:    grant.Period,
		Title:     grant.Title,
		EarnedAt:  grant.EarnedAt,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// GetUser returns domain.ErrUserNotFound when no profile exists.
func (r *Repository) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := r.pool.QueryRow(ctx, `SELECT user_id, email, display_name, nickname, weekly_goal, daily_goal, created_at, updated_at
        FROM users WHERE user_id=$1`, userID).
		Scan(&p.ID, &p.Email, &p.DisplayName, &p.Nickname, &p.WeeklyGoalTarget, &p.DailyGoalTarget, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpsertUser creates the profile or replaces its mutable fields.
func (r *Repository) UpsertUser(ctx context.Context, p domain.UserProfile) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, email, display_name, nickname, weekly_goal, daily_goal, created_at, updated_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
         ON CONFLICT (user_id) DO UPDATE SET
             email = EXCLUDED.email,
             display_name = EXCLUDED.display_name,
             nickname = EXCLUDED.nickname,
             weekly_goal = EXCLUDED.weekly_goal,
             daily_goal = EXCLUDED.daily_goal,
             updated_at = EXCLUDED.updated_at`,
		p.ID, p.Email, p.DisplayName, p.Nickname, p.WeeklyGoalTarget, p.DailyGoalTarget, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// ListScheduledWalks returns the user's planned walks ordered by date.
func (r *Repository) ListScheduledWalks(ctx context.Context, userID string) ([]domain.ScheduledWalk, error) {
	rows, err := r.pool.Query(ctx, `SELECT schedule_id::text, user_id, scheduled_date::text, time, notes, created_at
        FROM scheduled_walks WHERE user_id=$1 ORDER BY scheduled_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScheduledWalk, 0)
	for rows.Next() {
		var w domain.ScheduledWalk
		if err := rows.Scan(&w.ID, &w.UserID, &w.ScheduledDate, &w.Time, &w.Notes, &w.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// CreateScheduledWalk returns domain.ErrScheduledWalkExists when the date is already planned.
func (r *Repository) CreateScheduledWalk(ctx context.Context, w domain.ScheduledWalk) error {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO scheduled_walks (schedule_id, user_id, scheduled_date, time, notes, created_at)
         VALUES ($1,$2,$3::date,$4,$5,$6)
         ON CONFLICT (user_id, scheduled_date) DO NOTHING`,
		w.ID, w.UserID, w.ScheduledDate, w.Time, w.Notes, w.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduledWalkExists
	}
	return nil
}

// DeleteScheduledWalk removes a planned walk owned by the user.
func (r *Repository) DeleteScheduledWalk(ctx context.Context, userID, scheduleID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scheduled_walks WHERE schedule_id::text=$1 AND user_id=$2`, scheduleID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduledWalkNotFound
	}
	return nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType, aggregateID, userID, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		userID,
		body,
		dedupeKey,
	)
	return err
}

func scanWalk(row pgx.Row) (domain.Walk, error) {
	var w domain.Walk
	err := row.Scan(&w.ID, &w.UserID, &w.DurationMin, &w.CalendarDate, &w.CompletedAt, &w.Notes, &w.CreatedAt)
	return w, err
}

func collectWalks(rows pgx.Rows, capacity int) ([]domain.Walk, error) {
	results := make([]domain.Walk, 0, capacity)
	for rows.Next() {
		w, err := scanWalk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// EventMetadata describes how to route an outbox event. Every event is keyed
// by user id so a user's events stay ordered on one partition.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeWalkCompleted: {
		Topic:         events.TopicWalkEvents,
		SchemaSubject: events.TopicWalkEvents + "-value",
	},
	events.TypeBadgeGranted: {
		Topic:         events.TopicProgressionEvents,
		SchemaSubject: events.TopicProgressionEvents + "-badge-value",
	},
	events.TypeKudosGranted: {
		Topic:         events.TopicProgressionEvents,
		SchemaSubject: events.TopicProgressionEvents + "-kudos-value",
	},
}

var _ domain.Store = (*Repository)(nil)
