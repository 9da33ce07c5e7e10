// Package sqlite implements domain.Store on an embedded SQLite database for
// local development, the CLI and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/persistence"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for walks, grants, profiles and schedules.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			nickname TEXT NOT NULL DEFAULT '',
			weekly_goal INTEGER NOT NULL DEFAULT 4,
			daily_goal INTEGER NOT NULL DEFAULT 10,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS walks (
			walk_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			duration_min INTEGER NOT NULL CHECK (duration_min > 0),
			calendar_date TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_walks_user_completed ON walks(user_id, completed_at DESC, walk_id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_walks_completed ON walks(completed_at DESC);`,
		`CREATE TABLE IF NOT EXISTS badge_grants (
			grant_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			badge_type TEXT NOT NULL,
			earned_at TEXT NOT NULL,
			UNIQUE (user_id, badge_type)
		);`,
		`CREATE TABLE IF NOT EXISTS kudos_grants (
			grant_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			kudos_type TEXT NOT NULL,
			period TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			earned_at TEXT NOT NULL,
			UNIQUE (user_id, kudos_type, period)
		);`,
		`CREATE TABLE IF NOT EXISTS scheduled_walks (
			schedule_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			scheduled_date TEXT NOT NULL,
			time TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE (user_id, scheduled_date)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

// CreateWalk appends a walk.
func (s *Store) CreateWalk(ctx context.Context, walk domain.Walk) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO walks (walk_id, user_id, duration_min, calendar_date, completed_at, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		walk.ID, walk.UserID, walk.DurationMin, walk.CalendarDate,
		formatTime(walk.CompletedAt), walk.Notes, formatTime(walk.CreatedAt))
	return err
}

const walkColumns = `walk_id, user_id, duration_min, calendar_date, completed_at, notes, created_at`

// GetWalk returns nil, nil when the walk does not belong to the user.
func (s *Store) GetWalk(ctx context.Context, userID, walkID string) (*domain.Walk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+walkColumns+` FROM walks WHERE user_id = ? AND walk_id = ?`, userID, walkID)
	walk, err := scanWalk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &walk, nil
}

// ListWalks returns the full walk log for the user, newest first.
func (s *Store) ListWalks(ctx context.Context, userID string) ([]domain.Walk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+walkColumns+` FROM walks WHERE user_id = ?
		ORDER BY completed_at DESC, walk_id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWalks(rows)
}

// ListWalksPage returns one page of walk history.
func (s *Store) ListWalksPage(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.Walk, *domain.Cursor, error) {
	limit = persistence.ClampLimit(limit)
	query := `SELECT ` + walkColumns + ` FROM walks WHERE user_id = ?`
	args := []any{userID}
	if cursor != nil {
		query += ` AND (completed_at < ? OR (completed_at = ? AND walk_id < ?))`
		ts := formatTime(cursor.CompletedAt)
		args = append(args, ts, ts, cursor.ID)
	}
	query += ` ORDER BY completed_at DESC, walk_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	walks, err := collectWalks(rows)
	if err != nil {
		return nil, nil, err
	}
	return walks, persistence.NextCursor(walks, limit), nil
}

// ListRecentWalks returns the latest walks across users with owner details.
func (s *Store) ListRecentWalks(ctx context.Context, limit int) ([]domain.WalkSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT w.walk_id, w.user_id, w.duration_min, w.calendar_date, w.completed_at, w.notes, w.created_at,
			COALESCE(u.email, ''), COALESCE(u.display_name, '')
		FROM walks w LEFT JOIN users u ON u.user_id = w.user_id
		ORDER BY w.completed_at DESC, w.walk_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WalkSummary, 0, limit)
	for rows.Next() {
		var (
			summary                domain.WalkSummary
			completedAt, createdAt string
		)
		if err := rows.Scan(&summary.ID, &summary.UserID, &summary.DurationMin, &summary.CalendarDate,
			&completedAt, &summary.Notes, &createdAt, &summary.UserEmail, &summary.UserDisplayName); err != nil {
			return nil, err
		}
		if summary.CompletedAt, err = parseTime(completedAt); err != nil {
			return nil, err
		}
		if summary.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// ListBadges returns every badge the user holds.
func (s *Store) ListBadges(ctx context.Context, userID string) ([]domain.BadgeGrant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grant_id, user_id, badge_type, earned_at FROM badge_grants
		WHERE user_id = ? ORDER BY earned_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.BadgeGrant, 0)
	for rows.Next() {
		var (
			g        domain.BadgeGrant
			earnedAt string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Type, &earnedAt); err != nil {
			return nil, err
		}
		if g.EarnedAt, err = parseTime(earnedAt); err != nil {
			return nil, err
		}
		g.Milestone = domain.IsMilestone(g.Type)
		out = append(out, g)
	}
	return out, rows.Err()
}

// GrantBadge inserts the badge unless the user already holds it.
func (s *Store) GrantBadge(ctx context.Context, grant domain.BadgeGrant) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO badge_grants (grant_id, user_id, badge_type, earned_at)
		VALUES (?, ?, ?, ?) ON CONFLICT (user_id, badge_type) DO NOTHING`,
		grant.ID, grant.UserID, string(grant.Type), formatTime(grant.EarnedAt))
	if err != nil {
		return err
	}
	return alreadyGrantedIfUnchanged(res)
}

// ListKudos returns every kudos the user holds, newest first.
func (s *Store) ListKudos(ctx context.Context, userID string) ([]domain.KudosGrant, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grant_id, user_id, kudos_type, period, title, description, earned_at
		FROM kudos_grants WHERE user_id = ? ORDER BY earned_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.KudosGrant, 0)
	for rows.Next() {
		var (
			g        domain.KudosGrant
			earnedAt string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &g.Type, &g.Period, &g.Title, &g.Description, &earnedAt); err != nil {
			return nil, err
		}
		if g.EarnedAt, err = parseTime(earnedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GrantKudos inserts the kudos unless it already exists for its period.
func (s *Store) GrantKudos(ctx context.Context, grant domain.KudosGrant) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO kudos_grants (grant_id, user_id, kudos_type, period, title, description, earned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT (user_id, kudos_type, period) DO NOTHING`,
		grant.ID, grant.UserID, string(grant.Type), grant.Period, grant.Title, grant.Description, formatTime(grant.EarnedAt))
	if err != nil {
		return err
	}
	return alreadyGrantedIfUnchanged(res)
}

// GetUser returns domain.ErrUserNotFound when no profile exists.
func (s *Store) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		p                    domain.UserProfile
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT user_id, email, display_name, nickname, weekly_goal, daily_goal, created_at, updated_at
		FROM users WHERE user_id = ?`, userID).
		Scan(&p.ID, &p.Email, &p.DisplayName, &p.Nickname, &p.WeeklyGoalTarget, &p.DailyGoalTarget, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertUser creates or replaces the profile.
func (s *Store) UpsertUser(ctx context.Context, p domain.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (user_id, email, display_name, nickname, weekly_goal, daily_goal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			nickname = excluded.nickname,
			weekly_goal = excluded.weekly_goal,
			daily_goal = excluded.daily_goal,
			updated_at = excluded.updated_at`,
		p.ID, p.Email, p.DisplayName, p.Nickname, p.WeeklyGoalTarget, p.DailyGoalTarget,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

// ListScheduledWalks returns the user's plan ordered by date.
func (s *Store) ListScheduledWalks(ctx context.Context, userID string) ([]domain.ScheduledWalk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT schedule_id, user_id, scheduled_date, time, notes, created_at
		FROM scheduled_walks WHERE user_id = ? ORDER BY scheduled_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ScheduledWalk, 0)
	for rows.Next() {
		var (
			w         domain.ScheduledWalk
			createdAt string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.ScheduledDate, &w.Time, &w.Notes, &createdAt); err != nil {
			return nil, err
		}
		if w.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CreateScheduledWalk returns domain.ErrScheduledWalkExists when the date is taken.
func (s *Store) CreateScheduledWalk(ctx context.Context, w domain.ScheduledWalk) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO scheduled_walks (schedule_id, user_id, scheduled_date, time, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (user_id, scheduled_date) DO NOTHING`,
		w.ID, w.UserID, w.ScheduledDate, w.Time, w.Notes, formatTime(w.CreatedAt))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrScheduledWalkExists
	}
	return nil
}

// DeleteScheduledWalk removes a scheduled walk owned by the user.
func (s *Store) DeleteScheduledWalk(ctx context.Context, userID, scheduleID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_walks WHERE schedule_id = ? AND user_id = ?`, scheduleID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrScheduledWalkNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWalk(row scanner) (domain.Walk, error) {
	var (
		w                      domain.Walk
		completedAt, createdAt string
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.DurationMin, &w.CalendarDate, &completedAt, &w.Notes, &createdAt); err != nil {
		return domain.Walk{}, err
	}
	var err error
	if w.CompletedAt, err = parseTime(completedAt); err != nil {
		return domain.Walk{}, err
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Walk{}, err
	}
	return w, nil
}

func collectWalks(rows *sql.Rows) ([]domain.Walk, error) {
	out := make([]domain.Walk, 0)
	for rows.Next() {
		w, err := scanWalk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func alreadyGrantedIfUnchanged(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyGranted
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t, nil
}
