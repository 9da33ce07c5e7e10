package domain

import (
	"context"
	"time"
)

// WalkStore persists the append-only walk log.
type WalkStore interface {
	CreateWalk(ctx context.Context, walk Walk) error
	// GetWalk returns nil, nil when the walk does not exist for the user.
	GetWalk(ctx context.Context, userID, walkID string) (*Walk, error)
	// ListWalks returns every walk for the user, newest first.
	ListWalks(ctx context.Context, userID string) ([]Walk, error)
	ListWalksPage(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Walk, *Cursor, error)
	ListRecentWalks(ctx context.Context, limit int) ([]WalkSummary, error)
}

// GrantStore persists badges and kudos. Grant methods are insert-if-absent and
// return ErrAlreadyGranted when the uniqueness key already exists.
type GrantStore interface {
	ListBadges(ctx context.Context, userID string) ([]BadgeGrant, error)
	GrantBadge(ctx context.Context, grant BadgeGrant) error
	ListKudos(ctx context.Context, userID string) ([]KudosGrant, error)
	GrantKudos(ctx context.Context, grant KudosGrant) error
}

// UserStore persists profiles and goal preferences.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*UserProfile, error)
	UpsertUser(ctx context.Context, profile UserProfile) error
}

// ScheduleStore persists planned walks.
type ScheduleStore interface {
	ListScheduledWalks(ctx context.Context, userID string) ([]ScheduledWalk, error)
	CreateScheduledWalk(ctx context.Context, walk ScheduledWalk) error
	DeleteScheduledWalk(ctx context.Context, userID, scheduleID string) error
}

// Store is the full persistence contract used by Service.
type Store interface {
	WalkStore
	GrantStore
	UserStore
	ScheduleStore
}

// Notification is a congratulatory message for a new kudos.
type Notification struct {
	Email       string
	DisplayName string
	Title       string
	Description string
	KudosType   KudosType
	EarnedAt    time.Time
}

// Notifier delivers kudos notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// CacheInvalidator tells client caches that a user's progress changed.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Notification) error { return nil }

type noopInvalidator struct{}

func (noopInvalidator) InvalidateUser(context.Context, string) error { return nil }
