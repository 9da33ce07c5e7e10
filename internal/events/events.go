// Package events defines the payloads LazyWalker publishes through the outbox.
package events

import "time"

// Event type names recorded in the outbox and sent as the event_type header.
const (
	TypeWalkCompleted = "walk.completed"
	TypeBadgeGranted  = "badge.granted"
	TypeKudosGranted  = "kudos.granted"
)

// Topics the outbox publishes to.
const (
	TopicWalkEvents        = "walk_events"
	TopicProgressionEvents = "progression_events"
)

// WalkCompleted is emitted when a walk is appended to the log.
type WalkCompleted struct {
	WalkID       string    `json:"walk_id"`
	UserID       string    `json:"user_id"`
	DurationMin  int       `json:"duration_min"`
	CalendarDate string    `json:"calendar_date"`
	CompletedAt  time.Time `json:"completed_at"`
}

// BadgeGranted is emitted when a streak badge or milestone is earned.
type BadgeGranted struct {
	GrantID   string    `json:"grant_id"`
	UserID    string    `json:"user_id"`
	BadgeType string    `json:"badge_type"`
	Milestone bool      `json:"milestone"`
	EarnedAt  time.Time `json:"earned_at"`
}

// KudosGranted is emitted when a kudos is earned.
type KudosGranted struct {
	GrantID   string    `json:"grant_id"`
	UserID    string    `json:"user_id"`
	KudosType string    `json:"kudos_type"`
	Period    string    `json:"period,omitempty"`
	Title     string    `json:"title"`
	EarnedAt  time.Time `json:"earned_at"`
}
