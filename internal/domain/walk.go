// Package domain defines the walk log and the streak, badge and kudos
// progression engine built on top of it.
package domain

import "time"

// Walk is one completed walking session. Walks are append-only.
type Walk struct {
	ID           string
	UserID       string
	DurationMin  int
	CalendarDate string // YYYY-MM-DD in the progression time zone
	CompletedAt  time.Time
	Notes        string
	CreatedAt    time.Time
}

// WalkSummary is a walk joined with its owner, used by the admin listing.
type WalkSummary struct {
	Walk
	UserEmail       string
	UserDisplayName string
}

// Cursor models the walk history pagination token.
type Cursor struct {
	CompletedAt time.Time
	ID          string
}

// Totals are lifetime aggregates over a user's walk log.
type Totals struct {
	Walks   int
	Minutes int
}

// TotalsOf sums a walk log.
func TotalsOf(walks []Walk) Totals {
	t := Totals{Walks: len(walks)}
	for _, w := range walks {
		t.Minutes += w.DurationMin
	}
	return t
}
