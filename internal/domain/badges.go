package domain

type threshold[T comparable] struct {
	Type  T
	Value int
}

// Ascending; evaluation order is grant order.
var streakBadgeThresholds = []threshold[BadgeType]{
	{BadgeThreeDays, 3},
	{BadgeOneWeek, 7},
	{BadgeTwoWeeks, 14},
	{BadgeOneMonth, 30},
}

var walkCountThresholds = []threshold[BadgeType]{
	{BadgeFirstWalk, 1},
	{BadgeTotalWalks10, 10},
	{BadgeTotalWalks50, 50},
	{BadgeTotalWalks100, 100},
}

var minuteThresholds = []threshold[BadgeType]{
	{BadgeTotalMinutes100, 100},
	{BadgeTotalMinutes500, 500},
	{BadgeTotalMinutes1000, 1000},
}

// EvaluateStreakBadges returns the streak badges reached by streakDays that
// have not been granted yet.
func EvaluateStreakBadges(streakDays int, granted map[BadgeType]bool) []BadgeType {
	return crossed(streakBadgeThresholds, streakDays, granted)
}

// EvaluateMilestones returns the lifetime walk and minute badges reached by
// totals that have not been granted yet.
func EvaluateMilestones(totals Totals, granted map[BadgeType]bool) []BadgeType {
	out := crossed(walkCountThresholds, totals.Walks, granted)
	return append(out, crossed(minuteThresholds, totals.Minutes, granted)...)
}

func crossed[T comparable](rules []threshold[T], value int, granted map[T]bool) []T {
	out := make([]T, 0)
	for _, rule := range rules {
		if value >= rule.Value && !granted[rule.Type] {
			out = append(out, rule.Type)
		}
	}
	return out
}

// IsMilestone reports whether the badge is a lifetime-total milestone rather
// than a streak badge.
func IsMilestone(t BadgeType) bool {
	for _, rule := range walkCountThresholds {
		if rule.Type == t {
			return true
		}
	}
	for _, rule := range minuteThresholds {
		if rule.Type == t {
			return true
		}
	}
	return false
}

func badgeSet(grants []BadgeGrant) map[BadgeType]bool {
	set := make(map[BadgeType]bool, len(grants))
	for _, g := range grants {
		set[g.Type] = true
	}
	return set
}
