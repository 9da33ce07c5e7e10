package domain

// dailyGoalMinutes is the single-walk duration that earns daily_goal_10.
const dailyGoalMinutes = 10

// KudosInput is what the kudos rules look at for one submission.
type KudosInput struct {
	DurationMin int
	StreakDays  int
	TotalWalks  int
}

// EvaluateKudos returns the lifetime kudos earned by this submission that
// have not been granted yet. Streak kudos require an exact streak match.
func EvaluateKudos(in KudosInput, granted map[KudosType]bool) []KudosType {
	out := make([]KudosType, 0)
	add := func(t KudosType, cond bool) {
		if cond && !granted[t] {
			out = append(out, t)
		}
	}
	add(KudosFirstWalk, in.TotalWalks >= 1)
	add(KudosDailyGoal10, in.DurationMin >= dailyGoalMinutes)
	add(KudosStreak3, in.StreakDays == 3)
	add(KudosStreak7, in.StreakDays == 7)
	return out
}

// NewLifetimeKudos fills in the fixed title and description for t.
func NewLifetimeKudos(t KudosType) KudosGrant {
	text := kudosCatalog[t]
	return KudosGrant{Type: t, Title: text.Title, Description: text.Description}
}

// lifetimeKudosSet ignores period-keyed kudos.
func lifetimeKudosSet(grants []KudosGrant) map[KudosType]bool {
	set := make(map[KudosType]bool, len(grants))
	for _, g := range grants {
		if g.Period == "" {
			set[g.Type] = true
		}
	}
	return set
}
