package domain

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// memStore is an in-memory Store with failure injection for service tests.
type memStore struct {
	mu        sync.Mutex
	walks     []Walk
	badges    []BadgeGrant
	kudos     []KudosGrant
	users     map[string]UserProfile
	schedules []ScheduledWalk

	createWalkErr error
	listWalksErr  error
	listBadgesErr error
	grantBadgeErr error
	listKudosErr  error
	grantKudosErr error
	getUserErr    error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]UserProfile{}}
}

func (m *memStore) CreateWalk(_ context.Context, walk Walk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createWalkErr != nil {
		return m.createWalkErr
	}
	m.walks = append(m.walks, walk)
	return nil
}

func (m *memStore) GetWalk(_ context.Context, userID, walkID string) (*Walk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.walks {
		if w.ID == walkID && w.UserID == userID {
			found := w
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListWalks(_ context.Context, userID string) ([]Walk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listWalksErr != nil {
		return nil, m.listWalksErr
	}
	out := make([]Walk, 0)
	for _, w := range m.walks {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (m *memStore) ListWalksPage(ctx context.Context, userID string, _ *Cursor, limit int) ([]Walk, *Cursor, error) {
	walks, err := m.ListWalks(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if limit > 0 && len(walks) > limit {
		walks = walks[:limit]
	}
	return walks, nil, nil
}

func (m *memStore) ListRecentWalks(_ context.Context, limit int) ([]WalkSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WalkSummary, 0, len(m.walks))
	for _, w := range m.walks {
		out = append(out, WalkSummary{Walk: w, UserEmail: m.users[w.UserID].Email})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListBadges(_ context.Context, userID string) ([]BadgeGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listBadgesErr != nil {
		return nil, m.listBadgesErr
	}
	out := make([]BadgeGrant, 0)
	for _, b := range m.badges {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) GrantBadge(_ context.Context, grant BadgeGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantBadgeErr != nil {
		return m.grantBadgeErr
	}
	for _, b := range m.badges {
		if b.UserID == grant.UserID && b.Type == grant.Type {
			return ErrAlreadyGranted
		}
	}
	m.badges = append(m.badges, grant)
	return nil
}

func (m *memStore) ListKudos(_ context.Context, userID string) ([]KudosGrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listKudosErr != nil {
		return nil, m.listKudosErr
	}
	out := make([]KudosGrant, 0)
	for _, k := range m.kudos {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) GrantKudos(_ context.Context, grant KudosGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grantKudosErr != nil {
		return m.grantKudosErr
	}
	for _, k := range m.kudos {
		if k.UserID == grant.UserID && k.Type == grant.Type && k.Period == grant.Period {
			return ErrAlreadyGranted
		}
	}
	m.kudos = append(m.kudos, grant)
	return nil
}

func (m *memStore) GetUser(_ context.Context, userID string) (*UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getUserErr != nil {
		return nil, m.getUserErr
	}
	p, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &p, nil
}

func (m *memStore) UpsertUser(_ context.Context, profile UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[profile.ID] = profile
	return nil
}

func (m *memStore) ListScheduledWalks(_ context.Context, userID string) ([]ScheduledWalk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ScheduledWalk, 0)
	for _, s := range m.schedules {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateScheduledWalk(_ context.Context, walk ScheduledWalk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedules {
		if s.UserID == walk.UserID && s.ScheduledDate == walk.ScheduledDate {
			return ErrScheduledWalkExists
		}
	}
	m.schedules = append(m.schedules, walk)
	return nil
}

func (m *memStore) DeleteScheduledWalk(_ context.Context, userID, scheduleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.schedules {
		if s.ID == scheduleID && s.UserID == userID {
			m.schedules = append(m.schedules[:i], m.schedules[i+1:]...)
			return nil
		}
	}
	return ErrScheduledWalkNotFound
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []Notification
	ctxErrs []error
	err     error
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	users []string
}

func (c *countingInvalidator) InvalidateUser(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
	return nil
}

var errBoom = errors.New("boom")
