package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and as a reference
// implementation of the atomicity contract. A single mutex serializes
// every read-modify-write, which trivially satisfies the no-lost-update
// requirement.
type MemoryStore struct {
	mu sync.Mutex

	progress   map[string]*LearningProgress // key: userID|level
	xp         map[string]*UserXP
	badges     map[string]Badge
	userBadges map[string][]UserBadge
	streaks    map[string]*UserStreak
	goals      map[string]*DailyGoal // key: userID|date
	activities []ActivityRecord
	questions  map[string]Question

	// Now supplies timestamps for document bookkeeping. Tests may
	// replace it with a fixed clock.
	Now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		progress:   make(map[string]*LearningProgress),
		xp:         make(map[string]*UserXP),
		badges:     make(map[string]Badge),
		userBadges: make(map[string][]UserBadge),
		streaks:    make(map[string]*UserStreak),
		goals:      make(map[string]*DailyGoal),
		questions:  make(map[string]Question),
		Now:        nowUTC,
	}
}

func progressKey(userID string, level int) string {
	return fmt.Sprintf("%s|%d", userID, level)
}

func goalKey(userID, date string) string {
	return userID + "|" + date
}

// clone deep-copies a document via JSON so callers can't mutate stored
// state outside an Update.
func clone[T any](doc *T) *T {
	b, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("clone marshal: %v", err))
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("clone unmarshal: %v", err))
	}
	return &out
}

func (m *MemoryStore) GetProgress(_ context.Context, userID string, level int) (*LearningProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressKey(userID, level)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (m *MemoryStore) UpdateProgress(_ context.Context, userID string, level int, mutate func(*LearningProgress) error) (*LearningProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(userID, level)
	p, ok := m.progress[key]
	if !ok {
		p = NewLearningProgress(userID, level, m.Now())
	} else {
		p = clone(p)
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = m.Now()
	m.progress[key] = p
	return clone(p), nil
}

func (m *MemoryStore) UserProgress(_ context.Context, userID string) ([]*LearningProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*LearningProgress
	for _, p := range m.progress {
		if p.UserID == userID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}

func (m *MemoryStore) GetUserXP(_ context.Context, userID string) (*UserXP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	xp, ok := m.xp[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(xp), nil
}

func (m *MemoryStore) UpdateUserXP(_ context.Context, userID string, mutate func(*UserXP) error) (*UserXP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	xp, ok := m.xp[userID]
	if !ok {
		xp = NewUserXP(userID)
	} else {
		xp = clone(xp)
	}
	if err := mutate(xp); err != nil {
		return nil, err
	}
	m.xp[userID] = xp
	return clone(xp), nil
}

func (m *MemoryStore) BadgeCatalog(_ context.Context) ([]Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Badge, 0, len(m.badges))
	for _, b := range m.badges {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) PutBadge(_ context.Context, badge Badge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badges[badge.ID] = badge
	return nil
}

func (m *MemoryStore) UserBadges(_ context.Context, userID string) ([]UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UserBadge(nil), m.userBadges[userID]...), nil
}

func (m *MemoryStore) PutUserBadge(_ context.Context, badge UserBadge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.userBadges[badge.UserID] {
		if existing.BadgeID == badge.BadgeID {
			return fmt.Errorf("user badge %s/%s already exists", badge.UserID, badge.BadgeID)
		}
	}
	m.userBadges[badge.UserID] = append(m.userBadges[badge.UserID], badge)
	return nil
}

func (m *MemoryStore) GetStreak(_ context.Context, userID string) (*UserStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streaks[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(st), nil
}

func (m *MemoryStore) UpdateStreak(_ context.Context, userID string, mutate func(*UserStreak) error) (*UserStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streaks[userID]
	if !ok {
		st = &UserStreak{UserID: userID}
	} else {
		st = clone(st)
	}
	if err := mutate(st); err != nil {
		return nil, err
	}
	m.streaks[userID] = st
	return clone(st), nil
}

func (m *MemoryStore) GetDailyGoal(_ context.Context, userID, date string) (*DailyGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[goalKey(userID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(g), nil
}

func (m *MemoryStore) UpdateDailyGoal(_ context.Context, userID, date string, mutate func(*DailyGoal) error) (*DailyGoal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := goalKey(userID, date)
	g, ok := m.goals[key]
	if !ok {
		g = &DailyGoal{UserID: userID, Date: date}
	} else {
		g = clone(g)
	}
	if err := mutate(g); err != nil {
		return nil, err
	}
	m.goals[key] = g
	return clone(g), nil
}

func (m *MemoryStore) AppendActivity(_ context.Context, rec ActivityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, rec)
	return nil
}

// Activities returns all appended records, for test assertions.
func (m *MemoryStore) Activities() []ActivityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ActivityRecord(nil), m.activities...)
}

func (m *MemoryStore) TastingCount(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.activities {
		if rec.UserID == userID && rec.Type == string(ActivityTasting) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Questions(_ context.Context, level int) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Question
	for _, q := range m.questions {
		if q.Level == level {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *MemoryStore) PutQuestions(_ context.Context, questions []Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range questions {
		m.questions[q.ID] = q
	}
	return nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
