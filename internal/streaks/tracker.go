// Package streaks maintains daily activity streaks. Comparisons use
// calendar days, not elapsed time: 23:59 and 00:01 are consecutive
// days even though they are two minutes apart.
package streaks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/xp"
)

// MilestoneInterval is the streak length granularity for bonus XP.
// Every multiple of 7 days grants a bonus.
const MilestoneInterval = 7

// MilestoneBonus returns the XP bonus for reaching streak length n,
// or 0 if n is not a milestone.
func MilestoneBonus(n int) int {
	if n <= 0 || n%MilestoneInterval != 0 {
		return 0
	}
	return 40 + (n/MilestoneInterval)*10
}

// Tracker records daily activity and applies streak milestones.
type Tracker struct {
	store  store.Store
	xp     *xp.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker. A nil logger discards, a nil now
// defaults to time.Now.
func NewTracker(st store.Store, engine *xp.Engine, logger *slog.Logger, now func() time.Time) *Tracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: st, xp: engine, logger: logger, now: now}
}

// RecordActivity notes that the user performed an activity today and
// returns the updated streak. A second activity on the same calendar
// day is a no-op. Milestone XP bonuses are granted as a side effect
// and never fail the streak update.
func (t *Tracker) RecordActivity(ctx context.Context, userID string, activity store.ActivityType) (*store.UserStreak, error) {
	today := Midnight(t.now())
	milestone := 0

	st, err := t.store.UpdateStreak(ctx, userID, func(s *store.UserStreak) error {
		before := s.Current
		applyActivity(s, activity, today)
		if s.Current != before && MilestoneBonus(s.Current) > 0 {
			milestone = s.Current
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record activity: %w", err)
	}

	if milestone > 0 {
		bonus := MilestoneBonus(milestone)
		desc := fmt.Sprintf("%d-day streak", milestone)
		if _, xpErr := t.xp.AwardXP(ctx, userID, bonus, "streak", desc); xpErr != nil {
			t.logger.Warn("streak milestone bonus failed",
				"user", userID, "streak", milestone, "error", xpErr)
		}
	}

	return st, nil
}

// applyActivity advances the streak document for an activity on day
// today (already truncated to midnight).
func applyActivity(s *store.UserStreak, activity store.ActivityType, today time.Time) {
	if s.LastActivity.IsZero() {
		s.Current = 1
		s.StartDate = today
		resetTypeCounters(s, activity)
		s.LastActivity = today
		updateLongest(s, today)
		return
	}

	switch DaysBetween(Midnight(s.LastActivity), today) {
	case 0:
		// Same calendar day: nothing changes.
		return
	case 1:
		s.Current++
		bumpTypeCounter(s, activity)
		s.LastActivity = today
		updateLongest(s, today)
	default:
		s.Current = 1
		s.StartDate = today
		resetTypeCounters(s, activity)
		s.LastActivity = today
		updateLongest(s, today)
	}
}

func updateLongest(s *store.UserStreak, today time.Time) {
	if s.Current > s.Longest {
		s.Longest = s.Current
		s.LongestStart = s.StartDate
		s.LongestEnd = today
	}
}

func bumpTypeCounter(s *store.UserStreak, activity store.ActivityType) {
	switch activity {
	case store.ActivityTasting:
		s.Tasting++
	case store.ActivityQuiz:
		s.Quiz++
	case store.ActivityLogin:
		s.Login++
	}
}

func resetTypeCounters(s *store.UserStreak, activity store.ActivityType) {
	s.Tasting, s.Quiz, s.Login = 0, 0, 0
	bumpTypeCounter(s, activity)
}

// Midnight truncates t to the start of its calendar day, keeping the
// location so "day" means the caller's day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b, both
// already truncated to midnight in the same location. Rounding absorbs
// DST transitions, which make some days 23 or 25 hours long.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
