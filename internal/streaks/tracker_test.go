package streaks

import (
	"context"
	"testing"
	"time"

	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/xp"
)

var day0 = time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

func newTracker(st store.Store, at time.Time) *Tracker {
	clock := func() time.Time { return at }
	return NewTracker(st, xp.NewEngine(st, nil, clock), nil, clock)
}

func TestMilestoneBonus(t *testing.T) {
	tests := []struct {
		streak int
		want   int
	}{
		{1, 0},
		{6, 0},
		{7, 50},
		{8, 0},
		{14, 60},
		{21, 70},
		{70, 140},
	}
	for _, tt := range tests {
		if got := MilestoneBonus(tt.streak); got != tt.want {
			t.Errorf("MilestoneBonus(%d) = %d, want %d", tt.streak, got, tt.want)
		}
	}
}

func TestConsecutiveDaysIncrement(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	s, err := newTracker(st, day0).RecordActivity(ctx, "u1", store.ActivityQuiz)
	if err != nil {
		t.Fatalf("day 0: %v", err)
	}
	if s.Current != 1 || s.Quiz != 1 {
		t.Fatalf("streak = %d quiz = %d, want 1/1", s.Current, s.Quiz)
	}

	s, err = newTracker(st, day0.AddDate(0, 0, 1)).RecordActivity(ctx, "u1", store.ActivityQuiz)
	if err != nil {
		t.Fatalf("day 1: %v", err)
	}
	if s.Current != 2 {
		t.Errorf("streak = %d after consecutive day, want 2", s.Current)
	}
	if s.Quiz != 2 {
		t.Errorf("quiz counter = %d, want 2", s.Quiz)
	}
}

func TestSameDayIsNoOp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	newTracker(st, day0).RecordActivity(ctx, "u1", store.ActivityQuiz)
	// Later the same day, different activity type.
	s, err := newTracker(st, day0.Add(8*time.Hour)).RecordActivity(ctx, "u1", store.ActivityTasting)
	if err != nil {
		t.Fatalf("same day: %v", err)
	}
	if s.Current != 1 {
		t.Errorf("streak = %d, want 1", s.Current)
	}
	if s.Tasting != 0 {
		t.Errorf("tasting counter = %d on same-day no-op, want 0", s.Tasting)
	}
}

func TestGapResetsStreak(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	newTracker(st, day0).RecordActivity(ctx, "u1", store.ActivityQuiz)
	newTracker(st, day0.AddDate(0, 0, 1)).RecordActivity(ctx, "u1", store.ActivityLogin)

	// Day 4: two-day gap.
	s, err := newTracker(st, day0.AddDate(0, 0, 4)).RecordActivity(ctx, "u1", store.ActivityTasting)
	if err != nil {
		t.Fatalf("gap day: %v", err)
	}
	if s.Current != 1 {
		t.Errorf("streak = %d after gap, want 1", s.Current)
	}
	if s.Tasting != 1 || s.Quiz != 0 || s.Login != 0 {
		t.Errorf("type counters = %d/%d/%d, want 1/0/0", s.Tasting, s.Quiz, s.Login)
	}
	wantStart := Midnight(day0.AddDate(0, 0, 4))
	if !s.StartDate.Equal(wantStart) {
		t.Errorf("start date = %v, want %v", s.StartDate, wantStart)
	}
	// Longest streak survives the reset.
	if s.Longest != 2 {
		t.Errorf("longest = %d, want 2", s.Longest)
	}
}

func TestCalendarDayNotElapsedTime(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	// 23:50 one day, 00:10 the next: 20 minutes apart but consecutive days.
	late := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	early := time.Date(2025, 6, 2, 0, 10, 0, 0, time.UTC)

	newTracker(st, late).RecordActivity(ctx, "u1", store.ActivityLogin)
	s, err := newTracker(st, early).RecordActivity(ctx, "u1", store.ActivityLogin)
	if err != nil {
		t.Fatalf("next day: %v", err)
	}
	if s.Current != 2 {
		t.Errorf("streak = %d across midnight, want 2", s.Current)
	}
}

func TestConsecutiveDaysAcrossSpringForward(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// US DST starts 2025-03-09, making that calendar day 23 hours long.
	dstDay := time.Date(2025, 3, 9, 8, 0, 0, 0, loc)
	nextDay := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	if got := DaysBetween(Midnight(dstDay), Midnight(nextDay)); got != 1 {
		t.Errorf("DaysBetween over 23-hour day = %d, want 1", got)
	}

	newTracker(st, dstDay).RecordActivity(ctx, "u1", store.ActivityLogin)
	s, err := newTracker(st, nextDay).RecordActivity(ctx, "u1", store.ActivityLogin)
	if err != nil {
		t.Fatalf("next day: %v", err)
	}
	if s.Current != 2 {
		t.Errorf("streak = %d across spring-forward, want 2", s.Current)
	}
}

func TestSevenDayMilestoneGrantsXP(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	for d := 0; d < 7; d++ {
		if _, err := newTracker(st, day0.AddDate(0, 0, d)).RecordActivity(ctx, "u1", store.ActivityQuiz); err != nil {
			t.Fatalf("day %d: %v", d, err)
		}
	}

	u, err := st.GetUserXP(ctx, "u1")
	if err != nil {
		t.Fatalf("get xp: %v", err)
	}
	// 7-day milestone: 40 + 1*10 = 50.
	if u.CurrentXP != 50 {
		t.Errorf("xp = %d after 7-day streak, want 50", u.CurrentXP)
	}

	// Same day again must not re-grant.
	newTracker(st, day0.AddDate(0, 0, 6).Add(2*time.Hour)).RecordActivity(ctx, "u1", store.ActivityLogin)
	u, _ = st.GetUserXP(ctx, "u1")
	if u.CurrentXP != 50 {
		t.Errorf("xp = %d after same-day repeat, want 50", u.CurrentXP)
	}
}
