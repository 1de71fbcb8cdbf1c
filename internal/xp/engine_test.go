package xp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abhisek/palate/internal/store"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 0},
		{1, 0},
		{2, 100},
		{3, 120},
		{4, 144},
		{5, 172}, // floor(100 * 1.2^3)
	}
	for _, tt := range tests {
		if got := Threshold(tt.level); got != tt.want {
			t.Errorf("Threshold(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestCumulativeThreshold(t *testing.T) {
	if got := CumulativeThreshold(2); got != 100 {
		t.Errorf("CumulativeThreshold(2) = %d, want 100", got)
	}
	if got := CumulativeThreshold(3); got != 220 {
		t.Errorf("CumulativeThreshold(3) = %d, want 220", got)
	}
	if got := CumulativeThreshold(4); got != 364 {
		t.Errorf("CumulativeThreshold(4) = %d, want 364", got)
	}
}

func TestLevelForXPMonotonic(t *testing.T) {
	prev := 0
	for total := 0; total <= 5000; total += 10 {
		level := LevelForXP(total)
		if level < prev {
			t.Fatalf("level decreased: LevelForXP(%d) = %d after %d", total, level, prev)
		}
		prev = level
	}
}

func TestSessionXP(t *testing.T) {
	tests := []struct {
		correct int
		level   int
		want    int
	}{
		{8, 1, 40},  // base case: 8*5*1.0
		{10, 1, 50},
		{8, 2, 44},  // 40 * 1.1
		{7, 3, 42},  // 35 * 1.2
		{0, 1, 0},
	}
	for _, tt := range tests {
		if got := SessionXP(tt.correct, tt.level); got != tt.want {
			t.Errorf("SessionXP(%d, %d) = %d, want %d", tt.correct, tt.level, got, tt.want)
		}
	}
}

func TestAwardXPSingleCall(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	engine := NewEngine(st, nil, fixedClock(t0))

	res, err := engine.AwardXP(ctx, "u1", 50, "quiz", "session reward")
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if res.LeveledUp() {
		t.Errorf("unexpected level-up: %v", res.LevelsGained)
	}
	if res.XP.CurrentXP != 50 || res.XP.LifetimeXP != 50 {
		t.Errorf("xp = %d/%d, want 50/50", res.XP.CurrentXP, res.XP.LifetimeXP)
	}
	if res.XP.XPToNextLevel != 50 {
		t.Errorf("xp to next = %d, want 50", res.XP.XPToNextLevel)
	}
	if len(res.XP.History) != 1 {
		t.Errorf("history length = %d, want 1", len(res.XP.History))
	}
}

func TestAwardXPMultipleLevelCrossings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	engine := NewEngine(st, nil, fixedClock(t0))

	// 250 XP from fresh: crosses 100 and 220 but not 364 → level 3.
	res, err := engine.AwardXP(ctx, "u1", 250, "quiz", "big session")
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if res.XP.Level != 3 {
		t.Errorf("level = %d, want 3", res.XP.Level)
	}
	if len(res.LevelsGained) != 2 || res.LevelsGained[0] != 2 || res.LevelsGained[1] != 3 {
		t.Errorf("levels gained = %v, want [2 3]", res.LevelsGained)
	}
	if len(res.XP.LevelUps) != 2 {
		t.Errorf("level-up history length = %d, want 2", len(res.XP.LevelUps))
	}

	// One activity record per crossing.
	recs := st.Activities()
	if len(recs) != 2 {
		t.Errorf("activity records = %d, want 2", len(recs))
	}
}

func TestAwardXPNeverDecreasesLevel(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	engine := NewEngine(st, nil, fixedClock(t0))

	prevLevel := 1
	for i := 0; i < 60; i++ {
		res, err := engine.AwardXP(ctx, "u1", 37, "quiz", "step")
		if err != nil {
			t.Fatalf("award %d: %v", i, err)
		}
		if res.XP.Level < prevLevel {
			t.Fatalf("level decreased from %d to %d", prevLevel, res.XP.Level)
		}
		prevLevel = res.XP.Level
	}
}

func TestAwardXPRejectsNegative(t *testing.T) {
	engine := NewEngine(store.NewMemoryStore(), nil, fixedClock(t0))
	if _, err := engine.AwardXP(context.Background(), "u1", -5, "quiz", "bad"); err == nil {
		t.Error("negative award did not fail")
	}
}

// failingActivityStore wraps MemoryStore and fails every activity append.
type failingActivityStore struct {
	*store.MemoryStore
}

func (f *failingActivityStore) AppendActivity(context.Context, store.ActivityRecord) error {
	return errors.New("activity sink down")
}

func TestActivityFailureDoesNotFailAward(t *testing.T) {
	ctx := context.Background()
	st := &failingActivityStore{store.NewMemoryStore()}
	engine := NewEngine(st, nil, fixedClock(t0))

	res, err := engine.AwardXP(ctx, "u1", 150, "quiz", "level up despite sink failure")
	if err != nil {
		t.Fatalf("award failed on side-effect error: %v", err)
	}
	if res.XP.Level != 2 {
		t.Errorf("level = %d, want 2", res.XP.Level)
	}

	// The primary state change landed.
	saved, err := st.GetUserXP(ctx, "u1")
	if err != nil {
		t.Fatalf("get xp: %v", err)
	}
	if saved.CurrentXP != 150 {
		t.Errorf("current xp = %d, want 150", saved.CurrentXP)
	}
}
