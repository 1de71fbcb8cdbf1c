package badges

import (
	"context"
	"testing"
	"time"

	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/xp"
)

var t0 = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)

func newEvaluator(st store.Store) *Evaluator {
	clock := func() time.Time { return t0 }
	return NewEvaluator(st, xp.NewEngine(st, nil, clock), nil, clock)
}

func seedBadge(t *testing.T, st store.Store, badge store.Badge) {
	t.Helper()
	if err := st.PutBadge(context.Background(), badge); err != nil {
		t.Fatalf("seed badge %s: %v", badge.ID, err)
	}
}

func TestAwardWhenAllRequirementsMet(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedBadge(t, st, store.Badge{
		ID:   "first-steps",
		Name: "First Steps",
		Requirements: []store.BadgeRequirement{
			{Type: store.RequireQuizCorrect, Target: 5},
			{Type: store.RequireXPEarned, Target: 20},
		},
	})

	// 5 correct answers recorded, 25 lifetime XP.
	st.UpdateProgress(ctx, "u1", 1, func(p *store.LearningProgress) error {
		p.CorrectAnswers = 5
		return nil
	})
	eval := newEvaluator(st)
	eval.xp.AwardXP(ctx, "u1", 25, "quiz", "seed")

	awarded, err := eval.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("check and award: %v", err)
	}
	if len(awarded) != 1 || awarded[0].BadgeID != "first-steps" {
		t.Fatalf("awarded = %v, want [first-steps]", awarded)
	}

	// Badge bonus XP landed.
	u, _ := st.GetUserXP(ctx, "u1")
	if u.LifetimeXP != 25+xp.BadgeBonusXP {
		t.Errorf("lifetime xp = %d, want %d", u.LifetimeXP, 25+xp.BadgeBonusXP)
	}
}

func TestAndSemantics(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedBadge(t, st, store.Badge{
		ID:   "partial",
		Name: "Partial",
		Requirements: []store.BadgeRequirement{
			{Type: store.RequireQuizCorrect, Target: 1},
			{Type: store.RequireStreakDays, Target: 30},
		},
	})
	st.UpdateProgress(ctx, "u1", 1, func(p *store.LearningProgress) error {
		p.CorrectAnswers = 10
		return nil
	})

	awarded, err := newEvaluator(st).CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("check and award: %v", err)
	}
	if len(awarded) != 0 {
		t.Errorf("awarded = %v with one requirement unmet, want none", awarded)
	}
}

func TestNeverAwardedTwice(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedBadge(t, st, store.Badge{
		ID:           "streaker",
		Name:         "Streaker",
		Requirements: []store.BadgeRequirement{{Type: store.RequireStreakDays, Target: 3}},
	})
	st.UpdateStreak(ctx, "u1", func(s *store.UserStreak) error {
		s.Current = 5
		return nil
	})

	eval := newEvaluator(st)
	first, err := eval.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first pass awarded %d, want 1", len(first))
	}

	// Requirements still hold, but the badge is already owned.
	second, err := eval.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second pass awarded %v, want none", second)
	}

	owned, _ := st.UserBadges(ctx, "u1")
	if len(owned) != 1 {
		t.Errorf("user holds %d badges, want 1", len(owned))
	}
}

func TestBadgeXPCanCascadeOneExtraPass(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	// easy: reachable immediately. chained: needs the XP from easy's bonus.
	seedBadge(t, st, store.Badge{
		ID:           "easy",
		Name:         "Easy",
		Requirements: []store.BadgeRequirement{{Type: store.RequireQuizCorrect, Target: 1}},
	})
	seedBadge(t, st, store.Badge{
		ID:           "chained",
		Name:         "Chained",
		Requirements: []store.BadgeRequirement{{Type: store.RequireXPEarned, Target: 110}},
	})
	st.UpdateProgress(ctx, "u1", 1, func(p *store.LearningProgress) error {
		p.CorrectAnswers = 1
		return nil
	})

	eval := newEvaluator(st)
	eval.xp.AwardXP(ctx, "u1", 100, "quiz", "seed")

	awarded, err := eval.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("check and award: %v", err)
	}
	// Pass 1 awards easy (lifetime 100→125); pass 2 sees 125 ≥ 110.
	if len(awarded) != 2 {
		t.Fatalf("awarded %d badges, want 2 (cascade)", len(awarded))
	}
	if awarded[0].BadgeID != "easy" || awarded[1].BadgeID != "chained" {
		t.Errorf("award order = %v", awarded)
	}
}

func TestCascadeIsBounded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	// A ladder where each badge's bonus XP unlocks the next. Only one
	// extra pass may run, so at most the first two rungs are awarded.
	seedBadge(t, st, store.Badge{
		ID:           "rung-1",
		Name:         "Rung 1",
		Requirements: []store.BadgeRequirement{{Type: store.RequireXPEarned, Target: 1}},
	})
	seedBadge(t, st, store.Badge{
		ID:           "rung-2",
		Name:         "Rung 2",
		Requirements: []store.BadgeRequirement{{Type: store.RequireXPEarned, Target: 30}},
	})
	seedBadge(t, st, store.Badge{
		ID:           "rung-3",
		Name:         "Rung 3",
		Requirements: []store.BadgeRequirement{{Type: store.RequireXPEarned, Target: 55}},
	})

	eval := newEvaluator(st)
	eval.xp.AwardXP(ctx, "u1", 5, "quiz", "seed")

	awarded, err := eval.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("check and award: %v", err)
	}
	// Pass 1: rung-1 (5→30). Pass 2: rung-2 (30→55). rung-3 waits for
	// the next top-level call.
	if len(awarded) != 2 {
		t.Fatalf("awarded %d badges, want 2", len(awarded))
	}

	awarded, err = eval.CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(awarded) != 1 || awarded[0].BadgeID != "rung-3" {
		t.Errorf("second call awarded %v, want [rung-3]", awarded)
	}
}

func TestUnknownRequirementFailsClosed(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedBadge(t, st, store.Badge{
		ID:           "mystery",
		Name:         "Mystery",
		Requirements: []store.BadgeRequirement{{Type: "wines_cellared", Target: 1}},
	})

	awarded, err := newEvaluator(st).CheckAndAward(ctx, "u1")
	if err != nil {
		t.Fatalf("check and award: %v", err)
	}
	if len(awarded) != 0 {
		t.Errorf("awarded %v for unknown requirement type, want none", awarded)
	}
}
