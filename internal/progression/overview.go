package progression

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/palate/internal/spacedrep"
	"github.com/abhisek/palate/internal/store"
)

// LevelStatus summarizes one level's progress for display.
type LevelStatus struct {
	Level      int
	Unlocked   bool
	BestScore  int
	Accuracy   float64
	Hearts     int
	Mastered   int
	Struggling int
	DueReviews int
}

// Overview is the per-user progression snapshot used by the stats
// surface.
type Overview struct {
	UserID  string
	XP      *store.UserXP
	Streak  *store.UserStreak
	Badges  []store.UserBadge
	Levels  []LevelStatus
	Tasting int
}

// Overview assembles the user's progression snapshot. Missing XP or
// streak documents read as zero values, not errors.
func (s *Service) Overview(ctx context.Context, userID string) (*Overview, error) {
	ov := &Overview{UserID: userID}

	userXP, err := s.store.GetUserXP(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load user xp: %w", err)
	}
	if userXP == nil {
		userXP = store.NewUserXP(userID)
	}
	ov.XP = userXP

	streak, err := s.store.GetStreak(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load streak: %w", err)
	}
	if streak == nil {
		streak = &store.UserStreak{UserID: userID}
	}
	ov.Streak = streak

	ov.Badges, err = s.store.UserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}

	ov.Tasting, err = s.store.TastingCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count tastings: %w", err)
	}

	progress, err := s.store.UserProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	sched := spacedrep.NewScheduler()
	now := s.now()
	for _, p := range progress {
		ov.Levels = append(ov.Levels, LevelStatus{
			Level:      p.Level,
			Unlocked:   p.Unlocked,
			BestScore:  p.BestScore,
			Accuracy:   p.Accuracy,
			Hearts:     p.Hearts,
			Mastered:   len(p.Mastered),
			Struggling: len(p.Struggling),
			DueReviews: len(sched.DueQuestions(p, now)),
		})
	}

	return ov, nil
}
