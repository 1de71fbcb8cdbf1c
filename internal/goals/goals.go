// Package goals tracks per-day tasting and quiz targets and grants the
// daily completion bonus exactly once per (user, day).
package goals

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/xp"
)

// DateFormat is the daily goal key layout.
const DateFormat = "2006-01-02"

// Config holds the default daily targets for newly created goals.
type Config struct {
	TastingTarget int
	QuizTarget    int
}

// DefaultConfig returns the standard daily targets.
func DefaultConfig() Config {
	return Config{TastingTarget: 3, QuizTarget: 1}
}

// Service records progress against the day's goal.
type Service struct {
	store  store.Store
	xp     *xp.Engine
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. A nil logger discards, a nil now
// defaults to time.Now.
func NewService(st store.Store, engine *xp.Engine, cfg Config, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, xp: engine, cfg: cfg, logger: logger, now: now}
}

// RecordTasting counts a tasting toward today's goal.
func (s *Service) RecordTasting(ctx context.Context, userID string) (*store.DailyGoal, error) {
	return s.record(ctx, userID, func(g *store.DailyGoal) { g.TastingDone++ })
}

// RecordQuiz counts a completed quiz toward today's goal.
func (s *Service) RecordQuiz(ctx context.Context, userID string) (*store.DailyGoal, error) {
	return s.record(ctx, userID, func(g *store.DailyGoal) { g.QuizDone++ })
}

func (s *Service) record(ctx context.Context, userID string, bump func(*store.DailyGoal)) (*store.DailyGoal, error) {
	date := s.now().Format(DateFormat)
	grantBonus := false

	g, err := s.store.UpdateDailyGoal(ctx, userID, date, func(g *store.DailyGoal) error {
		if g.TastingTarget == 0 && g.QuizTarget == 0 {
			g.TastingTarget = s.cfg.TastingTarget
			g.QuizTarget = s.cfg.QuizTarget
		}
		bump(g)

		if !g.Completed && g.TastingDone >= g.TastingTarget && g.QuizDone >= g.QuizTarget {
			g.Completed = true
			if !g.BonusGranted {
				g.BonusGranted = true
				grantBonus = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update daily goal: %w", err)
	}

	if grantBonus {
		if _, xpErr := s.xp.AwardXP(ctx, userID, xp.DailyGoalBonusXP, "daily_goal", "Daily goal completed"); xpErr != nil {
			s.logger.Warn("daily goal bonus failed", "user", userID, "date", date, "error", xpErr)
		}
	}
	return g, nil
}
