// Package xp converts awarded experience points into a monotonic level
// progression. Levels are a pure function of accumulated XP.
package xp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/palate/internal/store"
)

// Fixed bonus amounts granted by other components through this engine.
const (
	BadgeBonusXP     = 25
	DailyGoalBonusXP = 30
)

// Threshold returns the XP required to advance from level-1 to level.
// Level 1 is free; each subsequent step costs 20% more than the last.
func Threshold(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Floor(100 * math.Pow(1.2, float64(level-2))))
}

// CumulativeThreshold returns the total XP required to reach level.
// CurrentXP is compared against this, so XP never decreases on level-up.
func CumulativeThreshold(level int) int {
	total := 0
	for l := 2; l <= level; l++ {
		total += Threshold(l)
	}
	return total
}

// LevelForXP derives the level reached with total XP.
func LevelForXP(total int) int {
	level := 1
	for total >= CumulativeThreshold(level+1) {
		level++
	}
	return level
}

// SessionXP computes the XP for a completed quiz session: 5 per correct
// answer, scaled up 10% per quiz level above the first.
func SessionXP(correctAnswers, level int) int {
	if level < 1 {
		level = 1
	}
	scale := 1 + float64(level-1)*0.1
	return int(math.Round(float64(correctAnswers) * 5 * scale))
}

// AwardResult reports the outcome of a single XP award.
type AwardResult struct {
	XP *store.UserXP
	// LevelsGained lists each level crossed by this award, in order.
	// One award can cross several boundaries.
	LevelsGained []int
}

// LeveledUp returns true if the award crossed at least one boundary.
func (r *AwardResult) LeveledUp() bool {
	return len(r.LevelsGained) > 0
}

// Engine applies XP awards atomically through the store.
type Engine struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an Engine. A nil logger discards, a nil now
// defaults to time.Now.
func NewEngine(st store.Store, logger *slog.Logger, now func() time.Time) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{store: st, logger: logger, now: now}
}

// AwardXP adds amount to the user's current and lifetime XP, appends a
// history entry, and walks level boundaries. Each crossing appends a
// level-up entry and an activity record. Activity failures are logged
// and never fail the award.
func (e *Engine) AwardXP(ctx context.Context, userID string, amount int, source, description string) (*AwardResult, error) {
	if amount < 0 {
		return nil, fmt.Errorf("award xp: negative amount %d", amount)
	}

	now := e.now()
	result := &AwardResult{}
	xp, err := e.store.UpdateUserXP(ctx, userID, func(u *store.UserXP) error {
		if u.Level < 1 {
			u.Level = 1
		}
		u.CurrentXP += amount
		u.LifetimeXP += amount
		u.History = append(u.History, store.XPEvent{
			Amount:      amount,
			Source:      source,
			Description: description,
			At:          now,
		})

		for target := LevelForXP(u.CurrentXP); u.Level < target; {
			u.Level++
			u.LevelUps = append(u.LevelUps, store.LevelUpEvent{Level: u.Level, At: now})
			result.LevelsGained = append(result.LevelsGained, u.Level)
		}
		u.XPToNextLevel = CumulativeThreshold(u.Level+1) - u.CurrentXP
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("award xp: %w", err)
	}
	result.XP = xp

	for _, level := range result.LevelsGained {
		rec := store.ActivityRecord{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        "level_up",
			Description: fmt.Sprintf("Reached level %d", level),
			Metadata:    map[string]string{"source": source},
			At:          now,
		}
		if actErr := e.store.AppendActivity(ctx, rec); actErr != nil {
			e.logger.Warn("level-up activity record failed",
				"user", userID, "level", level, "error", actErr)
		}
	}

	return result, nil
}
