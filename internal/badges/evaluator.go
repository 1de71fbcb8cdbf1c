// Package badges evaluates declarative badge requirements against
// accumulated learner stats and awards unearned badges.
package badges

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/xp"
)

// maxPasses bounds the award/re-evaluate cycle. Badge XP can push the
// user over a level_reached requirement, so one re-evaluation pass runs
// after any pass that granted XP; after that the cycle stops even if
// more badges became reachable. Unbounded evaluation can loop forever
// on a catalog where awards keep unlocking awards.
const maxPasses = 2

// Evaluator checks badge requirements and performs awards.
type Evaluator struct {
	store  store.Store
	xp     *xp.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewEvaluator creates an Evaluator. A nil logger discards, a nil now
// defaults to time.Now.
func NewEvaluator(st store.Store, engine *xp.Engine, logger *slog.Logger, now func() time.Time) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}
	return &Evaluator{store: st, xp: engine, logger: logger, now: now}
}

// userStats is the accumulated state requirements are evaluated against.
type userStats struct {
	tastings    int
	quizCorrect int
	level       int
	lifetimeXP  int
	streakDays  int
}

// CheckAndAward awards every catalog badge whose requirements all hold
// and that the user hasn't earned yet. Each award grants the fixed XP
// bonus and writes an activity record; those side effects never fail
// the award itself.
func (e *Evaluator) CheckAndAward(ctx context.Context, userID string) ([]store.UserBadge, error) {
	catalog, err := e.store.BadgeCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badge catalog: %w", err)
	}

	var awarded []store.UserBadge
	for pass := 0; pass < maxPasses; pass++ {
		earned, err := e.earnedSet(ctx, userID)
		if err != nil {
			return awarded, err
		}
		stats, err := e.gatherStats(ctx, userID)
		if err != nil {
			return awarded, err
		}

		grantedXP := false
		for _, badge := range catalog {
			if earned[badge.ID] || !requirementsMet(badge, stats) {
				continue
			}

			ub := store.UserBadge{UserID: userID, BadgeID: badge.ID, EarnedAt: e.now()}
			if err := e.store.PutUserBadge(ctx, ub); err != nil {
				return awarded, fmt.Errorf("award badge %s: %w", badge.ID, err)
			}
			awarded = append(awarded, ub)
			earned[badge.ID] = true

			desc := fmt.Sprintf("Earned badge %q", badge.Name)
			if _, xpErr := e.xp.AwardXP(ctx, userID, xp.BadgeBonusXP, "badge", desc); xpErr != nil {
				e.logger.Warn("badge bonus XP failed", "user", userID, "badge", badge.ID, "error", xpErr)
			} else {
				grantedXP = true
			}

			rec := store.ActivityRecord{
				ID:          uuid.NewString(),
				UserID:      userID,
				Type:        "badge_earned",
				Description: desc,
				RelatedID:   badge.ID,
				At:          e.now(),
			}
			if actErr := e.store.AppendActivity(ctx, rec); actErr != nil {
				e.logger.Warn("badge activity record failed", "user", userID, "badge", badge.ID, "error", actErr)
			}
		}

		// Only the XP granted this pass can change requirement outcomes.
		if !grantedXP {
			break
		}
	}

	return awarded, nil
}

func (e *Evaluator) earnedSet(ctx context.Context, userID string) (map[string]bool, error) {
	owned, err := e.store.UserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user badges: %w", err)
	}
	earned := make(map[string]bool, len(owned))
	for _, ub := range owned {
		earned[ub.BadgeID] = true
	}
	return earned, nil
}

func (e *Evaluator) gatherStats(ctx context.Context, userID string) (userStats, error) {
	stats := userStats{level: 1}

	tastings, err := e.store.TastingCount(ctx, userID)
	if err != nil {
		return stats, fmt.Errorf("count tastings: %w", err)
	}
	stats.tastings = tastings

	progress, err := e.store.UserProgress(ctx, userID)
	if err != nil {
		return stats, fmt.Errorf("load progress: %w", err)
	}
	for _, p := range progress {
		stats.quizCorrect += p.CorrectAnswers
	}

	userXP, err := e.store.GetUserXP(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return stats, fmt.Errorf("load user xp: %w", err)
	}
	if userXP != nil {
		stats.level = userXP.Level
		stats.lifetimeXP = userXP.LifetimeXP
	}

	streak, err := e.store.GetStreak(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return stats, fmt.Errorf("load streak: %w", err)
	}
	if streak != nil {
		stats.streakDays = streak.Current
	}

	return stats, nil
}

// requirementsMet evaluates all requirements with AND semantics.
// A badge with no requirements is never awarded automatically.
func requirementsMet(badge store.Badge, stats userStats) bool {
	if len(badge.Requirements) == 0 {
		return false
	}
	for _, req := range badge.Requirements {
		if !requirementMet(req, stats) {
			return false
		}
	}
	return true
}

func requirementMet(req store.BadgeRequirement, stats userStats) bool {
	switch req.Type {
	case store.RequireRecordsCount:
		return stats.tastings >= req.Target
	case store.RequireQuizCorrect:
		return stats.quizCorrect >= req.Target
	case store.RequireLevelReached:
		return stats.level >= req.Target
	case store.RequireXPEarned:
		return stats.lifetimeXP >= req.Target
	case store.RequireStreakDays:
		return stats.streakDays >= req.Target
	default:
		// Unknown requirement types fail closed.
		return false
	}
}
