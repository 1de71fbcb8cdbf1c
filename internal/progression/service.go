// Package progression wires the engine's components behind one
// application-facing service: sessions, hearts, XP, streaks, daily
// goals, and badges over a single store.
package progression

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/palate/internal/badges"
	"github.com/abhisek/palate/internal/goals"
	"github.com/abhisek/palate/internal/hearts"
	"github.com/abhisek/palate/internal/questions"
	"github.com/abhisek/palate/internal/session"
	"github.com/abhisek/palate/internal/spacedrep"
	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/streaks"
	"github.com/abhisek/palate/internal/xp"
)

// ErrUnknownSession means no open session exists for the given ID.
var ErrUnknownSession = errors.New("progression: unknown session")

// Config bundles the tunables of every component.
type Config struct {
	Hearts hearts.Config
	Goals  goals.Config
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Hearts: hearts.DefaultConfig(),
		Goals:  goals.DefaultConfig(),
	}
}

// Service is the progression engine facade. Open sessions are held in
// memory; everything else lives in the store.
type Service struct {
	store    store.Store
	sessions *session.Manager
	hearts   *hearts.Regulator
	xp       *xp.Engine
	streaks  *streaks.Tracker
	badges   *badges.Evaluator
	goals    *goals.Service
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	open map[string]*session.Session
}

// New creates a Service over the given store and question bank.
// A nil logger discards, a nil now defaults to time.Now, a nil rng
// seeds from the clock.
func New(st store.Store, bank questions.Bank, cfg Config, logger *slog.Logger, now func() time.Time, rng *rand.Rand) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}

	engine := xp.NewEngine(st, logger, now)
	reg := hearts.NewRegulator(st, cfg.Hearts, now)
	sched := spacedrep.NewScheduler()

	return &Service{
		store:    st,
		sessions: session.NewManager(st, bank, reg, sched, engine, logger, now, rng),
		hearts:   reg,
		xp:       engine,
		streaks:  streaks.NewTracker(st, engine, logger, now),
		badges:   badges.NewEvaluator(st, engine, logger, now),
		goals:    goals.NewService(st, engine, cfg.Goals, logger, now),
		logger:   logger,
		now:      now,
	}
}

// AnswerOutcome is the facade-level result of one submitted answer,
// including the follow-on effects when the answer completed the session.
type AnswerOutcome struct {
	Result        *session.Result
	BadgesAwarded []store.UserBadge
	Streak        *store.UserStreak
}

// StartSession opens a quiz session and registers it for answering.
func (s *Service) StartSession(ctx context.Context, userID string, level int) (*session.Session, error) {
	sess, err := s.sessions.Start(ctx, userID, level)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.open == nil {
		s.open = make(map[string]*session.Session)
	}
	s.open[sess.ID] = sess
	s.mu.Unlock()

	return sess, nil
}

// SubmitAnswer records an answer for an open session. When the answer
// completes the session, the daily goal, streak, and badge passes run
// before returning; their failures are logged, not returned, so a
// completed session always reports its summary.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, questionID string, optionIndex, timeSpentMs int) (*AnswerOutcome, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := s.sessions.Submit(ctx, sess, questionID, optionIndex, timeSpentMs)
	if err != nil {
		return nil, err
	}

	outcome := &AnswerOutcome{Result: res}
	if res.Done {
		s.drop(sessionID)
		outcome.BadgesAwarded, outcome.Streak = s.afterQuiz(ctx, sess.UserID)
	}
	return outcome, nil
}

// AbandonSession terminates a session without merging its results.
func (s *Service) AbandonSession(ctx context.Context, sessionID string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Abandon(ctx, sess); err != nil {
		return err
	}
	s.drop(sessionID)
	return nil
}

// afterQuiz runs the post-completion side effects. Each is independent
// and non-fatal.
func (s *Service) afterQuiz(ctx context.Context, userID string) ([]store.UserBadge, *store.UserStreak) {
	if _, err := s.goals.RecordQuiz(ctx, userID); err != nil {
		s.logger.Warn("daily goal update failed", "user", userID, "error", err)
	}

	streak, err := s.streaks.RecordActivity(ctx, userID, store.ActivityQuiz)
	if err != nil {
		s.logger.Warn("streak update failed", "user", userID, "error", err)
	}

	awarded, err := s.badges.CheckAndAward(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed", "user", userID, "error", err)
	}
	return awarded, streak
}

// RecordTasting notes a completed tasting: activity feed entry, daily
// goal, streak, and a badge pass.
func (s *Service) RecordTasting(ctx context.Context, userID, relatedID string) ([]store.UserBadge, error) {
	rec := store.ActivityRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        string(store.ActivityTasting),
		Description: "Tasting recorded",
		RelatedID:   relatedID,
		At:          s.now(),
	}
	if err := s.store.AppendActivity(ctx, rec); err != nil {
		return nil, fmt.Errorf("append tasting activity: %w", err)
	}

	if _, err := s.goals.RecordTasting(ctx, userID); err != nil {
		s.logger.Warn("daily goal update failed", "user", userID, "error", err)
	}
	if _, err := s.streaks.RecordActivity(ctx, userID, store.ActivityTasting); err != nil {
		s.logger.Warn("streak update failed", "user", userID, "error", err)
	}

	awarded, err := s.badges.CheckAndAward(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed", "user", userID, "error", err)
	}
	return awarded, nil
}

// RecordLogin advances the login streak and runs a badge pass, since
// milestone XP can satisfy streak or level requirements.
func (s *Service) RecordLogin(ctx context.Context, userID string) (*store.UserStreak, []store.UserBadge, error) {
	streak, err := s.streaks.RecordActivity(ctx, userID, store.ActivityLogin)
	if err != nil {
		return nil, nil, err
	}
	awarded, err := s.badges.CheckAndAward(ctx, userID)
	if err != nil {
		s.logger.Warn("badge evaluation failed", "user", userID, "error", err)
	}
	return streak, awarded, nil
}

// Hearts applies pending recovery and returns the current heart count.
func (s *Service) Hearts(ctx context.Context, userID string, level int) (int, error) {
	return s.hearts.CheckRecovery(ctx, userID, level)
}

func (s *Service) lookup(sessionID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.open[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return sess, nil
}

func (s *Service) drop(sessionID string) {
	s.mu.Lock()
	delete(s.open, sessionID)
	s.mu.Unlock()
}
