package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/palate/internal/hearts"
	"github.com/abhisek/palate/internal/questions"
	"github.com/abhisek/palate/internal/spacedrep"
	"github.com/abhisek/palate/internal/store"
	"github.com/abhisek/palate/internal/xp"
)

// Result reports the outcome of a single submitted answer.
type Result struct {
	Correct bool
	// Done is true when the session terminated with this answer,
	// either because every question was answered or because hearts
	// ran out.
	Done        bool
	OutOfHearts bool
	Summary     *Summary
}

// Summary is the completed-session report.
type Summary struct {
	SessionID      string
	Level          int
	Score          int
	Correct        int
	TotalQuestions int
	XPAwarded      int
	LevelsGained   []int
	UnlockedLevel  int // level opened by this session's score, 0 if none
}

// Manager drives quiz sessions. Per-answer effects (review scheduling,
// heart loss) commit immediately; aggregate results merge into the
// progress document only on completion. Abandoning a session performs
// no merge and does not refund hearts already lost.
type Manager struct {
	store  store.Store
	bank   questions.Bank
	hearts *hearts.Regulator
	sched  *spacedrep.Scheduler
	xp     *xp.Engine
	logger *slog.Logger
	now    func() time.Time
	rng    *rand.Rand
}

// NewManager creates a Manager. A nil logger discards, a nil now
// defaults to time.Now, a nil rng seeds from the clock.
func NewManager(st store.Store, bank questions.Bank, reg *hearts.Regulator, sched *spacedrep.Scheduler, engine *xp.Engine, logger *slog.Logger, now func() time.Time, rng *rand.Rand) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	return &Manager{
		store:  st,
		bank:   bank,
		hearts: reg,
		sched:  sched,
		xp:     engine,
		logger: logger,
		now:    now,
		rng:    rng,
	}
}

// Start creates a session for (userID, level): verifies the level is
// unlocked, applies pending heart recovery, and captures the question
// list.
func (m *Manager) Start(ctx context.Context, userID string, level int) (*Session, error) {
	if level < MinLevel || level > MaxLevel {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	if err := m.checkUnlocked(ctx, userID, level); err != nil {
		return nil, err
	}

	// Opportunistic regeneration so the learner starts with every
	// heart they have earned back.
	if _, err := m.hearts.CheckRecovery(ctx, userID, level); err != nil {
		return nil, fmt.Errorf("check heart recovery: %w", err)
	}

	all, err := m.bank.Questions(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: level %d", ErrNoQuestions, level)
	}

	progress, err := m.store.GetProgress(ctx, userID, level)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	var completed map[string]bool
	if progress != nil {
		completed = progress.Completed
	}

	selected := m.selectQuestions(all, completed)

	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Level:     level,
		Questions: selected,
		State:     StateInProgress,
		StartedAt: m.now(),
		answered:  make(map[string]bool),
	}, nil
}

func (m *Manager) checkUnlocked(ctx context.Context, userID string, level int) error {
	if level == MinLevel {
		return nil
	}
	progress, err := m.store.GetProgress(ctx, userID, level)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: level %d", ErrLevelLocked, level)
	}
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}
	if !progress.Unlocked {
		return fmt.Errorf("%w: level %d", ErrLevelLocked, level)
	}
	return nil
}

// selectQuestions picks up to MaxQuestions, preferring unseen ones and
// filling the remainder from the shuffled full set.
func (m *Manager) selectQuestions(all []store.Question, completed map[string]bool) []store.Question {
	var unseen, seen []store.Question
	for _, q := range all {
		if completed[q.ID] {
			seen = append(seen, q)
		} else {
			unseen = append(unseen, q)
		}
	}

	m.rng.Shuffle(len(unseen), func(i, j int) { unseen[i], unseen[j] = unseen[j], unseen[i] })
	if len(unseen) >= MaxQuestions {
		return unseen[:MaxQuestions]
	}

	selected := unseen
	m.rng.Shuffle(len(seen), func(i, j int) { seen[i], seen[j] = seen[j], seen[i] })
	for _, q := range seen {
		if len(selected) >= MaxQuestions {
			break
		}
		selected = append(selected, q)
	}
	return selected
}

// Submit records an answer. Correctness is judged against the
// session's captured question list. A wrong answer costs a heart; when
// none remain the session terminates immediately and is finalized with
// its partial results.
func (m *Manager) Submit(ctx context.Context, s *Session, questionID string, optionIndex, timeSpentMs int) (*Result, error) {
	if !s.Open() {
		return nil, ErrSessionClosed
	}
	q := s.Question(questionID)
	if q == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if s.answered[questionID] {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAnswered, questionID)
	}

	correct := optionIndex == q.CorrectOption
	s.Answers = append(s.Answers, Answer{
		QuestionID:  questionID,
		OptionIndex: optionIndex,
		Correct:     correct,
		TimeSpentMs: timeSpentMs,
		AnsweredAt:  m.now(),
	})
	s.answered[questionID] = true
	if correct {
		s.Correct++
	}

	// Per-answer commit: the review schedule advances even if the
	// session is later abandoned.
	_, err := m.store.UpdateProgress(ctx, s.UserID, s.Level, func(p *store.LearningProgress) error {
		m.sched.RecordAttempt(p, questionID, correct, q.Difficulty, m.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record attempt: %w", err)
	}

	result := &Result{Correct: correct}

	if !correct {
		ok, err := m.hearts.Consume(ctx, s.UserID, s.Level)
		if err != nil {
			return nil, fmt.Errorf("consume heart: %w", err)
		}
		if !ok {
			result.OutOfHearts = true
			result.Done = true
			summary, err := m.complete(ctx, s)
			if err != nil {
				return nil, err
			}
			result.Summary = summary
			return result, nil
		}
	}

	if s.Remaining() == 0 {
		result.Done = true
		summary, err := m.complete(ctx, s)
		if err != nil {
			return nil, err
		}
		result.Summary = summary
	}
	return result, nil
}

// complete finalizes the session: awards XP, merges aggregates into
// the progress document, and unlocks the next level when the merged
// best score qualifies.
func (m *Manager) complete(ctx context.Context, s *Session) (*Summary, error) {
	ended := m.now()
	s.State = StateCompleted
	s.EndedAt = &ended

	score := s.Score()
	summary := &Summary{
		SessionID:      s.ID,
		Level:          s.Level,
		Score:          score,
		Correct:        s.Correct,
		TotalQuestions: len(s.Questions),
	}

	merged, err := m.store.UpdateProgress(ctx, s.UserID, s.Level, func(p *store.LearningProgress) error {
		mergeAnswers(p, s.Answers)
		if score > p.BestScore {
			p.BestScore = score
		}
		p.SessionCount++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("merge progress: %w", err)
	}

	if merged.BestScore >= UnlockScore && s.Level < MaxLevel {
		next := s.Level + 1
		_, err := m.store.UpdateProgress(ctx, s.UserID, next, func(p *store.LearningProgress) error {
			p.Unlocked = true
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("unlock level %d: %w", next, err)
		}
		summary.UnlockedLevel = next
	}

	amount := xp.SessionXP(s.Correct, s.Level)
	s.XPEarned = amount
	summary.XPAwarded = amount
	if amount > 0 {
		desc := fmt.Sprintf("Quiz session %d/%d at level %d", s.Correct, len(s.Questions), s.Level)
		award, err := m.xp.AwardXP(ctx, s.UserID, amount, "quiz", desc)
		if err != nil {
			// The session itself completed; the XP award is reported
			// but must not undo the merge.
			m.logger.Warn("session XP award failed", "user", s.UserID, "session", s.ID, "error", err)
		} else {
			summary.LevelsGained = award.LevelsGained
		}
	}

	return summary, nil
}

// mergeAnswers folds the session's answers into the progress document:
// completion set, cumulative counters, answer-time totals, and the
// within-level correct streak.
func mergeAnswers(p *store.LearningProgress, answers []Answer) {
	if p.Completed == nil {
		p.Completed = make(map[string]bool)
	}
	for _, a := range answers {
		p.Completed[a.QuestionID] = true
		p.TotalAnswers++
		p.TotalTimeMs += a.TimeSpentMs
		if a.Correct {
			p.CorrectAnswers++
			p.CurrentStreak++
			if p.CurrentStreak > p.BestStreak {
				p.BestStreak = p.CurrentStreak
			}
		} else {
			p.WrongAnswers++
			p.CurrentStreak = 0
		}
	}
	if p.TotalAnswers > 0 {
		p.Accuracy = float64(p.CorrectAnswers) / float64(p.TotalAnswers)
	}
}

// Abandon terminates the session without merging results. Hearts lost
// and review schedule changes from answered questions stay committed.
func (m *Manager) Abandon(ctx context.Context, s *Session) error {
	if !s.Open() {
		return ErrSessionClosed
	}
	ended := m.now()
	s.State = StateAbandoned
	s.EndedAt = &ended
	return nil
}
