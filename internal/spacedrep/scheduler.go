// Package spacedrep schedules question reviews with an expanding
// interval table, scaled by question difficulty. Easy questions wait
// longer between reviews than hard ones.
package spacedrep

import (
	"math"
	"sort"
	"time"

	"github.com/abhisek/palate/internal/store"
)

// Scheduler computes review schedules and mastery tiers. It is
// stateless; all state lives in the LearningProgress document.
type Scheduler struct {
	intervals []int
}

// NewScheduler creates a scheduler using the standard interval table.
func NewScheduler() *Scheduler {
	return &Scheduler{intervals: Intervals}
}

// RecordAttempt updates the review record for a question after an
// answer and recomputes its mastery tier. Creates the record on first
// attempt. Also maintains the progress document's mastered and
// struggling sets.
func (s *Scheduler) RecordAttempt(p *store.LearningProgress, questionID string, correct bool, difficulty float64, now time.Time) *store.ReviewQuestion {
	if p.Reviews == nil {
		p.Reviews = make(map[string]*store.ReviewQuestion)
	}

	rq := p.Reviews[questionID]
	if rq == nil {
		rq = &store.ReviewQuestion{
			QuestionID: questionID,
			Difficulty: difficulty,
			Tier:       store.TierLearning,
		}
		p.Reviews[questionID] = rq
	}

	rq.AttemptCount++
	if correct {
		rq.CorrectCount++
	} else {
		rq.WrongCount++
	}
	rq.Difficulty = difficulty
	rq.LastAttempt = now
	rq.NextReview = s.nextReview(rq, correct, now)
	rq.Tier = TierFor(rq.CorrectCount, rq.AttemptCount)

	if p.Mastered == nil {
		p.Mastered = make(map[string]bool)
	}
	if p.Struggling == nil {
		p.Struggling = make(map[string]bool)
	}
	if rq.Tier == store.TierMastered {
		p.Mastered[questionID] = true
		delete(p.Struggling, questionID)
	}
	if rq.CorrectCount == 0 && rq.AttemptCount >= StrugglingAttempts {
		p.Struggling[questionID] = true
	}

	return rq
}

// nextReview computes the next review date. A wrong answer always
// schedules one day out; a correct answer walks the interval table
// scaled by the difficulty multiplier.
func (s *Scheduler) nextReview(rq *store.ReviewQuestion, correct bool, now time.Time) time.Time {
	if !correct {
		return now.AddDate(0, 0, WrongAnswerIntervalDays)
	}

	idx := rq.CorrectCount - 1
	if idx >= len(s.intervals) {
		idx = len(s.intervals) - 1
	}
	if idx < 0 {
		idx = 0
	}

	days := int(math.Round(float64(s.intervals[idx]) * DifficultyMultiplier(rq.Difficulty)))
	return now.AddDate(0, 0, days)
}

// DifficultyMultiplier maps a 0-10 difficulty onto a 2.0-1.0 interval
// scale: the harder the question, the sooner it comes back.
func DifficultyMultiplier(difficulty float64) float64 {
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > 10 {
		difficulty = 10
	}
	return 2 - difficulty/10
}

// TierFor derives the mastery tier from correct and attempt counts.
func TierFor(correctCount, attemptCount int) store.MasteryTier {
	if attemptCount == 0 {
		return store.TierLearning
	}
	accuracy := float64(correctCount) / float64(attemptCount)
	switch {
	case accuracy >= MasteredAccuracy && attemptCount >= MasteredAttempts:
		return store.TierMastered
	case accuracy >= ReviewingAccuracy && attemptCount >= ReviewingAttempts:
		return store.TierReviewing
	default:
		return store.TierLearning
	}
}

// DueQuestions returns question IDs due for review at now, sorted most
// overdue first. Ties break on question ID for determinism.
func (s *Scheduler) DueQuestions(p *store.LearningProgress, now time.Time) []string {
	type due struct {
		id      string
		overdue float64
	}
	var dues []due
	for id, rq := range p.Reviews {
		if IsDue(rq, now) {
			dues = append(dues, due{id: id, overdue: OverdueDays(rq, now)})
		}
	}

	sort.Slice(dues, func(i, j int) bool {
		if dues[i].overdue != dues[j].overdue {
			return dues[i].overdue > dues[j].overdue
		}
		return dues[i].id < dues[j].id
	})

	ids := make([]string, len(dues))
	for i, d := range dues {
		ids[i] = d.id
	}
	return ids
}

// IsDue returns true if the question is at or past its review date.
func IsDue(rq *store.ReviewQuestion, now time.Time) bool {
	return !now.Before(rq.NextReview)
}

// OverdueDays returns how many days past due the question is.
// Returns 0 if not yet due.
func OverdueDays(rq *store.ReviewQuestion, now time.Time) float64 {
	if now.Before(rq.NextReview) {
		return 0
	}
	return now.Sub(rq.NextReview).Hours() / 24.0
}
