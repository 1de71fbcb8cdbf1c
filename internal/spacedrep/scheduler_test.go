package spacedrep

import (
	"testing"
	"time"

	"github.com/abhisek/palate/internal/store"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newProgress() *store.LearningProgress {
	return store.NewLearningProgress("u1", 1, t0)
}

func TestRecordAttemptFirstAttempt(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	rq := s.RecordAttempt(p, "q1", true, 0, t0)

	if rq.AttemptCount != 1 || rq.CorrectCount != 1 || rq.WrongCount != 0 {
		t.Errorf("counters = %d/%d/%d, want 1/1/0", rq.AttemptCount, rq.CorrectCount, rq.WrongCount)
	}
	// First correct at difficulty 0: Intervals[0]=1 day * 2.0 multiplier.
	want := t0.AddDate(0, 0, 2)
	if !rq.NextReview.Equal(want) {
		t.Errorf("next review = %v, want %v", rq.NextReview, want)
	}
	if rq.Tier != store.TierLearning {
		t.Errorf("tier = %s, want learning", rq.Tier)
	}
}

func TestThreeConsecutiveCorrectSchedulesFourteenDays(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	s.RecordAttempt(p, "q1", true, 0, t0)
	s.RecordAttempt(p, "q1", true, 0, t0)
	rq := s.RecordAttempt(p, "q1", true, 0, t0)

	// Third correct: Intervals[2]=7 days * 2.0 = 14 days out.
	want := t0.AddDate(0, 0, 14)
	if !rq.NextReview.Equal(want) {
		t.Errorf("next review = %v, want %v", rq.NextReview, want)
	}
}

func TestIncorrectResetsToOneDay(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	for i := 0; i < 4; i++ {
		s.RecordAttempt(p, "q1", true, 0, t0)
	}
	rq := s.RecordAttempt(p, "q1", false, 0, t0)

	want := t0.AddDate(0, 0, 1)
	if !rq.NextReview.Equal(want) {
		t.Errorf("next review after wrong answer = %v, want %v", rq.NextReview, want)
	}
}

func TestDifficultyMultiplier(t *testing.T) {
	tests := []struct {
		difficulty float64
		want       float64
	}{
		{0, 2.0},
		{5, 1.5},
		{10, 1.0},
		{-1, 2.0},
		{12, 1.0},
	}
	for _, tt := range tests {
		if got := DifficultyMultiplier(tt.difficulty); got != tt.want {
			t.Errorf("DifficultyMultiplier(%v) = %v, want %v", tt.difficulty, got, tt.want)
		}
	}
}

func TestIntervalScalesWithDifficulty(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	// Difficulty 10 → multiplier 1.0: second correct uses Intervals[1]=3.
	s.RecordAttempt(p, "q1", true, 10, t0)
	rq := s.RecordAttempt(p, "q1", true, 10, t0)
	want := t0.AddDate(0, 0, 3)
	if !rq.NextReview.Equal(want) {
		t.Errorf("next review = %v, want %v", rq.NextReview, want)
	}
}

func TestIntervalIndexCapsAtTableEnd(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	var rq *store.ReviewQuestion
	for i := 0; i < 10; i++ {
		rq = s.RecordAttempt(p, "q1", true, 10, t0)
	}
	// Beyond the table the last interval (90 days) repeats.
	want := t0.AddDate(0, 0, 90)
	if !rq.NextReview.Equal(want) {
		t.Errorf("next review = %v, want %v", rq.NextReview, want)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		correct  int
		attempts int
		want     store.MasteryTier
	}{
		{0, 0, store.TierLearning},
		{1, 1, store.TierLearning},   // accuracy 1.0 but too few attempts
		{2, 3, store.TierLearning},   // 0.67 < 0.7
		{3, 4, store.TierReviewing},  // 0.75 ≥ 0.7, attempts ≥ 3
		{4, 4, store.TierReviewing},  // 1.0 but attempts < 5
		{5, 5, store.TierMastered},   // 1.0, attempts ≥ 5
		{9, 10, store.TierMastered},  // 0.9 exactly
		{8, 10, store.TierReviewing}, // 0.8
	}
	for _, tt := range tests {
		if got := TierFor(tt.correct, tt.attempts); got != tt.want {
			t.Errorf("TierFor(%d, %d) = %s, want %s", tt.correct, tt.attempts, got, tt.want)
		}
	}
}

func TestMasteredSetMaintenance(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	for i := 0; i < 5; i++ {
		s.RecordAttempt(p, "q1", true, 0, t0)
	}
	if !p.Mastered["q1"] {
		t.Error("q1 not added to mastered set")
	}
}

func TestStrugglingSetMaintenance(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	s.RecordAttempt(p, "q1", false, 0, t0)
	s.RecordAttempt(p, "q1", false, 0, t0)
	if p.Struggling["q1"] {
		t.Error("q1 flagged struggling after only 2 attempts")
	}
	s.RecordAttempt(p, "q1", false, 0, t0)
	if !p.Struggling["q1"] {
		t.Error("q1 not flagged struggling after 3 wrong attempts")
	}

	// Mastering later clears the struggling flag.
	for i := 0; i < 30; i++ {
		s.RecordAttempt(p, "q1", true, 0, t0)
	}
	rq := p.Reviews["q1"]
	if rq.Tier != store.TierMastered {
		t.Fatalf("tier = %s after long correct run, want mastered", rq.Tier)
	}
	if p.Struggling["q1"] {
		t.Error("struggling flag not cleared on mastery")
	}
}

func TestDueQuestionsOrdering(t *testing.T) {
	s := NewScheduler()
	p := newProgress()

	// q1 answered wrong at t0 → due t0+1d. q2 wrong a day earlier → more overdue.
	s.RecordAttempt(p, "q1", false, 0, t0)
	s.RecordAttempt(p, "q2", false, 0, t0.AddDate(0, 0, -1))
	s.RecordAttempt(p, "q3", true, 0, t0) // due t0+2d, not due yet

	due := s.DueQuestions(p, t0.AddDate(0, 0, 1))
	if len(due) != 2 {
		t.Fatalf("due = %v, want 2 entries", due)
	}
	if due[0] != "q2" || due[1] != "q1" {
		t.Errorf("due order = %v, want [q2 q1]", due)
	}
}
