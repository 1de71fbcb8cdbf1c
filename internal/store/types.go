package store

import "time"

// MasteryTier classifies how well a learner knows a single question.
type MasteryTier string

const (
	TierLearning  MasteryTier = "learning"
	TierReviewing MasteryTier = "reviewing"
	TierMastered  MasteryTier = "mastered"
)

// ReviewQuestion tracks per-question attempt history and the spaced
// repetition schedule. Embedded in LearningProgress, one per question
// the learner has attempted at that level.
type ReviewQuestion struct {
	QuestionID   string      `json:"question_id"`
	AttemptCount int         `json:"attempt_count"`
	CorrectCount int         `json:"correct_count"`
	WrongCount   int         `json:"wrong_count"`
	Difficulty   float64     `json:"difficulty"`
	Tier         MasteryTier `json:"tier"`
	LastAttempt  time.Time   `json:"last_attempt"`
	NextReview   time.Time   `json:"next_review"`
}

// Accuracy returns the fraction of attempts answered correctly.
func (rq *ReviewQuestion) Accuracy() float64 {
	if rq.AttemptCount == 0 {
		return 0
	}
	return float64(rq.CorrectCount) / float64(rq.AttemptCount)
}

// LearningProgress is the per-(user, level) progression document.
// Created on first access to a level; never deleted.
type LearningProgress struct {
	UserID string `json:"user_id"`
	Level  int    `json:"level"`

	Completed  map[string]bool `json:"completed_questions"`
	Mastered   map[string]bool `json:"mastered_questions"`
	Struggling map[string]bool `json:"struggling_questions"`

	TotalAnswers   int     `json:"total_answers"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
	Accuracy       float64 `json:"accuracy"`

	// Consecutive-correct streak across answers within this level.
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`

	BestScore    int `json:"best_score"`
	SessionCount int `json:"session_count"`
	TotalTimeMs  int `json:"total_time_ms"`

	Hearts            int        `json:"hearts"`
	LastHeartLoss     *time.Time `json:"last_heart_loss,omitempty"`
	NextHeartRecovery *time.Time `json:"next_heart_recovery,omitempty"`

	Unlocked bool `json:"unlocked"`

	Reviews map[string]*ReviewQuestion `json:"reviews"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLearningProgress returns a fresh progress document with full hearts.
// Level 1 starts unlocked; higher levels unlock via session scores.
func NewLearningProgress(userID string, level int, now time.Time) *LearningProgress {
	return &LearningProgress{
		UserID:     userID,
		Level:      level,
		Completed:  make(map[string]bool),
		Mastered:   make(map[string]bool),
		Struggling: make(map[string]bool),
		Hearts:     5,
		Unlocked:   level == 1,
		Reviews:    make(map[string]*ReviewQuestion),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AverageTimeMs returns the mean answer time across all recorded answers.
func (p *LearningProgress) AverageTimeMs() int {
	if p.TotalAnswers == 0 {
		return 0
	}
	return p.TotalTimeMs / p.TotalAnswers
}

// XPEvent is one append-only XP history entry.
type XPEvent struct {
	Amount      int       `json:"amount"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// LevelUpEvent records a single level boundary crossing.
type LevelUpEvent struct {
	Level int       `json:"level"`
	At    time.Time `json:"at"`
}

// UserXP is the per-user experience document. CurrentXP and LifetimeXP
// never decrease; Level is derived from CurrentXP.
type UserXP struct {
	UserID        string         `json:"user_id"`
	CurrentXP     int            `json:"current_xp"`
	Level         int            `json:"level"`
	XPToNextLevel int            `json:"xp_to_next_level"`
	LifetimeXP    int            `json:"lifetime_xp"`
	History       []XPEvent      `json:"history"`
	LevelUps      []LevelUpEvent `json:"level_ups"`
}

// NewUserXP returns a level-1 XP document with no history.
func NewUserXP(userID string) *UserXP {
	return &UserXP{UserID: userID, Level: 1}
}

// RequirementType identifies a badge requirement predicate.
type RequirementType string

const (
	RequireRecordsCount RequirementType = "records_count"
	RequireQuizCorrect  RequirementType = "quiz_correct"
	RequireLevelReached RequirementType = "level_reached"
	RequireXPEarned     RequirementType = "xp_earned"
	RequireStreakDays   RequirementType = "streak_days"
)

// BadgeRequirement is a single declarative threshold predicate.
type BadgeRequirement struct {
	Type   RequirementType `json:"type"`
	Target int             `json:"target"`
}

// Badge is a catalog entry. The catalog is authored externally and is
// read-only to the engine.
type Badge struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Category     string             `json:"category"`
	Rarity       string             `json:"rarity"`
	Requirements []BadgeRequirement `json:"requirements"`
}

// UserBadge records that a user earned a badge. At most one per
// (user, badge) pair.
type UserBadge struct {
	UserID   string    `json:"user_id"`
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// ActivityType labels a streak-qualifying activity.
type ActivityType string

const (
	ActivityTasting ActivityType = "tasting"
	ActivityQuiz    ActivityType = "quiz"
	ActivityLogin   ActivityType = "login"
)

// UserStreak is the per-user daily streak document. Dates are stored
// truncated to midnight in the clock's location.
type UserStreak struct {
	UserID       string    `json:"user_id"`
	Current      int       `json:"current"`
	StartDate    time.Time `json:"start_date"`
	Longest      int       `json:"longest"`
	LongestStart time.Time `json:"longest_start"`
	LongestEnd   time.Time `json:"longest_end"`
	Tasting      int       `json:"tasting"`
	Quiz         int       `json:"quiz"`
	Login        int       `json:"login"`
	LastActivity time.Time `json:"last_activity"`
}

// DailyGoal is the per-(user, calendar day) goal document. BonusGranted
// guards the daily completion bonus against double grants.
type DailyGoal struct {
	UserID        string `json:"user_id"`
	Date          string `json:"date"` // YYYY-MM-DD
	TastingTarget int    `json:"tasting_target"`
	QuizTarget    int    `json:"quiz_target"`
	TastingDone   int    `json:"tasting_done"`
	QuizDone      int    `json:"quiz_done"`
	Completed     bool   `json:"completed"`
	BonusGranted  bool   `json:"bonus_granted"`
}

// ActivityRecord is an append-only audit/feed entry. Write-only from
// the engine's perspective.
type ActivityRecord struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Type        string            `json:"type"`
	Description string            `json:"description"`
	RelatedID   string            `json:"related_id,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	At          time.Time         `json:"at"`
}

// Question is a quiz catalog entry. Index is the explicit per-level
// position; question identity never relies on parsing the ID string.
type Question struct {
	ID            string   `json:"id"`
	Level         int      `json:"level"`
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Difficulty    float64  `json:"difficulty"` // 0-10
}
