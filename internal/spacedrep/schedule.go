package spacedrep

// Intervals defines the expanding review schedule in days. The index
// is min(correctCount-1, len-1) for a correct answer.
var Intervals = []int{1, 3, 7, 14, 30, 90}

// WrongAnswerIntervalDays is the review interval after any incorrect
// answer, regardless of history.
const WrongAnswerIntervalDays = 1

// Mastery tier thresholds, evaluated against per-question accuracy and
// attempt count after every answer.
const (
	MasteredAccuracy  = 0.9
	MasteredAttempts  = 5
	ReviewingAccuracy = 0.7
	ReviewingAttempts = 3

	// StrugglingAttempts flags a question with zero correct answers
	// after this many tries.
	StrugglingAttempts = 3
)
