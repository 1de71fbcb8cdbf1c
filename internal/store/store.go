package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when no document exists for the given keys.
// Callers treat it as "needs initialization", not as a failure.
var ErrNotFound = errors.New("store: not found")

// Store is the engine's persistence contract. Every Update method
// applies its mutate func inside a single atomic read-modify-write, so
// concurrent writers for the same key cannot lose updates.
//
// Implementations must not silently drop conflicting writes;
// last-write-wins over stale reads is a correctness bug here.
type Store interface {
	// GetProgress returns the progress document, or ErrNotFound.
	GetProgress(ctx context.Context, userID string, level int) (*LearningProgress, error)

	// UpdateProgress atomically applies mutate to the progress document,
	// creating a fresh one on first access. Returns the updated document.
	UpdateProgress(ctx context.Context, userID string, level int, mutate func(*LearningProgress) error) (*LearningProgress, error)

	// UserProgress returns all progress documents for a user, ordered by level.
	UserProgress(ctx context.Context, userID string) ([]*LearningProgress, error)

	GetUserXP(ctx context.Context, userID string) (*UserXP, error)
	UpdateUserXP(ctx context.Context, userID string, mutate func(*UserXP) error) (*UserXP, error)

	// BadgeCatalog returns the externally authored badge definitions.
	BadgeCatalog(ctx context.Context) ([]Badge, error)
	PutBadge(ctx context.Context, badge Badge) error

	UserBadges(ctx context.Context, userID string) ([]UserBadge, error)
	// PutUserBadge records an earned badge. Writing the same (user, badge)
	// pair twice is an error.
	PutUserBadge(ctx context.Context, badge UserBadge) error

	GetStreak(ctx context.Context, userID string) (*UserStreak, error)
	UpdateStreak(ctx context.Context, userID string, mutate func(*UserStreak) error) (*UserStreak, error)

	GetDailyGoal(ctx context.Context, userID, date string) (*DailyGoal, error)
	UpdateDailyGoal(ctx context.Context, userID, date string, mutate func(*DailyGoal) error) (*DailyGoal, error)

	// AppendActivity records an audit/feed entry. Append-only.
	AppendActivity(ctx context.Context, rec ActivityRecord) error

	// TastingCount returns how many tasting activities the user has recorded.
	TastingCount(ctx context.Context, userID string) (int, error)

	// Questions returns the question bank for a level.
	Questions(ctx context.Context, level int) ([]Question, error)
	PutQuestions(ctx context.Context, questions []Question) error
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PALATE_DB environment variable
// 2. $XDG_DATA_HOME/palate/palate.db
// 3. ~/.local/share/palate/palate.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PALATE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "palate", "palate.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
