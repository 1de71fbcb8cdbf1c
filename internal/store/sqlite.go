package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a single SQLite file. Documents are
// stored as JSON per entity table; every Update runs inside an
// immediate transaction, which gives single-writer read-modify-write
// semantics per key.
type SQLiteStore struct {
	db *sqlx.DB
}

// Open creates a SQLiteStore for the database at path. It applies
// recommended pragmas and creates missing tables.
func Open(path string) (*SQLiteStore, error) {
	// _txlock=immediate makes every write transaction take the write
	// lock up front instead of failing on upgrade mid-transaction.
	db, err := sqlx.Open("sqlite", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying *sqlx.DB for raw queries.
func (s *SQLiteStore) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for single-file app usage.
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func createSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS progress (
			user_id TEXT NOT NULL,
			level INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (user_id, level)
		)`,
		`CREATE TABLE IF NOT EXISTS user_xp (
			user_id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS badges (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_badges (
			user_id TEXT NOT NULL,
			badge_id TEXT NOT NULL,
			earned_at TEXT NOT NULL,
			PRIMARY KEY (user_id, badge_id)
		)`,
		`CREATE TABLE IF NOT EXISTS streaks (
			user_id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_goals (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_type ON activities (user_id, type)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			level INTEGER NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_level ON questions (level)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// runInTx runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func runInTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback transaction: %w (original error: %v)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func getJSON[T any](ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*T, error) {
	var raw string
	if err := sqlx.GetContext(ctx, q, &raw, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	var doc T
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func encodeJSON(doc any) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func (s *SQLiteStore) GetProgress(ctx context.Context, userID string, level int) (*LearningProgress, error) {
	return getJSON[LearningProgress](ctx, s.db,
		"SELECT data FROM progress WHERE user_id = ? AND level = ?", userID, level)
}

func (s *SQLiteStore) UpdateProgress(ctx context.Context, userID string, level int, mutate func(*LearningProgress) error) (*LearningProgress, error) {
	var result *LearningProgress
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		p, err := getJSON[LearningProgress](ctx, tx,
			"SELECT data FROM progress WHERE user_id = ? AND level = ?", userID, level)
		if errors.Is(err, ErrNotFound) {
			p = NewLearningProgress(userID, level, nowUTC())
		} else if err != nil {
			return err
		}

		if err := mutate(p); err != nil {
			return err
		}
		p.UpdatedAt = nowUTC()

		raw, err := encodeJSON(p)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO progress (user_id, level, data) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, level) DO UPDATE SET data = excluded.data`,
			userID, level, raw)
		if err != nil {
			return fmt.Errorf("upsert progress: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) UserProgress(ctx context.Context, userID string) ([]*LearningProgress, error) {
	var rows []string
	err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM progress WHERE user_id = ? ORDER BY level", userID)
	if err != nil {
		return nil, fmt.Errorf("query user progress: %w", err)
	}
	out := make([]*LearningProgress, 0, len(rows))
	for _, raw := range rows {
		var p LearningProgress
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
		out = append(out, &p)
	}
	return out, nil
}

func (s *SQLiteStore) GetUserXP(ctx context.Context, userID string) (*UserXP, error) {
	return getJSON[UserXP](ctx, s.db, "SELECT data FROM user_xp WHERE user_id = ?", userID)
}

func (s *SQLiteStore) UpdateUserXP(ctx context.Context, userID string, mutate func(*UserXP) error) (*UserXP, error) {
	var result *UserXP
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		xp, err := getJSON[UserXP](ctx, tx, "SELECT data FROM user_xp WHERE user_id = ?", userID)
		if errors.Is(err, ErrNotFound) {
			xp = NewUserXP(userID)
		} else if err != nil {
			return err
		}

		if err := mutate(xp); err != nil {
			return err
		}

		raw, err := encodeJSON(xp)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_xp (user_id, data) VALUES (?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET data = excluded.data`,
			userID, raw)
		if err != nil {
			return fmt.Errorf("upsert user xp: %w", err)
		}
		result = xp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) BadgeCatalog(ctx context.Context) ([]Badge, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, "SELECT data FROM badges ORDER BY id"); err != nil {
		return nil, fmt.Errorf("query badge catalog: %w", err)
	}
	out := make([]Badge, 0, len(rows))
	for _, raw := range rows {
		var b Badge
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("decode badge: %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *SQLiteStore) PutBadge(ctx context.Context, badge Badge) error {
	raw, err := encodeJSON(badge)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO badges (id, data) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data`,
		badge.ID, raw)
	if err != nil {
		return fmt.Errorf("upsert badge: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UserBadges(ctx context.Context, userID string) ([]UserBadge, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT user_id, badge_id, earned_at FROM user_badges WHERE user_id = ? ORDER BY earned_at",
		userID)
	if err != nil {
		return nil, fmt.Errorf("query user badges: %w", err)
	}
	defer rows.Close()

	var out []UserBadge
	for rows.Next() {
		var ub UserBadge
		var earned string
		if err := rows.Scan(&ub.UserID, &ub.BadgeID, &earned); err != nil {
			return nil, fmt.Errorf("scan user badge: %w", err)
		}
		ub.EarnedAt, err = parseTime(earned)
		if err != nil {
			return nil, err
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutUserBadge(ctx context.Context, badge UserBadge) error {
	// Plain INSERT: a duplicate (user, badge) pair is a caller bug and
	// surfaces as a constraint violation.
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_badges (user_id, badge_id, earned_at) VALUES (?, ?, ?)",
		badge.UserID, badge.BadgeID, formatTime(badge.EarnedAt))
	if err != nil {
		return fmt.Errorf("insert user badge: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetStreak(ctx context.Context, userID string) (*UserStreak, error) {
	return getJSON[UserStreak](ctx, s.db, "SELECT data FROM streaks WHERE user_id = ?", userID)
}

func (s *SQLiteStore) UpdateStreak(ctx context.Context, userID string, mutate func(*UserStreak) error) (*UserStreak, error) {
	var result *UserStreak
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		st, err := getJSON[UserStreak](ctx, tx, "SELECT data FROM streaks WHERE user_id = ?", userID)
		if errors.Is(err, ErrNotFound) {
			st = &UserStreak{UserID: userID}
		} else if err != nil {
			return err
		}

		if err := mutate(st); err != nil {
			return err
		}

		raw, err := encodeJSON(st)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO streaks (user_id, data) VALUES (?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET data = excluded.data`,
			userID, raw)
		if err != nil {
			return fmt.Errorf("upsert streak: %w", err)
		}
		result = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) GetDailyGoal(ctx context.Context, userID, date string) (*DailyGoal, error) {
	return getJSON[DailyGoal](ctx, s.db,
		"SELECT data FROM daily_goals WHERE user_id = ? AND date = ?", userID, date)
}

func (s *SQLiteStore) UpdateDailyGoal(ctx context.Context, userID, date string, mutate func(*DailyGoal) error) (*DailyGoal, error) {
	var result *DailyGoal
	err := runInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		g, err := getJSON[DailyGoal](ctx, tx,
			"SELECT data FROM daily_goals WHERE user_id = ? AND date = ?", userID, date)
		if errors.Is(err, ErrNotFound) {
			g = &DailyGoal{UserID: userID, Date: date}
		} else if err != nil {
			return err
		}

		if err := mutate(g); err != nil {
			return err
		}

		raw, err := encodeJSON(g)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily_goals (user_id, date, data) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, date) DO UPDATE SET data = excluded.data`,
			userID, date, raw)
		if err != nil {
			return fmt.Errorf("upsert daily goal: %w", err)
		}
		result = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) AppendActivity(ctx context.Context, rec ActivityRecord) error {
	raw, err := encodeJSON(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO activities (id, user_id, type, data, created_at) VALUES (?, ?, ?, ?, ?)",
		rec.ID, rec.UserID, rec.Type, raw, formatTime(rec.At))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) TastingCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM activities WHERE user_id = ? AND type = ?",
		userID, string(ActivityTasting))
	if err != nil {
		return 0, fmt.Errorf("count tastings: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Questions(ctx context.Context, level int) ([]Question, error) {
	var rows []string
	err := s.db.SelectContext(ctx, &rows,
		"SELECT data FROM questions WHERE level = ? ORDER BY json_extract(data, '$.index')", level)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	out := make([]Question, 0, len(rows))
	for _, raw := range rows {
		var q Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *SQLiteStore) PutQuestions(ctx context.Context, questions []Question) error {
	return runInTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		for _, q := range questions {
			raw, err := encodeJSON(q)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO questions (id, level, data) VALUES (?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET level = excluded.level, data = excluded.data`,
				q.ID, q.Level, raw)
			if err != nil {
				return fmt.Errorf("upsert question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}
