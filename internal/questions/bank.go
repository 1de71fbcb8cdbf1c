// Package questions provides the question catalog behind quiz
// sessions. Question authoring is external; the engine only reads.
package questions

import (
	"context"

	"github.com/abhisek/palate/internal/store"
)

// Bank supplies the question set for a level. Implementations own
// their caching; callers treat every call as authoritative.
type Bank interface {
	Questions(ctx context.Context, level int) ([]store.Question, error)
}

// StoreBank reads questions from the persistence layer.
type StoreBank struct {
	store store.Store
}

// NewStoreBank creates a Bank backed by the store's question tables.
func NewStoreBank(st store.Store) *StoreBank {
	return &StoreBank{store: st}
}

func (b *StoreBank) Questions(ctx context.Context, level int) ([]store.Question, error) {
	return b.store.Questions(ctx, level)
}

// StaticBank serves a fixed in-memory question set, used in tests and
// for seeding demos.
type StaticBank struct {
	byLevel map[int][]store.Question
}

// NewStaticBank creates a Bank from a flat question list.
func NewStaticBank(qs []store.Question) *StaticBank {
	byLevel := make(map[int][]store.Question)
	for _, q := range qs {
		byLevel[q.Level] = append(byLevel[q.Level], q)
	}
	return &StaticBank{byLevel: byLevel}
}

func (b *StaticBank) Questions(_ context.Context, level int) ([]store.Question, error) {
	return append([]store.Question(nil), b.byLevel[level]...), nil
}
