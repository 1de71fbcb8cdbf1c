// Package hearts manages the bounded attempt currency spent on wrong
// answers. Hearts regenerate passively, one per recovery interval.
package hearts

import (
	"context"
	"time"

	"github.com/abhisek/palate/internal/store"
)

// Config holds heart regeneration settings.
type Config struct {
	MaxHearts        int
	RecoveryInterval time.Duration
}

// DefaultConfig returns the standard 5-heart, 30-minute setup.
func DefaultConfig() Config {
	return Config{
		MaxHearts:        5,
		RecoveryInterval: 30 * time.Minute,
	}
}

// Regulator applies heart consumption and recovery to progress
// documents through the store's atomic update.
type Regulator struct {
	store store.Store
	cfg   Config
	now   func() time.Time
}

// NewRegulator creates a Regulator. A nil now defaults to time.Now.
func NewRegulator(st store.Store, cfg Config, now func() time.Time) *Regulator {
	if now == nil {
		now = time.Now
	}
	return &Regulator{store: st, cfg: cfg, now: now}
}

// Consume spends one heart for (userID, level). Returns false without
// mutating anything when no hearts remain.
func (r *Regulator) Consume(ctx context.Context, userID string, level int) (bool, error) {
	consumed := false
	_, err := r.store.UpdateProgress(ctx, userID, level, func(p *store.LearningProgress) error {
		consumed = ConsumeHeart(p, r.now(), r.cfg)
		return nil
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// CheckRecovery applies any pending passive regeneration and returns
// the current heart count. Idempotent: repeated calls without further
// loss converge and stop once capped.
func (r *Regulator) CheckRecovery(ctx context.Context, userID string, level int) (int, error) {
	hearts := 0
	_, err := r.store.UpdateProgress(ctx, userID, level, func(p *store.LearningProgress) error {
		RecoverHearts(p, r.now(), r.cfg)
		hearts = p.Hearts
		return nil
	})
	if err != nil {
		return 0, err
	}
	return hearts, nil
}

// ConsumeHeart decrements the heart count and stamps the loss time.
// Returns false with no mutation when hearts are exhausted.
func ConsumeHeart(p *store.LearningProgress, now time.Time, cfg Config) bool {
	if p.Hearts <= 0 {
		return false
	}
	p.Hearts--
	loss := now
	next := now.Add(cfg.RecoveryInterval)
	p.LastHeartLoss = &loss
	p.NextHeartRecovery = &next
	return true
}

// RecoverHearts credits floor(elapsed/interval) hearts since the last
// loss, capped at MaxHearts. The loss anchor advances by the credited
// intervals so repeated calls never double-count, and the next-recovery
// time keeps the remainder of the interval in progress.
func RecoverHearts(p *store.LearningProgress, now time.Time, cfg Config) int {
	if p.Hearts >= cfg.MaxHearts {
		p.Hearts = cfg.MaxHearts
		p.NextHeartRecovery = nil
		return 0
	}
	if p.LastHeartLoss == nil {
		return 0
	}

	elapsed := now.Sub(*p.LastHeartLoss)
	if elapsed < 0 {
		return 0
	}
	recovered := int(elapsed / cfg.RecoveryInterval)
	if recovered == 0 {
		return 0
	}

	before := p.Hearts
	p.Hearts = min(cfg.MaxHearts, p.Hearts+recovered)

	if p.Hearts >= cfg.MaxHearts {
		p.LastHeartLoss = nil
		p.NextHeartRecovery = nil
	} else {
		anchor := p.LastHeartLoss.Add(time.Duration(recovered) * cfg.RecoveryInterval)
		next := anchor.Add(cfg.RecoveryInterval)
		p.LastHeartLoss = &anchor
		p.NextHeartRecovery = &next
	}
	return p.Hearts - before
}
