// Package maintenance removes stale user partitions.
package maintenance

import (
	"context"
	"time"

	"github.com/link-review/backend/internal/storage"
	"go.uber.org/zap"
)

// DefaultMaxAge is how long a partition may sit unmodified before removal.
const DefaultMaxAge = 24 * time.Hour

// Store defines the interface needed from the storage layer.
type Store interface {
	Partitions() ([]storage.Partition, error)
	RemovePartition(id string) error
}

// Result summarizes one sweep.
type Result struct {
	Scanned int      `json:"scanned"`
	Removed []string `json:"removed"`
	Failed  []string `json:"failed,omitempty"`
}

// Sweeper deletes partitions whose modification time is older than MaxAge.
type Sweeper struct {
	store  Store
	maxAge time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewSweeper creates a sweeper. A non-positive maxAge uses DefaultMaxAge.
func NewSweeper(store Store, maxAge time.Duration, logger *zap.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Sweeper{store: store, maxAge: maxAge, now: time.Now, logger: logger}
}

// Sweep removes stale partitions. Failures are logged and skipped; only a
// failure to list partitions is returned.
func (s *Sweeper) Sweep(ctx context.Context) (*Result, error) {
	partitions, err := s.store.Partitions()
	if err != nil {
		return nil, err
	}

	res := &Result{Scanned: len(partitions), Removed: []string{}}
	cutoff := s.now().Add(-s.maxAge)
	for _, p := range partitions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !p.ModTime.Before(cutoff) {
			continue
		}
		if err := s.store.RemovePartition(p.ID); err != nil {
			s.logger.Error("failed to remove partition",
				zap.String("partition", p.ID), zap.Error(err))
			res.Failed = append(res.Failed, p.ID)
			continue
		}
		res.Removed = append(res.Removed, p.ID)
	}

	s.logger.Info("sweep finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("removed", len(res.Removed)),
		zap.Int("failed", len(res.Failed)))
	return res, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
