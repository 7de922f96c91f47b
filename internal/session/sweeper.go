package session

import (
	"context"
	"errors"
	"time"

	"github.com/vibex365/luna-heart-guide-sub005/internal/billing"
	"github.com/vibex365/luna-heart-guide-sub005/internal/logger"
)

const sweepBatchSize = 100

// Sweeper settles sessions whose clients vanished without calling end.
// A session still "initiated" after the cutoff is billed for the time
// it plausibly ran, capped at the hard session limit.
type Sweeper struct {
	sessions   Repository
	reconciler *billing.Reconciler

	after      time.Duration
	maxSeconds int
	interval   time.Duration
}

func NewSweeper(sessions Repository, reconciler *billing.Reconciler, sweepAfter time.Duration, maxSessionSeconds int) *Sweeper {
	return &Sweeper{
		sessions:   sessions,
		reconciler: reconciler,
		after:      sweepAfter,
		maxSeconds: maxSessionSeconds,
		interval:   5 * time.Minute,
	}
}

// Run blocks until ctx is cancelled. Intended to be started from main
// as a goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Sweep(ctx); err != nil {
				logger.Errorf("session sweep: %v", err)
			} else if n > 0 {
				logger.Infof("session sweep settled %d abandoned sessions", n)
			}
		}
	}
}

// Sweep settles one batch of stale sessions and returns how many it
// closed. A concurrent end winning the race is not an error.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.after)
	stale, err := s.sessions.FindStale(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, sess := range stale {
		elapsed := int(time.Since(sess.StartTime).Seconds())
		if elapsed > s.maxSeconds {
			elapsed = s.maxSeconds
		}

		_, err := s.reconciler.Close(ctx, sess.UserID, sess.ID, StatusAbandoned, elapsed)
		if err != nil {
			if errors.Is(err, billing.ErrAlreadyClosed) {
				continue
			}
			logger.Errorf("sweep close session %s: %v", sess.ID, err)
			continue
		}
		closed++
	}
	return closed, nil
}
