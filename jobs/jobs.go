// Package jobs runs the periodic background work: expiring stale top-up requests
// and relaying undelivered notifications.
package jobs

import (
	"context"
	"time"

	"github.com/Govind-619/WalletDesk/utils"
)

// Expirer expires requests created before now-threshold.
type Expirer interface {
	ExpireStale(ctx context.Context, now time.Time, threshold time.Duration) (int64, error)
}

// Relayer redelivers pending notifications.
type Relayer interface {
	RelayPending(ctx context.Context, limit int) (int, error)
}

const sweepLockKey = "jobs:expiry-sweep"

// sweepLockTTL outlives one interval so a slow sweep keeps the lock until it unlocks.
func sweepLockTTL(interval time.Duration) time.Duration { return 2 * interval }

// ExpirySweeper periodically expires stale requests. Overlapping runs are skipped.
type ExpirySweeper struct {
	expirer   Expirer
	locker    Locker
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

func NewExpirySweeper(expirer Expirer, locker Locker, interval, threshold time.Duration) *ExpirySweeper {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &ExpirySweeper{
		expirer:   expirer,
		locker:    locker,
		interval:  interval,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce performs one sweep. ran is false when another sweep held the lock.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (expired int64, ran bool, err error) {
	unlock, ok, err := s.locker.TryLock(ctx, sweepLockKey, sweepLockTTL(s.interval))
	if err != nil {
		return 0, false, err
	}
	if !ok {
		utils.LogDebug("Expiry sweep skipped: another sweep is running")
		return 0, false, nil
	}
	defer unlock()

	expired, err = s.expirer.ExpireStale(ctx, s.now(), s.threshold)
	return expired, true, err
}

// Start runs the sweep every interval until ctx is cancelled.
func (s *ExpirySweeper) Start(ctx context.Context) {
	every(ctx, "expiry sweep", s.interval, func(ctx context.Context) error {
		_, _, err := s.RunOnce(ctx)
		return err
	})
}

// OutboxRelay periodically redelivers pending notifications.
type OutboxRelay struct {
	relayer   Relayer
	interval  time.Duration
	batchSize int
}

func NewOutboxRelay(relayer Relayer, interval time.Duration, batchSize int) *OutboxRelay {
	return &OutboxRelay{relayer: relayer, interval: interval, batchSize: batchSize}
}

func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	return r.relayer.RelayPending(ctx, r.batchSize)
}

func (r *OutboxRelay) Start(ctx context.Context) {
	every(ctx, "outbox relay", r.interval, func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)
		return err
	})
}

func every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		utils.LogInfo("Started %s job (every %s)", name, interval)
		for {
			select {
			case <-ctx.Done():
				utils.LogInfo("Stopped %s job", name)
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					utils.LogError("Error in %s job: %v", name, err)
				}
			}
		}
	}()
}
