// internal/domain/idempotency/janitor.go
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const sweepLockKey = "idempotency:sweep"

// Janitor periodically deletes expired idempotency records. The sweep is the
// only garbage collection for the store; there is no per-request cleanup. A
// Redis lock keeps multiple processes from sweeping concurrently.
type Janitor struct {
	coordinator *Coordinator
	locker      *redislock.Client
	interval    time.Duration
	logger      *logrus.Logger
}

// NewJanitor creates a new idempotency janitor
func NewJanitor(coordinator *Coordinator, redisClient *redis.Client, interval time.Duration, logger *logrus.Logger) *Janitor {
	return &Janitor{
		coordinator: coordinator,
		locker:      redislock.New(redisClient),
		interval:    interval,
		logger:      logger,
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	lock, err := j.locker.Obtain(ctx, sweepLockKey, time.Minute, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		// Another instance is sweeping.
		return
	}
	if err != nil {
		j.logger.WithError(err).Warn("Failed to obtain idempotency sweep lock")
		return
	}
	defer lock.Release(ctx)

	count, err := j.coordinator.CleanupExpired()
	if err != nil {
		j.logger.WithError(err).Warn("Idempotency sweep failed")
		return
	}

	if count > 0 {
		j.logger.WithField("deleted", count).Info("Swept expired idempotency keys")
	}
}
