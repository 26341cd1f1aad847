package repository

import (
	"context"
	"sync"
	"time"

	"servicehub/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverAttemptLimiter uses primary until it errors, then serves from fallback and
// retries primary once per recoveryInterval.
type FailoverAttemptLimiter struct {
	primary  domain.AttemptLimiter
	fallback domain.AttemptLimiter
	logger   *zerolog.Logger

	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverAttemptLimiter(primary, fallback domain.AttemptLimiter, logger *zerolog.Logger) *FailoverAttemptLimiter {
	return &FailoverAttemptLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverAttemptLimiter) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isDown {
		return true
	}
	if r.now().Sub(r.lastCheck) > recoveryInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

func (r *FailoverAttemptLimiter) markDown(err error) {
	r.mu.Lock()
	wasDown := r.isDown
	r.isDown = true
	r.lastCheck = r.now()
	r.mu.Unlock()
	if !wasDown {
		r.logger.Error().Err(err).Msg("Primary attempt limiter failed, falling back to memory")
	}
}

func (r *FailoverAttemptLimiter) markUp() {
	r.mu.Lock()
	wasDown := r.isDown
	r.isDown = false
	r.mu.Unlock()
	if wasDown {
		r.logger.Info().Msg("Primary attempt limiter recovered")
	}
}

func (r *FailoverAttemptLimiter) Down() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isDown
}

func (r *FailoverAttemptLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.Allow(ctx, key, limit, window)
}

func (r *FailoverAttemptLimiter) Reset(ctx context.Context, key string) error {
	// both sides may hold a counter for key
	ferr := r.fallback.Reset(ctx, key)
	if r.usePrimary() {
		if err := r.primary.Reset(ctx, key); err != nil {
			r.markDown(err)
			return ferr
		}
		r.markUp()
	}
	return ferr
}
