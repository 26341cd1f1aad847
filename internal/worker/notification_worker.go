package worker

import (
	"context"
	"errors"
	"time"

	"servicehub/internal/config"
	"servicehub/internal/domain"
	"servicehub/internal/metrics"
	"servicehub/internal/models"

	"github.com/rs/zerolog"
)

// Notifier delivers one notification to its account.
type Notifier interface {
	Send(ctx context.Context, n *models.Notification) error
}

// NotificationWorker drains the notifications outbox.
type NotificationWorker struct {
	store        domain.NotificationStore
	notifier     Notifier
	retryPolicy  RetryPolicy
	pollInterval time.Duration
	batchSize    int
	logger       *zerolog.Logger
	now          func() time.Time
}

// NewNotificationWorker builds a worker. Zero config fields take defaults.
func NewNotificationWorker(store domain.NotificationStore, notifier Notifier, cfg config.NotificationConfig, logger *zerolog.Logger) *NotificationWorker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &NotificationWorker{
		store:        store,
		notifier:     notifier,
		retryPolicy:  NewRetryPolicy(cfg),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
		now:          time.Now,
	}
}

// Start polls for due notifications until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("Notification worker started")
	defer w.logger.Info().Msg("Notification worker stopped")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drain runs full batches back to back without waiting for the next tick.
// It stops at the first batch that was short or left any notification unsettled.
func (w *NotificationWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		settled, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to fetch due notifications")
			return
		}
		if settled < w.batchSize {
			return
		}
	}
}

// RunOnce delivers one batch of due notifications and returns how many of
// them had their outcome recorded.
func (w *NotificationWorker) RunOnce(ctx context.Context) (int, error) {
	due, err := w.store.ListDueNotifications(ctx, w.now().UTC(), w.batchSize)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, n := range due {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		if w.process(ctx, n) {
			settled++
		}
	}
	return settled, nil
}

func (w *NotificationWorker) process(ctx context.Context, n *models.Notification) bool {
	err := w.notifier.Send(ctx, n)
	if err == nil {
		if err := w.store.MarkNotificationSent(ctx, n.ID, w.now().UTC()); err != nil {
			w.logger.Error().Err(err).Str("notification_id", n.ID).Msg("Failed to mark notification sent")
			return false
		}
		metrics.IncNotification("sent")
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return w.retryOrFail(ctx, n, err)
}

func (w *NotificationWorker) retryOrFail(ctx context.Context, n *models.Notification, cause error) bool {
	attempt := n.Attempts + 1
	if w.retryPolicy.Exhausted(attempt) {
		if err := w.store.MarkNotificationFailed(ctx, n.ID, cause.Error()); err != nil {
			w.logger.Error().Err(err).Str("notification_id", n.ID).Msg("Failed to mark notification failed")
			return false
		}
		metrics.IncNotification("failed")
		w.logger.Warn().
			Err(cause).
			Str("notification_id", n.ID).
			Str("account_id", n.AccountID).
			Int("attempts", attempt).
			Msg("Notification delivery failed permanently")
		return true
	}

	next := w.retryPolicy.NextAttempt(w.now(), attempt)
	if err := w.store.MarkNotificationRetry(ctx, n.ID, cause.Error(), next); err != nil {
		w.logger.Error().Err(err).Str("notification_id", n.ID).Msg("Failed to schedule notification retry")
		return false
	}
	metrics.IncNotification("retry")
	w.logger.Debug().
		Err(cause).
		Str("notification_id", n.ID).
		Time("next_attempt_at", next).
		Msg("Notification delivery will be retried")
	return true
}
