package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes records whose window ended before a given time.
type Pruner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Janitor periodically prunes a store that has no native expiry.
type Janitor struct {
	pruner   Pruner
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewJanitor creates a new janitor running every interval.
func NewJanitor(pruner Pruner, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultWindow
	}

	return &Janitor{
		pruner:   pruner,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins pruning in the background until Shutdown is called.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)

	go j.loop(ctx)
}

func (j *Janitor) loop(ctx context.Context) {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := j.pruner.DeleteExpired(ctx, now)
			if err != nil {
				j.logger.Error("failed to prune expired rate limit records", zap.Error(err))

				continue
			}

			j.logger.Debug("pruned expired rate limit records", zap.Int64("removed", removed))
		}
	}
}

// Shutdown stops the janitor and waits for the current pass to finish.
func (j *Janitor) Shutdown() error {
	if j.cancel == nil {
		return nil
	}

	j.cancel()
	<-j.done

	return nil
}
