package services

import (
	"context"
	"time"

	"datekeeper/internal/store"

	"go.uber.org/zap"
)

// MaintenanceWorker zeroes the gift counters at midnight. Counters also roll
// over lazily by date, so a missed sweep changes nothing.
type MaintenanceWorker struct {
	quotas     store.QuotaStore
	ready      func(ctx context.Context) error
	trigger    *DailyTrigger
	retryDelay time.Duration
	clock      Clock
	logger     *zap.Logger
}

// NewMaintenanceWorker builds the midnight sweep. ready is the store ping.
func NewMaintenanceWorker(quotas store.QuotaStore, ready func(ctx context.Context) error, loc *time.Location, retryDelay time.Duration, clock Clock, logger *zap.Logger) (*MaintenanceWorker, error) {
	trigger, err := NewDailyTrigger(0, loc)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceWorker{
		quotas:     quotas,
		ready:      ready,
		trigger:    trigger,
		retryDelay: retryDelay,
		clock:      clock,
		logger:     logger.Named("maintenance"),
	}, nil
}

func (w *MaintenanceWorker) Start(ctx context.Context) {
	go w.Run(ctx)
}

func (w *MaintenanceWorker) Run(ctx context.Context) {
	RunDaily(ctx, DailyOptions{
		Name:       "gift-reset",
		Trigger:    w.trigger,
		Ready:      w.ready,
		RetryDelay: w.retryDelay,
		Clock:      w.clock,
		Logger:     w.logger,
	}, func(ctx context.Context, _ time.Time) {
		w.ResetGiftCounters(ctx)
	})
}

// ResetGiftCounters runs one sweep and returns the number of rows reset.
func (w *MaintenanceWorker) ResetGiftCounters(ctx context.Context) int64 {
	n, err := w.quotas.ResetAllGiftCounters(ctx)
	if err != nil {
		w.logger.Error("failed to reset gift counters", zap.Error(err))
		return 0
	}
	w.logger.Info("gift counters reset", zap.Int64("rows", n))
	return n
}
