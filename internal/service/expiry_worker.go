package service

import (
	"context"
	"time"

	"github.com/aditya/rideshare/internal/metrics"
	"github.com/aditya/rideshare/internal/repository"
	"github.com/aditya/rideshare/pkg/logger"
)

// ExpiryWorker periodically expires pending ride requests past their deadline.
type ExpiryWorker struct {
	requestRepo repository.RideRequestRepository
	interval    time.Duration
	log         *logger.Logger
	now         func() time.Time
}

func NewExpiryWorker(requestRepo repository.RideRequestRepository, interval time.Duration, log *logger.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpiryWorker{
		requestRepo: requestRepo,
		interval:    interval,
		log:         log,
		now:         time.Now,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.WithField("interval", w.interval.String()).Info("ride request expiry worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.log.WithError(err).Error("failed to expire ride requests")
			}
		}
	}
}

// Sweep runs one expiry pass and reports how many requests it expired.
func (w *ExpiryWorker) Sweep(ctx context.Context) (int64, error) {
	n, err := w.requestRepo.ExpireOverdue(ctx, w.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RequestsExpired.Add(float64(n))
		w.log.WithField("count", n).Info("expired ride requests")
	}
	return n, nil
}
