package service

import (
	"context"
	"time"

	"github.com/dannmaldonado/midiacore/pkg/logger"
)

// Sweeper runs the advisory deadline sweep on a fixed cadence until the
// context is cancelled. It never mutates steps, so running it alongside
// user-triggered operations is safe on any schedule.
type Sweeper struct {
	dispatcher *NotificationDispatcher
	interval   time.Duration
}

func NewSweeper(dispatcher *NotificationDispatcher, interval time.Duration) *Sweeper {
	return &Sweeper{dispatcher: dispatcher, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.dispatcher.SweepDeadlines(ctx, time.Now()); err != nil {
				logger.Error(ctx, "deadline sweep failed", "error", err)
			}
		}
	}
}
