package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler triggers a guarded sync pass on startup and then on a fixed
// interval until stopped.
type Scheduler struct {
	guard    *Guard
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(guard *Guard, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		guard:    guard,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.run()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.run()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	result := s.guard.Run(s.ctx)
	if result.Reason != "" {
		slog.Debug("Scheduled sync skipped", "reason", result.Reason)
		return
	}
	slog.Debug("Scheduled sync finished", "seen", result.Seen, "stored", result.Stored)
}
