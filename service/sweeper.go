package service

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically expires stale pending chat requests. Default cadence
// is one sweep per day with a 30 day retention window.
type Sweeper struct {
	requests  *ChatRequestService
	interval  time.Duration
	retention time.Duration
}

const (
	DefaultSweepInterval  = 24 * time.Hour
	DefaultSweepRetention = 30 * 24 * time.Hour
)

func NewSweeper(requests *ChatRequestService, interval, retention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if retention <= 0 {
		retention = DefaultSweepRetention
	}
	return &Sweeper{requests: requests, interval: interval, retention: retention}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				log.Printf("chat request sweep failed: %v", err)
			}
		}
	}
}

// Sweep runs one expiration pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	count, err := s.requests.ExpireStale(ctx, s.retention)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("expired %d stale chat requests", count)
	}
	return nil
}
