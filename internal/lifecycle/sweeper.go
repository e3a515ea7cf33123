package lifecycle

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically expires overdue offers server-side, so reversion does
// not depend on a client polling the timeout endpoint.
type Sweeper struct {
	svc      *Service
	interval time.Duration
}

// NewSweeper creates a sweeper running against the given lifecycle service.
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	return &Sweeper{svc: svc, interval: interval}
}

// Run sweeps on every tick until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires every PENDING job whose deadline has passed and notifies the
// affected requesters. Errors are logged; the next tick retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.svc.store.ExpireDueRequests(ctx, s.svc.now().UTC())
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	slog.Info("expired overdue requests", "count", len(expired))
	for _, req := range expired {
		go s.svc.sendNotification(req.RequesterID, "Your job request has timed out", "Job Request Timed Out")
	}
}
