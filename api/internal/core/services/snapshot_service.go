package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/irgordon/vigil/api/internal/core/domain"
)

// SnapshotService owns the process-wide SystemSnapshot.
// 🛡️ SLA: A single mutex serializes every refresh and every read, so a reader
// can never observe a half-written snapshot. Last writer wins.
type SnapshotService struct {
	mu       sync.Mutex
	probe    domain.HostProbe
	observer domain.SnapshotObserver
	logger   *slog.Logger
	current  domain.SystemSnapshot
	now      func() time.Time
}

// NewSnapshotService injects the host probe and an optional observer (nil disables it).
func NewSnapshotService(probe domain.HostProbe, observer domain.SnapshotObserver, logger *slog.Logger) *SnapshotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotService{
		probe:    probe,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh re-reads all tracked host metrics while holding the guard.
// A probe error does not abort the refresh: the fields that could be read are
// stored, the generation still advances, and the error is returned to the caller.
func (s *SnapshotService) Refresh(ctx context.Context) (domain.SystemSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	err := s.probe.Collect(ctx, &next)
	if err != nil {
		s.logger.Warn("Host probe incomplete", slog.String("error", err.Error()))
	}

	next.Generation = s.current.Generation + 1
	next.CollectedAt = s.now()
	s.current = next

	if s.observer != nil {
		s.observer.ObserveSnapshot(next)
	}

	return next, err
}

// Current returns a copy of the last completed refresh.
func (s *SnapshotService) Current() domain.SystemSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// StartAutoRefresh refreshes the snapshot on a fixed interval until ctx is done.
// It blocks; run it in its own goroutine.
func (s *SnapshotService) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Snapshot auto-refresh started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Snapshot auto-refresh stopped")
			return
		case <-ticker.C:
			// Per-tick timeout: one stuck OS query must not wedge the loop.
			tickCtx, cancel := context.WithTimeout(ctx, interval)
			_, _ = s.Refresh(tickCtx)
			cancel()
		}
	}
}
