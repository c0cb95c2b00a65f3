package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultExpirerInterval = 1 * time.Hour
	expirerSweepTimeout    = 30 * time.Second
)

// ArchiveExpirer deletes archived SOAR sessions once they outlive the
// retention window.
type ArchiveExpirer struct {
	store     domain.SOARSessionStore
	retention time.Duration
	logger    *zap.Logger

	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewArchiveExpirer(store domain.SOARSessionStore, retention time.Duration, logger *zap.Logger) *ArchiveExpirer {
	return &ArchiveExpirer{
		store:     store,
		retention: retention,
		logger:    logger,
		interval:  defaultExpirerInterval,
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

func (e *ArchiveExpirer) SetInterval(d time.Duration) {
	if d > 0 {
		e.interval = d
	}
}

// Start sweeps once per interval in a background goroutine until Stop.
func (e *ArchiveExpirer) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		e.logger.Info("soar archive expirer started",
			zap.Duration("interval", e.interval),
			zap.Duration("retention", e.retention))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), expirerSweepTimeout)
				_, _ = e.Sweep(ctx)
				cancel()
			case <-e.stopCh:
				e.logger.Info("soar archive expirer stopped")
				return
			}
		}
	}()
}

// Stop waits for an in-flight sweep. It is safe to call more than once.
func (e *ArchiveExpirer) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

// Sweep deletes every session archived before now minus retention.
func (e *ArchiveExpirer) Sweep(ctx context.Context) (int64, error) {
	if e.retention <= 0 {
		return 0, nil
	}
	cutoff := e.now().Add(-e.retention)
	deleted, err := e.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		e.logger.Error("failed to delete expired soar sessions", zap.Error(err))
		return 0, err
	}
	if deleted > 0 {
		e.logger.Info("deleted expired soar sessions",
			zap.Int64("count", deleted),
			zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
