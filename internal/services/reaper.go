package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/pairup/internal/models"
	"github.com/prudhvinik1/pairup/internal/notify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StaleSessionReaper forces users that stopped reporting back to offline. The
// partner of a reaped user is left as is and closes the match on its next
// check-status.
type StaleSessionReaper struct {
	c         *SessionCoordinator
	threshold time.Duration
	interval  time.Duration
}

// NewReaper returns a reaper that shares the coordinator's store and locks.
func (c *SessionCoordinator) NewReaper(threshold, interval time.Duration) *StaleSessionReaper {
	return &StaleSessionReaper{c: c, threshold: threshold, interval: interval}
}

// Run sweeps every interval until ctx is cancelled.
func (r *StaleSessionReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.c.logger.Error("stale session sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep reaps every stale record once and returns how many it changed.
// Failures on single records do not stop the sweep; they are returned
// together.
func (r *StaleSessionReaper) Sweep(ctx context.Context) (int, error) {
	now := r.c.now()

	stale, err := r.c.store.Scan(ctx, func(rec *models.UserRecord) bool {
		return rec.Status != models.StatusOffline && rec.IsStale(now, r.threshold)
	})
	if err != nil {
		r.c.metrics.StoreErrors.WithLabelValues("scan").Inc()
		return 0, fmt.Errorf("failed to scan stale sessions: %w", err)
	}

	var (
		reaped int
		errs   error
	)
	for _, rec := range stale {
		ok, err := r.reap(ctx, rec.ID, now)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			reaped++
		}
	}

	if reaped > 0 {
		r.c.logger.Info("cleaned up stale sessions", zap.Int("count", reaped))
	}
	return reaped, errs
}

// reap re-checks the record under its lock so a refresh that landed after the
// scan wins over the sweep.
func (r *StaleSessionReaper) reap(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := r.c.locks.Lock(id)
	defer unlock()

	rec, err := r.c.load(ctx, id)
	if err != nil {
		return false, err
	}
	if rec.Status == models.StatusOffline || !rec.IsStale(now, r.threshold) {
		return false, nil
	}

	if err := r.c.put(ctx, offlineRecord(rec, rec.LastSeen)); err != nil {
		return false, err
	}

	r.c.metrics.Reaped.Inc()
	r.c.logger.Debug("reaped stale session",
		zap.String("user", id),
		zap.String("partner", rec.PartnerID),
		zap.Time("last_seen", rec.LastSeen))

	r.c.notify(ctx, notify.EventReaped, id, rec.PartnerID, now)
	if rec.PartnerID != "" {
		r.c.notify(ctx, notify.EventPartnerLeft, rec.PartnerID, id, now)
	}
	return true, nil
}
