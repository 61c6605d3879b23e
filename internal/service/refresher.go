package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/metrics"
)

// activeUserLister is the slice of UserStore the refresher needs.
type activeUserLister interface {
	ListRecentlyActiveUserIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error)
}

// RefresherConfig configures the entitlement refresher.
type RefresherConfig struct {
	// Interval between refresh sweeps.
	Interval time.Duration

	// Window bounds how far back a session counts as "active".
	Window time.Duration

	// MaxUsers caps how many users one sweep re-resolves.
	MaxUsers int
}

// Refresher periodically re-resolves entitlements for recently active
// users so tier changes made in Stripe propagate without waiting for
// the user's next explicit subscription check.
type Refresher struct {
	entitlements EntitlementService
	users        activeUserLister
	cfg          RefresherConfig
	logger       *slog.Logger
}

// NewRefresher creates a new Refresher.
func NewRefresher(entitlements EntitlementService, users activeUserLister, cfg RefresherConfig, logger *slog.Logger) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = 24 * time.Hour
	}
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = 500
	}
	return &Refresher{
		entitlements: entitlements,
		users:        users,
		cfg:          cfg,
		logger:       logger,
	}
}

// Run sweeps until ctx is cancelled. Call it from its own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	r.logger.Info("entitlement refresher started",
		"interval", r.cfg.Interval, "window", r.cfg.Window)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("entitlement refresher stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Refresher) sweep(ctx context.Context) {
	since := time.Now().Add(-r.cfg.Window)
	ids, err := r.users.ListRecentlyActiveUserIDs(ctx, since, r.cfg.MaxUsers)
	if err != nil {
		r.logger.Error("refresher failed to list active users", "error", err)
		metrics.EntitlementRefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	if len(ids) == 0 {
		return
	}

	var failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := r.entitlements.Resolve(ctx, id); err != nil {
			failed++
			r.logger.Warn("entitlement refresh failed", "user_id", id, "error", err)
			metrics.EntitlementRefreshesTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.EntitlementRefreshesTotal.WithLabelValues("ok").Inc()
	}

	r.logger.Debug("entitlement sweep complete",
		"users", len(ids), "failed", failed)
}
