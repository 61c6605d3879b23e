package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/metrics"
)

// QuotaService defines operations for checking and consuming usage
// quota.
type QuotaService interface {
	// CheckAndIncrement atomically consumes one unit of the category's
	// quota. When the result's Allowed is false the counters were not
	// changed and the caller must not perform the metered action.
	CheckAndIncrement(ctx context.Context, userID uuid.UUID, category domain.Category) (*domain.IncrementResult, error)

	// Usage returns the user's current usage record with the period
	// rolled forward for display. The roll is a read-side view; the
	// stored row is only advanced by the next increment.
	Usage(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error)

	// Remaining returns how many units are left in the category this
	// period. domain.Unlimited means no cap.
	Remaining(ctx context.Context, userID uuid.UUID, category domain.Category) (int, error)
}

type quotaService struct {
	store  UsageStore
	logger *slog.Logger
	now    func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(store UsageStore, logger *slog.Logger) QuotaService {
	return &quotaService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAndIncrement atomically consumes one unit of quota.
func (s *quotaService) CheckAndIncrement(ctx context.Context, userID uuid.UUID, category domain.Category) (*domain.IncrementResult, error) {
	const op = "quota.check_and_increment"

	result, err := s.store.CheckAndIncrement(ctx, userID, category, s.now())
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to update usage")
	}

	if result.Rolled {
		metrics.PeriodRollsTotal.Inc()
	}

	decision := "allowed"
	if !result.Allowed {
		decision = "denied"
		s.logger.Info("quota exhausted",
			"user_id", userID,
			"category", category,
			"tier", result.Tier,
			"used", result.Counters.For(category),
			"limit", result.Limit,
		)
	}
	metrics.QuotaDecisionsTotal.WithLabelValues(string(category), string(result.Tier), decision).Inc()

	return result, nil
}

// Usage returns the rolled view of the user's usage record.
func (s *quotaService) Usage(ctx context.Context, userID uuid.UUID) (*domain.UsageRecord, error) {
	const op = "quota.usage"

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to load usage")
	}
	rec.RollIfNeeded(s.now())
	return rec, nil
}

// Remaining returns the units left in the category this period.
func (s *quotaService) Remaining(ctx context.Context, userID uuid.UUID, category domain.Category) (int, error) {
	rec, err := s.Usage(ctx, userID)
	if err != nil {
		return 0, err
	}

	limit := domain.LimitsFor(rec.Tier).For(category)
	if limit == domain.Unlimited {
		return domain.Unlimited, nil
	}
	if remaining := limit - rec.Counters.For(category); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}
