package usecase

import (
	"context"
	"fmt"
	"time"

	"linkbio-billing/internal/domain"
	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/logging"
	"linkbio-billing/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// adminProvider marks subscriptions granted by an administrator rather than a payment.
const adminProvider = "admin"

type SubscriptionUseCase interface {
	Entitlements(ctx context.Context, userID string) (*model.Entitlements, error)
	// RequireFeature returns domain.ErrProRequired when the user's plan lacks feature.
	RequireFeature(ctx context.Context, userID string, feature model.Feature) error
	// CheckLinkLimit returns domain.ErrPlanLimitReached when one more link would exceed the plan.
	CheckLinkLimit(ctx context.Context, userID string, current int) (*model.PlanLimits, error)
	// UpdateUserPlan is the admin override. A pro grant without expiresAt lasts one month.
	UpdateUserPlan(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time) (*model.User, error)
	// DowngradeExpired moves every pro user whose plan ended at or before now back to free.
	DowngradeExpired(ctx context.Context, now time.Time) (int64, error)
}

type subscriptionUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewSubscriptionUseCase(users repository.UserRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{users: users, log: &l}
}

func (s *subscriptionUC) Entitlements(ctx context.Context, userID string) (*model.Entitlements, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Entitlements(), nil
}

func (s *subscriptionUC) RequireFeature(ctx context.Context, userID string, feature model.Feature) error {
	ent, err := s.Entitlements(ctx, userID)
	if err != nil {
		return err
	}
	if !ent.Limits.Allows(feature) {
		return fmt.Errorf("%w: %s", domain.ErrProRequired, feature)
	}
	return nil
}

func (s *subscriptionUC) CheckLinkLimit(ctx context.Context, userID string, current int) (*model.PlanLimits, error) {
	ent, err := s.Entitlements(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ent.Limits.CanAddLink(current) {
		return &ent.Limits, fmt.Errorf("%w: %d of %d links used", domain.ErrPlanLimitReached, current, ent.Limits.MaxLinks)
	}
	return &ent.Limits, nil
}

func (s *subscriptionUC) UpdateUserPlan(ctx context.Context, userID string, plan model.Plan, expiresAt *time.Time) (*model.User, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.UpdateUserPlan")()

	if !plan.Valid() {
		return nil, fmt.Errorf("%w: unknown plan %q", domain.ErrInvalidArgument, plan)
	}
	now := time.Now().UTC()

	var sub *model.Subscription
	if plan == model.PlanPro {
		if expiresAt == nil {
			exp := now.AddDate(0, 1, 0)
			expiresAt = &exp
		}
		if !expiresAt.After(now) {
			return nil, fmt.Errorf("%w: expiry must be in the future", domain.ErrInvalidArgument)
		}
		sub = &model.Subscription{Provider: adminProvider, Status: model.SubscriptionStatusActive, StartedAt: now}
	} else {
		expiresAt = nil
	}

	if err := s.users.SetPlan(ctx, userID, plan, expiresAt, sub); err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", userID).Str("plan", string(plan)).Msg("plan updated by admin")
	return s.users.FindByID(ctx, userID)
}

func (s *subscriptionUC) DowngradeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.users.DowngradeExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		s.log.Info().Int64("count", n).Msg("expired pro plans downgraded")
	}
	return n, nil
}
