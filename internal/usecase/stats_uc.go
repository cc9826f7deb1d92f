package usecase

import (
	"context"
	"time"

	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

type StatsUseCase interface {
	// Overview aggregates plan distribution, payment outcomes, monthly revenue
	// for the last 12 months and the most redeemed coupons.
	Overview(ctx context.Context) (*model.StatsOverview, error)
}

type statsUC struct {
	users    repository.UserRepository
	payments repository.PaymentRepository
	log      *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, payments repository.PaymentRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, payments: payments, log: logger}
}

func (s *statsUC) Overview(ctx context.Context) (*model.StatsOverview, error) {
	byPlan, err := s.users.CountByPlan(ctx)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.payments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.payments.RevenueByMonth(ctx, revenueWindowStart(time.Now()))
	if err != nil {
		return nil, err
	}
	top, err := s.payments.TopCoupons(ctx, 10)
	if err != nil {
		return nil, err
	}
	return &model.StatsOverview{
		UsersByPlan:      byPlan,
		PaymentsByStatus: byStatus,
		RevenueByMonth:   revenue,
		TopCoupons:       top,
	}, nil
}

// revenueWindowStart is the first instant of the month 11 months before now,
// so the window covers 12 calendar months including the current one.
func revenueWindowStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
}
