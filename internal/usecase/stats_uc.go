package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/metrics"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// PaymentAnalytics is the admin payment overview.
type PaymentAnalytics struct {
	TotalPayments       int64
	SucceededPayments   int64
	FailedPayments      int64
	SuccessRate         float64
	TotalRevenue        int64
	RevenueLast30Days   int64
	AverageAmount       int64
	ActiveSubscriptions int64
	ByStatus            map[string]int64
}

type StatsUseCase interface {
	PaymentAnalytics(ctx context.Context) (*PaymentAnalytics, error)
}

type statsUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository

	log *zerolog.Logger
}

func NewStatsUseCase(payments repository.PaymentRepository, subs repository.SubscriptionRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{payments: payments, subs: subs, log: logger}
}

func (s *statsUC) PaymentAnalytics(ctx context.Context) (*PaymentAnalytics, error) {
	byStatus, err := s.payments.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	succeeded := byStatus["succeeded"]
	failed := byStatus["failed"]

	revenue, err := s.payments.SumSucceededByPeriod(ctx, repository.NoTX, time.Time{})
	if err != nil {
		return nil, err
	}
	recent, err := s.payments.SumSucceededByPeriod(ctx, repository.NoTX, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	activeByPlan, err := s.subs.CountActiveByPlan(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	metrics.SetActiveSubscriptions(activeByPlan)
	var active int64
	for _, n := range activeByPlan {
		active += n
	}

	out := &PaymentAnalytics{
		TotalPayments:       total,
		SucceededPayments:   succeeded,
		FailedPayments:      failed,
		TotalRevenue:        revenue,
		RevenueLast30Days:   recent,
		ActiveSubscriptions: active,
		ByStatus:            byStatus,
	}
	if total > 0 {
		out.SuccessRate = float64(succeeded) / float64(total)
	}
	if succeeded > 0 {
		out.AverageAmount = revenue / succeeded
	}
	return out, nil
}
