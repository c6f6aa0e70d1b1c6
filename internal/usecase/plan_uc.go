// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase exposes the purchasable catalog.
type PlanUseCase interface {
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Get(ctx context.Context, planID string) (*model.SubscriptionPlan, error)
	Create(ctx context.Context, name string, price int64, currency string, durationDays int) (*model.SubscriptionPlan, error)
}

type planUC struct {
	plans repository.PlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	planLog := logger.With().Str("component", "PlanUC").Logger()
	return &planUC{plans: plans, log: &planLog}
}

func (u *planUC) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return u.plans.ListActive(ctx, repository.NoTX)
}

func (u *planUC) Get(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	return u.plans.FindByID(ctx, repository.NoTX, planID)
}

func (u *planUC) Create(ctx context.Context, name string, price int64, currency string, durationDays int) (*model.SubscriptionPlan, error) {
	plan, err := model.NewSubscriptionPlan(uuid.NewString(), name, price, currency, durationDays)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, repository.NoTX, plan); err != nil {
		return nil, err
	}
	u.log.Info().Str("plan_id", plan.ID).Str("name", plan.Name).Msg("plan created")
	return plan, nil
}
