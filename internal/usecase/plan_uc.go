// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	Create(ctx context.Context, name string, price int64, interval model.BillingInterval, trialDays int) (*model.Plan, error)
	Get(ctx context.Context, planID string) (*model.Plan, error)
	List(ctx context.Context) ([]*model.Plan, error)
	Deactivate(ctx context.Context, planID string) error
}

type planUC struct {
	plans repository.PlanRepository
}

func NewPlanUseCase(plans repository.PlanRepository) *planUC {
	return &planUC{plans: plans}
}

func (u *planUC) Create(ctx context.Context, name string, price int64, interval model.BillingInterval, trialDays int) (*model.Plan, error) {
	if name == "" || price < 0 || trialDays < 0 {
		return nil, fmt.Errorf("%w: plan name, non-negative price and trial days are required", domain.ErrInvalidArgument)
	}
	if interval != model.BillingMonthly && interval != model.BillingYearly {
		return nil, fmt.Errorf("%w: unknown billing interval %q", domain.ErrInvalidArgument, interval)
	}
	p := &model.Plan{
		ID:              uuid.NewString(),
		Name:            name,
		Price:           price,
		BillingInterval: interval,
		TrialPeriodDays: trialDays,
		Status:          model.PlanStatusActive,
		CreatedAt:       time.Now(),
	}
	if err := u.plans.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *planUC) Get(ctx context.Context, planID string) (*model.Plan, error) {
	return u.plans.FindByID(ctx, nil, planID)
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.List(ctx, nil)
}

func (u *planUC) Deactivate(ctx context.Context, planID string) error {
	p, err := u.plans.FindByID(ctx, nil, planID)
	if err != nil {
		return err
	}
	p.Status = model.PlanStatusInactive
	return u.plans.Save(ctx, nil, p)
}
