// File: cmd/seed/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ecommerce-loyalty-platform/internal/config"
	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
	pg "ecommerce-loyalty-platform/internal/infra/db/postgres"
	"ecommerce-loyalty-platform/internal/usecase"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	seedLevels(ctx, pg.NewMembershipLevelRepo(pool), cfg.Membership)
	seedProducts(ctx, pg.NewProductRepo(pool))
	seedPlans(ctx, usecase.NewPlanUseCase(pg.NewPlanRepo(pool)))

	fmt.Println("Seeding complete.")
}

// seedLevels makes sure the three loyalty tiers exist with the configured
// accrual rates. Existing tiers are left untouched.
func seedLevels(ctx context.Context, levels repository.MembershipLevelRepository, cfg config.MembershipConfig) {
	tiers := []struct {
		Name     string
		Rate     float64
		Benefits string
	}{
		{usecase.LevelNormal, cfg.NormalRate, "base point accrual"},
		{usecase.LevelVIP, cfg.VIPRate, "boosted point accrual"},
		{usecase.LevelVVIP, cfg.VVIPRate, "top-tier point accrual"},
	}
	for _, t := range tiers {
		if _, err := levels.FindByName(ctx, nil, t.Name); err == nil {
			fmt.Printf("level %s already present. No changes.\n", t.Name)
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.Fatalf("find level %q: %v", t.Name, err)
		}
		l := &model.MembershipLevel{
			ID:          uuid.NewString(),
			Name:        t.Name,
			AccrualRate: t.Rate,
			Benefits:    t.Benefits,
		}
		if err := levels.Save(ctx, nil, l); err != nil {
			log.Fatalf("save level %q: %v", t.Name, err)
		}
		fmt.Printf("seeded level: %s (rate=%.2f)\n", l.Name, l.AccrualRate)
	}
}

func seedProducts(ctx context.Context, products repository.ProductRepository) {
	samples := []struct {
		Name  string
		Price int64
		Stock int
	}{
		{"Drip Coffee Set", 28_000, 200},
		{"Ceramic Mug", 15_000, 500},
		{"Gift Box", 52_000, 100},
	}
	for _, s := range samples {
		p := &model.Product{
			ID:        uuid.NewString(),
			Name:      s.Name,
			Price:     s.Price,
			Stock:     s.Stock,
			CreatedAt: time.Now(),
		}
		if err := products.Save(ctx, nil, p); err != nil {
			log.Fatalf("save product %q: %v", s.Name, err)
		}
		fmt.Printf("seeded product: %s (id=%s, price=%d KRW)\n", p.Name, p.ID, p.Price)
	}
}

func seedPlans(ctx context.Context, planUC usecase.PlanUseCase) {
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (%s, trial=%dd, price=%d KRW)\n", p.Name, p.BillingInterval, p.TrialPeriodDays, p.Price)
		}
		return
	}

	seed := []struct {
		Name     string
		Price    int64
		Interval model.BillingInterval
		Trial    int
	}{
		{"Coffee Club Monthly", 19_900, model.BillingMonthly, 7},
		{"Coffee Club Yearly", 199_000, model.BillingYearly, 0},
	}
	for _, s := range seed {
		p, err := planUC.Create(ctx, s.Name, s.Price, s.Interval, s.Trial)
		if err != nil {
			log.Fatalf("create plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded plan: %s (id=%s, %s, trial=%dd, price=%d KRW)\n", p.Name, p.ID, p.BillingInterval, p.TrialPeriodDays, p.Price)
	}
}
