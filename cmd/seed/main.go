// File: cmd/seed/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"blog-subscription-platform/internal/config"
	pg "blog-subscription-platform/internal/infra/db/postgres"
	"blog-subscription-platform/internal/infra/logging"
	"blog-subscription-platform/internal/usecase"
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

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	planRepo := pg.NewPlanRepo(pool)
	planUC := usecase.NewPlanUseCase(planRepo, logger)

	// If plans already exist, do nothing.
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, price=%d %s)\n", p.Name, p.DurationDays, p.Price, p.Currency)
		}
		return
	}

	seed := []struct {
		Name  string
		Days  int
		Price int64
	}{
		{"Monthly", 30, 4_99},
		{"Quarterly", 90, 12_99},
		{"Yearly", 365, 44_99},
	}

	for _, s := range seed {
		p, err := planUC.Create(ctx, s.Name, s.Price, "usd", s.Days)
		if err != nil {
			log.Fatalf("create plan %s: %v", s.Name, err)
		}
		fmt.Printf("seeded plan %s (%s)\n", p.Name, p.ID)
	}
	fmt.Println("done.")
}
