// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-loyalty-platform/internal/config"
	pg "ecommerce-loyalty-platform/internal/infra/db/postgres"
	"ecommerce-loyalty-platform/internal/infra/logging"
	"ecommerce-loyalty-platform/internal/infra/metrics"
	"ecommerce-loyalty-platform/internal/infra/payment"
	red "ecommerce-loyalty-platform/internal/infra/redis"
	"ecommerce-loyalty-platform/internal/infra/sched"
	"ecommerce-loyalty-platform/internal/infra/security"
	"ecommerce-loyalty-platform/internal/infra/web"
	"ecommerce-loyalty-platform/internal/infra/worker"
	"ecommerce-loyalty-platform/internal/usecase"
)

// Populated via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 30*time.Second)
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}

	// ---- Payment gateway ----
	gateway := payment.NewPortOneGateway(cfg.Gateway)

	// ---- Repositories ----
	orderRepo := pg.NewOrderRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	refundRepo := pg.NewRefundRepo(pool)
	pointRepo := pg.NewPointTransactionRepo(pool)
	membershipRepo := pg.NewMembershipRepo(pool)
	levelRepo := pg.NewMembershipLevelRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	methodRepo := pg.NewPaymentMethodRepo(pool)

	// ---- Background pool (detached gateway work) ----
	wpool := worker.NewPool(cfg.Server.Workers)
	wpool.Start(ctx)
	defer wpool.Stop()

	// ---- Use cases ----
	pointUC := usecase.NewPointUseCase(pointRepo, logger)
	membershipUC := usecase.NewMembershipUseCase(membershipRepo, levelRepo, paymentRepo, cfg.Membership, logger)
	orderUC := usecase.NewOrderUseCase(orderRepo, productRepo, paymentRepo, gateway, pointUC, membershipUC, tm, logger)
	refundUC := usecase.NewRefundUseCase(orderRepo, paymentRepo, refundRepo, gateway, pointUC, membershipUC, logger)
	planUC := usecase.NewPlanUseCase(planRepo)
	subUC := usecase.NewSubscriptionUseCase(subRepo, invoiceRepo, planRepo, methodRepo, gateway, encSvc, tm, wpool, logger)
	methodUC := usecase.NewPaymentMethodUseCase(methodRepo, gateway, encSvc, logger)

	// ---- Scheduled workers ----
	billing := sched.NewBillingWorker(cfg.Scheduler.BillingInterval, cfg.Redis.LockTTL, subUC, locker, logger)
	go func() { _ = billing.Run(ctx) }()
	trial := sched.NewTrialWorker(cfg.Scheduler.TrialInterval, cfg.Redis.LockTTL, subUC, locker, logger)
	go func() { _ = trial.Run(ctx) }()
	reconciler := sched.NewScheduleReconciler(cfg.Scheduler.ScheduleInterval, cfg.Redis.LockTTL, cfg.Scheduler.BatchSize, subUC, locker, logger)
	go func() { _ = reconciler.Run(ctx) }()
	abandoned := sched.NewAbandonedOrderWorker(cfg.Scheduler.AbandonedInterval, cfg.Scheduler.AbandonedAfter, cfg.Redis.LockTTL, cfg.Scheduler.BatchSize, orderUC, locker, logger)
	go func() { _ = abandoned.Run(ctx) }()

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.SessionTTL)
	srv := web.NewServer(orderUC, pointUC, membershipUC, refundUC, planUC, subUC, methodUC, wpool, auth, cfg.Admin, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	cancel()
}
