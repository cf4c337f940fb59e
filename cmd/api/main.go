package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/aftersales-service/internal/api/http"
	"github.com/spec-kit/aftersales-service/internal/api/http/handlers"
	"github.com/spec-kit/aftersales-service/internal/auth"
	"github.com/spec-kit/aftersales-service/internal/config"
	"github.com/spec-kit/aftersales-service/internal/events"
	"github.com/spec-kit/aftersales-service/internal/observability"
	"github.com/spec-kit/aftersales-service/internal/payment"
	"github.com/spec-kit/aftersales-service/internal/persistence"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/service"
	"github.com/spec-kit/aftersales-service/internal/sla"
	"github.com/spec-kit/aftersales-service/internal/tasks"
	"github.com/spec-kit/aftersales-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	ruleTable := sla.FromConfig(cfg.SLA, cfg.Escalation.ApproachingLead())

	var gateway payment.Gateway
	if cfg.Payment.StripeKey != "" {
		gateway = payment.NewStripeGateway(cfg.Payment.StripeKey, logger)
	} else {
		logger.Warn("no payment gateway key configured, using noop gateway")
		gateway = payment.NewNoopGateway(logger)
	}

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	caseRepo := repository.NewCaseRepository(pool)
	noteRepo := repository.NewNoteRepository(pool)
	holdRepo := repository.NewHoldRepository(pool)
	creditNoteRepo := repository.NewCreditNoteRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	arbitrationRepo := repository.NewArbitrationRepository(pool)
	invoiceRepo := repository.NewInvoiceRepository(pool)

	enqueuer := tasks.NewEnqueuer(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	defer enqueuer.Close()

	dispatcher := events.NewInMemoryDispatcher(logger)

	ledgerService := service.NewLedgerService(service.LedgerDependencies{
		HoldRepo:       holdRepo,
		CreditNoteRepo: creditNoteRepo,
		AccountRepo:    accountRepo,
		Gateway:        gateway,
		Rules:          ruleTable,
		Dispatcher:     dispatcher,
		Enqueuer:       enqueuer,
		Logger:         logger,
		Currency:       cfg.Payment.Currency,
		CallTimeout:    cfg.Payment.Timeout(),
	})
	caseService := service.NewCaseService(service.CaseDependencies{
		CaseRepo:        caseRepo,
		NoteRepo:        noteRepo,
		InvoiceRepo:     invoiceRepo,
		ArbitrationRepo: arbitrationRepo,
		Ledger:          ledgerService,
		Rules:           ruleTable,
		Dispatcher:      dispatcher,
		Enqueuer:        enqueuer,
		Logger:          logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		CaseRepo:    caseRepo,
		AlertRepo:   alertRepo,
		AccountRepo: accountRepo,
		Rules:       ruleTable,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	arbitrationService := service.NewArbitrationService(service.ArbitrationDependencies{
		ArbitrationRepo: arbitrationRepo,
		CaseRepo:        caseRepo,
		InvoiceRepo:     invoiceRepo,
		Ledger:          ledgerService,
		Enqueuer:        enqueuer,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		NotificationRepo: notificationRepo,
		CaseRepo:         caseRepo,
		AccountRepo:      accountRepo,
		Enqueuer:         enqueuer,
		Logger:           logger,
	})
	notificationService.RegisterHandlers(dispatcher)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo:       accountRepo,
		PasswordResetRepo: resetRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo)

	worker.StartSweepWorker(ctx, escalationService, redis, cfg.Escalation.SweepInterval(), logger)

	dispatchWorker := worker.NewDispatchWorker(cfg.Redis, notificationService, arbitrationService, caseService, ledgerService, logger)
	dispatchWorker.Start()
	defer dispatchWorker.Shutdown()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts:       handlers.NewAccountsHandler(authService),
		Cases:          handlers.NewCasesHandler(caseService, notificationService),
		ProviderCases:  handlers.NewProviderCasesHandler(caseService, ledgerService),
		AdminCases:     handlers.NewAdminCasesHandler(caseService, arbitrationService, escalationService, ledgerService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
