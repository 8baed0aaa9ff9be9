package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/portal-service/internal/api/http"
	"github.com/spec-kit/portal-service/internal/api/http/handlers"
	"github.com/spec-kit/portal-service/internal/auth"
	"github.com/spec-kit/portal-service/internal/config"
	"github.com/spec-kit/portal-service/internal/events"
	"github.com/spec-kit/portal-service/internal/lifecycle"
	"github.com/spec-kit/portal-service/internal/observability"
	"github.com/spec-kit/portal-service/internal/persistence"
	"github.com/spec-kit/portal-service/internal/repository"
	"github.com/spec-kit/portal-service/internal/service"
	"github.com/spec-kit/portal-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	milestoneRepo := repository.NewMilestoneRepository(pool)
	validationRepo := repository.NewMilestoneValidationRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	var locker lifecycle.EntityLocker
	if cfg.Lock.UseRedis {
		locker = persistence.NewRedisEntityLocker(redis.Client, cfg.Lock.LeaseTTL(), logger)
	} else {
		locker = lifecycle.NewMemoryLocker()
	}

	coordinator := lifecycle.NewCoordinator(lifecycle.Dependencies{
		TicketRepo:     ticketRepo,
		ValidationRepo: validationRepo,
		PaymentRepo:    paymentRepo,
		TaskRepo:       taskRepo,
		Locker:         locker,
		Dispatcher:     dispatcher,
		Logger:         logger,
		LockTimeout:    cfg.Lock.AcquireTimeout(),
	})

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		AuditRepo:   auditRepo,
		Coordinator: coordinator,
		Dispatcher:  dispatcher,
	})
	milestoneService := service.NewMilestoneService(milestoneRepo, validationRepo, coordinator)
	paymentService := service.NewPaymentService(service.PaymentDependencies{
		PaymentRepo:   paymentRepo,
		TicketRepo:    ticketRepo,
		MilestoneRepo: milestoneRepo,
		Coordinator:   coordinator,
		Dispatcher:    dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	auditService := service.NewAuditService(auditRepo, dispatcher, logger)

	worker.StartCollaborators(notificationService, auditService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pool),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Milestones:     handlers.NewMilestonesHandler(milestoneService),
		Payments:       handlers.NewPaymentsHandler(paymentService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
