package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/command-center/helpdesk/internal/api/http"
	"github.com/command-center/helpdesk/internal/api/http/handlers"
	"github.com/command-center/helpdesk/internal/auth"
	"github.com/command-center/helpdesk/internal/config"
	"github.com/command-center/helpdesk/internal/events"
	"github.com/command-center/helpdesk/internal/observability"
	"github.com/command-center/helpdesk/internal/persistence"
	"github.com/command-center/helpdesk/internal/realtime"
	"github.com/command-center/helpdesk/internal/repository"
	"github.com/command-center/helpdesk/internal/service"
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

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	chatRepo := repository.NewChatMessageRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	registry := realtime.NewRegistry(logger, metrics)
	realtime.RegisterFanout(dispatcher, registry, logger)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		AuditRepo:   auditRepo,
		Dispatcher:  dispatcher,
		SLA:         cfg.SLA,
	})
	sessionService := service.NewSessionService(service.SessionDependencies{
		SessionRepo: sessionRepo,
		ChatRepo:    chatRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	analyticsService := service.NewAnalyticsService(analyticsRepo, redis, logger)
	mediaService := service.NewMediaService(sessionService, cfg.LiveKit)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())
	socketHandler := realtime.NewSocketHandler(authMiddleware, registry, ticketService, sessionService, sessionService, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Sessions:       handlers.NewSessionsHandler(sessionService),
		Analytics:      handlers.NewAnalyticsHandler(analyticsService),
		Media:          handlers.NewMediaHandler(mediaService),
		Socket:         socketHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
