package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-bot/internal/api/http"
	"github.com/spec-kit/helpdesk-bot/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-bot/internal/auth"
	"github.com/spec-kit/helpdesk-bot/internal/bot"
	"github.com/spec-kit/helpdesk-bot/internal/config"
	"github.com/spec-kit/helpdesk-bot/internal/conversation"
	"github.com/spec-kit/helpdesk-bot/internal/events"
	"github.com/spec-kit/helpdesk-bot/internal/llm"
	"github.com/spec-kit/helpdesk-bot/internal/observability"
	"github.com/spec-kit/helpdesk-bot/internal/persistence"
	"github.com/spec-kit/helpdesk-bot/internal/platform"
	"github.com/spec-kit/helpdesk-bot/internal/repository"
	"github.com/spec-kit/helpdesk-bot/internal/service"
	"github.com/spec-kit/helpdesk-bot/internal/session"
	"github.com/spec-kit/helpdesk-bot/internal/worker"
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

	if pg.PoolHandle() != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		ticketRepo  repository.TicketRepository
		userRepo    repository.UserRepository
		historyRepo repository.ConversationHistoryRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		userRepo = repository.NewUserRepository(pool)
		historyRepo = repository.NewConversationHistoryRepository(pool)
	} else {
		ticketRepo = repository.NewMemoryTicketRepository()
		userRepo = repository.NewMemoryUserRepository()
		historyRepo = repository.NewMemoryConversationHistoryRepository()
	}

	var sessions session.Manager
	if redis.Client != nil {
		sessions = session.NewRedisManager(redis.Client, cfg.Bot.SessionTTL())
	} else {
		sessions = session.NewMemoryManager()
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger, cfg.Notification).RegisterHandlers()

	workflow := service.NewTicketWorkflow(service.TicketWorkflowDependencies{
		TicketRepo: ticketRepo,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	userService := service.NewUserService(userRepo, logger)
	cache := conversation.NewContextCache(historyRepo, cfg.Bot.ContextCapacity, logger)
	completion := llm.NewAnthropicClient(cfg.Anthropic)

	gateway := platform.NewSlackGateway(cfg.Slack, logger)
	metrics := observability.NewMetrics()

	var registry *bot.CommandRegistry
	helpCmd := bot.NewHelpCommand(gateway, func() []bot.CommandHandler {
		return registry.Handlers()
	}, logger)
	registry = bot.NewCommandRegistry(logger,
		bot.NewTicketCommand(workflow, gateway, logger),
		bot.NewResetCommand(cache, gateway, logger),
		helpCmd,
	)

	// Registration order is load-bearing: the relay claims everything, so
	// it goes last.
	// No transcriber backend ships with the bot yet; the module stays
	// registered and skips every update until one is wired in.
	modules := []bot.Module{
		bot.NewTicketCaptureModule(workflow, gateway, logger),
		bot.NewTranscriptionModule(nil, gateway, logger),
		bot.NewRelayModule(cache, completion, historyRepo, gateway, logger),
	}

	router := bot.NewUpdateRouter(bot.RouterDependencies{
		Users:     userService,
		Registry:  registry,
		Modules:   modules,
		Transport: gateway,
		Metrics:   metrics,
		Logger:    logger,
	})
	sequencer := worker.NewSequencer(ctx, router.Route, cfg.Bot.QueueSize, logger)

	tokens := auth.NewTokenManager(cfg.Admin.JWTSecret, cfg.Admin.AccessTokenTTLMinutes)
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Admin:  handlers.NewAdminHandler(ticketRepo, metrics, tokens, cfg.Admin.PasswordHash),
		Tokens: tokens,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	go func() {
		if err := gateway.Run(ctx, sequencer.Enqueue); err != nil && ctx.Err() == nil {
			logger.Fatal("slack gateway", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
	sequencer.Close()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
