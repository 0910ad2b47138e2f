package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/classifier"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	stores := newStores(pg)

	dispatcher := events.NewAsyncDispatcher(logger, cfg.Notification.SendTimeout())
	worker.StartNotificationWorker(dispatcher, worker.Subscribers{
		Notifications: service.NewNotificationService(dispatcher, newMailer(cfg.Notification, logger), logger, metrics),
		Mirror:        newMirror(cfg.Notification, logger),
	}, logger)

	registry := service.NewRoleRegistry(stores.users, logger)
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: stores.complaints,
		HistoryRepo:   stores.history,
		Classifier:    newClassifier(cfg.Classifier, redis, logger, metrics),
		Dispatcher:    dispatcher,
		Logger:        logger,
	})

	verifier := auth.NewRemoteVerifier(cfg.Auth.ProviderURL, cfg.Auth.ProviderAPIKey, nil)
	resolver := auth.NewResolver(verifier, auth.ResolverOptions{
		Timeout:      cfg.Auth.VerifyTimeout(),
		AllowDegrade: cfg.Auth.DegradedModeEnabled,
		Logger:       logger,
		Metrics:      metrics,
	})
	if !cfg.Auth.DegradedModeEnabled {
		logger.Info("degraded identity mode disabled; provider outages will reject requests")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(registry),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		AuthMiddleware: auth.NewAuthMiddleware(resolver),
		Roles:          registry,
		Metrics:        metrics,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := app.ShutdownWithContext(shutdownCtx)
		if dErr := dispatcher.Close(shutdownCtx); dErr != nil {
			logger.Warn("notifications still in flight at shutdown", zap.Error(dErr))
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

type stores struct {
	users      repository.UserRepository
	complaints repository.ComplaintRepository
	history    repository.ComplaintHistoryRepository
}

func newStores(pg *persistence.Postgres) stores {
	if pg.Enabled() {
		return stores{
			users:      repository.NewUserRepository(pg.Pool),
			complaints: repository.NewComplaintRepository(pg.Pool),
			history:    repository.NewComplaintHistoryRepository(pg.Pool),
		}
	}
	return stores{
		users:      repository.NewInMemoryUserStore(),
		complaints: repository.NewInMemoryComplaintStore(),
		history:    repository.NewInMemoryComplaintHistoryStore(),
	}
}

func newMailer(cfg config.NotificationConfig, logger *zap.Logger) notify.Mailer {
	mailer, err := notify.NewSMTPMailer(cfg, logger)
	if errors.Is(err, notify.ErrNotConfigured) {
		logger.Warn("SMTP credentials not provided; notifications will be skipped")
		return nil
	}
	if err != nil {
		logger.Error("smtp mailer unavailable; notifications will be skipped", zap.Error(err))
		return nil
	}
	return mailer
}

func newMirror(cfg config.NotificationConfig, logger *zap.Logger) *events.AMQPPublisher {
	if cfg.AMQPURL == "" {
		return nil
	}
	return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPQueue, logger)
}

func newClassifier(cfg config.ClassifierConfig, redis *persistence.Redis, logger *zap.Logger, metrics *observability.Metrics) *classifier.Classifier {
	opts := classifier.Options{
		Timeout: cfg.Timeout(),
		Logger:  logger,
		Metrics: metrics,
	}
	if cfg.AnthropicAPIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not provided; using keyword classification only")
		return classifier.New(opts)
	}
	opts.Generator = classifier.NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxResponseTokens)
	if redis.Enabled() {
		opts.Cache = classifier.NewRedisCache(redis.Client, cfg.CacheTTL())
	}
	return classifier.New(opts)
}
