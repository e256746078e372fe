package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskboard/backend/api/handler"
	"github.com/taskboard/backend/internal/config"
	"github.com/taskboard/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskboard/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskboard/backend/internal/infrastructure/redis"
	"github.com/taskboard/backend/internal/middleware"
	"github.com/taskboard/backend/internal/realtime"
	"github.com/taskboard/backend/internal/router"
	"github.com/taskboard/backend/internal/services/lifecycle"
	"github.com/taskboard/backend/internal/services/reminder"
	"github.com/taskboard/backend/pkg/httpcontext"
	"github.com/taskboard/backend/pkg/logger"
	"github.com/taskboard/backend/repository/postgres"
	redisRepo "github.com/taskboard/backend/repository/redis"
	authUC "github.com/taskboard/backend/usecase/auth"
	notificationUC "github.com/taskboard/backend/usecase/notification"
	taskUC "github.com/taskboard/backend/usecase/task"
	userUC "github.com/taskboard/backend/usecase/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	registry := realtime.NewRegistry()

	mon := monitor.New(pool, redisClient, registry, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.SessionTTL)

	bridge := realtime.NewBridge(redisClient, cfg.Stream.Channel, registry, zapLogger)
	hub := realtime.NewHub(registry, bridge, zapLogger)
	go bridge.Run(appCtx, hub)

	notificationUseCase := notificationUC.New(notificationRepo, hub, zapLogger)
	taskUseCase := taskUC.New(taskRepo, notificationUseCase, hub, zapLogger)
	authUseCase := authUC.New(userRepo, sessionRepo, cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	userUseCase := userUC.New(userRepo, zapLogger)

	if cfg.Reminder.Enabled {
		sweeper := reminder.NewSweeper(taskRepo, notificationUseCase, cfg.Reminder.Schedule, zapLogger)
		sweeper.Start()
		manager.Register("reminder_sweeper", func(ctx context.Context) error {
			sweeper.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, cfg.JWT.SessionTTL),
		User:         apiHandler.NewUserHandler(userUseCase, ctxAdapter, zapLogger),
		Task:         apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Notification: apiHandler.NewNotificationHandler(notificationUseCase, ctxAdapter, zapLogger),
		Stream:       apiHandler.NewStreamHandler(registry, ctxAdapter, zapLogger, cfg.Stream.BufferSize, cfg.Stream.Heartbeat),
		Health:       apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
