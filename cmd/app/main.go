package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiHttp "github.com/desofme/bank/internal/api/http"
	"github.com/desofme/bank/internal/cache"
	"github.com/desofme/bank/internal/config"
	"github.com/desofme/bank/internal/db"
	"github.com/desofme/bank/internal/metrics"
	"github.com/desofme/bank/internal/queue/asynqserver"
	queueClient "github.com/desofme/bank/internal/queue/client"
	"github.com/desofme/bank/internal/repository"
	"github.com/desofme/bank/internal/server"
	"github.com/desofme/bank/internal/service"
	"github.com/desofme/bank/internal/worker"
	"github.com/desofme/bank/pkg/email/smtp"
	"github.com/desofme/bank/pkg/hash"
	logger "github.com/desofme/bank/pkg/logger"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Init cfg from environment variables
	cfg := config.MustLoad()

	// Dependencies
	logger.SetupLogger(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting bank api", zap.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	// Init database
	dbMySQL, err := db.New(cfg.Database)
	if err != nil {
		logger.Error("mysql connect problem", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		err = dbMySQL.Close()
		if err != nil {
			logger.Error("error when closing", zap.Error(err))
		}
	}()
	logger.Info("mysql connection done")

	if cfg.Database.Migrate {
		if err := db.Migrate(dbMySQL); err != nil {
			logger.Error("mysql migrations failed", zap.Error(err))
			return
		}
		logger.Info("mysql migrations applied")
	}

	redisClient, err := cache.NewRedis(cfg.Cache)
	if err != nil {
		logger.Error("redis connect problem", zap.Error(err))
		return
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("error when closing redis", zap.Error(err))
		}
	}()

	emailSender, err := smtp.NewSMTPSender(cfg.SMTP.From, cfg.SMTP.Pass, cfg.SMTP.Host, cfg.SMTP.Port)
	if err != nil {
		logger.Error("smtp sender creation failed", zap.Error(err))
		return
	}
	emailSender.WithFromName(cfg.Email.FromName)
	if !cfg.Email.Enabled {
		logger.Warn("email sending is disabled, confirmation emails are dropped by the worker")
	}

	appMetrics := metrics.New(prometheus.DefaultRegisterer)
	hasher := hash.NewBcryptHasher(cfg.Auth.BcryptCost)

	// Queue
	asynqClient := asynq.NewClient(asynqserver.RedisOptions(cfg.Cache))
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("error when closing asynq client", zap.Error(err))
		}
	}()

	workers := worker.NewWorkers(worker.Deps{
		EmailProvider: emailSender,
		Config:        cfg,
		Metrics:       appMetrics,
		Logger:        logger.Logger(),
	})
	asynqSrv, asynqMux := asynqserver.New(cfg, workers)
	if err := asynqSrv.Start(asynqMux); err != nil {
		logger.Error("asynq server start failed", zap.Error(err))
		return
	}
	logger.Info("asynq server started")

	// Services, Repos & API Handlers
	repos := repository.NewRepositories(dbMySQL)
	services := service.NewServices(service.Deps{
		Config:   cfg,
		Logger:   logger.Logger(),
		Hasher:   hasher,
		Repos:    repos,
		Notifier: queueClient.New(asynqClient, cfg.Queue.MaxRetry),
		Locker:   cache.NewLocker(redisClient),
		Metrics:  appMetrics,
	})
	handlers := apiHttp.NewHandlers(services, logger.Logger())

	// HTTP Server
	srv := server.NewServer(cfg, handlers.Init(appCtx, cfg))
	go func() {
		if err := srv.Run(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error occurred while running http server", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", srv.Addr()))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	const timeout = 5 * time.Second

	ctx, shutdown := context.WithTimeout(context.Background(), timeout)
	defer shutdown()

	if err := srv.Stop(ctx); err != nil {
		logger.Error("failed to stop server", zap.Error(err))
	}

	asynqSrv.Shutdown()
	cancelApp()

	logger.Info("app stopped")
}
