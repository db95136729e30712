package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"datekeeper/internal/chat"
	"datekeeper/internal/config"
	"datekeeper/internal/database"
	"datekeeper/internal/handlers"
	"datekeeper/internal/logging"
	"datekeeper/internal/services"
	"datekeeper/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := logging.New(logging.Options{
		Production: cfg.IsProduction(),
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
	})
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("datekeeper stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	dbLogLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		dbLogLevel = gormlogger.Info
	}
	db, err := database.InitDB(database.Options{
		URL:        cfg.DatabaseURL,
		MaxRetries: 5,
		RetryDelay: cfg.StoreRetryDelay,
		LogLevel:   dbLogLevel,
	}, logger)
	if err != nil {
		return err
	}
	st := store.New(db)
	defer st.Close()

	var cache services.NotificationCache = services.NewMemoryNotificationCache()
	if cfg.RedisAddr != "" {
		redisCache, err := services.NewRedisNotificationCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		cache = redisCache
		logger.Info("notification cache backed by redis", zap.String("addr", cfg.RedisAddr))
	}

	quota := services.NewQuotaService(st, st, cfg.GiftDailyLimit, cfg.MaxEventsPerUser, loc, services.SystemClock)
	events := services.NewEventService(st, quota)

	advisor, err := services.NewGiftAdvisor(ctx, services.AdvisorConfig{
		Provider:     cfg.LLMProvider,
		APIKey:       cfg.LLMAPIKey,
		BaseURL:      cfg.LLMBaseURL,
		Model:        cfg.LLMModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
	})
	if err != nil {
		return err
	}
	if advisor == nil {
		logger.Warn("no LLM credentials configured; /gift is disabled")
	}
	if closer, ok := advisor.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	var (
		passReporter      services.PassReporter
		broadcastReporter services.BroadcastReporter
	)
	emailCfg := services.EmailConfig{
		APIKey:     cfg.SendGridAPIKey,
		FromEmail:  cfg.SendGridFromEmail,
		FromName:   cfg.SendGridFromName,
		AdminEmail: cfg.AdminEmail,
	}
	if emailCfg.Enabled() {
		email := services.NewEmailService(emailCfg)
		passReporter = email
		broadcastReporter = email
	}

	var (
		notifier services.Notifier = services.LogNotifier{Logger: logger.Named("notifier")}
		matrix   *chat.MatrixClient
	)
	if cfg.MatrixEnabled() {
		matrix, err = chat.NewMatrixClient(chat.MatrixConfig{
			Homeserver:  cfg.MatrixHomeserver,
			UserID:      cfg.MatrixUserID,
			AccessToken: cfg.MatrixAccessToken,
		}, st, logger)
		if err != nil {
			return err
		}
		notifier = matrix
	} else {
		logger.Warn("Matrix credentials not set; chat frontend disabled")
	}

	admin := services.NewAdminService(services.AdminServiceConfig{
		AdminID:    cfg.AdminID,
		Events:     st,
		Stats:      st,
		Quotas:     st,
		Broadcasts: st,
		Notifier:   notifier,
		Quota:      quota,
		PerSecond:  cfg.BroadcastPerSecond,
		Reporter:   broadcastReporter,
		Logger:     logger,
	})

	trigger, err := services.NewDailyTrigger(cfg.ReminderHour, loc)
	if err != nil {
		return err
	}
	services.NewReminderWorker(services.ReminderWorkerConfig{
		Events:     st,
		Cache:      cache,
		Notifier:   notifier,
		Reporter:   passReporter,
		Trigger:    trigger,
		RetryDelay: cfg.StoreRetryDelay,
		Logger:     logger,
	}).Start(ctx)

	maintenance, err := services.NewMaintenanceWorker(st, st.Ping, loc, cfg.StoreRetryDelay, services.SystemClock, logger)
	if err != nil {
		return err
	}
	maintenance.Start(ctx)

	if matrix != nil {
		bot := chat.NewBot(chat.Config{
			Events:  events,
			Quota:   quota,
			Admin:   admin,
			Advisor: advisor,
			Logger:  logger,
		})
		if err := matrix.Start(ctx, bot); err != nil {
			return err
		}
		defer matrix.Stop()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.RouterConfig{
		Handler:        handlers.NewHandler(admin, st, logger),
		AdminToken:     cfg.AdminAPIToken,
		TrustedProxies: []string{"127.0.0.1"},
		Logger:         logger,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
