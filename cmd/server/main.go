package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/phone-confirmation/configs"
	"github.com/avatarctic/phone-confirmation/internal/application/services"
	"github.com/avatarctic/phone-confirmation/internal/core/ports"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/db"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/health"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/httpserver"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/redis"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/repositories"
	"github.com/avatarctic/phone-confirmation/internal/infrastructure/sms"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting phone confirmation service...")

	// Initialize database (apply pool settings from config)
	dbCtx, cancelDB := context.WithTimeout(context.Background(), 5*time.Second)
	database, err := db.Open(dbCtx, &cfg.Database)
	cancelDB()
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisCtx, cancelRedis := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := redis.NewClient(redisCtx, &cfg.Redis)
	cancelRedis()
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	redisRateLimitRepo := repositories.NewRateLimitRedisRepository(redisClient, cfg.RateLimit.KeyPrefix)
	redisCache := redis.NewCache(redisClient, "phoneconf")

	baseIdentityRepo := repositories.NewIdentityRepository(database, logger)
	identityRepo := repositories.NewCachingIdentityRepository(baseIdentityRepo, redisCache, cfg.Confirmation.CacheTTL)

	smsConfig := &sms.SMSConfig{
		Provider:            cfg.SMS.Provider,
		TwilioAccountSID:    cfg.SMS.TwilioAccountSID,
		TwilioAuthToken:     cfg.SMS.TwilioAuthToken,
		FromNumber:          cfg.SMS.FromNumber,
		MessagingServiceSID: cfg.SMS.MessagingServiceSID,
		CompanyName:         cfg.SMS.CompanyName,
		MessageTemplate:     cfg.SMS.MessageTemplate,
	}
	dispatcher, err := newDispatcher(smsConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize SMS dispatcher:", err)
	}
	renderer, err := sms.NewTemplateRenderer(smsConfig)
	if err != nil {
		logger.Fatal("Failed to initialize message renderer:", err)
	}

	confirmationService := services.NewConfirmationService(identityRepo, dispatcher, renderer, &services.ConfirmationConfig{
		Window:           cfg.Confirmation.Window,
		LookupKeys:       cfg.Confirmation.LookupKeys,
		Optional:         cfg.Confirmation.Optional,
		MaxTokenAttempts: cfg.Confirmation.MaxTokenAttempts,
	}, logger)
	identityService := services.NewIdentityService(identityRepo, confirmationService, logger)

	rateLimiterConfig := &services.RateLimiterConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		BurstMultiplier:   cfg.RateLimit.BurstMultiplier,
		Window:            cfg.RateLimit.Window,
	}
	rateLimiterService := services.NewRateLimiterService(redisRateLimitRepo, rateLimiterConfig, logger)

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	deps := httpserver.ServerDeps{
		ConfirmationService: confirmationService,
		IdentityService:     identityService,
		RateLimiterService:  rateLimiterService,
		HealthCheckers:      health.Checkers(database, redisClient),
	}

	server := httpserver.NewServer(serverConfig, cfg.JWT.Secret, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

func newDispatcher(cfg *sms.SMSConfig, logger *logrus.Logger) (ports.NotificationDispatcher, error) {
	if cfg.Provider == sms.ProviderLog {
		logger.Warn("SMS_PROVIDER=log: confirmation messages are written to the log, not delivered")
		return sms.NewLogDispatcher(logger), nil
	}
	return sms.NewTwilioDispatcher(cfg, logger)
}
