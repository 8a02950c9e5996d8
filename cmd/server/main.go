package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/task-tracker/internal/config"
	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/handlers"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/mailer"
	"github.com/yukikurage/task-tracker/internal/metrics"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/security"
	"github.com/yukikurage/task-tracker/internal/services"
	"github.com/yukikurage/task-tracker/internal/session"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.Setup(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Run migrations
	if err := database.Migrate(db); err != nil {
		zap.L().Fatal("Failed to run migrations", zap.Error(err))
	}

	store, err := session.NewStore(cfg)
	if err != nil {
		zap.L().Fatal("Failed to create session store", zap.Error(err))
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	var otpMailer services.Mailer
	switch cfg.MailDriver {
	case "log":
		otpMailer = mailer.NewLogMailer(appLogger)
	default:
		otpMailer = mailer.NewSMTPMailer(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Timeout:  cfg.MailTimeout,
			CodeTTL:  cfg.OTPTTL,
		})
	}

	// Initialize AI service
	var extractor services.TaskExtractor
	if cfg.OpenAIAPIKey != "" {
		extractor = services.NewAIService(cfg.OpenAIAPIKey)
	}

	otpService := services.NewOTPService(repository.NewOTPRepository(db), otpMailer, cfg.OTPTTL)
	otpService.StartCleanup(ctx, cfg.OTPCleanupInterval)

	authService := services.NewAuthService(repository.NewUserRepository(db), otpService, security.NewPasswordHasher())
	taskService := services.NewTaskService(repository.NewTaskRepository(db), extractor, cfg.DueDatePolicy)

	router, err := handlers.NewRouter(handlers.RouterDeps{
		DB:             db,
		AuthService:    authService,
		TaskService:    taskService,
		SessionStore:   store,
		Logger:         appLogger,
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		zap.L().Fatal("Failed to build router", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Server starting",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("session_store", cfg.SessionStore),
			zap.String("mail_driver", cfg.MailDriver),
			zap.Bool("ai_enabled", extractor != nil),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Server run failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP shutdown failed", zap.Error(err))
	}
}
