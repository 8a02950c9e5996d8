package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker/internal/constants"
	apierrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/middleware"
	"github.com/yukikurage/task-tracker/internal/services"
	"github.com/yukikurage/task-tracker/internal/web"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// RouterDeps holds everything the HTTP layer needs.
type RouterDeps struct {
	DB           *gorm.DB
	AuthService  *services.AuthService
	TaskService  *services.TaskService
	SessionStore sessions.Store
	Logger       *zap.Logger
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(deps RouterDeps) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.L()
	}

	templates, err := web.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(templates)

	router.Use(
		middleware.RequestID(),
		ginzap.GinzapWithConfig(logger, &ginzap.Config{
			TimeFormat: time.RFC3339,
			UTC:        true,
			SkipPaths:  []string{"/health", "/metrics"},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString(constants.ContextKeyRequestID); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString(constants.ContextKeyUserEmail); v != "" {
					fields = append(fields, zap.String("user_email", v))
				}

				return fields
			},
		}),
		ginzap.RecoveryWithZap(logger, true),
		middleware.Metrics(),
		sessions.Sessions(constants.SessionCookieName, deps.SessionStore),
	)

	router.NoRoute(apierrors.NotFound)

	authHandler := NewAuthHandler(deps.AuthService)
	taskHandler := NewTaskHandler(deps.TaskService)
	healthHandler := NewHealthHandler(deps.DB)

	// GET /health		-> Liveness and database check
	router.GET("/health", healthHandler.Health)

	if deps.MetricsHandler != nil {
		// GET /metrics		-> Prometheus exposition
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	// Public pages
	router.GET("/", authHandler.Index)
	router.POST("/login", authHandler.Login)
	router.POST("/register", authHandler.Register)
	router.POST("/verify-otp", authHandler.VerifyOTP)
	router.GET("/logout", authHandler.Logout)
	router.GET("/otp", authHandler.OTPPage)
	router.POST("/otp/resend", middleware.RequirePendingOTP(), authHandler.ResendOTP)

	requireAuth := middleware.RequireAuth(deps.AuthService)

	router.GET("/dashboard", requireAuth, taskHandler.Dashboard)

	tasks := router.Group("/tasks", requireAuth)
	{
		tasks.POST("/add", taskHandler.AddTask)
		tasks.POST("/generate", taskHandler.GenerateTasks)
		tasks.GET("/complete/:task_id", taskHandler.CompleteTask)
		tasks.GET("/delete/:task_id", taskHandler.DeleteTask)
	}

	return router, nil
}
