package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dannmaldonado/midiacore/config"
	"github.com/dannmaldonado/midiacore/handler"
	"github.com/dannmaldonado/midiacore/middleware"
	"github.com/dannmaldonado/midiacore/pkg/logger"
	"github.com/dannmaldonado/midiacore/service"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Open the database and prepare the schema
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	repo := service.NewGormRepository(db)
	if err := repo.Migrate(); err != nil {
		slog.Error("failed to migrate database schema", "error", err)
		os.Exit(1)
	}

	// Initialize services
	var documentSvc *service.DocumentService
	if cfg.Minio.Endpoint != "" {
		documentSvc, err = service.NewDocumentService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize document storage", "error", err)
			os.Exit(1)
		}
		if err := documentSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure document bucket", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("document storage not configured, uploads disabled")
	}

	directory := service.NewConfigDirectory(cfg)
	notifier := service.NewNotificationDispatcher(repo)
	workflowStore := service.NewWorkflowStore(repo, directory, notifier)
	renewals := service.NewRenewalInitiator(repo, notifier)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(repo, documentSvc)
	workflowHandler := handler.NewWorkflowHandler(workflowStore, renewals, repo)
	notificationHandler := handler.NewNotificationHandler(repo)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.PUT("/contracts/:id", contractHandler.Update)
		protected.POST("/contracts/:id/documents", contractHandler.UploadDocument)

		protected.GET("/contracts/:id/steps", workflowHandler.ListSteps)
		protected.POST("/contracts/:id/workflow", workflowHandler.Initiate)
		protected.POST("/contracts/:id/renew", workflowHandler.Renew)
		protected.POST("/steps/:id/assign", workflowHandler.Assign)
		protected.POST("/steps/:id/transition", workflowHandler.Transition)
		protected.GET("/workflow/templates", workflowHandler.ListTemplates)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}

	// Start the advisory deadline sweep
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeper := service.NewSweeper(notifier, time.Duration(cfg.Sweep.IntervalMinutes)*time.Minute)
	go sweeper.Run(sweepCtx)

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
