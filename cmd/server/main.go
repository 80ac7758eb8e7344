package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nawsaafa/talents-acting-sub003/internal/config"
	"github.com/nawsaafa/talents-acting-sub003/internal/handler"
	"github.com/nawsaafa/talents-acting-sub003/internal/middleware"
	"github.com/nawsaafa/talents-acting-sub003/internal/repository"
	"github.com/nawsaafa/talents-acting-sub003/internal/service"
	"github.com/nawsaafa/talents-acting-sub003/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Log.Level)

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	repos := repository.NewRepositories(pool, rdb, appLogger)
	services := service.NewServices(repos, cfg, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	handlers := handler.NewHandlers(services, cfg, appLogger)

	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Check)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/auth")
		{
			public.POST("/register", rateLimitMiddleware.Limit("auth", 20, time.Minute), handlers.Auth.Register)
			public.POST("/login", rateLimitMiddleware.Limit("auth", 20, time.Minute), handlers.Auth.Login)
			public.POST("/refresh", handlers.Auth.RefreshToken)
			public.POST("/logout", handlers.Auth.Logout)
		}

		// Billing callback, authenticated by shared secret rather than JWT.
		v1.POST("/billing/subscription-status", handlers.Subscription.UpdateStatus)

		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.GET("/me", handlers.Auth.GetMe)

			talents := protected.Group("/talents")
			{
				talents.GET("/:id/contactability", handlers.Messaging.Contactability)
				talents.POST("/:id/contact",
					rateLimitMiddleware.Limit("send", cfg.Messaging.SendRateLimit, cfg.Messaging.SendRateWindow),
					handlers.Messaging.StartConversation)
			}

			conversations := protected.Group("/conversations")
			{
				conversations.GET("", handlers.Messaging.ListConversations)
				conversations.GET("/:id", handlers.Messaging.GetConversation)
				conversations.GET("/:id/messages", handlers.Messaging.GetMessages)
				conversations.POST("/:id/messages",
					rateLimitMiddleware.Limit("send", cfg.Messaging.SendRateLimit, cfg.Messaging.SendRateWindow),
					handlers.Messaging.SendMessage)
			}
		}
	}

	// WebSocket stream, authenticated and view-checked like the HTTP reads.
	router.GET("/ws/conversations/:id", authMiddleware.RequireAuth(), handlers.WebSocket.StreamConversation)

	return router
}
