package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/marcwilliam910/scm/internal/config"
	"github.com/marcwilliam910/scm/internal/handler"
	"github.com/marcwilliam910/scm/internal/hub"
	"github.com/marcwilliam910/scm/internal/mail"
	"github.com/marcwilliam910/scm/internal/middleware"
	"github.com/marcwilliam910/scm/internal/repository"
	"github.com/marcwilliam910/scm/internal/service"
	"github.com/marcwilliam910/scm/internal/storage"
	pkglog "github.com/marcwilliam910/scm/pkg/log"
	"github.com/marcwilliam910/scm/pkg/token"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Connect to MongoDB
	db, err := repository.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure indexes")
	}
	logger.Info().Str("database", cfg.Mongo.Database).Msg("mongodb connected")

	// Redis-backed one-time token store
	tokenStore, err := repository.NewRedisTokenStore(cfg.Redis, cfg.Auth.VerifyTokenTTL, cfg.Auth.ResetTokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer tokenStore.Close()

	// File storage
	store, err := initStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	mailer := mail.NewMailer(cfg.Mail)
	tokenManager := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.Issuer)

	// Repositories
	userRepo := repository.NewMongoUserRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	conversationRepo := repository.NewMongoConversationRepository(db)

	// Realtime hub
	chatHub := hub.NewHub()
	go chatHub.Run()
	defer chatHub.Stop()

	// Services
	authService := service.NewAuthService(userRepo, tokenStore, tokenManager, mailer, store, cfg.App.BaseURL)
	productService := service.NewProductService(productRepo, userRepo, store)
	conversationService := service.NewConversationService(conversationRepo, userRepo)
	chatService := service.NewChatService(conversationRepo, chatHub)

	authMiddleware := middleware.NewAuthMiddleware(tokenManager, userRepo)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(*logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Locally stored uploads are served by this process; S3 serves its own.
	if local, ok := store.(*storage.LocalStorage); ok {
		r.Static("/uploads", local.BasePath())
	}

	// Register routes
	handler.NewAuthHandler(authService, authMiddleware).RegisterRoutes(r)
	handler.NewProductHandler(productService, authMiddleware).RegisterRoutes(r)
	handler.NewConversationHandler(conversationService, authMiddleware).RegisterRoutes(r)
	handler.NewWSHandler(chatHub, chatService, tokenManager, cfg.WebSocket).RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// initStorage initializes the storage backend based on configuration.
func initStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Storage(ctx, cfg.Storage.S3)
	case "local":
		return storage.NewLocalStorage(cfg.Storage.Local)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}
