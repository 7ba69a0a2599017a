package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pushnotify/internal/cache"
	"pushnotify/internal/config"
	"pushnotify/internal/database"
	"pushnotify/internal/handler"
	"pushnotify/internal/redis"
	"pushnotify/internal/repository"
	"pushnotify/internal/service"
)

// Run loads configuration, connects collaborators, wires the dependency
// graph, and serves HTTP until interrupted.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	// Redis backs the unread-count cache. It is optional: without it the
	// service answers every unread-count request from Postgres.
	var redisClient *redis.Client
	var unreadCache cache.UnreadCache
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer redisClient.Close()

		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		unreadCache = cache.NewRedisUnreadCache(redisClient.Client)
		log.Println("Connected to redis successfully")
	} else {
		log.Println("REDIS_URL not set, unread-count caching disabled")
	}

	// The FCM client is also optional: internal notifications work without
	// push credentials, and push requests then fail with a clear 500.
	var sender service.PushSender
	if cfg.PushConfigured() {
		fcmClient, err := service.NewFCMClient(ctx, cfg.FirebaseProjectID, cfg.FirebaseClientEmail, cfg.FirebasePrivateKey)
		if err != nil {
			return fmt.Errorf("failed to create fcm client: %w", err)
		}
		sender = fcmClient
	} else {
		log.Println("Firebase credentials not set, push delivery disabled")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	// Expired refresh tokens accumulate forever without a sweep; run one now
	// and then daily in the background.
	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go sweepExpiredTokens(sweepCtx, refreshTokenRepo)

	// Services
	userService := service.NewUserService(userRepo)
	authService := service.NewAuthService(refreshTokenRepo, userRepo, cfg)
	pushService := service.NewPushService(deviceRepo, sender)
	notifService := service.NewNotificationService(notifRepo, userRepo, unreadCache)

	// Handlers
	authHandler := handler.NewAuthHandler(userService, authService)
	notifHandler := handler.NewNotificationHandler(pushService, notifService)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.PushConfigured())

	router := NewRouter(RouterConfig{
		AuthHandler:         authHandler,
		NotificationHandler: notifHandler,
		HealthHandler:       healthHandler,
		JWTSecret:           cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// tokenRetention keeps expired refresh tokens around for a while so the
// reuse-detection audit trail outlives the tokens themselves.
const tokenRetention = 30 * 24 * time.Hour

// sweepExpiredTokens deletes long-expired refresh tokens, immediately and
// then once a day, until the context is cancelled.
func sweepExpiredTokens(ctx context.Context, repo repository.RefreshTokenRepository) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		deleted, err := repo.DeleteExpired(ctx, tokenRetention)
		if err != nil {
			log.Printf("[Auth] Expired token sweep failed: %v", err)
		} else if deleted > 0 {
			log.Printf("[Auth] Swept %d expired refresh tokens", deleted)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
