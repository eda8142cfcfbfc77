package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"telegram-shop-backend/internal/common/cache"
	"telegram-shop-backend/internal/common/config"
	"telegram-shop-backend/internal/common/logger"
	"telegram-shop-backend/internal/common/middleware"
	authhttp "telegram-shop-backend/internal/features/auth/delivery/http"
	authpg "telegram-shop-backend/internal/features/auth/repository/postgres"
	authservice "telegram-shop-backend/internal/features/auth/service"
	broadcasthttp "telegram-shop-backend/internal/features/broadcast/delivery/http"
	broadcastservice "telegram-shop-backend/internal/features/broadcast/service"
	shophttp "telegram-shop-backend/internal/features/shop/delivery/http"
	shoppg "telegram-shop-backend/internal/features/shop/repository/postgres"
	shopservice "telegram-shop-backend/internal/features/shop/service"
	subscriptionhttp "telegram-shop-backend/internal/features/subscription/delivery/http"
	subscriptionpg "telegram-shop-backend/internal/features/subscription/repository/postgres"
	subscriptionservice "telegram-shop-backend/internal/features/subscription/service"
	"telegram-shop-backend/internal/platform/postgres"
	platformredis "telegram-shop-backend/internal/platform/redis"
	"telegram-shop-backend/internal/platform/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("telegram-shop-backend", cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	pg, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pg.Close()

	rdb, err := platformredis.Open(ctx, cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	cacheService := cache.NewCacheService(rdb)
	tg := telegram.NewClient(cfg.Telegram.BotToken)

	userRepo := authpg.NewUserRepository(pg.GetDB())
	channelRepo := subscriptionpg.NewChannelRepository(pg.GetDB())
	shopRepo := shoppg.NewShopRepository(pg.GetDB())

	verifier := authservice.NewVerifier(cfg.Telegram.BotToken, cfg.InitDataMaxAge)
	authSvc := authservice.NewAuthService(verifier, userRepo)
	subscriptionSvc := subscriptionservice.NewSubscriptionService(channelRepo, tg, cacheService, cfg.SubscriptionCacheTTL)
	broadcastSvc := broadcastservice.NewService(tg)
	notifier := shopservice.NewAdminNotifier(tg, cfg.Telegram.AdminChatID)
	shopSvc := shopservice.NewShopService(shopRepo, notifier)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Telegram-Init-Data"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.TelegramInitData(verifier))

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		if err := pg.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	authhttp.NewHandler(authSvc).Register(api)
	subscriptionhttp.NewHandler(subscriptionSvc).Register(api)
	shophttp.NewHandler(shopSvc).Register(api)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireAdmin(cfg.Telegram.AdminIDs))
	broadcasthttp.NewHandler(broadcastSvc, userRepo).Register(admin)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}
	logger.Info().Msg("Server stopped")
}
