package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"callmanager_backend/internals/configs"
	database "callmanager_backend/internals/databases"
	subscriptionService "callmanager_backend/internals/features/subscriptions/service"
	scheduler "callmanager_backend/internals/features/users/auth/scheduler"
	helper "callmanager_backend/internals/helpers"
	"callmanager_backend/internals/helpers/cache"
	"callmanager_backend/internals/helpers/events"
	"callmanager_backend/internals/helpers/storage"
	middlewares "callmanager_backend/internals/middlewares"
	"callmanager_backend/internals/middlewares/logger"
	routes "callmanager_backend/internals/route"
	"callmanager_backend/internals/seeds"
)

// requests get a little more than the sync batch deadline
const requestTimeout = 30 * time.Second

func main() {
	configs.LoadEnv()
	log := zap.L()
	defer func() { _ = log.Sync() }()

	app := fiber.New(fiber.Config{
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler:          helper.ErrorHandler,
		BodyLimit:             32 << 20, // attendance batches carry base64 photos
		ProxyHeader:           fiber.HeaderXForwardedFor,
	})

	app.Use(middlewares.RecoveryMiddleware())
	app.Use(logger.LoggerMiddleware(log))
	app.Use(middlewares.MetricsMiddleware())
	app.Use(middlewares.CorsMiddleware(configs.App.AllowedOrigins))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
	app.Use(middlewares.GlobalRateLimiter())
	app.Use(func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	})

	// DB connect + pool + warm-up
	database.ConnectDB()
	database.TunePool()
	if err := database.AutoMigrate(database.DB); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
	database.WarmUpQueries()
	seeds.RunAllSeeds(database.DB)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	scheduler.StartBlacklistCleanupScheduler(bgCtx, database.DB, configs.App.BlacklistTTLDays)

	reportCache, redisClient := buildCache(log)
	publisher := events.New(configs.App.KafkaBrokers, configs.App.KafkaSyncTopic)

	images := storage.NewImageStore(storage.Options{
		Root:          configs.App.UploadDir,
		MaxBytes:      configs.App.ImageMaxBytes,
		MaxDimension:  configs.App.ImageMaxDimension,
		DecodeTimeout: configs.App.ImageDecodeTimeout,
	})

	gateway := subscriptionService.NewSnapGateway(configs.App.MidtransServerKey, configs.App.MidtransUseProd)
	if gateway == nil {
		log.Warn("MIDTRANS_SERVER_KEY is not set, subscription renewal is disabled")
	}
	renewals := subscriptionService.NewRenewals(database.DB, gateway,
		configs.App.MidtransServerKey, configs.App.MonthlyPrice)

	routes.SetupRoutes(app, routes.Deps{
		DB:       database.DB,
		Cache:    reportCache,
		Events:   publisher,
		Images:   images,
		Renewals: renewals,
	})

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 45 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		log.Info("listening", zap.String("port", configs.App.Port))
		if err := app.Listen("0.0.0.0:" + configs.App.Port); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown: stop accepting, drain, then close pools and writers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	stopBackground()
	if err := publisher.Close(); err != nil {
		log.Warn("event publisher close", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	database.Close()
}

// buildCache prefers redis so replicas share reports, and falls back to an
// in-process cache when REDIS_URL is unset or unreachable.
func buildCache(log *zap.Logger) (cache.Cache, *redis.Client) {
	ttl := configs.App.AnalyticsCacheTTL
	if configs.App.RedisURL != "" {
		client, err := cache.ConnectRedis(context.Background(), configs.App.RedisURL)
		if err == nil {
			log.Info("analytics cache: redis")
			return cache.NewRedisCache(client, "callmanager:"), client
		}
		log.Warn("redis unavailable, using in-memory cache", zap.Error(err))
	}
	log.Info("analytics cache: memory")
	return cache.NewMemoryCache(ttl, 2*ttl), nil
}
