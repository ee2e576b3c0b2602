package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/wes-io-live/avatar-service/internal/avatar"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/cache"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/config"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/domain"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/handler"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/metrics"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/repository"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/service"
	"github.com/weiawesome/wes-io-live/avatar-service/internal/upload"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/database"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/jwt"
	pkglog "github.com/weiawesome/wes-io-live/avatar-service/pkg/log"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/middleware"
	"github.com/weiawesome/wes-io-live/avatar-service/pkg/pubsub"
	pkgstorage "github.com/weiawesome/wes-io-live/avatar-service/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: "avatar-service",
	})
	logger := pkglog.L()
	logger.Info().Msg("avatar-service starting")

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db, &domain.RealmModel{}, &domain.UserModel{}, &domain.RealmAuditLogModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	userRepo := repository.NewGormUserRepository(db)

	if cfg.Bootstrap.Realm != "" {
		realm, err := service.Bootstrap(context.Background(), userRepo, cfg.Bootstrap.Realm, cfg.Bootstrap.AdminEmail)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap realm")
		}
		logger.Info().Int64(pkglog.FieldRealmID, realm.ID).Str("realm", realm.StringID).Msg("realm bootstrapped")
	}

	// Initialize avatar storage
	var store pkgstorage.Storage
	var localBase string
	switch cfg.Storage.Type {
	case "s3":
		s3Store, err := pkgstorage.NewS3Storage(context.Background(), cfg.Storage.S3)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init s3 storage")
		}
		store = s3Store
		logger.Info().
			Str("endpoint", cfg.Storage.S3.Endpoint).
			Str("bucket", s3Store.GetBucket()).
			Msg("s3 storage initialised")
	default:
		localStore, err := pkgstorage.NewLocalStorage(cfg.Storage.Local)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init local storage")
		}
		store = localStore
		localBase = localStore.GetBasePath()
		logger.Info().Str("path", localBase).Msg("local storage initialised")
	}

	// Initialize avatar URL cache
	var urlCache cache.AvatarCache
	switch cfg.Cache.Driver {
	case "redis":
		redisCache, err := cache.NewRedisAvatarCache(cache.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Cache.Prefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis cache")
		}
		urlCache = redisCache
	case "memory":
		urlCache = cache.NewMemoryAvatarCache(cfg.Cache.MaxEntries, cfg.Cache.TTL, cfg.Cache.Prefix)
	default:
		urlCache = cache.NopCache{}
	}
	defer urlCache.Close()
	logger.Info().Str("driver", cfg.Cache.Driver).Msg("avatar cache initialised")

	// Initialize event publisher
	publisher, err := pubsub.NewPublisher(cfg.Events)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init event publisher")
	}
	defer publisher.Close()
	logger.Info().Str("driver", cfg.Events.Driver).Msg("event publisher initialised")

	// Initialize services
	resolver := avatar.NewResolver(cfg.Avatar.ResolverConfig())
	uploader := upload.NewImageUploader(store, resolver, cfg.Avatar.UploadConfig())
	avatarService := service.NewAvatarService(userRepo, uploader, resolver, urlCache, publisher, cfg.Cache.TTL)

	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessDuration, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init token manager")
	}
	authMiddleware := middleware.NewAuthMiddleware(tokens, service.NewPrincipalLoader(userRepo))

	httpHandler := handler.NewHandler(avatarService, authMiddleware, uploader.MaxSizeMiB())

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(metrics.GinMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	// Local uploads are served by this process unless a CDN URL is configured.
	if localBase != "" && strings.HasPrefix(cfg.Avatar.PublicURL, "/") {
		r.Static(cfg.Avatar.PublicURL, localBase)
	}

	httpHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down avatar-service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("avatar-service stopped")
}
