package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"skillbridge.io/marketplace/internal/bootstrap"
	"skillbridge.io/marketplace/internal/config"
	notifService "skillbridge.io/marketplace/internal/modules/notification/service"
	"skillbridge.io/marketplace/internal/server"
	"skillbridge.io/marketplace/pkg/database"
	"skillbridge.io/marketplace/pkg/logger"
	"skillbridge.io/marketplace/pkg/storage"
)

const (
	shutdownTimeout  = 15 * time.Second
	redisPingTimeout = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.AppEnv)

	db, err := database.Connect(cfg.Database.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}
	if cfg.IsDevelopment() {
		if err := bootstrap.SeedDemoUsers(db, log); err != nil {
			log.WithError(err).Fatal("failed to seed demo users")
		}
	}

	deps := server.Dependencies{
		DB:     db,
		Redis:  connectRedis(cfg.RedisURL, log),
		Mailer: newMailer(cfg, log),
	}

	if cfg.MeiliSearchHost != "" {
		deps.Meili = meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Warn("MEILISEARCH_HOST not set, project search falls back to the database")
	}

	if cfg.CloudinaryURL != "" || cfg.CloudinaryCloudName != "" {
		images, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryCloudName, cfg.CloudinaryUploadFolder)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize cloudinary storage")
		}
		deps.Images = images
	} else {
		log.Warn("cloudinary not configured, avatar uploads are disabled")
	}

	srv, err := server.NewServer(cfg, deps, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server exited with error")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	if deps.Redis != nil {
		_ = deps.Redis.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server stopped")
}

// connectRedis returns nil when redis is not configured or unreachable, so
// realtime push and shared rate limits are switched off rather than fatal.
func connectRedis(url string, log logrus.FieldLogger) *redis.Client {
	if url == "" {
		log.Warn("REDIS_URL not set, realtime notifications and shared rate limits are disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.WithError(err).Fatal("invalid REDIS_URL")
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable, continuing without it")
		_ = client.Close()
		return nil
	}

	log.WithField("addr", opts.Addr).Info("connected to redis")
	return client
}

func newMailer(cfg *config.Config, log logrus.FieldLogger) notifService.Mailer {
	if cfg.Email.Enabled {
		return notifService.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.From)
	}
	return notifService.NewLogMailer(log)
}
