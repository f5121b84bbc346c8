package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/edxco/properlia/internal/handler"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/internal/notification"
	"github.com/edxco/properlia/internal/pagination"
	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/internal/router"
	"github.com/edxco/properlia/internal/seed"
	"github.com/edxco/properlia/pkg/blob"
	"github.com/edxco/properlia/pkg/cache"
	"github.com/edxco/properlia/pkg/config"
	"github.com/edxco/properlia/pkg/database"
	"github.com/edxco/properlia/pkg/jwtutil"
	"github.com/edxco/properlia/pkg/logger"
	"github.com/edxco/properlia/pkg/mailer"
	"go.uber.org/zap"
)

const serviceName = "properlia"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer func() { _ = log.Sync() }()
	log.Info("Starting properlia API...", cfg.LogFields()...)

	ctx := logger.WithContext(context.Background(), log)

	// Initialize database
	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(db, model.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migrated")

	if cfg.Seed.ReferenceData {
		if err := seed.ReferenceData(ctx, db); err != nil {
			log.Fatal("Failed to seed reference data", zap.Error(err))
		}
	}
	if cfg.Seed.AdminEmail != "" && cfg.Seed.AdminPassword != "" {
		if err := seed.Admin(ctx, repository.NewUserRepository(db), cfg.Seed.AdminEmail, cfg.Seed.AdminPassword, cfg.Seed.AdminName); err != nil {
			log.Fatal("Failed to seed admin user", zap.Error(err))
		}
	}

	blobs, err := blob.NewDiskStore(cfg.Storage.Root)
	if err != nil {
		log.Fatal("Failed to open blob storage", zap.Error(err))
	}

	var listCache handler.ListCache
	if cfg.Redis.Addr != "" {
		c, err := cache.New(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
			Prefix:   serviceName,
		})
		if err != nil {
			log.Warn("List cache disabled", zap.Error(err))
		} else {
			defer c.Close()
			listCache = c
			log.Info("List cache connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	if cfg.Mail.APIKey == "" {
		log.Warn("RESEND_API_KEY is not configured, emails will fail")
	}
	dispatcher := notification.NewDispatcher(
		mailer.NewResend(cfg.Mail.APIKey, cfg.Mail.FromAddress),
		repository.NewGeneralInfoRepository(db),
		notification.Options{FrontendURL: cfg.FrontendURL, Timeout: cfg.Mail.Timeout},
		log,
	)

	e := router.New(router.Deps{
		DB:          db,
		Blobs:       blobs,
		Signer:      blob.NewSigner(cfg.JWT.SigningKey, cfg.Storage.BaseURL, cfg.Storage.URLTTL),
		JWT:         jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: cfg.JWT.SigningKey, ExpirationHours: cfg.JWT.ExpirationHours}),
		Dispatcher:  dispatcher,
		Cache:       listCache,
		Limits:      pagination.Limits{DefaultItems: cfg.Pagination.DefaultItems, MaxItems: cfg.Pagination.MaxItems},
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORS.Origins,
		BodyLimit:   cfg.Server.BodyLimit,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErrors:
		log.Error("Server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	// Let pending confirmation emails finish
	dispatcher.Wait()
	log.Info("Server stopped")
}
