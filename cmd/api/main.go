package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leafsii/leafsii-cms/internal/api"
	"github.com/leafsii/leafsii-cms/internal/config"
	"github.com/leafsii/leafsii-cms/internal/content"
	gdb "github.com/leafsii/leafsii-cms/internal/db"
	"github.com/leafsii/leafsii-cms/internal/identity"
	"github.com/leafsii/leafsii-cms/internal/log"
	"github.com/leafsii/leafsii-cms/internal/mail"
	"github.com/leafsii/leafsii-cms/internal/media"
	"github.com/leafsii/leafsii-cms/internal/metrics"
	"github.com/leafsii/leafsii-cms/internal/settings"
	"github.com/leafsii/leafsii-cms/internal/store"
	"github.com/leafsii/leafsii-cms/pkg/kv"

	_ "github.com/leafsii/leafsii-cms/pkg/kv/memory"
	_ "github.com/leafsii/leafsii-cms/pkg/kv/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting CMS admin server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db", cfg.Database.Type,
		"kv", cfg.Cache.Backend,
	)
	if cfg.SecretKey == config.DefaultSecretKey {
		logger.Warnw("Using the default secret key; set CMS_SECRET_KEY outside development")
	}

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("cms-admin")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Database
	database, err := gdb.NewDatabase(&gdb.Config{
		Type:         cfg.Database.Type,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	}, logger)
	if err != nil {
		logger.Fatalw("Failed to create database", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := gdb.ConnectAndMigrate(ctx, database, gdb.AllSchemas()); err != nil {
		logger.Fatalw("Failed to initialize database", "error", err)
	}
	defer database.Disconnect(context.Background())
	logger.Infow("Database initialized")

	// Session store
	kvStore, err := kv.NewStoreFromConfig(kv.Config{
		Backend:  kv.Backend(cfg.Cache.Backend),
		RedisURL: cfg.Cache.RedisURL,
		Logger:   logger.Infow,
	})
	if err != nil {
		logger.Fatalw("Failed to setup session store", "error", err)
	}
	cache := store.NewCache(kvStore, logger)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		logger.Fatalw("Session store ping failed", "error", err)
	}

	// Services
	identitySvc := identity.NewService(database, identity.Options{ResetTokenTTL: cfg.Session.ResetTokenTTL}, metricsObj, logger)
	contentSvc := content.NewService(database, content.Options{StrictCategoryTree: cfg.Content.StrictCategoryTree}, metricsObj, logger)
	settingsSvc := settings.NewService(database, settings.Defaults{
		SiteName:          "My CMS",
		SiteDescription:   "A simple content management system",
		PostsPerPage:      10,
		MailServer:        cfg.Mail.Server,
		MailPort:          cfg.Mail.Port,
		MailUseTLS:        cfg.Mail.UseTLS,
		MailUsername:      cfg.Mail.Username,
		MailDefaultSender: cfg.Mail.DefaultSender,
	}, metricsObj, logger)

	blobs, err := media.NewLocalFS(cfg.Uploads.Dir)
	if err != nil {
		logger.Fatalw("Failed to prepare upload directory", "dir", cfg.Uploads.Dir, "error", err)
	}
	mediaSvc := media.NewService(database, blobs, media.Options{MaxBytes: cfg.Uploads.MaxBytes}, metricsObj, logger)

	mailer := mail.NewSMTPSender(settingsSvc, cfg.Mail, logger).OnUnconfigured(mail.NewLogSender(logger))

	if cfg.Admin.Username != "" {
		admin, created, err := identitySvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			logger.Fatalw("Failed to ensure admin user", "error", err)
		}
		if created {
			logger.Warnw("Created bootstrap admin; change its password after first login", "username", admin.Username)
		}
	}

	// Setup API handler and middleware
	handler, err := api.NewHandler(api.Deps{
		Config:   cfg,
		Database: database,
		Cache:    cache,
		Sessions: store.NewSessions(cache, store.SessionOptions{
			TTL:         cfg.Session.TTL,
			RememberTTL: cfg.Session.RememberTTL,
		}, metricsObj),
		Throttle: store.NewLoginThrottle(kvStore, cfg.Security.LoginMaxAttempts, cfg.Security.LoginWindow),
		Identity: identitySvc,
		Content:  contentSvc,
		Media:    mediaSvc,
		Blobs:    blobs,
		Settings: settingsSvc,
		Mailer:   mailer,
		Metrics:  metricsObj,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalw("Failed to build handler", "error", err)
	}
	middleware := api.NewMiddleware(logger, metricsObj)
	router := handler.Routes(middleware, metricsHandler)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server startup failed", "error", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
