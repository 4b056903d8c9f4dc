// Package main initializes and starts the site CMS API server, setting up
// configuration, logging, the database, repositories, services, handlers
// and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/auth"
	"github.com/atinyakov/ukarch-cms/internal/config"
	"github.com/atinyakov/ukarch-cms/internal/db"
	"github.com/atinyakov/ukarch-cms/internal/logger"
	"github.com/atinyakov/ukarch-cms/internal/mailer"
	"github.com/atinyakov/ukarch-cms/internal/middleware"
	"github.com/atinyakov/ukarch-cms/internal/repository"
	"github.com/atinyakov/ukarch-cms/internal/server/handler/http"
	"github.com/atinyakov/ukarch-cms/internal/service"
	"github.com/atinyakov/ukarch-cms/internal/storage"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if err := options.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, options.IsDevelopment()); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if err := run(options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(options *config.Options, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open SQLite and apply migrations before anything listens.
	conn, err := db.InitSQLite(ctx, options.DatabasePath, zapLogger)
	if err != nil {
		return fmt.Errorf("cannot init database: %w", err)
	}
	defer conn.Close()

	db.StartCleaner(ctx, conn, options.CleanupInterval, zapLogger)

	// Repositories.
	userRepo := repository.NewSQLiteUserRepository(conn)
	sessionRepo := repository.NewSQLiteSessionRepository(conn)
	settingsRepo := repository.NewSQLiteSettingsRepository(conn)

	// Remote object store and mail delivery fall back to stand-ins when unconfigured.
	var store service.ObjectStore = storage.Disabled{}
	if options.S3Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.Config{
			Endpoint:  options.S3Endpoint,
			Region:    options.S3Region,
			Bucket:    options.S3Bucket,
			AccessKey: options.S3AccessKey,
			SecretKey: options.S3SecretKey,
			PublicURL: options.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("cannot init object storage: %w", err)
		}
		store = s3Store
	} else {
		zapLogger.Warn("S3 bucket not configured, uploads are disabled")
	}

	var mail mailer.Mailer = &mailer.LogMailer{Log: zapLogger}
	if options.SendGridAPIKey != "" {
		mail = mailer.NewSendGridMailer(options.SendGridAPIKey, options.MailFrom, options.MailFromName)
	} else {
		zapLogger.Warn("SendGrid not configured, reset links are only logged")
	}

	// Business-logic services.
	authService, err := service.NewAuthService(userRepo, sessionRepo, auth.NewSessionSigner(options.SessionSecret),
		options.SessionTTL, options.BcryptCost, zapLogger)
	if err != nil {
		return err
	}
	resetService := service.NewResetService(userRepo, mail, options.PublicURL, options.BcryptCost, zapLogger)
	mediaService := service.NewMediaService(store,
		service.MediaLimits{Image: options.ImageMaxBytes, Video: options.VideoMaxBytes},
		options.UploadTimeout, options.S3Folder, zapLogger)
	settingsService := service.NewSettingsService(settingsRepo, mediaService, zapLogger)

	// First boot seeding.
	if err := settingsService.EnsureDefaults(ctx); err != nil {
		return fmt.Errorf("cannot seed settings: %w", err)
	}
	if _, err := authService.EnsureAdmin(ctx, options.AdminPassword, options.AdminEmail); err != nil {
		return fmt.Errorf("cannot seed admin: %w", err)
	}

	// HTTP handlers and router.
	router := http.NewRouter(http.Handlers{
		Auth: &http.AuthHandler{
			Auth:    authService,
			Reset:   resetService,
			Cookies: http.CookieConfig{Secure: !options.IsDevelopment(), MaxAge: options.SessionTTL},
			Log:     zapLogger,
		},
		Settings: &http.SettingsHandler{Settings: settingsService, MaxUploadBytes: options.ImageMaxBytes, Log: zapLogger},
		Upload: &http.UploadHandler{
			Media:         mediaService,
			MaxImageBytes: options.ImageMaxBytes,
			MaxVideoBytes: options.VideoMaxBytes,
			Log:           zapLogger,
		},
		Health: &http.HealthHandler{DB: conn, Version: cmp.Or(version, "dev"), Log: zapLogger},
	}, http.RouterOptions{
		Sessions:       authService,
		Limiter:        middleware.NewRateLimiter(options.LoginRatePerMinute),
		AllowedOrigins: allowedOrigins(options),
		Development:    options.IsDevelopment(),
		TrustProxy:     options.TrustProxy,
	}, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := options.TLSCertFile != "" && options.TLSKeyFile != ""
	if useTLS {
		cert, err := tls.LoadX509KeyPair(options.TLSCertFile, options.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load server TLS cert/key: %w", err)
		}
		server.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server",
			zap.String("addr", options.Address),
			zap.Bool("tls", useTLS),
			zap.String("env", options.Env))
		if useTLS {
			errCh <- server.ListenAndServeTLS("", "")
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// allowedOrigins is the production CORS allow-list. An empty list would
// allow every origin, so the public URL stands in for a missing frontend URL.
func allowedOrigins(options *config.Options) []string {
	return []string{cmp.Or(options.FrontendURL, options.PublicURL)}
}
