// Package main is the entry point for the Catalogo API server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalogo/internal/auth"
	"catalogo/internal/cache"
	"catalogo/internal/config"
	"catalogo/internal/database"
	"catalogo/internal/handlers"
	"catalogo/internal/importer"
	"catalogo/internal/middleware"
	"catalogo/internal/router"
	"catalogo/internal/session"
	"catalogo/internal/storage"
	"catalogo/internal/store"
)

func main() {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured logger: JSON in production, text in development.
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var logHandler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.IsDev() {
		logHandler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(logHandler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"public_reads", cfg.PublicReads,
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (refresh tokens + tree cache).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	tokenStore := session.NewStore(valkeyClient)
	treeCache := cache.NewTreeCache(valkeyClient, cache.DefaultTreeTTL)

	// Object storage: S3 when configured, local disk otherwise.
	var backend storage.Backend
	if cfg.UseS3() {
		client, err := storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", client.Bucket())
		backend = client
	} else {
		local, err := storage.NewLocal(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			slog.Error("failed to initialize local storage", "error", err)
			os.Exit(1)
		}
		slog.Info("local storage ready", "root", local.Root())
		backend = local
	}

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	profileStore := store.NewProfileStore(db)
	catalogStore := store.NewCatalogStore(db)
	categoryStore := store.NewCategoryStore(db)
	fileStore := store.NewFileStore(db)
	libraryStore := store.NewLibraryStore(db)

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		slog.Error("failed to initialize token issuer", "error", err)
		os.Exit(1)
	}

	loginLimiter := middleware.NewRateLimiter(10, time.Minute).TrustProxies(cfg.TrustedProxies)
	defer loginLimiter.Stop()

	// Create handler groups with their dependencies.
	api := handlers.NewAPI(handlers.APIConfig{
		Catalogs:       catalogStore,
		Categories:     categoryStore,
		Files:          fileStore,
		Library:        libraryStore,
		Importer:       importer.New(libraryStore, catalogStore, categoryStore, fileStore),
		Storage:        backend,
		Trees:          treeCache,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	})
	authHandlers := handlers.NewAuth(userStore, profileStore, tokenStore, issuer)
	health := handlers.NewHealth(map[string]handlers.Check{
		"database": db.PingContext,
		"valkey": func(ctx context.Context) error {
			return valkeyClient.Ping(ctx).Err()
		},
	})

	// Set up the Chi router with all middleware and routes.
	r := router.New(router.Config{
		Verifier:     issuer,
		PublicReads:  cfg.PublicReads,
		CORSOrigins:  cfg.CORSOrigins,
		LoginLimiter: loginLimiter,
		API:          api,
		Auth:         authHandlers,
		Media:        handlers.NewMedia(backend),
		Health:       health,
	})

	// WriteTimeout must accommodate large uploads and media downloads.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
