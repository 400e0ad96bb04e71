// Package main is the entry point for the media portal server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediaportal/internal/access"
	"mediaportal/internal/cache"
	"mediaportal/internal/config"
	"mediaportal/internal/database"
	"mediaportal/internal/handlers"
	"mediaportal/internal/middleware"
	"mediaportal/internal/router"
	"mediaportal/internal/session"
	"mediaportal/internal/storage"
	"mediaportal/internal/store"
)

func main() {
	// Structured logger — outputs JSON in production, text in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
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

	// Seed the bootstrap administrator (no-op once users exist).
	if err := database.Seed(db); err != nil {
		slog.Error("failed to seed database", "error", err)
		os.Exit(1)
	}

	// Connect to Valkey (Redis-compatible cache + session store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Initialize session store backed by Valkey.
	// In non-development environments, mark session cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	roleStore := store.NewRoleStore(db)
	categoryStore := store.NewCategoryStore(db)
	materialStore := store.NewMaterialStore(db)
	auditStore := store.NewAuditStore(db)

	// Connect to S3-compatible object storage (optional — the portal runs
	// without it, with uploads and downloads disabled).
	var storageClient *storage.Client
	if cfg.S3Endpoint != "" && cfg.S3AccessKey != "" {
		storageClient, err = storage.New(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket,
		)
		if err != nil {
			slog.Error("failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		if storageClient != nil {
			slog.Info("s3 storage connected",
				"endpoint", cfg.S3Endpoint,
				"bucket", cfg.S3Bucket,
			)
		}
	} else {
		slog.Warn("s3 storage not configured — material uploads disabled")
	}

	// Category access resolution, with the per-role resolved set cached
	// in Valkey for listing filters.
	resolver := access.NewResolver(categoryStore)
	accessCache := cache.NewAccessCache(valkeyClient, cache.DefaultAccessTTL)
	authorizer := middleware.NewAuthorizer(roleStore, access.NewCachedResolver(resolver, accessCache))

	// Create handler groups with their dependencies.
	deps := router.Deps{
		Sessions:   sessionStore,
		Authorizer: authorizer,
		Secure:     secureCookies,
		Auth:       handlers.NewAuth(sessionStore, userStore, roleStore, auditStore),
		Categories: handlers.NewCategories(categoryStore, resolver, auditStore, accessCache),
		Materials:  handlers.NewMaterials(materialStore, resolver, storageClient, auditStore),
		Users:      handlers.NewUsers(userStore, roleStore, auditStore),
		Roles:      handlers.NewRoles(roleStore, categoryStore, auditStore, accessCache),
		Logs:       handlers.NewLogs(auditStore),
	}

	// Set up the Chi router with all middleware and routes.
	r := router.New(deps)

	// Create the HTTP server with sensible timeouts. ReadTimeout covers
	// multipart material uploads, which can run long on slow links.
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
