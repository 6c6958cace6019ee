package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tilsley/repofetch/apps/server/internal/platform/config"
	"github.com/tilsley/repofetch/apps/server/internal/platform/telemetry"
	"github.com/tilsley/repofetch/apps/server/internal/platform/validation"
	"github.com/tilsley/repofetch/apps/server/internal/repos/handler"
	"github.com/tilsley/repofetch/pkg/githost"
	"github.com/tilsley/repofetch/pkg/logging"
	"github.com/tilsley/repofetch/pkg/repofiles"
	"github.com/tilsley/repofetch/schemas"
)

func main() {
	slog := logging.New(telemetry.DefaultServiceName)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	// --- Observability ---

	// Default the service name before any OTel init.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		os.Setenv("OTEL_SERVICE_NAME", telemetry.DefaultServiceName) //nolint:errcheck
	}

	ctx := context.Background()
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		slog.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// --- Platform: GitHub ---

	cfg.GitHub.Log = slog
	gh, err := githost.NewClient(cfg.GitHub)
	if err != nil {
		slog.Error("github client init failed", "error", err)
		os.Exit(1)
	}
	host := githost.New(gh)

	// --- Stores ---

	stores, err := openStores(ctx, cfg, slog)
	if err != nil {
		slog.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	// --- Service + HTTP ---

	exclusions := repofiles.NewExclusionSet(cfg.Exclusions...)
	svc := repofiles.NewService(host, repofiles.Config{
		Host:        cfg.RepoHost,
		MaxInFlight: cfg.MaxInFlight,
		Exclusions:  &exclusions,
	}, stores.cache, stores.recorder, slog)

	if cfg.WarmupURL != "" {
		go warmup(svc, cfg.WarmupURL, slog)
	}

	router := gin.New()

	validator, err := validation.New(schemas.OpenAPISpec)
	if err != nil {
		slog.Error("openapi validation middleware init failed", "error", err)
		os.Exit(1)
	}

	router.Use(gin.Recovery(), otelgin.Middleware(telemetry.ServiceName()), validator)
	handler.RegisterRoutes(router, svc, slog)

	slog.Info("starting repofetch",
		"port", cfg.Port, "repoHost", cfg.RepoHost, "maxInFlight", cfg.MaxInFlight,
		"exclusions", len(exclusions.Names()))
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
