package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/config"
	ghplatform "github.com/tilsley/repoproxy/apps/proxy/internal/platform/github"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/httpmw"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/ratelimit"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/telemetry"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/tokens"
	"github.com/tilsley/repoproxy/apps/proxy/internal/platform/validation"
	"github.com/tilsley/repoproxy/apps/proxy/internal/repos"
	"github.com/tilsley/repoproxy/apps/proxy/internal/repos/handler"
	"github.com/tilsley/repoproxy/apps/proxy/internal/repos/upstream"
	"github.com/tilsley/repoproxy/pkg/logging"
	"github.com/tilsley/repoproxy/schemas"
)

func main() {
	slog := logging.New("repoproxy")

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability ---

	tel, err := telemetry.New(ctx, telemetry.Settings{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.OTelServiceName,
		SampleRatio: cfg.OTelSampleRatio,
	})
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

	// --- Credentials ---

	chain := tokens.Chain{tokens.NewEnv(os.Getenv)}
	if cfg.AppConfigured() {
		app, err := ghplatform.NewAppInstallation(cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath, cfg.GitHubAPIURL)
		if err != nil {
			slog.Error("github app init failed", "error", err)
			os.Exit(1) //nolint:gocritic // nothing to flush yet
		}
		chain = append(chain, tokens.App{Minter: app})
		slog.Info("github app credentials enabled", "appID", cfg.AppID)
	}

	connect := func(token string) repos.Upstream {
		return upstream.New(ghplatform.NewTokenClient(token, cfg.GitHubAPIURL), upstream.WithTimeout(cfg.UpstreamTimeout))
	}
	svc := repos.NewService(chain, connect, repos.WithBundleConcurrency(cfg.BundleConcurrency))

	// --- HTTP ---

	validator, err := validation.New(schemas.OpenAPISpec)
	if err != nil {
		slog.Error("openapi validation middleware init failed", "error", err)
		os.Exit(1)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.OTelServiceName),
		httpmw.RequestID(),
		httpmw.AccessLog(slog),
		httpmw.CORS(),
	)
	if cfg.RedisAddr != "" && cfg.RateLimit > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close() //nolint:errcheck // shutdown path
		router.Use(ratelimit.New(rdb, cfg.RateLimit, time.Minute).Middleware(slog))
		slog.Info("rate limiting enabled", "redis", cfg.RedisAddr, "perMinute", cfg.RateLimit)
	}
	router.Use(validator)
	var routeOpts []handler.Option
	if cfg.TrustForwarded {
		routeOpts = append(routeOpts, handler.WithForwardedHeaders())
	}
	handler.RegisterRoutes(router, svc, slog, cfg.PublicBaseURL, routeOpts...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http shutdown failed", "error", err)
		}
	}()

	slog.Info("starting repoproxy", "port", cfg.Port, "upstream", cfg.GitHubAPIURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1) //nolint:gocritic // deferred shutdowns are best effort
	}
}
