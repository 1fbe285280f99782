package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	taskboard "go.pilab.hu/taskboard"
	apiecho "go.pilab.hu/taskboard/api/echo"
	"go.pilab.hu/taskboard/cache"
	redisstate "go.pilab.hu/taskboard/cache/redis"
	"go.pilab.hu/taskboard/client"
	"go.pilab.hu/taskboard/events"
	"go.pilab.hu/taskboard/internal/auth"
	"go.pilab.hu/taskboard/internal/federation"
	"go.pilab.hu/taskboard/internal/metrics"
	"go.pilab.hu/taskboard/internal/server"
	"go.pilab.hu/taskboard/internal/session"
	"go.pilab.hu/taskboard/internal/telemetry"
	"go.pilab.hu/taskboard/mcp"
	"go.pilab.hu/taskboard/services"
	"go.pilab.hu/taskboard/tracing"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	appLogger.Info(ctx, "Starting taskboard server", map[string]interface{}{
		"http_port":    cfg.HTTPPort,
		"base_url":     cfg.BaseURL,
		"store_driver": cfg.StoreDriver,
		"redis":        cfg.RedisURL != "",
		"otel_service": cfg.OtelServiceName,
	})

	tp, err := tracing.InitTracerProvider(ctx, cfg.OtelServiceName, cfg.OtelExporterEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer provider: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.InitCustomMetrics(reg)

	mp, err := telemetry.InitMeterProvider(reg)
	if err != nil {
		return fmt.Errorf("failed to initialize meter provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		telemetry.Shutdown(shutdownCtx, tp, mp)
	}()

	toolMetrics, err := telemetry.NewToolMetrics()
	if err != nil {
		return fmt.Errorf("failed to create tool metrics: %w", err)
	}

	store, err := openStore(ctx, true)
	if err != nil {
		return err
	}
	defer closeStore(store)

	hub := events.NewHub()
	var (
		publisher services.EventPublisher = hub
		bridge    *events.RedisBridge
		states    cache.LoginStateStore
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		opts.ContextTimeoutEnabled = true
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		bridge = events.NewRedisBridge(rdb, hub, "", appLogger)
		publisher = bridge
		states = redisstate.NewLoginStateStore(rdb, "taskboard")
	} else {
		memStates := cache.NewMemoryLoginStateStore()
		defer memStates.Stop()
		states = memStates
	}

	providerCfg := taskboard.NewDefaultConfig(cfg.BaseURL)
	providerCfg.AuthCodeTTL = cfg.AuthCodeTTL()
	providerCfg.AccessTokenTTL = cfg.AccessTokenTTL()

	sessions := session.NewStore(cfg.SessionTTL())
	projects := services.NewProjectService(store)
	tasks := services.NewTaskService(store, store, publisher)
	labels := services.NewLabelService(store)
	comments := services.NewCommentService(tasks, store, publisher)
	apiKeys := taskboard.NewAPIKeyService(store)
	tokens := taskboard.NewTokenService(store)
	oauthSvc := taskboard.NewOAuthService(store, store, providerCfg, appLogger)
	registry := client.NewRegistry(store, auth.NewBcryptSecretHasher(bcrypt.DefaultCost))

	provider, err := loginProvider()
	if err != nil {
		return err
	}
	login, err := apiecho.NewLoginAPI(provider, states, sessions, store, projects, cfg.BaseURL, cfg.CookieSecure)
	if err != nil {
		return fmt.Errorf("invalid BASE_URL: %w", err)
	}

	oauthAPI := apiecho.NewOAuth2API(oauthSvc, registry, projects, sessions, providerCfg)
	limiter := apiecho.NewRateLimiter(cfg.RateLimitPerMin)
	gateway := mcp.New(mcp.Deps{
		Config:   providerCfg,
		Tokens:   tokens,
		APIKeys:  apiKeys,
		Users:    store,
		Projects: projects,
		Tasks:    tasks,
		Labels:   labels,
		Comments: comments,
		Metrics:  toolMetrics,
		Logger:   appLogger,
	})

	httpServer := server.NewHTTPServer(cfg, appLogger, server.Options{
		Gatherer: reg,
		Health:   store.Ping,
		Routes: []server.RouteRegistrar{
			server.RouteFunc(func(e *echo.Echo) { oauthAPI.RegisterRoutes(e, limiter) }),
			login,
			apiecho.NewBoardAPI(projects, tasks, labels, comments, apiKeys, sessions),
			apiecho.NewStreamAPI(hub, projects, sessions),
			gateway,
		},
	})

	g, gctx := errgroup.WithContext(ctx)
	// Open task streams follow the server context so shutdown is not held up by them.
	httpServer.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		appLogger.Info(gctx, "HTTP server listening", map[string]interface{}{"port": cfg.HTTPPort})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return taskboard.NewSweeper(store, store, sessions, appLogger).Run(gctx, cfg.SweepInterval())
	})
	if bridge != nil {
		g.Go(func() error { return bridge.Run(gctx) })
	}

	err = g.Wait()
	appLogger.Info(context.Background(), "Server stopped")
	return err
}

// loginProvider returns nil when no GitHub app is configured; /login then answers 503.
func loginProvider() (federation.OAuth2Provider, error) {
	if cfg.GitHubClientID == "" {
		appLogger.Warn(context.Background(), "GITHUB_CLIENT_ID not set, interactive login is disabled")
		return nil, nil
	}
	gh, err := federation.NewGitHubProvider(federation.GitHubConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + "/login/callback",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure GitHub login: %w", err)
	}
	return gh, nil
}
