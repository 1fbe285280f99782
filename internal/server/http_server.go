package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.pilab.hu/taskboard/config"
	"go.pilab.hu/taskboard/log"
)

// RouteRegistrar mounts a group of handlers.
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo)
}

// RouteFunc adapts a plain function to RouteRegistrar.
type RouteFunc func(e *echo.Echo)

func (f RouteFunc) RegisterRoutes(e *echo.Echo) { f(e) }

// Options are the pieces the router is assembled from.
type Options struct {
	Gatherer prometheus.Gatherer             // served at /metrics, may be nil
	Health   func(ctx context.Context) error // backs /healthz, may be nil
	Routes   []RouteRegistrar
}

// NewRouter creates the echo instance with the shared middleware stack.
func NewRouter(cfg *config.ServerConfig, appLogger log.Logger, opts Options) *echo.Echo {
	appLogger = log.OrNop(appLogger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Validated when the config is loaded.
	proxies, _ := cfg.TrustedProxyRanges()
	e.IPExtractor = ClientIPExtractor(proxies)

	e.Use(middleware.Recover())
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	e.Use(requestLogger(appLogger))

	e.GET("/healthz", healthHandler(opts.Health))
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	for _, r := range opts.Routes {
		r.RegisterRoutes(e)
	}

	return e
}

// NewHTTPServer wraps the traced router in an http.Server.
// There is no write timeout because task streams stay open.
func NewHTTPServer(cfg *config.ServerConfig, appLogger log.Logger, opts Options) *http.Server {
	handler := otelhttp.NewHandler(NewRouter(cfg, appLogger, opts), cfg.OtelServiceName,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ClientIPExtractor decides what c.RealIP returns, which keys rate limiting and
// is recorded on sessions. Forwarding headers are honored only when the peer is
// one of the trusted proxies.
func ClientIPExtractor(trustedProxies []*net.IPNet) echo.IPExtractor {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, r := range trustedProxies {
		opts = append(opts, echo.TrustIPRange(r))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := log.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency":    time.Since(start).String(),
				"ip":         c.RealIP(),
				"user_agent": req.UserAgent(),
			}
			if err != nil {
				appLogger.Error(req.Context(), "HTTP Request", err, fields)
			} else {
				appLogger.Info(req.Context(), "HTTP Request", fields)
			}
			return nil
		}
	}
}

func healthHandler(check func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
