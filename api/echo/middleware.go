package echo

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.pilab.hu/taskboard/domain"
	oautherr "go.pilab.hu/taskboard/errors"
	"go.pilab.hu/taskboard/internal/session"
	"golang.org/x/time/rate"
)

const sessionContextKey = "taskboard.session"

// SessionAuth resolves the session cookie. With required set, requests
// without a live session are answered with 401.
func SessionAuth(sessions *session.Store, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := lookupSession(c, sessions)
			if sess == nil {
				if required {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
				}
				return next(c)
			}

			c.Set(sessionContextKey, sess)
			ctx := domain.WithPrincipal(c.Request().Context(), &domain.Principal{
				Kind:      domain.PrincipalSession,
				UserID:    sess.UserID,
				AgentName: sess.UserName,
			})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func lookupSession(c echo.Context, sessions *session.Store) *session.Session {
	cookie, err := c.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := sessions.Get(cookie.Value)
	if err != nil {
		return nil
	}
	return sess
}

// currentSession returns the session set by SessionAuth, or nil.
func currentSession(c echo.Context) *session.Session {
	sess, _ := c.Get(sessionContextKey).(*session.Session)
	return sess
}

// RateLimiter enforces per-client throttling.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter for the provided requests-per-minute budget.
// A non-positive budget disables limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   max(requestsPerMinute/10, 1),
		window:  5 * time.Minute,
		clients: make(map[string]*clientLimiter),
	}
}

// Middleware answers 429 with an OAuth style error once a client's burst is spent.
func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if r == nil {
			return next
		}
		return func(c echo.Context) error {
			if !r.getLimiter(c.RealIP()).Allow() {
				return c.JSON(http.StatusTooManyRequests, oautherr.NewRateLimited())
			}
			return next(c)
		}
	}
}

func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.clients[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(r.limit, r.burst)
	r.clients[key] = &clientLimiter{limiter: limiter, lastSeen: now}
	r.cleanupLocked(now)
	return limiter
}

func (r *RateLimiter) cleanupLocked(now time.Time) {
	for key, entry := range r.clients {
		if now.Sub(entry.lastSeen) > r.window {
			delete(r.clients, key)
		}
	}
}

// noStore marks a response as uncacheable.
func noStore(c echo.Context) {
	h := c.Response().Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}
