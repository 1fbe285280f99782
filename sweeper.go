package taskboard

import (
	"context"
	"fmt"
	"time"

	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/metrics"
	"go.pilab.hu/taskboard/log"
)

// SessionCleaner drops expired interactive sessions.
type SessionCleaner interface {
	CleanupExpiredSessions() int
}

// SweepResult counts what a sweep removed.
type SweepResult struct {
	AuthCodes int64
	Tokens    int64
	Sessions  int
}

// Sweeper purges expired authorization codes, access tokens and web sessions.
type Sweeper struct {
	codes    domain.AuthCodeRepository
	tokens   domain.TokenRepository
	sessions SessionCleaner // optional
	logger   log.Logger
	now      func() time.Time
}

// NewSweeper creates a sweeper. sessions may be nil.
func NewSweeper(codes domain.AuthCodeRepository, tokens domain.TokenRepository, sessions SessionCleaner, logger log.Logger) *Sweeper {
	return &Sweeper{
		codes:    codes,
		tokens:   tokens,
		sessions: sessions,
		logger:   log.OrNop(logger),
		now:      time.Now,
	}
}

// SweepOnce deletes every row whose expiry is before now.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()

	n, err := s.codes.DeleteExpiredAuthCodes(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to delete expired auth codes: %w", err)
	}
	res.AuthCodes = n
	metrics.SweptRowsTotal.WithLabelValues("auth_code").Add(float64(n))

	n, err = s.tokens.DeleteExpiredTokens(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	res.Tokens = n
	metrics.SweptRowsTotal.WithLabelValues("access_token").Add(float64(n))

	if s.sessions != nil {
		res.Sessions = s.sessions.CleanupExpiredSessions()
		metrics.SweptRowsTotal.WithLabelValues("session").Add(float64(res.Sessions))
	}

	return res, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
// A non-positive interval sweeps once and returns.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	s.sweepAndLog(ctx)

	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *Sweeper) sweepAndLog(ctx context.Context) {
	res, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error(ctx, "Expired credential sweep failed", err)
		return
	}
	s.logger.Debug(ctx, "Expired credentials swept", map[string]interface{}{
		"auth_codes": res.AuthCodes,
		"tokens":     res.Tokens,
		"sessions":   res.Sessions,
	})
}
