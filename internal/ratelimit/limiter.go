// Package ratelimit throttles how often one account may place holds.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Clock interface for testing time-dependent behavior.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config holds rate limit configuration.
type Config struct {
	HoldsPerWindow int           // Max holds per account per window (default: 10)
	Window         time.Duration // Fixed window length (default: 1m)

	// Clock for testing (nil uses real time)
	Clock Clock
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		HoldsPerWindow: 10,
		Window:         time.Minute,
	}
}

// LimitResult contains the result of a rate limit check.
type LimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Reason     string // For logging
}

// window counts requests since firstAt.
type window struct {
	count   int
	firstAt time.Time
	lastAt  time.Time
}

// Limiter tracks hold requests per account in fixed windows.
type Limiter struct {
	config *Config
	clock  Clock
	mu     sync.RWMutex
	holds  map[int64]*window

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
	cleanupOnce   sync.Once
	cleanupWg     sync.WaitGroup
}

// New creates a limiter. A nil config uses DefaultConfig; zero fields fall
// back to their defaults.
func New(cfg *Config) *Limiter {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.HoldsPerWindow <= 0 {
		cfg.HoldsPerWindow = defaults.HoldsPerWindow
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Limiter{
		config:        cfg,
		clock:         clock,
		holds:         make(map[int64]*window),
		cleanupCtx:    ctx,
		cleanupCancel: cancel,
	}
}

// Close stops the cleanup goroutine.
func (l *Limiter) Close() {
	l.cleanupCancel()
	l.cleanupWg.Wait()
}

// CheckHold reports whether accountID may place another hold. It does not
// record anything; call RecordHold once the hold is created.
func (l *Limiter) CheckHold(accountID int64) LimitResult {
	l.startCleanup()
	now := l.clock.Now()

	l.mu.RLock()
	defer l.mu.RUnlock()

	w := l.holds[accountID]
	if w == nil {
		return LimitResult{Allowed: true}
	}
	elapsed := now.Sub(w.firstAt)
	if elapsed < l.config.Window && w.count >= l.config.HoldsPerWindow {
		return LimitResult{
			Allowed:    false,
			RetryAfter: l.config.Window - elapsed,
			Reason:     "hold_limit",
		}
	}
	return LimitResult{Allowed: true}
}

// RecordHold counts one hold against accountID.
func (l *Limiter) RecordHold(accountID int64) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.holds[accountID]
	if w == nil || now.Sub(w.firstAt) >= l.config.Window {
		l.holds[accountID] = &window{count: 1, firstAt: now, lastAt: now}
		return
	}
	w.count++
	w.lastAt = now
}

func (l *Limiter) startCleanup() {
	l.cleanupOnce.Do(func() {
		l.cleanupWg.Add(1)
		go func() {
			defer l.cleanupWg.Done()
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-l.cleanupCtx.Done():
					return
				case <-ticker.C:
					l.cleanup()
				}
			}
		}()
	})
}

func (l *Limiter) cleanup() {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, w := range l.holds {
		if now.Sub(w.lastAt) > l.config.Window {
			delete(l.holds, id)
		}
	}
}

// LogRateLimitExceeded logs a throttled request.
func LogRateLimitExceeded(accountID int64, ip, reason string) {
	log.Warn().
		Str("event", "rate_limit_exceeded").
		Int64("account_id", accountID).
		Str("ip", ip).
		Str("reason", reason).
		Msg("Hold rate limit exceeded")
}
