package httpx

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter manages per-host request rate limiting using a token bucket.
// Self-hosted PeerTube instances are often small machines; the default rate
// is deliberately conservative.
type RateLimiter struct {
	limiters     map[string]*rate.Limiter
	backoffState map[string]*backoffState
	mu           sync.RWMutex
	config       RateLimiterConfig
}

// backoffState tracks rate limit backoff for a host.
type backoffState struct {
	currentBackoff    time.Duration
	lastError         time.Time
	consecutiveErrors int
}

// Backoff constants for server-side rate limiting.
const (
	// InitialBackoff is the first backoff applied after a 429/503.
	InitialBackoff = 1 * time.Second
	// MaxServerBackoff caps the backoff applied after repeated 429/503.
	MaxServerBackoff = 60 * time.Second
	// BackoffMultiplier grows the backoff on consecutive errors.
	BackoffMultiplier = 2.0
	// BackoffCooldownPeriod is how long after the last error before resetting backoff.
	BackoffCooldownPeriod = 5 * time.Minute
)

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// DefaultRPS is requests per second for unlisted hosts (0 = unlimited).
	DefaultRPS float64
	// CustomRates maps hosts to RPS values.
	CustomRates map[string]float64
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultRPS:  5.0,
		CustomRates: make(map[string]float64),
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.CustomRates == nil {
		cfg.CustomRates = make(map[string]float64)
	}

	return &RateLimiter{
		limiters:     make(map[string]*rate.Limiter),
		backoffState: make(map[string]*backoffState),
		config:       cfg,
	}
}

// Wait waits until the rate limit allows a request for the given URL.
// Returns an error if the context is canceled or exceeded deadline.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}

	limiter := rl.getLimiter(urlStr)
	if limiter == nil {
		// No rate limiting for this host
		return nil
	}

	if !limiter.Allow() {
		reservation := limiter.Reserve()
		if !reservation.OK() {
			return fmt.Errorf("rate limit: cannot reserve token")
		}

		select {
		case <-time.After(reservation.Delay()):
			return nil
		case <-ctx.Done():
			reservation.Cancel()
			return ctx.Err()
		}
	}

	return nil
}

// WaitForBackoff waits out any backoff window opened by a previous 429/503
// from this host. Returns immediately when no backoff is active.
func (rl *RateLimiter) WaitForBackoff(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}

	host := extractHost(urlStr)

	rl.mu.RLock()
	state, ok := rl.backoffState[host]
	rl.mu.RUnlock()
	if !ok || state.currentBackoff == 0 {
		return nil
	}

	remaining := time.Until(state.lastError.Add(state.currentBackoff))
	if remaining <= 0 {
		return nil
	}

	select {
	case <-time.After(remaining):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordRateLimitError records a 429/503 for a host and grows the backoff.
// Returns the recommended backoff duration before retrying.
func (rl *RateLimiter) RecordRateLimitError(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil {
		return retryAfter
	}

	host := extractHost(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		state = &backoffState{}
		rl.backoffState[host] = state
	}

	state.consecutiveErrors++
	state.lastError = time.Now()

	if state.currentBackoff == 0 {
		state.currentBackoff = InitialBackoff
	} else {
		state.currentBackoff = time.Duration(float64(state.currentBackoff) * BackoffMultiplier)
	}
	if state.currentBackoff > MaxServerBackoff {
		state.currentBackoff = MaxServerBackoff
	}
	if retryAfter > state.currentBackoff {
		state.currentBackoff = retryAfter
	}

	return state.currentBackoff
}

// RecordSuccess resets backoff state for a host after a cooldown period.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil {
		return
	}

	host := extractHost(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoffState[host]
	if !ok {
		return
	}
	if time.Since(state.lastError) >= BackoffCooldownPeriod {
		delete(rl.backoffState, host)
	}
}

// SetCustomRate sets a custom rate limit for a specific host.
func (rl *RateLimiter) SetCustomRate(host string, rps float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.config.CustomRates[host] = rps

	// Clear existing limiter to force recreation with new rate
	delete(rl.limiters, host)
}

// getLimiter returns the rate limiter for a given URL, creating one if necessary.
func (rl *RateLimiter) getLimiter(urlStr string) *rate.Limiter {
	host := extractHost(urlStr)
	rps := rl.getRPS(host)

	// Unlimited rate limit (0 RPS)
	if rps == 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limiters[host]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = limiter
	return limiter
}

// getRPS returns the requests per second for a given host.
func (rl *RateLimiter) getRPS(host string) float64 {
	rl.mu.RLock()
	rps, ok := rl.config.CustomRates[host]
	rl.mu.RUnlock()
	if ok {
		return rps
	}
	return rl.config.DefaultRPS
}

// extractHost extracts the host (without port) from a URL string.
func extractHost(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return "unknown"
	}

	host := u.Hostname()
	if host == "" {
		return "unknown"
	}
	return host
}
