package httpx

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterUnlimited(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 0})

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := rl.Wait(ctx, "https://tube.example.com/api/v1/videos"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("unlimited limiter waited %v", elapsed)
	}
}

func TestRateLimiterThrottles(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{DefaultRPS: 50})

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx, "https://tube.example.com/api/v1/videos"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// 5 requests at 50 RPS with burst 1 need roughly 80ms
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("limiter waited only %v, expected throttling", elapsed)
	}
}

func TestRateLimiterCustomRate(t *testing.T) {
	cfg := RateLimiterConfig{
		DefaultRPS:  1,
		CustomRates: map[string]float64{"fast.example.com": 0},
	}
	rl := NewRateLimiter(cfg)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := rl.Wait(ctx, "https://fast.example.com/x"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("custom unlimited host waited %v", elapsed)
	}
}

func TestRateLimiterBackoffGrows(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())

	url := "https://tube.example.com/api/v1/videos"
	first := rl.RecordRateLimitError(url, 0)
	second := rl.RecordRateLimitError(url, 0)

	if first != InitialBackoff {
		t.Errorf("first backoff = %v, want %v", first, InitialBackoff)
	}
	if second <= first {
		t.Errorf("second backoff = %v, want > %v", second, first)
	}
}

func TestRateLimiterRespectsRetryAfter(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())

	url := "https://tube.example.com/api/v1/videos"
	got := rl.RecordRateLimitError(url, 10*time.Second)
	if got != 10*time.Second {
		t.Errorf("backoff = %v, want server-provided 10s", got)
	}
}

func TestExtractHost(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://tube.example.com/api/v1/videos", "tube.example.com"},
		{"https://tube.example.com:9000/api/v1/videos", "tube.example.com"},
		{"not a url at all\x00", "unknown"},
	}

	for _, tt := range tests {
		if got := extractHost(tt.url); got != tt.want {
			t.Errorf("extractHost(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
