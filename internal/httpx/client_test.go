package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ptsync/internal/retry"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Retry = retry.Config{
		MaxRetries:     2,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2.0,
	}
	cfg.RateLimiter.DefaultRPS = 0 // unlimited in tests
	return cfg
}

func TestNewClientNilConfig(t *testing.T) {
	client := New(nil)
	if client == nil {
		t.Fatal("expected client to be created with default config")
	}
	client.Close()
}

func TestClientGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	}))
	defer server.Close()

	client := New(testConfig())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if string(resp.Body) != "test response" {
		t.Errorf("expected 'test response', got %q", string(resp.Body))
	}
}

func TestClientDoWithHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader != "Bearer token123" {
			t.Errorf("expected Authorization header, got %q", authHeader)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig())
	defer client.Close()

	headers := map[string]string{"Authorization": "Bearer token123"}
	_, err := client.Do(context.Background(), http.MethodGet, server.URL, nil, headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad payload"}`))
	}))
	defer server.Close()

	client := New(testConfig())
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", statusErr.StatusCode)
	}
	if string(statusErr.Body) != `{"error":"bad payload"}` {
		t.Errorf("Body = %q", statusErr.Body)
	}
}

func TestClientNoRetryOn4xx(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := New(testConfig())
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("made %d attempts, want 1 (4xx is permanent)", attempts)
	}
}

func TestClientRetriesOn5xx(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("made %d attempts, want 2", attempts)
	}
}

func TestClientZeroRetryBudget(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Retry.MaxRetries = 0
	client := New(cfg)
	defer client.Close()

	_, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("made %d attempts, want 1 with zero retry budget", attempts)
	}
}

func TestClientRateLimitResponse(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(testConfig())
	defer client.Close()

	resp, err := client.Get(context.Background(), server.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "30")

	d := parseRetryAfter(header)
	if d != 30*time.Second {
		t.Errorf("parseRetryAfter = %v, want 30s", d)
	}
}

func TestParseRetryAfterAbsent(t *testing.T) {
	if d := parseRetryAfter(http.Header{}); d != 0 {
		t.Errorf("parseRetryAfter = %v, want 0", d)
	}
}
