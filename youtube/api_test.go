package youtube

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveChannelIDWithoutLookup(t *testing.T) {
	a := &APILister{}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"raw id", "UCuAXFkgsw1L7xaCfnd5JJOw", "UCuAXFkgsw1L7xaCfnd5JJOw"},
		{"channel URL", "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw/videos", "UCuAXFkgsw1L7xaCfnd5JJOw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.resolveChannelID(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("resolveChannelID(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("resolveChannelID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestResolveChannelIDInvalid(t *testing.T) {
	a := &APILister{}
	_, err := a.resolveChannelID(context.Background(), "https://example.com/not-youtube")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("error = %v, want ErrInvalidURL", err)
	}
}

func TestQuotaExhaustionTriggersFallback(t *testing.T) {
	a := &APILister{estimatedQuota: 50, lastQuotaReset: time.Now()}
	fallback := &stubLister{}
	a.SetFallback(fallback)

	if got := a.exhaustedFallback(); got != nil {
		t.Error("fallback returned before quota exhaustion")
	}

	a.trackQuota(100)

	if got := a.exhaustedFallback(); got != fallback {
		t.Error("fallback not returned after quota exhaustion")
	}
}

type stubLister struct{}

func (s *stubLister) ListVideos(ctx context.Context, channel string, opts *ListOptions) ([]VideoInfo, error) {
	return nil, nil
}

func TestAPIErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"channel not found", ErrChannelNotFound, false},
		{"invalid url", ErrInvalidURL, false},
		{"network timeout", ErrNetworkTimeout, true},
		{"quota exceeded", errors.New("googleapi: Error 403: quotaExceeded"), true},
		{"unknown", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiErrorClassifier(tt.err); got != tt.want {
				t.Errorf("apiErrorClassifier() = %v, want %v", got, tt.want)
			}
		})
	}
}
