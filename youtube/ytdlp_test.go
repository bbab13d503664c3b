package youtube

import (
	"context"
	"errors"
	"testing"
	"time"
)

const sampleFlatPlaylist = `{
	"id": "UCuAXFkgsw1L7xaCfnd5JJOw",
	"title": "Test Channel - Videos",
	"channel_id": "UCuAXFkgsw1L7xaCfnd5JJOw",
	"entries": [
		{
			"id": "dQw4w9WgXcQ",
			"title": "Test Video 1",
			"duration": 212,
			"timestamp": 1704067200
		},
		{
			"id": "9bZkp7q19f0",
			"title": "Test Video 2",
			"duration": 252,
			"upload_date": "20240115",
			"channel_id": "UCuAXFkgsw1L7xaCfnd5JJOw"
		}
	]
}`

func TestNormalizeChannelURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "channel ID only",
			input: "UCuAXFkgsw1L7xaCfnd5JJOw",
			want:  "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw/videos",
		},
		{
			name:  "bare handle",
			input: "@testchannel",
			want:  "https://www.youtube.com/@testchannel/videos",
		},
		{
			name:  "channel URL without tab",
			input: "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw",
			want:  "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw/videos",
		},
		{
			name:  "channel URL with videos tab",
			input: "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw/videos",
			want:  "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw/videos",
		},
		{
			name:  "handle URL with trailing slash",
			input: "https://www.youtube.com/@testchannel/",
			want:  "https://www.youtube.com/@testchannel/videos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeChannelURL(tt.input); got != tt.want {
				t.Errorf("normalizeChannelURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseYtdlpOutput(t *testing.T) {
	videos, err := parseYtdlpOutput([]byte(sampleFlatPlaylist))
	if err != nil {
		t.Fatalf("parseYtdlpOutput() error = %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}

	v := videos[0]
	if v.ID != "dQw4w9WgXcQ" {
		t.Errorf("ID = %q, want dQw4w9WgXcQ", v.ID)
	}
	if v.Title != "Test Video 1" {
		t.Errorf("Title = %q", v.Title)
	}
	if v.Duration != 212*time.Second {
		t.Errorf("Duration = %v, want 212s", v.Duration)
	}
	if v.ChannelID != "UCuAXFkgsw1L7xaCfnd5JJOw" {
		t.Errorf("ChannelID = %q: playlist channel id not inherited", v.ChannelID)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !v.Published.Equal(want) {
		t.Errorf("Published = %v, want %v", v.Published, want)
	}
}

func TestParseYtdlpOutputMalformed(t *testing.T) {
	if _, err := parseYtdlpOutput([]byte("not json")); err == nil {
		t.Error("expected error for malformed output")
	}
}

func TestParseYtdlpDate(t *testing.T) {
	tests := []struct {
		name  string
		entry ytdlpEntry
		want  time.Time
	}{
		{
			name:  "timestamp",
			entry: ytdlpEntry{Timestamp: 1704067200},
			want:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "upload_date",
			entry: ytdlpEntry{UploadDate: "20240115"},
			want:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "timestamp preferred",
			entry: ytdlpEntry{Timestamp: 1704067200, UploadDate: "20240115"},
			want:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "nothing",
			entry: ytdlpEntry{},
			want:  time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseYtdlpDate(tt.entry); !got.Equal(tt.want) {
				t.Errorf("parseYtdlpDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterVideos(t *testing.T) {
	videos := []VideoInfo{
		{ID: "a", Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Published: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "c", Published: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	got := filterVideos(videos, &ListOptions{
		PublishedAfter: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		MaxResults:     1,
	})
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("filterVideos() = %v, want just b", got)
	}

	if got := filterVideos(videos, nil); len(got) != 3 {
		t.Errorf("nil options filtered videos: %v", got)
	}
}

func TestYtdlpErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"channel not found", &ListerError{Source: "ytdlp", Err: ErrChannelNotFound}, false},
		{"not installed", &ListerError{Source: "ytdlp", Err: ErrYtdlpNotInstalled}, false},
		{"rate limited", &ListerError{Source: "ytdlp", Err: ErrRateLimited}, true},
		{"timeout", &ListerError{Source: "ytdlp", Err: ErrNetworkTimeout}, true},
		{"unknown", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ytdlpErrorClassifier(tt.err); got != tt.want {
				t.Errorf("ytdlpErrorClassifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYtdlpListerNotInstalled(t *testing.T) {
	lister := NewYtdlpLister()
	lister.Path = "/nonexistent/yt-dlp"

	_, err := lister.ListVideos(context.Background(), "@somechannel", nil)
	if !errors.Is(err, ErrYtdlpNotInstalled) {
		t.Errorf("error = %v, want ErrYtdlpNotInstalled", err)
	}
}
