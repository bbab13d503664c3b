package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ptsync/internal/retry"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 10 * time.Minute
)

// YtdlpLister implements VideoLister using yt-dlp as a subprocess with
// flat-playlist output. It retrieves the full video history of a channel.
type YtdlpLister struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// Timeout is the maximum time to wait for yt-dlp. Defaults to 10 minutes.
	Timeout time.Duration

	// ExtraArgs are additional arguments to pass to yt-dlp.
	ExtraArgs []string

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config
}

// NewYtdlpLister creates a new yt-dlp based video lister.
func NewYtdlpLister() *YtdlpLister {
	cfg := retry.DefaultConfig()
	return &YtdlpLister{
		Path:        defaultYtdlpPath,
		Timeout:     defaultYtdlpTimeout,
		RetryConfig: &cfg,
	}
}

// ListVideos enumerates all videos of the channel's videos tab.
func (y *YtdlpLister) ListVideos(ctx context.Context, channel string, opts *ListOptions) ([]VideoInfo, error) {
	if err := y.checkInstalled(ctx); err != nil {
		return nil, err
	}

	cfg := y.RetryConfig
	if cfg == nil {
		defaultCfg := retry.DefaultConfig()
		cfg = &defaultCfg
	}

	var videos []VideoInfo
	err := retry.Do(ctx, *cfg, ytdlpErrorClassifier, func(ctx context.Context) error {
		args := []string{
			"--flat-playlist",
			"-J",
			"--no-warnings",
		}
		args = append(args, y.ExtraArgs...)
		args = append(args, normalizeChannelURL(channel))

		timeout := y.Timeout
		if timeout == 0 {
			timeout = defaultYtdlpTimeout
		}
		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(cmdCtx, y.path(), args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if cmdCtx.Err() == context.DeadlineExceeded {
				return &ListerError{Source: "ytdlp", Channel: channel, Err: ErrNetworkTimeout}
			}
			if cmdCtx.Err() == context.Canceled {
				return &ListerError{Source: "ytdlp", Channel: channel, Err: context.Canceled}
			}

			errMsg := stderr.String()
			if strings.Contains(errMsg, "not found") || strings.Contains(errMsg, "does not exist") {
				return &ListerError{Source: "ytdlp", Channel: channel, Err: ErrChannelNotFound}
			}
			if strings.Contains(errMsg, "rate") || strings.Contains(errMsg, "429") {
				return &ListerError{Source: "ytdlp", Channel: channel, Err: ErrRateLimited}
			}
			return &ListerError{Source: "ytdlp", Channel: channel,
				Err: fmt.Errorf("yt-dlp failed: %w: %s", err, errMsg)}
		}

		parsed, err := parseYtdlpOutput(stdout.Bytes())
		if err != nil {
			return err
		}
		videos = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return filterVideos(videos, opts), nil
}

// checkInstalled verifies that yt-dlp is available.
func (y *YtdlpLister) checkInstalled(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, y.path(), "--version")
	if err := cmd.Run(); err != nil {
		return &ListerError{Source: "ytdlp", Channel: "", Err: ErrYtdlpNotInstalled}
	}
	return nil
}

func (y *YtdlpLister) path() string {
	if y.Path != "" {
		return y.Path
	}
	return defaultYtdlpPath
}

// normalizeChannelURL points the URL at the channel's videos tab.
func normalizeChannelURL(channel string) string {
	if channelIDRegex.MatchString(channel) && !strings.Contains(channel, "youtube.com") {
		return "https://www.youtube.com/channel/" + channel + "/videos"
	}
	if strings.HasPrefix(channel, "@") {
		return "https://www.youtube.com/" + channel + "/videos"
	}
	if strings.HasSuffix(strings.TrimSuffix(channel, "/"), "/videos") {
		return strings.TrimSuffix(channel, "/")
	}
	return strings.TrimSuffix(channel, "/") + "/videos"
}

// ytdlpPlaylist is yt-dlp's flat-playlist JSON output for a channel tab.
type ytdlpPlaylist struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	ChannelID string       `json:"channel_id"`
	Entries   []ytdlpEntry `json:"entries"`
}

// ytdlpEntry is a single video in flat-playlist output.
type ytdlpEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	ChannelID  string  `json:"channel_id"`
	UploadDate string  `json:"upload_date"`
	Timestamp  int64   `json:"timestamp"`
}

// parseYtdlpOutput parses flat-playlist JSON into VideoInfo records.
func parseYtdlpOutput(data []byte) ([]VideoInfo, error) {
	var playlist ytdlpPlaylist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	videos := make([]VideoInfo, 0, len(playlist.Entries))
	for _, entry := range playlist.Entries {
		channelID := entry.ChannelID
		if channelID == "" {
			channelID = playlist.ChannelID
		}
		videos = append(videos, VideoInfo{
			ID:        entry.ID,
			Title:     entry.Title,
			ChannelID: channelID,
			Duration:  time.Duration(entry.Duration) * time.Second,
			Published: parseYtdlpDate(entry),
		})
	}
	return videos, nil
}

// parseYtdlpDate extracts the published time from an entry, preferring the
// unix timestamp over the coarser upload_date.
func parseYtdlpDate(entry ytdlpEntry) time.Time {
	if entry.Timestamp > 0 {
		return time.Unix(entry.Timestamp, 0).UTC()
	}
	if entry.UploadDate != "" {
		if t, err := time.Parse("20060102", entry.UploadDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ytdlpErrorClassifier reports whether a yt-dlp error is retryable.
func ytdlpErrorClassifier(err error) bool {
	if err == nil {
		return false
	}

	var perm *retry.PermanentError
	if errors.As(err, &perm) {
		return false
	}

	var listerErr *ListerError
	if errors.As(err, &listerErr) {
		switch listerErr.Err {
		case ErrChannelNotFound, ErrYtdlpNotInstalled, ErrInvalidURL:
			return false
		}
		return true
	}
	return true
}
