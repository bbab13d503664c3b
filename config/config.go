// Package config manages application configuration.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ValidationError reports an invalid configuration setting. Validation
// failures are fatal: commands refuse to start on a bad config.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + " " + e.Reason
}

// Config holds all application configuration.
type Config struct {
	// Source channel settings
	Channel       string `json:"channel"`
	YouTubeAPIKey string `json:"youtube_api_key"`

	// PeerTube settings
	PeerTubeURL  string `json:"peertube_url"`
	PeerTubeUser string `json:"peertube_user"`
	PeerTubePass string `json:"peertube_pass"`
	ChannelID    int64  `json:"peertube_channel_id"`

	// Local store settings
	DownloadDir  string `json:"download_dir"`
	UploadedFile string `json:"uploaded_file"`
	VideoMapFile string `json:"video_map_file"`

	// yt-dlp settings
	YtdlpPath    string        `json:"ytdlp_path"`
	YtdlpTimeout time.Duration `json:"ytdlp_timeout"`
	MaxVideos    int           `json:"max_videos"`

	// Retry settings for the fetch stage
	MaxRetries        int           `json:"max_retries"`
	InitialBackoff    time.Duration `json:"initial_backoff"`
	MaxBackoff        time.Duration `json:"max_backoff"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		DownloadDir:       "downloads",
		UploadedFile:      "uploaded.txt",
		VideoMapFile:      "video_map.txt",
		YtdlpPath:         "yt-dlp",
		YtdlpTimeout:      10 * time.Minute,
		MaxVideos:         0,
		MaxRetries:        5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Load loads configuration and applies defaults.
// Priority: env vars > .env file > config file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// A .env file in the working directory feeds the same keys as the
	// process environment, with the environment winning.
	env, err := loadDotenv(".env")
	if err != nil {
		return nil, err
	}
	cfg.applyEnv(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return env[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile attempts to load ptsync.json from the current directory or
// the user config directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"ptsync.json",
		filepath.Join(os.Getenv("HOME"), ".config", "ptsync", "ptsync.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	return os.ErrNotExist
}

// loadDotenv reads KEY=VALUE lines from a .env file. Missing file is fine.
func loadDotenv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		env[strings.TrimSpace(key)] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// applyEnv overrides config from the given key lookup.
func (c *Config) applyEnv(get func(string) string) {
	if v := get("PTSYNC_CHANNEL"); v != "" {
		c.Channel = v
	}
	if v := get("YOUTUBE_API_KEY"); v != "" {
		c.YouTubeAPIKey = v
	}
	if v := get("PEERTUBE_URL"); v != "" {
		c.PeerTubeURL = v
	}
	if v := get("PEERTUBE_USER"); v != "" {
		c.PeerTubeUser = v
	}
	if v := get("PEERTUBE_PASS"); v != "" {
		c.PeerTubePass = v
	}
	if v := get("PEERTUBE_CHANNEL_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ChannelID = n
		}
	}
	if v := get("PTSYNC_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := get("PTSYNC_UPLOADED_FILE"); v != "" {
		c.UploadedFile = v
	}
	if v := get("PTSYNC_VIDEO_MAP_FILE"); v != "" {
		c.VideoMapFile = v
	}
	if v := get("PTSYNC_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := get("PTSYNC_YTDLP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.YtdlpTimeout = d
		}
	}
	if v := get("PTSYNC_MAX_VIDEOS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxVideos = n
		}
	}
	if v := get("PTSYNC_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := get("PTSYNC_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := get("PTSYNC_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
}

// Validate checks general configuration validity. Credential checks for
// remote operations live in ValidatePeerTube, so fetch-only invocations
// work without an instance configured.
func (c *Config) Validate() error {
	if c.DownloadDir == "" {
		return &ValidationError{Field: "download_dir", Reason: "must not be empty"}
	}
	if c.UploadedFile == "" {
		return &ValidationError{Field: "uploaded_file", Reason: "must not be empty"}
	}
	if c.VideoMapFile == "" {
		return &ValidationError{Field: "video_map_file", Reason: "must not be empty"}
	}
	if c.YtdlpTimeout <= 0 {
		return &ValidationError{Field: "ytdlp_timeout", Reason: "must be positive"}
	}
	if c.MaxVideos < 0 {
		return &ValidationError{Field: "max_videos", Reason: "must be non-negative"}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "max_retries", Reason: "must be non-negative"}
	}
	if c.InitialBackoff <= 0 {
		return &ValidationError{Field: "initial_backoff", Reason: "must be positive"}
	}
	if c.MaxBackoff <= 0 {
		return &ValidationError{Field: "max_backoff", Reason: "must be positive"}
	}
	if c.BackoffMultiplier < 1 {
		return &ValidationError{Field: "backoff_multiplier", Reason: "must be at least 1"}
	}
	return nil
}

// ValidatePeerTube checks the settings remote operations need.
func (c *Config) ValidatePeerTube() error {
	if c.PeerTubeURL == "" {
		return &ValidationError{Field: "peertube_url", Reason: "is required (set PEERTUBE_URL)"}
	}
	if !strings.HasPrefix(c.PeerTubeURL, "http://") && !strings.HasPrefix(c.PeerTubeURL, "https://") {
		return &ValidationError{Field: "peertube_url", Reason: "must start with http:// or https://"}
	}
	if c.PeerTubeUser == "" {
		return &ValidationError{Field: "peertube_user", Reason: "is required (set PEERTUBE_USER)"}
	}
	if c.PeerTubePass == "" {
		return &ValidationError{Field: "peertube_pass", Reason: "is required (set PEERTUBE_PASS)"}
	}
	return nil
}
