package youtube

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"ptsync/internal/retry"
)

// defaultDownloadFormat caps downloads at 1080p with a graceful fallback.
const defaultDownloadFormat = "bestvideo[height<=1080]+bestaudio/best[height<=1080]/best"

// Downloader fetches channel videos into the local store via yt-dlp. Every
// download writes the media file, a <id>.info.json metadata sidecar, and a
// thumbnail, all named by video id so the catalog can find them again.
// yt-dlp's own archive file makes downloads restartable: an id already in
// the archive is a no-op.
type Downloader struct {
	// Dir is the download directory.
	Dir string

	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string

	// ArchivePath is the yt-dlp download archive. Defaults to
	// <Dir>/downloaded.txt.
	ArchivePath string

	// Format is the yt-dlp format selector. Defaults to a 1080p cap.
	Format string

	// Timeout is the per-video download timeout. Defaults to 10 minutes.
	Timeout time.Duration

	// ExtraArgs are additional arguments to pass to yt-dlp.
	ExtraArgs []string

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(dir string) *Downloader {
	cfg := retry.DefaultConfig()
	return &Downloader{
		Dir:         dir,
		Path:        defaultYtdlpPath,
		Timeout:     defaultYtdlpTimeout,
		RetryConfig: &cfg,
	}
}

// FetchSummary is the outcome of one fetch pass.
type FetchSummary struct {
	Downloaded int
	Failed     int
}

// FetchAll downloads every enumerated video. Per-video failures are logged
// and never abort the pass; already-archived videos download as no-ops.
func (d *Downloader) FetchAll(ctx context.Context, videos []VideoInfo) *FetchSummary {
	summary := &FetchSummary{}
	for _, video := range videos {
		if ctx.Err() != nil {
			log.Printf("fetch: canceled after %d videos", summary.Downloaded+summary.Failed)
			break
		}
		if err := d.Download(ctx, video.ID); err != nil {
			log.Printf("fetch: %s failed: %v", video.ID, err)
			summary.Failed++
			continue
		}
		summary.Downloaded++
	}
	return summary
}

// Download fetches a single video by id.
func (d *Downloader) Download(ctx context.Context, videoID string) error {
	if videoID == "" {
		return fmt.Errorf("youtube: empty video id")
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	cfg := d.RetryConfig
	if cfg == nil {
		defaultCfg := retry.DefaultConfig()
		cfg = &defaultCfg
	}

	return retry.Do(ctx, *cfg, ytdlpErrorClassifier, func(ctx context.Context) error {
		timeout := d.Timeout
		if timeout == 0 {
			timeout = defaultYtdlpTimeout
		}
		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(cmdCtx, d.path(), d.args(videoID)...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if cmdCtx.Err() == context.DeadlineExceeded {
				return &ListerError{Source: "ytdlp", Channel: videoID, Err: ErrNetworkTimeout}
			}
			if cmdCtx.Err() == context.Canceled {
				return &ListerError{Source: "ytdlp", Channel: videoID, Err: context.Canceled}
			}

			errMsg := stderr.String()
			if strings.Contains(errMsg, "Private video") || strings.Contains(errMsg, "unavailable") {
				return retry.Permanent(fmt.Errorf("download %s: %s", videoID, strings.TrimSpace(errMsg)))
			}
			if strings.Contains(errMsg, "rate") || strings.Contains(errMsg, "429") {
				return &ListerError{Source: "ytdlp", Channel: videoID, Err: ErrRateLimited}
			}
			return &ListerError{Source: "ytdlp", Channel: videoID,
				Err: fmt.Errorf("yt-dlp failed: %w: %s", err, errMsg)}
		}
		return nil
	})
}

// args builds the yt-dlp invocation for one video.
func (d *Downloader) args(videoID string) []string {
	format := d.Format
	if format == "" {
		format = defaultDownloadFormat
	}
	archive := d.ArchivePath
	if archive == "" {
		archive = filepath.Join(d.Dir, "downloaded.txt")
	}

	args := []string{
		"-o", filepath.Join(d.Dir, "%(id)s.%(ext)s"),
		"-f", format,
		"--merge-output-format", "mp4",
		"--download-archive", archive,
		"--write-info-json",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"--no-warnings",
		"--no-progress",
	}
	args = append(args, d.ExtraArgs...)
	return append(args, "https://www.youtube.com/watch?v="+videoID)
}

func (d *Downloader) path() string {
	if d.Path != "" {
		return d.Path
	}
	return defaultYtdlpPath
}
