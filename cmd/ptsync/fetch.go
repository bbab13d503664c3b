package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ptsync/internal/retry"
	"ptsync/youtube"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [channel]",
	Short: "Download the channel's videos into the local store",
	Long: `Fetch enumerates the channel and downloads every video with yt-dlp,
writing the media file, a metadata sidecar, and a thumbnail per video.
Already-downloaded videos are skipped via the download archive, so an
interrupted fetch resumes where it stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := cfg.Channel
		if len(args) > 0 {
			channel = args[0]
		}
		if channel == "" {
			return fmt.Errorf("no channel given (pass one or set PTSYNC_CHANNEL)")
		}
		_, err := runFetch(cmd.Context(), channel)
		return err
	},
}

// runFetch enumerates and downloads one channel. Shared with sync.
func runFetch(ctx context.Context, channel string) (*youtube.FetchSummary, error) {
	lister, err := buildLister(ctx)
	if err != nil {
		return nil, err
	}

	videos, err := lister.ListVideos(ctx, channel, &youtube.ListOptions{
		MaxResults: cfg.MaxVideos,
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", channel, err)
	}
	fmt.Printf("Found %d videos\n", len(videos))

	downloader := youtube.NewDownloader(cfg.DownloadDir)
	downloader.Path = cfg.YtdlpPath
	downloader.Timeout = cfg.YtdlpTimeout
	retryCfg := retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: 0.2,
	}
	downloader.RetryConfig = &retryCfg

	summary := downloader.FetchAll(ctx, videos)
	fmt.Printf("Fetched %d videos (%d failed)\n", summary.Downloaded, summary.Failed)
	return summary, nil
}
