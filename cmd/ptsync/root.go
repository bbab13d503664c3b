package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ptsync/config"
	"ptsync/ledger"
	"ptsync/peertube"
	"ptsync/youtube"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "ptsync",
	Short: "Mirror a YouTube channel to a PeerTube instance",
	Long: `ptsync keeps a PeerTube instance in sync with a YouTube channel.

Videos are fetched into a local store with yt-dlp, then reconciled against
the instance: missing videos are uploaded, stale titles, descriptions, and
thumbnails are patched, and everything already in sync is left alone. All
commands are safe to re-run and safe to interrupt.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(setDatesCmd)
	rootCmd.AddCommand(statusCmd)
}

// openLedger opens the transfer ledger using the configured file locations.
// Relative ledger paths resolve inside the download directory, next to the
// files they describe.
func openLedger() (*ledger.Ledger, error) {
	return ledger.Open(storePath(cfg.UploadedFile), storePath(cfg.VideoMapFile))
}

func storePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cfg.DownloadDir, path)
}

// connectPeerTube builds and authenticates a PeerTube client.
func connectPeerTube(ctx context.Context) (*peertube.Client, error) {
	if err := cfg.ValidatePeerTube(); err != nil {
		return nil, err
	}

	client := peertube.New(peertube.Config{
		BaseURL:   cfg.PeerTubeURL,
		Username:  cfg.PeerTubeUser,
		Password:  cfg.PeerTubePass,
		ChannelID: cfg.ChannelID,
	})
	if err := client.Login(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("login to %s: %w", cfg.PeerTubeURL, err)
	}
	return client, nil
}

// buildLister picks the channel lister: the Data API when a key is
// configured, with yt-dlp as quota fallback, plain yt-dlp otherwise.
func buildLister(ctx context.Context) (youtube.VideoLister, error) {
	ytdlp := youtube.NewYtdlpLister()
	ytdlp.Path = cfg.YtdlpPath
	ytdlp.Timeout = cfg.YtdlpTimeout

	if cfg.YouTubeAPIKey == "" {
		return ytdlp, nil
	}
	api, err := youtube.NewAPILister(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		return nil, err
	}
	api.SetFallback(ytdlp)
	return api, nil
}
