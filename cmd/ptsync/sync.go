package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ptsync/catalog"
	"ptsync/reconcile"
)

var syncSkipFetch bool
var syncSkipThumbRefresh bool

var syncCmd = &cobra.Command{
	Use:   "sync [channel]",
	Short: "Fetch the channel and reconcile it against the instance",
	Long: `Sync runs the full mirror pass: fetch new videos into the local
store, then walk the local catalog and reconcile each video against the
PeerTube instance. Videos the instance lacks are uploaded; videos with stale
metadata get a minimal patch; in-sync videos are left untouched.

The pass can be interrupted at any point and re-run without duplicating
videos or repeating completed work.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !syncSkipFetch {
			channel := cfg.Channel
			if len(args) > 0 {
				channel = args[0]
			}
			if channel == "" {
				return fmt.Errorf("no channel given (pass one, set PTSYNC_CHANNEL, or use --skip-fetch)")
			}
			if _, err := runFetch(ctx, channel); err != nil {
				return err
			}
		}

		videos, err := catalog.NewReader(cfg.DownloadDir).Videos()
		if err != nil {
			return err
		}
		if len(videos) == 0 {
			fmt.Println("Local store is empty; nothing to reconcile")
			return nil
		}

		led, err := openLedger()
		if err != nil {
			return err
		}
		defer led.Close()

		client, err := connectPeerTube(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		opts := reconcile.DefaultOptions()
		if syncSkipThumbRefresh {
			opts.RefreshThumbnailOnFetchError = false
		}

		summary := reconcile.New(led, client, opts).Run(ctx, videos)
		fmt.Printf("Reconciled %d videos: %d created, %d patched, %d unchanged, %d skipped, %d failed\n",
			len(summary.Results), summary.Created, summary.Patched,
			summary.Unchanged, summary.Skipped, summary.Failed)

		if summary.Failed > 0 {
			return fmt.Errorf("%d videos failed; re-run to retry them", summary.Failed)
		}
		return ctx.Err()
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncSkipFetch, "skip-fetch", false,
		"reconcile the existing local store without fetching")
	syncCmd.Flags().BoolVar(&syncSkipThumbRefresh, "no-thumb-refresh", false,
		"do not re-upload thumbnails when the remote state cannot be fetched")
}
