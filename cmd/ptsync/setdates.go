package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ptsync/catalog"
	"ptsync/reconcile"
)

var setDatesCmd = &cobra.Command{
	Use:   "set-dates",
	Short: "Set original publication dates on mirrored videos",
	Long: `Set-dates walks the video map and sets each remote video's original
publication date from the local upload date, so the instance shows when the
video was first published rather than when it was mirrored. Dates already in
sync are skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		led, err := openLedger()
		if err != nil {
			return err
		}
		defer led.Close()

		mappings := led.Mappings()
		if len(mappings) == 0 {
			fmt.Println("Video map is empty; nothing to do")
			return nil
		}

		client, err := connectPeerTube(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		reader := catalog.NewReader(cfg.DownloadDir)
		summary := reconcile.SyncPublishDates(ctx, client, reader, mappings)
		fmt.Printf("Dates: %d updated, %d skipped, %d failed\n",
			summary.Updated, summary.Skipped, summary.Failed)

		if summary.Failed > 0 {
			return fmt.Errorf("%d videos failed; re-run to retry them", summary.Failed)
		}
		return nil
	},
}
