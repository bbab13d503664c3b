package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ptsync/catalog"
	"ptsync/reconcile"
)

var matchCutoff float64

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rebuild the video map from the instance's existing videos",
	Long: `Match walks every video already on the PeerTube instance and pairs
it with a local video by title, recording the pairs in the video map. Use it
to adopt an instance that was populated before the map existed. Existing map
entries are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		videos, err := catalog.NewReader(cfg.DownloadDir).Videos()
		if err != nil {
			return err
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

		remote, err := client.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list instance videos: %w", err)
		}
		fmt.Printf("Instance has %d videos, local store has %d\n", len(remote), len(videos))

		matcher := reconcile.NewMatcher(led)
		if matchCutoff > 0 {
			matcher.Cutoff = matchCutoff
		}

		summary := matcher.Match(videos, remote)
		fmt.Printf("Recorded %d new mappings\n", summary.Mapped)
		for _, v := range summary.Unmatched {
			fmt.Printf("  unmatched: %s  %q\n", v.RemoteID(), v.Name)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().Float64Var(&matchCutoff, "cutoff", 0,
		"minimum title similarity for a fuzzy match (default 0.9)")
}
