package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ptsync/catalog"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store and transfer ledger counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		videos, err := catalog.NewReader(cfg.DownloadDir).Videos()
		if err != nil {
			return err
		}

		led, err := openLedger()
		if err != nil {
			return err
		}
		defer led.Close()

		processed, mapped := led.Counts()

		withMedia := 0
		withThumb := 0
		for _, v := range videos {
			if v.HasMedia() {
				withMedia++
			}
			if v.HasThumbnail() {
				withThumb++
			}
		}

		fmt.Printf("Local store:    %d videos (%d with media, %d with thumbnails)\n",
			len(videos), withMedia, withThumb)
		fmt.Printf("Transferred:    %d\n", processed)
		fmt.Printf("Mapped:         %d\n", mapped)
		if pending := len(videos) - processed; pending > 0 {
			fmt.Printf("Pending:        %d\n", pending)
		}
		return nil
	},
}
