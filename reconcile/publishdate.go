package reconcile

import (
	"context"
	"log"
	"sort"

	"ptsync/catalog"
	"ptsync/peertube"
)

// DateSummary is the outcome of a publish-date pass.
type DateSummary struct {
	Updated int
	Skipped int
	Failed  int
}

// SyncPublishDates sets each mapped remote video's original publication date
// from the local upload date. Only divergent dates trigger an update call,
// so the pass is idempotent like the main reconciliation. Per-video errors
// are logged and never abort the pass.
func SyncPublishDates(ctx context.Context, remote Platform, reader *catalog.Reader, mappings map[string]string) *DateSummary {
	localIDs := make([]string, 0, len(mappings))
	for localID := range mappings {
		localIDs = append(localIDs, localID)
	}
	sort.Strings(localIDs)

	summary := &DateSummary{}
	for _, localID := range localIDs {
		if ctx.Err() != nil {
			break
		}
		remoteID := mappings[localID]

		record, err := reader.Video(localID)
		if err != nil {
			log.Printf("setdates: %s: reading local metadata failed: %v", localID, err)
			summary.Skipped++
			continue
		}
		if record.UploadDate.IsZero() {
			summary.Skipped++
			continue
		}

		state, err := remote.Video(ctx, remoteID)
		if err != nil {
			log.Printf("setdates: %s: fetching remote state failed: %v", localID, err)
			summary.Failed++
			continue
		}
		if state.OriginallyPublishedAt != nil && state.OriginallyPublishedAt.Equal(record.UploadDate) {
			summary.Skipped++
			continue
		}

		uploadDate := record.UploadDate
		err = remote.UpdateVideo(ctx, remoteID, peertube.UpdateRequest{
			OriginallyPublishedAt: &uploadDate,
		})
		if err != nil {
			log.Printf("setdates: %s: update failed: %v", localID, err)
			summary.Failed++
			continue
		}
		summary.Updated++
		log.Printf("setdates: %s published at %s", localID, uploadDate.Format("2006-01-02"))
	}

	return summary
}
