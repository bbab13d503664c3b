package reconcile

import (
	"context"
	"log"

	"ptsync/catalog"
)

// videoDiff records which remote fields diverge from local state.
// The three comparisons are independent.
type videoDiff struct {
	title       bool
	description bool
	thumbnail   bool
}

// computeDiff fetches the remote state and compares it field by field
// against the local record. String comparison is exact, without
// normalization. The thumbnail is compared by content hash, fetch-then-hash,
// and only when a local thumbnail exists.
//
// When the remote state cannot be fetched the degradation is asymmetric:
// title and description are assumed unchanged (comparing local values
// against an unknown baseline would trigger spurious updates), while the
// thumbnail is assumed divergent so the next successful call restores it.
func (r *Reconciler) computeDiff(ctx context.Context, video *catalog.VideoRecord, remoteID string) videoDiff {
	var d videoDiff

	remote, err := r.remote.Video(ctx, remoteID)
	if err != nil {
		if video.HasThumbnail() && r.opts.RefreshThumbnailOnFetchError {
			d.thumbnail = true
		}
		log.Printf("reconcile: %s: fetching remote state failed (%v); assuming metadata unchanged, thumbnail divergent=%t", video.LocalID, err, d.thumbnail)
		return d
	}

	d.title = video.Title != remote.Name
	d.description = video.Description != remote.Description

	if video.HasThumbnail() {
		localHash, err := video.ThumbnailHash()
		if err != nil {
			log.Printf("reconcile: %s: hashing local thumbnail failed: %v", video.LocalID, err)
		} else if data, err := r.remote.FetchThumbnail(ctx, remote); err != nil {
			// Unreachable or absent remote thumbnail counts as divergent.
			d.thumbnail = true
		} else {
			d.thumbnail = localHash != catalog.HashBytes(data)
		}
	}

	return d
}
