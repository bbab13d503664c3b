package reconcile

import (
	"context"
	"log"

	"ptsync/catalog"
	"ptsync/peertube"
)

// Resolver maps a local video to its remote identity. The identity ledger is
// the sole source of truth once a mapping exists; remote search is only a
// recovery path for entries predating the ledger (earlier tooling or manual
// uploads).
type Resolver struct {
	ledger TransferLedger
	remote Platform
}

// NewResolver creates a resolver over the given ledger and remote platform.
func NewResolver(led TransferLedger, remote Platform) *Resolver {
	return &Resolver{ledger: led, remote: remote}
}

// Resolve returns the remote id for a video. The ledger is consulted first;
// on a miss, a title search against the remote platform looks for an entry
// whose name equals the local title exactly. A recovered mapping is written
// back to the identity ledger.
//
// Exact-title matching is a heuristic with known failure modes: a remotely
// edited title produces a false negative and duplicate titles produce a
// false positive. Ties between several exact matches are broken by taking
// the first result in the platform's own search order, with a diagnostic.
func (rs *Resolver) Resolve(ctx context.Context, video *catalog.VideoRecord) (remoteID string, found bool, err error) {
	if remoteID, ok := rs.ledger.RemoteID(video.LocalID); ok {
		return remoteID, true, nil
	}

	if video.Title == "" {
		// An empty title cannot be searched meaningfully.
		return "", false, nil
	}

	results, err := rs.remote.SearchByTitle(ctx, video.Title)
	if err != nil {
		return "", false, err
	}

	var matches []peertube.Video
	for _, result := range results {
		if result.Name == video.Title {
			matches = append(matches, result)
		}
	}

	if len(matches) == 0 {
		if len(results) > 0 {
			log.Printf("reconcile: %s: search returned %d results but none matched the title exactly; treating as absent", video.LocalID, len(results))
		}
		return "", false, nil
	}
	if len(matches) > 1 {
		log.Printf("reconcile: %s: %d remote videos share the exact title %q; taking the first in search order", video.LocalID, len(matches), video.Title)
	}

	remoteID = matches[0].RemoteID()
	if err := rs.ledger.RecordRemoteID(video.LocalID, remoteID); err != nil {
		// The mapping still holds for this run; persisting it failed.
		log.Printf("reconcile: %s: recording recovered mapping failed: %v", video.LocalID, err)
	} else {
		log.Printf("reconcile: %s: recovered mapping to %s via title search", video.LocalID, remoteID)
	}

	return remoteID, true, nil
}
