// Package reconcile decides, for each locally fetched video, whether it has
// already been mirrored to the remote platform, whether its remote
// representation is stale, and what minimal set of remote mutations brings
// it back in sync. It is safe to re-run any number of times against partial,
// interrupted, or concurrently modified state: the transfer ledger makes
// every decision idempotent at the granularity of one video.
package reconcile

import (
	"context"
	"log"

	"ptsync/catalog"
	"ptsync/peertube"
)

// State is the terminal or intermediate state of one video's reconciliation.
type State int

const (
	// StateNew means no remote identity was found; the video needs a create.
	StateNew State = iota
	// StateMatched means a remote identity was resolved.
	StateMatched
	// StateReconciled is terminal success: created, patched, or verified in sync.
	StateReconciled
	// StateSkipped means the video was deliberately not touched.
	StateSkipped
	// StateFailed is terminal failure for this run; the video stays eligible
	// for the next run.
	StateFailed
)

// String returns the string representation of a state.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateMatched:
		return "matched"
	case StateReconciled:
		return "reconciled"
	case StateSkipped:
		return "skipped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Platform is the remote side consumed by the reconciler. *peertube.Client
// implements it.
type Platform interface {
	Upload(ctx context.Context, req peertube.UploadRequest) (*peertube.Video, error)
	UpdateVideo(ctx context.Context, remoteID string, req peertube.UpdateRequest) error
	UploadThumbnail(ctx context.Context, remoteID, thumbnailPath string) error
	Video(ctx context.Context, remoteID string) (*peertube.Video, error)
	SearchByTitle(ctx context.Context, title string) ([]peertube.Video, error)
	FetchThumbnail(ctx context.Context, v *peertube.Video) ([]byte, error)
}

// TransferLedger is the persisted transfer state consumed by the reconciler.
// *ledger.Ledger implements it.
type TransferLedger interface {
	IsProcessed(localID string) bool
	MarkProcessed(localID string) error
	RemoteID(localID string) (string, bool)
	RecordRemoteID(localID, remoteID string) error
}

// Options tune reconciliation behavior.
type Options struct {
	// RefreshThumbnailOnFetchError re-uploads the thumbnail when the remote
	// state cannot be fetched during diff computation. Title and description
	// are always assumed unchanged in that case: the remote values are
	// unknown, and pushing local values against an unknown baseline would
	// produce spurious updates. The asymmetry is intentional and logged.
	RefreshThumbnailOnFetchError bool
}

// DefaultOptions returns the default reconciliation options.
func DefaultOptions() Options {
	return Options{RefreshThumbnailOnFetchError: true}
}

// Result is the outcome of reconciling one video.
type Result struct {
	LocalID          string
	State            State
	RemoteID         string
	Created          bool
	PatchedMetadata  bool
	PatchedThumbnail bool
	Err              error
}

// Summary aggregates the outcomes of a full run.
type Summary struct {
	Created   int
	Patched   int
	Unchanged int
	Skipped   int
	Failed    int
	Results   []Result
}

// Reconciler drives the per-video state machine.
type Reconciler struct {
	ledger   TransferLedger
	remote   Platform
	resolver *Resolver
	opts     Options
}

// New creates a reconciler over the given ledger and remote platform.
func New(led TransferLedger, remote Platform, opts Options) *Reconciler {
	return &Reconciler{
		ledger:   led,
		remote:   remote,
		resolver: NewResolver(led, remote),
		opts:     opts,
	}
}

// Run processes videos strictly sequentially in the order given: one video
// is fully resolved, created, or reconciled before the next begins.
// Per-video errors never abort the run.
func (r *Reconciler) Run(ctx context.Context, videos []*catalog.VideoRecord) *Summary {
	summary := &Summary{}

	for _, video := range videos {
		if ctx.Err() != nil {
			log.Printf("reconcile: run canceled after %d videos", len(summary.Results))
			break
		}

		result := r.reconcile(ctx, video)
		summary.Results = append(summary.Results, result)

		switch {
		case result.State == StateFailed:
			summary.Failed++
			log.Printf("reconcile: %s failed: %v", result.LocalID, result.Err)
		case result.State == StateSkipped:
			summary.Skipped++
		case result.Created:
			summary.Created++
			log.Printf("reconcile: %s created as %s", result.LocalID, result.RemoteID)
		case result.PatchedMetadata || result.PatchedThumbnail:
			summary.Patched++
			log.Printf("reconcile: %s patched (metadata=%t thumbnail=%t)",
				result.LocalID, result.PatchedMetadata, result.PatchedThumbnail)
		default:
			summary.Unchanged++
		}
	}

	return summary
}

// reconcile runs the state machine for a single video.
func (r *Reconciler) reconcile(ctx context.Context, video *catalog.VideoRecord) Result {
	result := Result{LocalID: video.LocalID, State: StateNew}

	remoteID, found, err := r.resolver.Resolve(ctx, video)
	if err != nil {
		result.State = StateFailed
		result.Err = err
		return result
	}

	if !found {
		// A processed id without a remote identity means a prior run
		// transferred this video but never learned its remote id. Creating
		// again would duplicate it; leave it for manual recovery (or the
		// bulk matcher).
		if r.ledger.IsProcessed(video.LocalID) {
			log.Printf("reconcile: %s processed previously but remote identity unknown; skipping to avoid a duplicate", video.LocalID)
			result.State = StateSkipped
			return result
		}
		return r.create(ctx, video, result)
	}

	result.State = StateMatched
	result.RemoteID = remoteID
	return r.patch(ctx, video, result)
}

// create handles the NEW state: upload, then commit both ledgers.
func (r *Reconciler) create(ctx context.Context, video *catalog.VideoRecord, result Result) Result {
	if !video.HasMedia() {
		log.Printf("reconcile: %s has no local media file; skipping", video.LocalID)
		result.State = StateSkipped
		result.Err = catalog.ErrMediaMissing
		return result
	}

	remote, err := r.remote.Upload(ctx, peertube.UploadRequest{
		Name:                  video.Title,
		Description:           video.Description,
		MediaPath:             video.MediaPath,
		ThumbnailPath:         video.ThumbnailPath,
		OriginallyPublishedAt: video.UploadDate,
	})
	if err != nil {
		// No ledger entry was written; the video stays eligible for the
		// next run.
		result.State = StateFailed
		result.Err = err
		return result
	}

	result.RemoteID = remote.RemoteID()
	result.Created = true

	if err := r.ledger.RecordRemoteID(video.LocalID, result.RemoteID); err != nil {
		// The remote entry exists but the mapping is lost; the next run
		// recovers it through title search.
		result.State = StateFailed
		result.Err = err
		return result
	}
	if err := r.ledger.MarkProcessed(video.LocalID); err != nil {
		result.State = StateFailed
		result.Err = err
		return result
	}

	result.State = StateReconciled
	return result
}

// patch handles the MATCHED state: diff, minimal mutation, mark processed.
func (r *Reconciler) patch(ctx context.Context, video *catalog.VideoRecord, result Result) Result {
	d := r.computeDiff(ctx, video, result.RemoteID)

	if d.title || d.description {
		// One metadata call carrying current local values as authoritative.
		if err := r.remote.UpdateVideo(ctx, result.RemoteID, peertube.UpdateRequest{
			Name:        &video.Title,
			Description: &video.Description,
		}); err != nil {
			result.State = StateFailed
			result.Err = err
			return result
		}
		result.PatchedMetadata = true
	}

	if d.thumbnail {
		if err := r.remote.UploadThumbnail(ctx, result.RemoteID, video.ThumbnailPath); err != nil {
			result.State = StateFailed
			result.Err = err
			return result
		}
		result.PatchedThumbnail = true
	}

	// Even a no-op marks the video processed, so the unmapped-fallback path
	// never re-runs needlessly for it.
	if err := r.ledger.MarkProcessed(video.LocalID); err != nil {
		result.State = StateFailed
		result.Err = err
		return result
	}

	result.State = StateReconciled
	return result
}
