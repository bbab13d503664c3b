// Package ptsync mirrors a YouTube channel's video catalog to a self-hosted
// PeerTube instance.
//
// The mirror runs in two stages. The fetch stage (package youtube) downloads
// channel videos into a local store with yt-dlp, one media file plus a
// metadata sidecar and thumbnail per video. The reconcile stage (package
// reconcile) walks the local catalog (package catalog) and brings the
// instance in line with it through the PeerTube REST API (package peertube):
// missing videos are uploaded, divergent titles, descriptions, and
// thumbnails are patched, everything else is left alone.
//
// Idempotency rests on the transfer ledger (package ledger), two append-only
// files recording which videos were transferred and which remote video each
// one became. Every stage can be interrupted and re-run; completed work is
// never repeated and videos are never duplicated.
//
// The ptsync command in cmd/ptsync ties the stages together:
//
//	ptsync fetch @somechannel      # download into the local store
//	ptsync sync @somechannel       # fetch, then reconcile
//	ptsync match                   # adopt a pre-existing instance
//	ptsync set-dates               # restore original publication dates
//	ptsync status                  # local store and ledger counts
package ptsync
