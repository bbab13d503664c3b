package ptsync

import (
	"ptsync/config"
	"ptsync/ledger"
	"ptsync/peertube"
	"ptsync/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, peertube.ErrRemoteRejected) {
//		fmt.Println("The instance rejected the request")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var apiErr *peertube.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s returned HTTP %d\n", apiErr.Op, apiErr.Status)
//	}

// Type aliases for convenient error handling.
type (
	// LedgerError wraps errors from transfer ledger operations.
	LedgerError = ledger.LedgerError
	// APIError wraps errors from PeerTube API calls.
	APIError = peertube.APIError
	// ListerError wraps errors during channel enumeration.
	ListerError = youtube.ListerError
	// ValidationError reports an invalid configuration setting.
	ValidationError = config.ValidationError
)

// Sentinel errors from sub-packages, re-exported at the root for callers
// that only import ptsync.
var (
	// ErrRemoteUnavailable indicates the instance could not be reached or
	// answered with a server-side failure.
	ErrRemoteUnavailable = peertube.ErrRemoteUnavailable
	// ErrRemoteRejected indicates the instance understood and refused the
	// request.
	ErrRemoteRejected = peertube.ErrRemoteRejected
	// ErrLockTimeout indicates another process holds the ledger lock.
	ErrLockTimeout = ledger.ErrLockTimeout
	// ErrChannelNotFound indicates the source channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
)
