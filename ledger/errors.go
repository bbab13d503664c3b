package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors for common ledger conditions.
var (
	// ErrInvalidInput indicates an identifier that cannot be stored in the
	// line-oriented ledger format (empty, or containing whitespace).
	ErrInvalidInput = errors.New("ledger: invalid input")
	// ErrLockTimeout indicates a timeout acquiring the ledger file lock.
	ErrLockTimeout = errors.New("ledger: lock acquisition timeout")
	// ErrClosed indicates the ledger has been closed.
	ErrClosed = errors.New("ledger: closed")
)

// LedgerError wraps ledger errors with operation and file context.
// Use errors.As() to extract this error type and get operation details:
//
//	var ledErr *ledger.LedgerError
//	if errors.As(err, &ledErr) {
//		fmt.Printf("Failed to %s %s: %v\n", ledErr.Op, ledErr.Path, ledErr.Err)
//	}
type LedgerError struct {
	// Op is the operation that failed ("open", "append", "sync", "lock").
	Op string
	// Path is the ledger file involved.
	Path string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the ledger error.
func (e *LedgerError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ledger: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *LedgerError) Unwrap() error { return e.Err }
