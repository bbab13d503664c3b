// Package ledger persists which videos have been transferred to the remote
// platform. It maintains two append-only line files: an existence ledger
// (one local identifier per line) and an identity ledger (one
// "localId remoteId" pair per line). Both survive process restarts and are
// flushed to disk after every mutation, so a crash mid-run loses at most the
// in-flight video.
package ledger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const lockTimeout = 5 * time.Second

// Ledger tracks processed videos and their remote identities.
// Safe for concurrent use within a process; an advisory file lock guards
// against a second process opening the same ledger pair.
type Ledger struct {
	mu sync.RWMutex

	processed map[string]struct{}
	remote    map[string]string

	existencePath string
	identityPath  string
	existenceFile *os.File
	identityFile  *os.File
	lock          *FileLock
	closed        bool
}

// Open loads the ledger pair at the given paths, creating missing files.
// The advisory lock is held until Close.
func Open(existencePath, identityPath string) (*Ledger, error) {
	l := &Ledger{
		processed:     make(map[string]struct{}),
		remote:        make(map[string]string),
		existencePath: existencePath,
		identityPath:  identityPath,
		lock:          NewFileLock(identityPath),
	}

	if err := l.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := l.load(); err != nil {
		l.lock.Unlock()
		return nil, err
	}

	var err error
	l.existenceFile, err = openAppend(existencePath)
	if err != nil {
		l.lock.Unlock()
		return nil, err
	}
	l.identityFile, err = openAppend(identityPath)
	if err != nil {
		l.existenceFile.Close()
		l.lock.Unlock()
		return nil, err
	}

	return l, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, &LedgerError{Op: "open", Path: path, Err: err}
	}
	return f, nil
}

// load reads both ledger files into memory. Missing files are treated as
// empty ledgers. Malformed lines are skipped with a diagnostic rather than
// failing the whole run.
func (l *Ledger) load() error {
	data, err := os.ReadFile(l.existencePath)
	if err != nil && !os.IsNotExist(err) {
		return &LedgerError{Op: "read", Path: l.existencePath, Err: err}
	}
	for _, line := range strings.Split(string(data), "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		l.processed[id] = struct{}{}
	}

	data, err = os.ReadFile(l.identityPath)
	if err != nil && !os.IsNotExist(err) {
		return &LedgerError{Op: "read", Path: l.identityPath, Err: err}
	}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			log.Printf("ledger: skipping malformed line %d in %s", i+1, l.identityPath)
			continue
		}
		// First mapping wins; later duplicates are ignored
		if _, ok := l.remote[parts[0]]; !ok {
			l.remote[parts[0]] = parts[1]
		}
	}

	return nil
}

// IsProcessed reports whether localID is present in the existence ledger.
func (l *Ledger) IsProcessed(localID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.processed[localID]
	return ok
}

// MarkProcessed appends localID to the existence ledger. Idempotent: marking
// an already processed id is a no-op.
func (l *Ledger) MarkProcessed(localID string) error {
	if err := validateID(localID); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.markProcessedLocked(localID)
}

func (l *Ledger) markProcessedLocked(localID string) error {
	if l.closed {
		return ErrClosed
	}
	if _, ok := l.processed[localID]; ok {
		return nil
	}

	if err := l.appendLine(l.existenceFile, l.existencePath, localID); err != nil {
		return err
	}
	l.processed[localID] = struct{}{}
	return nil
}

// RemoteID returns the remote identifier mapped to localID, if any.
func (l *Ledger) RemoteID(localID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	remoteID, ok := l.remote[localID]
	return remoteID, ok
}

// RecordRemoteID appends a localID -> remoteID mapping to the identity
// ledger. Insert-only: if a mapping already exists it is authoritative and
// this call is a silent no-op, regardless of the new value. A recorded
// mapping also marks the id processed, keeping the existence ledger a
// superset of the identity ledger's keys even if the process dies between
// the two writes.
func (l *Ledger) RecordRemoteID(localID, remoteID string) error {
	if err := validateID(localID); err != nil {
		return err
	}
	if err := validateID(remoteID); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, ok := l.remote[localID]; ok {
		return nil
	}

	line := fmt.Sprintf("%s %s", localID, remoteID)
	if err := l.appendLine(l.identityFile, l.identityPath, line); err != nil {
		return err
	}
	l.remote[localID] = remoteID

	return l.markProcessedLocked(localID)
}

// Mappings returns a copy of the identity ledger.
func (l *Ledger) Mappings() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]string, len(l.remote))
	for k, v := range l.remote {
		out[k] = v
	}
	return out
}

// Counts returns the number of processed ids and identity mappings.
func (l *Ledger) Counts() (processed, mapped int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.processed), len(l.remote)
}

// appendLine writes one line and syncs the file so committed state survives
// a crash.
func (l *Ledger) appendLine(f *os.File, path, line string) error {
	if _, err := fmt.Fprintln(f, line); err != nil {
		return &LedgerError{Op: "append", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &LedgerError{Op: "sync", Path: path, Err: err}
	}
	return nil
}

// Close releases the file handles and the advisory lock.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if err := l.existenceFile.Close(); err != nil {
		firstErr = err
	}
	if err := l.identityFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// validateID rejects identifiers that would corrupt the line format.
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidInput, id)
	}
	return nil
}
