package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/shirou/gopsutil/v4/process"
)

// Locker manages the cross-process exclusive lock for a store. The lock is
// a pid file created with O_EXCL; a lock whose owner pid is no longer alive
// is considered stale and reclaimed during acquire.
type Locker struct {
	path string
}

// LockHandle represents a held lock. Release is idempotent.
type LockHandle struct {
	path     string
	released bool
}

// NewLocker makes a locker for the given lock file path
func NewLocker(path string) *Locker {
	return &Locker{path: path}
}

// Acquire attempts to take the lock within the bounded timeout. It retries
// with backoff while another live process holds the lock and fails with
// ErrKindLockContention once the timeout elapses. It never blocks past the
// deadline.
func (l *Locker) Acquire(timeout time.Duration) (*LockHandle, error) {
	deadline := time.Now().Add(timeout)
	backoff := 50 * time.Millisecond

	for {
		h, ownerPid, err := l.try()
		if err != nil {
			return nil, err
		}
		if h != nil {
			log.Printf("[DEBUG] acquired lock %s, pid %d", l.path, os.Getpid())
			return h, nil
		}

		if time.Now().After(deadline) {
			return nil, &Error{Kind: ErrKindLockContention,
				Msg: fmt.Sprintf("task store is locked by another instance (pid %d), close it and retry", ownerPid)}
		}
		time.Sleep(backoff)
		if backoff *= 2; backoff > 500*time.Millisecond {
			backoff = 500 * time.Millisecond
		}
	}
}

// try makes a single lock attempt. Returns a handle on success, the owner
// pid when the lock is held by a live process, or an error on anything
// unexpected. Stale locks are removed and reported as a retryable miss.
func (l *Locker) try() (h *LockHandle, ownerPid int, err error) {
	fh, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err == nil {
		if _, werr := fh.WriteString(strconv.Itoa(os.Getpid())); werr != nil {
			_ = fh.Close()
			_ = os.Remove(l.path)
			return nil, 0, &Error{Kind: ErrKindDirUnavailable,
				Msg: fmt.Sprintf("can't write lock file %s", l.path), Err: werr}
		}
		if cerr := fh.Close(); cerr != nil {
			_ = os.Remove(l.path)
			return nil, 0, &Error{Kind: ErrKindDirUnavailable,
				Msg: fmt.Sprintf("can't write lock file %s", l.path), Err: cerr}
		}
		return &LockHandle{path: l.path}, 0, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, 0, &Error{Kind: ErrKindDirUnavailable,
			Msg: fmt.Sprintf("can't create lock file %s", l.path), Err: err}
	}

	pid, alive := l.owner()
	if alive {
		return nil, pid, nil
	}

	// stale or unreadable lock, reclaim and let the caller retry
	log.Printf("[WARN] reclaiming stale lock %s, owner pid %d not running", l.path, pid)
	if rerr := os.Remove(l.path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
		return nil, 0, &Error{Kind: ErrKindDirUnavailable,
			Msg: fmt.Sprintf("can't remove stale lock %s", l.path), Err: rerr}
	}
	return nil, 0, nil
}

// owner reads the pid from the lock file and reports if that process is
// alive. A missing, empty or garbled lock file counts as not alive.
func (l *Locker) owner() (pid int, alive bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	if pid == os.Getpid() {
		return pid, true // our own lock, never reclaim it
	}
	exists, err := process.PidExists(int32(pid)) //nolint:gosec // pid fits int32 on supported platforms
	if err != nil {
		return pid, true // can't tell, assume alive to stay safe
	}
	return pid, exists
}

// Release removes the lock file. Safe to call multiple times and on a nil
// handle; it always succeeds.
func (h *LockHandle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] can't remove lock file %s, %v", h.path, err)
	}
}
