// Package store is the durability layer of taskvault: it owns the on-disk
// task document and guarantees that it survives crashes intact. Saves are
// full snapshots written atomically with a backup rotation; loads fall back
// from primary to backup to an empty store, quarantining unreadable files
// instead of deleting them. A pid-file lock keeps a second instance from
// writing to the same store.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"

	"github.com/taskvault/taskvault/app/task"
)

// nanosecond resolution so repeated corruption events for the same file
// never collide on the quarantine name
const quarantineTimeFmt = "20060102T150405.000000000"

// Store owns the persisted task document. Built by NewStore, armed by
// Initialize, and passed by reference to everything that loads or saves.
// All state lives here, there are no package-level globals.
type Store struct {
	paths    Paths
	locker   *Locker
	lock     *LockHandle
	retrier  Retrier
	degraded bool
}

// Retrier defines a retry policy for the disk write inside Save
type Retrier interface {
	Do(ctx context.Context, fun func() error, errs ...error) error
}

// NewStore makes a store over resolved paths. The store is not usable for
// writing until Initialize acquires the lock.
func NewStore(paths Paths) *Store {
	return &Store{
		paths:  paths,
		locker: NewLocker(paths.Lock),
		retrier: repeater.New(&strategy.Backoff{
			Repeats: 3, Duration: 50 * time.Millisecond, Factor: 2}),
	}
}

// Initialize makes the store ready: ensures the directory exists and
// acquires the exclusive lock within the timeout. Any error returned here
// is fatal, the caller must abort startup with the error's message.
func (s *Store) Initialize(lockTimeout time.Duration) error {
	if err := os.MkdirAll(s.paths.Dir, 0o700); err != nil {
		return &Error{Kind: ErrKindDirUnavailable,
			Msg: fmt.Sprintf("can't prepare storage directory %s", s.paths.Dir), Err: err}
	}
	h, err := s.locker.Acquire(lockTimeout)
	if err != nil {
		return err
	}
	s.lock = h
	log.Printf("[INFO] task store ready, %s", s.paths.Primary)
	return nil
}

// LoadResult carries the loaded tasks plus recovery diagnostics. Notice is
// a plain-language message for the user, empty on a clean load.
type LoadResult struct {
	Tasks     []task.Task
	Recovered bool // backup used after a corrupt or incompatible primary
	Reset     bool // both copies unreadable, store restarted empty
	Notice    string
}

// Load reads the task document. It never fails: a missing primary with no
// backup means a first run, a corrupt or missing primary is recovered from
// the backup (healing the primary), and if both copies are unreadable they
// are quarantined and the store restarts empty.
func (s *Store) Load() LoadResult {
	data, err := os.ReadFile(s.paths.Primary)
	if errors.Is(err, fs.ErrNotExist) {
		// a primary can vanish with a backup still present, e.g. a crash
		// between the backup rotation and the primary replacement - the
		// backup is authoritative then, never silently start empty
		if tasks, ok := s.loadBackup(); ok {
			log.Printf("[WARN] primary %s missing, recovering from backup", s.paths.Primary)
			s.heal(tasks)
			return LoadResult{
				Tasks:     tasks,
				Recovered: true,
				Notice:    fmt.Sprintf("recovered %d tasks from backup after a missing task file", len(tasks)),
			}
		}
		log.Printf("[DEBUG] no primary %s, starting empty", s.paths.Primary)
		return LoadResult{Tasks: []task.Task{}}
	}

	var primaryErr error
	if err != nil {
		primaryErr = err
	} else if tasks, derr := task.DecodeDocument(data); derr == nil {
		return LoadResult{Tasks: tasks}
	} else {
		primaryErr = derr
	}
	log.Printf("[WARN] %v", &Error{Kind: ErrKindCorruptPrimary,
		Msg: fmt.Sprintf("can't read primary %s", s.paths.Primary), Err: primaryErr})

	if tasks, ok := s.loadBackup(); ok {
		s.quarantine(s.paths.Primary)
		s.heal(tasks)
		return LoadResult{
			Tasks:     tasks,
			Recovered: true,
			Notice:    fmt.Sprintf("recovered %d tasks from backup after an unreadable task file", len(tasks)),
		}
	}

	log.Printf("[WARN] %v", &Error{Kind: ErrKindCorruptBoth,
		Msg: "task store unreadable, starting empty"})
	s.quarantine(s.paths.Primary)
	s.quarantine(s.paths.Backup)
	return LoadResult{
		Tasks: []task.Task{},
		Reset: true,
		Notice: "task store was unreadable and has been reset, " +
			"the old files are kept next to it with a corrupted- suffix",
	}
}

// loadBackup reads and decodes the backup copy
func (s *Store) loadBackup() (tasks []task.Task, ok bool) {
	data, err := os.ReadFile(s.paths.Backup)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[WARN] can't read backup %s, %v", s.paths.Backup, err)
		}
		return nil, false
	}
	tasks, err = task.DecodeDocument(data)
	if err != nil {
		log.Printf("[WARN] can't decode backup %s, %v", s.paths.Backup, err)
		return nil, false
	}
	return tasks, true
}

// heal re-saves recovered tasks as the new primary. The backup keeps the
// good copy, so a failure here only delays healing until the next save.
func (s *Store) heal(tasks []task.Task) {
	data, err := task.EncodeDocument(tasks)
	if err != nil {
		log.Printf("[WARN] can't encode recovered tasks, %v", err)
		return
	}
	if err := s.writeTemp(data); err != nil {
		log.Printf("[WARN] can't heal primary, %v", err)
		return
	}
	if err := os.Rename(s.paths.Temp, s.paths.Primary); err != nil {
		log.Printf("[WARN] can't heal primary, %v", err)
		return
	}
	s.syncDir()
	log.Printf("[INFO] healed primary %s from backup", s.paths.Primary)
}

// quarantine renames an unreadable file aside with a timestamp suffix for
// postmortem inspection. Missing files are fine, quarantine failures only
// logged - the upcoming save will overwrite the bad file anyway.
func (s *Store) quarantine(path string) {
	dst := fmt.Sprintf("%s.corrupted-%s", path, time.Now().Format(quarantineTimeFmt))
	err := os.Rename(path, dst)
	switch {
	case err == nil:
		log.Printf("[WARN] quarantined unreadable file %s to %s", path, dst)
	case errors.Is(err, fs.ErrNotExist): // nothing to quarantine
	default:
		log.Printf("[WARN] can't quarantine %s, %v", path, err)
	}
}

// Save persists the full task snapshot durably before returning. The write
// is retried a few times with backoff; if it still fails the store flips to
// degraded (memory-only) mode and returns the classified error. Later
// saves keep trying, the first success leaves degraded mode.
func (s *Store) Save(tasks []task.Task) error {
	data, err := task.EncodeDocument(tasks)
	if err != nil {
		// nothing touched the disk, not a write failure
		return fmt.Errorf("can't encode tasks: %w", err)
	}

	err = s.retrier.Do(context.Background(), func() error { return s.writeSnapshot(data) })
	if err != nil {
		if !s.degraded {
			log.Printf("[WARN] save failed, continuing in memory-only mode, %v", err)
		}
		s.degraded = true
		var se *Error
		if errors.As(err, &se) {
			return se
		}
		return saveError("can't save tasks", err)
	}

	if s.degraded {
		s.degraded = false
		log.Printf("[INFO] persistence restored, %d tasks saved", len(tasks))
	}
	log.Printf("[DEBUG] saved %d tasks to %s", len(tasks), s.paths.Primary)
	return nil
}

// Degraded reports if the last save failed and the session runs memory-only
func (s *Store) Degraded() bool { return s.degraded }

// Paths returns the resolved store file locations
func (s *Store) Paths() Paths { return s.paths }

// Shutdown releases the lock. Idempotent and safe to call even if
// Initialize never succeeded.
func (s *Store) Shutdown() {
	s.lock.Release()
	log.Printf("[DEBUG] task store shut down")
}
