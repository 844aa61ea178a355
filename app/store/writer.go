package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	log "github.com/go-pkgz/lgr"
)

// writeSnapshot persists document bytes with the atomic rotation sequence:
// temp write, fsync, copy primary to backup, rename temp to primary. The
// rotation copies instead of renaming so the primary stays in place until
// the atomic replace and a crash at any point leaves it intact. A failure
// at any step leaves the previous primary untouched; a leftover temp file
// is harmless and ignored by readers.
func (s *Store) writeSnapshot(data []byte) error {
	if err := s.writeTemp(data); err != nil {
		return saveError("can't stage snapshot", err)
	}

	// copy the current primary into the backup slot, overwriting the
	// previous backup. First save has nothing to rotate.
	prev, err := os.ReadFile(s.paths.Primary)
	if err == nil {
		if werr := os.WriteFile(s.paths.Backup, prev, 0o600); werr != nil {
			return saveError("can't rotate backup", werr)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return saveError("can't check primary", err)
	}

	// the atomic step: readers see either the old or the new primary
	if err := os.Rename(s.paths.Temp, s.paths.Primary); err != nil {
		return saveError("can't replace primary", err)
	}
	s.syncDir()
	return nil
}

// writeTemp writes and forces the staged document to stable storage so it
// survives a crash during the rename that follows.
func (s *Store) writeTemp(data []byte) error {
	fh, err := os.OpenFile(s.paths.Temp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = fh.Write(data); err != nil {
		_ = fh.Close()
		return err
	}
	if err = fh.Sync(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// syncDir flushes the directory entry after rename. Best effort, some
// filesystems don't support it.
func (s *Store) syncDir() {
	dh, err := os.Open(s.paths.Dir)
	if err != nil {
		log.Printf("[DEBUG] can't open dir %s for sync, %v", s.paths.Dir, err)
		return
	}
	if err := dh.Sync(); err != nil {
		log.Printf("[DEBUG] can't sync dir %s, %v", s.paths.Dir, err)
	}
	_ = dh.Close()
}

// saveError classifies a save failure as disk exhaustion or write denial
func saveError(msg string, err error) *Error {
	kind := ErrKindWriteDenied
	if errors.Is(err, syscall.ENOSPC) {
		kind = ErrKindDiskExhausted
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf("%s, task changes kept in memory only", msg), Err: err}
}
