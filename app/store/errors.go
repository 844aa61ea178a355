package store

import (
	"errors"
	"fmt"
)

// ErrKind enumerates every failure class the store can report. Only
// ErrKindLockContention and ErrKindDirUnavailable are fatal to the caller;
// the rest are absorbed or reported as degraded-mode signals.
type ErrKind int

// store error kinds
const (
	ErrKindLockContention ErrKind = iota // another process holds the store
	ErrKindDirUnavailable                // storage directory can't be created or accessed
	ErrKindWriteDenied                   // permission or IO failure during save
	ErrKindDiskExhausted                 // out of space during save
	ErrKindCorruptPrimary                // primary unreadable, recovered from backup
	ErrKindCorruptBoth                   // primary and backup unreadable, store reset
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindLockContention:
		return "lock contention"
	case ErrKindDirUnavailable:
		return "directory unavailable"
	case ErrKindWriteDenied:
		return "write denied"
	case ErrKindDiskExhausted:
		return "disk exhausted"
	case ErrKindCorruptPrimary:
		return "corrupt primary"
	case ErrKindCorruptBoth:
		return "corrupt primary and backup"
	}
	return fmt.Sprintf("unknown error kind %d", int(k))
}

// Error is the structured error returned by store operations. Msg is
// plain-language, suitable to show to the user as-is.
type Error struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports if err is a store Error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}
