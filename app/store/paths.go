package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// store file names inside the storage directory
const (
	primaryName = "tasks.json"
	backupName  = "tasks.json.backup"
	tempName    = "tasks.json.tmp"
	lockName    = "tasks.json.lock"
)

// Paths holds the resolved locations of all store files.
type Paths struct {
	Dir     string
	Primary string
	Backup  string
	Temp    string
	Lock    string
}

// ResolvePaths computes the platform-appropriate storage directory for the
// application and creates it if missing. The directory is per-user, derived
// from os.UserConfigDir, with a dot-directory in $HOME as a fallback.
func ResolvePaths(appName string) (Paths, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			return Paths{}, &Error{Kind: ErrKindDirUnavailable,
				Msg: "can't resolve storage directory", Err: err}
		}
		return PathsIn(filepath.Join(home, "."+appName))
	}
	return PathsIn(filepath.Join(base, appName))
}

// PathsIn builds store paths inside an explicit directory, creating the
// directory and its parents if missing.
func PathsIn(dir string) (Paths, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Paths{}, &Error{Kind: ErrKindDirUnavailable,
			Msg: fmt.Sprintf("can't create storage directory %s", dir), Err: err}
	}
	return Paths{
		Dir:     dir,
		Primary: filepath.Join(dir, primaryName),
		Backup:  filepath.Join(dir, backupName),
		Temp:    filepath.Join(dir, tempName),
		Lock:    filepath.Join(dir, lockName),
	}, nil
}
