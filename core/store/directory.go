// Package store implements the Directory abstraction: a named
// byte-file namespace with seekable readers, sequential writers, and
// advisory locks, plus the concrete backends (RAM, filesystem,
// extension-switching) that plug into it.
package store

import "io"

// Directory is the external collaborator boundary named in the
// engine's scope: a named-file namespace with atomic create/rename
// (createOutput overwrites in place of a name), seekable readers,
// sequential writers, and advisory locks.
type Directory interface {
	// ListAll returns every file name currently in the namespace.
	ListAll() ([]string, error)
	// FileExists reports whether name is present.
	FileExists(name string) bool
	// FileLength returns the byte length of name.
	FileLength(name string) (int64, error)
	// FileModified returns name's last-modified time as milliseconds
	// since the Unix epoch.
	FileModified(name string) (int64, error)
	// CreateOutput opens name for sequential writing, overwriting any
	// existing content.
	CreateOutput(name string) (IndexOutput, error)
	// OpenInput opens name for random-access reading with the given
	// buffer size (0 selects the default).
	OpenInput(name string, bufferSize int) (IndexInput, error)
	// DeleteFile removes name. Deleting a name that does not exist is
	// not an error.
	DeleteFile(name string) error
	// Sync flushes the named files to stable storage.
	Sync(names []string) error
	// MakeLock returns a handle for the named advisory lock. The lock
	// is not held until Obtain succeeds.
	MakeLock(name string) Lock
	// Rename atomically renames oldName to newName within the namespace.
	Rename(oldName, newName string) error
	io.Closer
}

// Lock is an advisory, named lock. Implementations are not
// reentrant-safe across processes: a second Obtain from a different
// holder before Release fails or times out.
type Lock interface {
	// Obtain attempts to acquire the lock, failing if another holder
	// already owns it.
	Obtain() error
	// Release gives up the lock. Releasing a lock not held by the
	// caller is a no-op.
	Release() error
	// IsLocked reports whether the lock is currently held by anyone.
	IsLocked() bool
}
