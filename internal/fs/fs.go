// Package fs provides the filesystem abstraction used by the store and
// verification engine.
//
// Two implementations are provided:
//   - [Real]: production implementation over the [os] package, with atomic
//     writes and advisory file locking
//   - [Fault]: testing implementation that fails selected operations
//
// The interface exists so write-failure semantics (original file untouched,
// backup preserved) can be tested without depending on a hostile disk.
package fs

import "os"

// FS defines the filesystem operations the store depends on.
type FS interface {
	// ReadFile reads an entire file. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data via a temp file in the same directory
	// followed by a rename, so the target is never observed half-written.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// ReadDir reads a directory, entries sorted by name. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error

	// Lock acquires an exclusive advisory lock scoped to path.
	// Call Close on the returned lock to release it.
	Lock(path string) (Lock, error)
}

// Lock is a held advisory file lock.
type Lock interface {
	Close() error
}
