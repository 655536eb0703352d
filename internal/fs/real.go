package fs

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"
)

const (
	lockTimeout   = 2 * time.Second
	lockPollEvery = 25 * time.Millisecond
	lockPerms     = 0o644
	dirPerms      = 0o755
)

// locksDirName is the subdirectory for lock files. Keeping lock files out
// of the data directory means backups and directory listings never pick
// them up.
const locksDirName = ".locks"

// Real implements [FS] on the real filesystem. All methods are passthroughs
// to the [os] package except [Real.WriteFileAtomic] (temp file + rename via
// the atomic package) and [Real.Lock] (flock with a bounded wait).
type Real struct{}

// NewReal returns a new [Real] filesystem.
func NewReal() *Real {
	return &Real{}
}

func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (r *Real) WriteFileAtomic(path string, data []byte, _ os.FileMode) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Exists checks if a file exists using [os.Stat].
// Returns (true, nil) if the file exists, (false, nil) if it does not,
// or (false, err) for other errors.
func (r *Real) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

// realLock holds an exclusive flock on a lock file.
type realLock struct {
	file *os.File
}

func (l *realLock) Close() error {
	if l.file == nil {
		return nil
	}

	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil

	return err
}

// Lock acquires an exclusive advisory lock for path. The lock file lives in
// a .locks sibling directory and is left in place after release; only the
// flock matters. Returns [os.ErrDeadlineExceeded] if the lock cannot be
// acquired within the timeout.
func (r *Real) Lock(path string) (Lock, error) {
	locksDir := filepath.Join(filepath.Dir(path), locksDirName)

	err := os.MkdirAll(locksDir, dirPerms)
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(locksDir, filepath.Base(path)+".lock")

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockPerms)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(lockTimeout)

	for {
		err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &realLock{file: file}, nil
		}

		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			file.Close()

			return nil, err
		}

		if time.Now().After(deadline) {
			file.Close()

			return nil, os.ErrDeadlineExceeded
		}

		time.Sleep(lockPollEvery)
	}
}

// Compile-time interface check.
var _ FS = (*Real)(nil)
