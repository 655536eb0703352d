package fs

import (
	"errors"
	"os"
)

// ErrInjected marks an error as intentionally injected by [Fault].
var ErrInjected = errors.New("injected fault")

// Fault wraps another [FS] and fails selected operations. It exists so
// tests can prove the atomic-write contract: when the write fails, the
// original file is untouched and the backup still exists.
type Fault struct {
	Inner FS

	// FailWrites makes WriteFileAtomic fail for paths present in the set.
	FailWrites map[string]bool

	// FailReads makes ReadFile fail for paths present in the set.
	FailReads map[string]bool
}

// NewFault wraps inner with no faults armed.
func NewFault(inner FS) *Fault {
	return &Fault{Inner: inner, FailWrites: map[string]bool{}, FailReads: map[string]bool{}}
}

func (f *Fault) ReadFile(path string) ([]byte, error) {
	if f.FailReads[path] {
		return nil, &os.PathError{Op: "read", Path: path, Err: ErrInjected}
	}

	return f.Inner.ReadFile(path)
}

func (f *Fault) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if f.FailWrites[path] {
		return &os.PathError{Op: "write", Path: path, Err: ErrInjected}
	}

	return f.Inner.WriteFileAtomic(path, data, perm)
}

func (f *Fault) ReadDir(path string) ([]os.DirEntry, error) {
	return f.Inner.ReadDir(path)
}

func (f *Fault) MkdirAll(path string, perm os.FileMode) error {
	return f.Inner.MkdirAll(path, perm)
}

func (f *Fault) Stat(path string) (os.FileInfo, error) {
	return f.Inner.Stat(path)
}

func (f *Fault) Exists(path string) (bool, error) {
	return f.Inner.Exists(path)
}

func (f *Fault) Remove(path string) error {
	return f.Inner.Remove(path)
}

func (f *Fault) Lock(path string) (Lock, error) {
	return f.Inner.Lock(path)
}

// Compile-time interface check.
var _ FS = (*Fault)(nil)
