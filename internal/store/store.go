// Package store implements the configuration store: CRUD over one
// document file with locked, backed-up, atomic mutation.
//
// A [Store] is an explicit handle pairing the parsed document with the file
// it came from; there is no ambient "current config file" state. Every
// mutation runs the same cycle: acquire the advisory lock, re-read the file
// to detect concurrent writers, apply the edit to the in-memory document,
// copy the current file to a timestamped backup, then atomically replace
// the file. If any step fails the file on disk is left untouched.
package store

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"sitectl/internal/confdoc"
	"sitectl/internal/fs"
)

// Error kinds surfaced by store operations. The first four are re-exported
// from the document model so callers only import one package.
var (
	ErrNotFound      = confdoc.ErrNotFound
	ErrAlreadyExists = confdoc.ErrAlreadyExists
	ErrTypeMismatch  = confdoc.ErrTypeMismatch
	ErrMalformed     = confdoc.ErrMalformed

	// ErrConflict reports that the file changed between read and write.
	// The concurrent change is never silently overwritten.
	ErrConflict = errors.New("file changed since read")

	// ErrImmutableField reports a write to a field that is set once at
	// record creation and never mutated afterwards.
	ErrImmutableField = errors.New("immutable field")

	// ErrIO wraps disk failures during the backup or write step.
	ErrIO = errors.New("io failure")
)

const filePerms = 0o644

// Store is a handle on one configuration document file.
type Store struct {
	fsys fs.FS
	path string
	doc  *confdoc.Document

	// baseSum fingerprints the file content this handle was loaded from,
	// for conflict detection on write. onDisk is false when the file did
	// not exist at open time.
	baseSum [sha256.Size]byte
	onDisk  bool

	// BackupDir overrides the default backup location
	// (a .backups directory next to the file).
	BackupDir string
}

// Open reads and parses the document at path. A missing file yields an
// empty document; sections are created on first use.
func Open(fsys fs.FS, path string) (*Store, error) {
	st := &Store{fsys: fsys, path: path}

	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			st.doc = confdoc.New()

			return st, nil
		}

		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	doc, err := confdoc.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	st.doc = doc
	st.baseSum = sha256.Sum256(data)
	st.onDisk = true

	return st, nil
}

// Path returns the file this store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Get returns the decoded scalar at the dotted path.
func (s *Store) Get(path string) (string, error) {
	return s.doc.Get(path)
}

// GetArray returns the list items at the dotted path. A present-but-empty
// list yields an empty slice, distinct from [ErrNotFound].
func (s *Store) GetArray(path string) ([]string, error) {
	return s.doc.GetArray(path)
}

// RecordNames enumerates the record names under sectionPath in document
// order, skipping commented-out lines.
func (s *Store) RecordNames(sectionPath string) ([]string, error) {
	return s.doc.ChildKeys(sectionPath)
}

// Exists reports whether the dotted path resolves. It never fails.
func (s *Store) Exists(path string) bool {
	return s.doc.Exists(path)
}

// Add appends a new record under sectionPath. Fails with
// [ErrAlreadyExists] if the name is taken; the file is left untouched.
func (s *Store) Add(sectionPath, name string, fields []confdoc.Field) error {
	return s.Apply(func(doc *confdoc.Document) error {
		return doc.AppendRecord(sectionPath, name, fields)
	})
}

// UpdateField writes a scalar field, creating it if its parent record
// exists (upsert at field granularity, not record granularity).
func (s *Store) UpdateField(path, value string) error {
	return s.Apply(func(doc *confdoc.Document) error {
		return doc.SetField(path, value)
	})
}

// AppendListItems appends items to a list, creating the list if absent and
// skipping items already present. Re-applying the same call is a no-op and
// produces no write.
func (s *Store) AppendListItems(path string, items []string) (int, error) {
	added := 0

	err := s.Apply(func(doc *confdoc.Document) error {
		var applyErr error

		added, applyErr = doc.AppendListItems(path, items)
		if applyErr != nil {
			return applyErr
		}

		if added == 0 {
			return errNoChange
		}

		return nil
	})
	if errors.Is(err, errNoChange) {
		return 0, nil
	}

	return added, err
}

// Remove deletes the named record under sectionPath, including its nested
// block and trailing blank line.
func (s *Store) Remove(sectionPath, name string) error {
	return s.Apply(func(doc *confdoc.Document) error {
		return doc.RemoveRecord(sectionPath, name)
	})
}

// errNoChange aborts an Apply cycle without surfacing an error, for
// idempotent operations that turn out to be no-ops.
var errNoChange = errors.New("no change")

// Apply runs one locked read-modify-atomic-write cycle. The mutation
// receives a scratch copy of the document; if it returns an error nothing
// is written and the in-memory document is unchanged. Several edits inside
// one Apply produce exactly one backup and one write.
func (s *Store) Apply(mutate func(doc *confdoc.Document) error) error {
	lock, err := s.fsys.Lock(s.path)
	if err != nil {
		return fmt.Errorf("%w: locking %s: %v", ErrIO, s.path, err)
	}
	defer lock.Close()

	current, err := s.readCurrent()
	if err != nil {
		return err
	}

	scratch := s.doc.Clone()

	err = mutate(scratch)
	if err != nil {
		return err
	}

	if current != nil {
		_, err = s.writeBackup(current)
		if err != nil {
			return err
		}
	}

	err = s.fsys.WriteFileAtomic(s.path, scratch.Bytes(), filePerms)
	if err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrIO, s.path, err)
	}

	s.doc = scratch
	s.baseSum = sha256.Sum256(scratch.Bytes())
	s.onDisk = true

	return nil
}

// readCurrent re-reads the file under the lock and verifies it still
// matches what this handle was loaded from. Returns the current bytes, or
// nil when the file legitimately does not exist yet.
func (s *Store) readCurrent() ([]byte, error) {
	data, err := s.fsys.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			if s.onDisk {
				return nil, fmt.Errorf("%w: %s was removed", ErrConflict, s.path)
			}

			return nil, nil
		}

		return nil, fmt.Errorf("%w: re-reading %s: %v", ErrIO, s.path, err)
	}

	if !s.onDisk {
		return nil, fmt.Errorf("%w: %s was created by another writer", ErrConflict, s.path)
	}

	if sha256.Sum256(data) != s.baseSum {
		return nil, fmt.Errorf("%w: %s", ErrConflict, s.path)
	}

	return data, nil
}
