package store

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// backupDirName is the default backup directory, a sibling of the file.
const backupDirName = ".backups"

// backupSuffix terminates every backup file name.
const backupSuffix = ".bak"

// backupStamp is the timestamp layout in backup names. It sorts lexically.
const backupStamp = "20060102-150405"

func (s *Store) backupDir() string {
	if s.BackupDir != "" {
		return s.BackupDir
	}

	return filepath.Join(filepath.Dir(s.path), backupDirName)
}

// writeBackup copies data (the file's pre-mutation content) into the backup
// directory under a timestamped name. A per-second counter disambiguates
// rapid successive writes. Returns the backup path.
func (s *Store) writeBackup(data []byte) (string, error) {
	dir := s.backupDir()

	err := s.fsys.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("%w: creating backup dir %s: %v", ErrIO, dir, err)
	}

	base := filepath.Base(s.path)
	stamp := time.Now().UTC().Format(backupStamp)

	seq, err := s.nextBackupSeq(dir, base, stamp)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s.%s.%03d%s", base, stamp, seq, backupSuffix)
	path := filepath.Join(dir, name)

	err = s.fsys.WriteFileAtomic(path, data, filePerms)
	if err != nil {
		return "", fmt.Errorf("%w: writing backup %s: %v", ErrIO, path, err)
	}

	return path, nil
}

func (s *Store) nextBackupSeq(dir, base, stamp string) (int, error) {
	names, err := s.backupNames(dir, base)
	if err != nil {
		return 0, err
	}

	prefix := base + "." + stamp + "."
	seq := 0

	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			seq++
		}
	}

	return seq, nil
}

// Backups lists this file's backups, oldest first.
func (s *Store) Backups() ([]string, error) {
	names, err := s.backupNames(s.backupDir(), filepath.Base(s.path))
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(s.backupDir(), name))
	}

	return paths, nil
}

// PruneBackups removes all but the newest keep backups of this file.
// Pruning is explicit: the writer itself never deletes backups. Returns
// the number of backups removed.
func (s *Store) PruneBackups(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	dir := s.backupDir()

	names, err := s.backupNames(dir, filepath.Base(s.path))
	if err != nil {
		return 0, err
	}

	if len(names) <= keep {
		return 0, nil
	}

	removed := 0

	for _, name := range names[:len(names)-keep] {
		err = s.fsys.Remove(filepath.Join(dir, name))
		if err != nil {
			return removed, fmt.Errorf("%w: removing backup %s: %v", ErrIO, name, err)
		}

		removed++
	}

	return removed, nil
}

// backupNames returns this file's backup names sorted oldest first. The
// name layout (timestamp plus zero-padded counter) makes lexical order
// chronological.
func (s *Store) backupNames(dir, base string) ([]string, error) {
	exists, err := s.fsys.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: checking backup dir %s: %v", ErrIO, dir, err)
	}

	if !exists {
		return nil, nil
	}

	entries, err := s.fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading backup dir %s: %v", ErrIO, dir, err)
	}

	names := []string{}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, backupSuffix) {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names, nil
}
