package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sitectl/internal/fs"
)

// fileHashSeparator separates hash from path in a file_hashes entry,
// matching the sha256sum output layout.
const fileHashSeparator = "  "

// fingerprint hashes the tracked files: the combined hash covers the
// concatenated content of every file in sorted path order, and perFile
// holds one "hash  path" line per file in the same order.
//
// A missing tracked file contributes empty content rather than an error,
// so a deletion shows up as a hash change instead of a crash. Any other
// read failure aborts.
func fingerprint(fsys fs.FS, root string, trackedFiles []string) (combined string, perFile []string, err error) {
	paths := append([]string(nil), trackedFiles...)
	sort.Strings(paths)

	whole := sha256.New()
	perFile = make([]string, 0, len(paths))

	for _, path := range paths {
		content, err := fsys.ReadFile(filepath.Join(root, path))
		if err != nil {
			if os.IsNotExist(err) {
				content = nil
			} else {
				return "", nil, fmt.Errorf("hashing %s: %w", path, err)
			}
		}

		whole.Write(content)

		sum := sha256.Sum256(content)
		perFile = append(perFile, hex.EncodeToString(sum[:])+fileHashSeparator+path)
	}

	return hex.EncodeToString(whole.Sum(nil)), perFile, nil
}

// changedFiles diffs two file_hashes snapshots and returns the paths whose
// hashes differ, including paths present in only one snapshot.
func changedFiles(before, after []string) []string {
	parse := func(entries []string) map[string]string {
		m := make(map[string]string, len(entries))

		for _, entry := range entries {
			idx := strings.Index(entry, fileHashSeparator)
			if idx < 0 {
				continue
			}

			m[entry[idx+len(fileHashSeparator):]] = entry[:idx]
		}

		return m
	}

	beforeMap := parse(before)
	afterMap := parse(after)

	changed := []string{}

	for path, hash := range afterMap {
		if beforeMap[path] != hash {
			changed = append(changed, path)
		}
	}

	for path := range beforeMap {
		if _, ok := afterMap[path]; !ok {
			changed = append(changed, path)
		}
	}

	sort.Strings(changed)

	return changed
}
