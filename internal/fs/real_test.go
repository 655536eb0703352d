package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"sitectl/internal/fs"
)

func Test_WriteFileAtomic_ReplacesContentCompletely(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	path := filepath.Join(t.TempDir(), "config.yml")

	err := fsys.WriteFileAtomic(path, []byte("first version\n"), 0o644)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}

	err = fsys.WriteFileAtomic(path, []byte("x\n"), 0o644)
	if err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	if string(got) != "x\n" {
		t.Errorf("content = %q, want %q", got, "x\n")
	}
}

func Test_Exists_DistinguishesMissingFromError(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	ok, err := fsys.Exists(path)
	if err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}

	err = os.WriteFile(path, []byte("sites:\n"), 0o644)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	ok, err = fsys.Exists(path)
	if err != nil || !ok {
		t.Fatalf("present file: ok=%v err=%v", ok, err)
	}
}

func Test_Lock_BlocksSecondAcquirer_UntilReleased(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	path := filepath.Join(t.TempDir(), "config.yml")

	first, err := fsys.Lock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}

	// A second acquire must not succeed while the first is held.
	_, err = fsys.Lock(path)
	if err == nil {
		t.Fatal("second lock acquired while first still held")
	}

	err = first.Close()
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	second, err := fsys.Lock(path)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}

	_ = second.Close()
}

func Test_Lock_KeepsLockFilesOutOfDataDir(t *testing.T) {
	t.Parallel()

	fsys := fs.NewReal()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	lock, err := fsys.Lock(path)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer lock.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	for _, entry := range entries {
		if entry.Name() != ".locks" {
			t.Errorf("unexpected entry in data dir: %s", entry.Name())
		}
	}
}
