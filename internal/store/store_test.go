package store_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sitectl/internal/confdoc"
	"sitectl/internal/fs"
	"sitectl/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedDoc = `sites:
  alpha:
    directory: /var/www/alpha
    recipe: d10_standard
    environment: development
    created: 2026-01-15T08:00:00Z
    installed_modules:
      - pathauto

  beta:
    directory: /var/www/beta
    recipe: d10_minimal
    environment: production
`

func seedStore(t *testing.T) (*store.Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(seedDoc), 0o644))

	st, err := store.Open(fs.NewReal(), path)
	require.NoError(t, err)

	return st, path
}

func backupCount(t *testing.T, path string) int {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(filepath.Dir(path), ".backups"))
	if os.IsNotExist(err) {
		return 0
	}

	require.NoError(t, err)

	return len(entries)
}

func Test_Open_YieldsEmptyDocument_When_FileMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")

	st, err := store.Open(fs.NewReal(), path)
	require.NoError(t, err)

	assert.False(t, st.Exists("sites"))

	// First mutation creates the file without a backup (there is nothing
	// to back up yet).
	err = st.Add("sites", "first", []confdoc.Field{
		{Key: "directory", Value: confdoc.StringValue("/tmp/first")},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, backupCount(t, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first:")
}

func Test_Open_Fails_When_DocumentMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("sites:\n\tbad: tab\n"), 0o644))

	_, err := store.Open(fs.NewReal(), path)
	require.ErrorIs(t, err, store.ErrMalformed)
}

// Contract: updateField then get round-trips the value.
func Test_UpdateField_RoundTrips_And_BacksUpOnce(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	require.NoError(t, st.UpdateField("sites.alpha.environment", "staging"))

	got, err := st.Get("sites.alpha.environment")
	require.NoError(t, err)
	assert.Equal(t, "staging", got)

	assert.Equal(t, 1, backupCount(t, path), "exactly one backup per mutating call")

	// Reopening sees the persisted value.
	reopened, err := store.Open(fs.NewReal(), path)
	require.NoError(t, err)

	got, err = reopened.Get("sites.alpha.environment")
	require.NoError(t, err)
	assert.Equal(t, "staging", got)
}

func Test_UpdateField_Fails_When_ParentMissing(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	err := st.UpdateField("sites.ghost.environment", "staging")
	require.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, 0, backupCount(t, path), "failed mutation writes nothing")
}

func Test_Add_Fails_When_NameTaken_LeavingFileUnchanged(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	err := st.Add("sites", "alpha", []confdoc.Field{
		{Key: "directory", Value: confdoc.StringValue("/tmp/dup")},
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, seedDoc, string(data))
	assert.Equal(t, 0, backupCount(t, path))
}

func Test_Remove_DeletesRecord_LeavingSiblingsByteIdentical(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	require.NoError(t, st.Remove("sites", "alpha"))

	assert.False(t, st.Exists("sites.alpha"))
	assert.True(t, st.Exists("sites.beta"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// The beta record's lines survive exactly as written.
	for _, line := range []string{
		"  beta:",
		"    directory: /var/www/beta",
		"    recipe: d10_minimal",
		"    environment: production",
	} {
		assert.Contains(t, string(data), line+"\n")
	}

	assert.NotContains(t, string(data), "alpha")
}

func Test_AppendListItems_SecondCall_ProducesNoWrite(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	added, err := st.AppendListItems("sites.alpha.installed_modules", []string{"redirect", "pathauto"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	first, err := st.GetArray("sites.alpha.installed_modules")
	require.NoError(t, err)

	added, err = st.AppendListItems("sites.alpha.installed_modules", []string{"redirect", "pathauto"})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	second, err := st.GetArray("sites.alpha.installed_modules")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 1, backupCount(t, path), "idempotent no-op must not write")
}

func Test_Apply_DetectsConflict_When_FileChangedSinceOpen(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	other, err := store.Open(fs.NewReal(), path)
	require.NoError(t, err)

	require.NoError(t, other.UpdateField("sites.beta.environment", "staging"))

	err = st.UpdateField("sites.alpha.environment", "staging")
	require.ErrorIs(t, err, store.ErrConflict)

	// The concurrent write must not be clobbered.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "    environment: staging\n")
}

func Test_Apply_KeepsOriginalAndBackup_When_WriteFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(seedDoc), 0o644))

	fault := fs.NewFault(fs.NewReal())
	fault.FailWrites[path] = true

	st, err := store.Open(fault, path)
	require.NoError(t, err)

	err = st.UpdateField("sites.alpha.environment", "staging")
	require.ErrorIs(t, err, store.ErrIO)

	// Original untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, seedDoc, string(data))

	// The backup taken before the failed write still exists and holds the
	// pre-mutation content.
	backups, err := st.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	backupData, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, seedDoc, string(backupData))
}

func Test_Apply_ChangesOnlyIntendedSpan(t *testing.T) {
	t.Parallel()

	st, path := seedStore(t)

	require.NoError(t, st.UpdateField("sites.beta.recipe", "d10_standard"))

	backups, err := st.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	before, err := os.ReadFile(backups[0])
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)

	beforeLines := strings.Split(string(before), "\n")
	afterLines := strings.Split(string(after), "\n")
	require.Equal(t, len(beforeLines), len(afterLines))

	changed := 0

	for idx := range beforeLines {
		if beforeLines[idx] != afterLines[idx] {
			changed++

			assert.Equal(t, "    recipe: d10_standard", afterLines[idx])
		}
	}

	assert.Equal(t, 1, changed, "live file differs from backup only in the intended span")
}
