package verify_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sitectl/internal/fs"
	"sitectl/internal/store"
	"sitectl/internal/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*verify.Engine, string) {
	t.Helper()

	root := t.TempDir()

	st, err := store.Open(fs.NewReal(), filepath.Join(root, "verification.yml"))
	require.NoError(t, err)

	return verify.New(st, fs.NewReal(), root), root
}

func writeTracked(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func requireRFC3339(t *testing.T, stamp string) {
	t.Helper()

	_, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err, "timestamp %q", stamp)
}

func Test_Register_CreatesUnverifiedFeature_WithSortedFilesAndOpenChecklist(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	err := eng.Register("backup",
		[]string{"modules/backup/backup.module", "config/backup.settings.yml"},
		[]string{"manual backup completes", "restore from backup works"})
	require.NoError(t, err)

	f, err := eng.Feature("backup")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusUnverified, f.Status)
	assert.Empty(t, f.VerifiedBy)
	assert.Empty(t, f.FileHash)
	assert.Equal(t, []string{"config/backup.settings.yml", "modules/backup/backup.module"}, f.TrackedFiles)

	require.Len(t, f.Checklist, 2)
	assert.Equal(t, "manual backup completes", f.Checklist[0].Text)
	assert.False(t, f.Checklist[0].Completed)
	assert.Empty(t, f.History)
}

func Test_Register_Fails_When_IDTaken(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	require.NoError(t, eng.Register("search", nil, nil))

	err := eng.Register("search", nil, nil)
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func Test_Verify_StoresFingerprintAndVerifier(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "modules/backup/backup.module", "<?php\n")

	require.NoError(t, eng.Register("backup", []string{"modules/backup/backup.module"}, nil))
	require.NoError(t, eng.Verify("backup", "rob"))

	f, err := eng.Feature("backup")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusVerified, f.Status)
	assert.Equal(t, "rob", f.VerifiedBy)
	requireRFC3339(t, f.VerifiedAt)
	assert.Len(t, f.FileHash, 64)

	require.Len(t, f.History, 1)
	assert.Equal(t, verify.EventVerified, f.History[0].EventType)
	assert.Equal(t, "rob", f.History[0].Actor)
}

func Test_Verify_Fails_When_FeatureUnregistered(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	err := eng.Verify("ghost", "rob")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func Test_Unverify_ClearsVerifierAndFingerprint(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "a.txt", "content\n")

	require.NoError(t, eng.Register("feat", []string{"a.txt"}, nil))
	require.NoError(t, eng.Verify("feat", "rob"))
	require.NoError(t, eng.Unverify("feat", "rob"))

	f, err := eng.Feature("feat")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusUnverified, f.Status)
	assert.Empty(t, f.VerifiedBy)
	assert.Empty(t, f.VerifiedAt)
	assert.Empty(t, f.FileHash)

	// History keeps both transitions.
	require.Len(t, f.History, 2)
	assert.Equal(t, verify.EventVerified, f.History[0].EventType)
	assert.Equal(t, verify.EventUnverified, f.History[1].EventType)
}

func Test_Check_InvalidatesVerifiedFeature_When_TrackedFileEdited(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "modules/search/search.module", "v1\n")
	writeTracked(t, root, "modules/search/search.install", "install\n")

	require.NoError(t, eng.Register("search",
		[]string{"modules/search/search.module", "modules/search/search.install"}, nil))
	require.NoError(t, eng.Verify("search", "ana"))

	writeTracked(t, root, "modules/search/search.module", "v2\n")

	results, err := eng.Check()
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Invalidated)
	assert.Equal(t, []string{"modules/search/search.module"}, results[0].Changed)

	f, err := eng.Feature("search")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusUnverified, f.Status)
	assert.Empty(t, f.VerifiedBy)
	assert.NotEmpty(t, f.FileHash, "the new fingerprint is recorded at invalidation")

	last := f.History[len(f.History)-1]
	assert.Equal(t, verify.EventInvalidated, last.EventType)
	assert.Contains(t, last.Detail, "modules/search/search.module")

	// A second scan finds nothing left to invalidate.
	results, err = eng.Check()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Invalidated)
}

func Test_Check_LeavesUnchangedAndUnverifiedFeaturesAlone(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "stable.txt", "same\n")
	writeTracked(t, root, "draft.txt", "draft\n")

	require.NoError(t, eng.Register("stable", []string{"stable.txt"}, nil))
	require.NoError(t, eng.Verify("stable", "rob"))
	require.NoError(t, eng.Register("draft", []string{"draft.txt"}, nil))

	writeTracked(t, root, "draft.txt", "edited, but draft was never verified\n")

	results, err := eng.Check()
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.False(t, result.Invalidated, result.ID)
	}

	f, err := eng.Feature("stable")
	require.NoError(t, err)
	assert.Equal(t, verify.StatusVerified, f.Status)

	f, err = eng.Feature("draft")
	require.NoError(t, err)
	assert.Empty(t, f.History)
}

func Test_Check_TreatsDeletedTrackedFileAsChange(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "gone.txt", "here today\n")

	require.NoError(t, eng.Register("feat", []string{"gone.txt"}, nil))
	require.NoError(t, eng.Verify("feat", "rob"))

	require.NoError(t, os.Remove(filepath.Join(root, "gone.txt")))

	results, err := eng.Check()
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Invalidated)
	assert.Equal(t, []string{"gone.txt"}, results[0].Changed)
}

func Test_Check_ContinuesScan_When_OneFeatureHashFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	st, err := store.Open(fs.NewReal(), filepath.Join(root, "verification.yml"))
	require.NoError(t, err)

	faulty := fs.NewFault(fs.NewReal())
	eng := verify.New(st, faulty, root)

	writeTracked(t, root, "a.txt", "a\n")
	writeTracked(t, root, "b.txt", "b\n")

	require.NoError(t, eng.Register("broken", []string{"a.txt"}, nil))
	require.NoError(t, eng.Verify("broken", "rob"))
	require.NoError(t, eng.Register("stale", []string{"b.txt"}, nil))
	require.NoError(t, eng.Verify("stale", "rob"))

	writeTracked(t, root, "b.txt", "edited\n")
	faulty.FailReads[filepath.Join(root, "a.txt")] = true

	results, err := eng.Check()
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]verify.CheckResult{}
	for _, result := range results {
		byID[result.ID] = result
	}

	require.ErrorIs(t, byID["broken"].Err, fs.ErrInjected)
	assert.False(t, byID["broken"].Invalidated)

	assert.True(t, byID["stale"].Invalidated)
	assert.Equal(t, []string{"b.txt"}, byID["stale"].Changed)

	// The unreadable feature keeps its verified state for the next scan.
	f, err := eng.Feature("broken")
	require.NoError(t, err)
	assert.Equal(t, verify.StatusVerified, f.Status)
	assert.Equal(t, "rob", f.VerifiedBy)
}

func Test_Toggle_AutoVerifies_When_LastItemCompleted(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "a.txt", "x\n")

	require.NoError(t, eng.Register("feat", []string{"a.txt"},
		[]string{"step one", "step two"}))

	f, err := eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)
	assert.Equal(t, verify.StatusUnverified, f.Status)
	assert.True(t, f.Checklist[0].Completed)
	assert.Equal(t, "ana", f.Checklist[0].CompletedBy)
	requireRFC3339(t, f.Checklist[0].CompletedAt)

	f, err = eng.Toggle("feat", 1, "ana")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusVerified, f.Status)
	assert.Equal(t, verify.ChecklistVerifier, f.VerifiedBy)
	assert.NotEmpty(t, f.FileHash)

	last := f.History[len(f.History)-1]
	assert.Equal(t, verify.EventVerified, last.EventType)
	assert.Equal(t, verify.ChecklistVerifier, last.Actor)
}

func Test_Toggle_AutoUnverifies_When_ChecklistVerifiedFeatureLosesItem(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	require.NoError(t, eng.Register("feat", nil, []string{"only step"}))

	f, err := eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)
	require.Equal(t, verify.StatusVerified, f.Status)

	f, err = eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusUnverified, f.Status)
	assert.Empty(t, f.VerifiedBy)
	assert.False(t, f.Checklist[0].Completed)
	assert.Empty(t, f.Checklist[0].CompletedBy)
}

func Test_Toggle_KeepsManualVerification_When_ItemUncompleted(t *testing.T) {
	t.Parallel()

	eng, root := newEngine(t)
	writeTracked(t, root, "a.txt", "x\n")

	require.NoError(t, eng.Register("feat", []string{"a.txt"}, []string{"step one", "step two"}))

	_, err := eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)

	require.NoError(t, eng.Verify("feat", "rob"))

	f, err := eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)

	// rob vouched for the feature directly; the checklist rule only
	// retracts its own auto-verifications.
	assert.Equal(t, verify.StatusVerified, f.Status)
	assert.Equal(t, "rob", f.VerifiedBy)
}

func Test_Toggle_DoesNotReverify_When_AlreadyVerified(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	require.NoError(t, eng.Register("feat", nil, []string{"a", "b"}))
	require.NoError(t, eng.Verify("feat", "rob"))

	_, err := eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)

	f, err := eng.Toggle("feat", 1, "ana")
	require.NoError(t, err)

	assert.Equal(t, "rob", f.VerifiedBy, "completing the checklist must not steal rob's verification")
}

func Test_Toggle_Fails_When_IndexOutOfRange(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	require.NoError(t, eng.Register("feat", nil, []string{"only step"}))

	_, err := eng.Toggle("feat", 1, "ana")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = eng.Toggle("feat", -1, "ana")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func Test_SetNote_ReplacesNoteAndRecordsEvent(t *testing.T) {
	t.Parallel()

	eng, _ := newEngine(t)

	require.NoError(t, eng.Register("feat", nil, nil))
	require.NoError(t, eng.SetNote("feat", "needs a second pass on mobile", "ana"))

	f, err := eng.Feature("feat")
	require.NoError(t, err)

	assert.Equal(t, "needs a second pass on mobile", f.Notes)
	require.Len(t, f.History, 1)
	assert.Equal(t, verify.EventNoteUpdated, f.History[0].EventType)
}

func Test_Feature_SurvivesReopen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "verification.yml")

	st, err := store.Open(fs.NewReal(), path)
	require.NoError(t, err)

	eng := verify.New(st, fs.NewReal(), root)
	writeTracked(t, root, "a.txt", "x\n")

	require.NoError(t, eng.Register("feat", []string{"a.txt"}, []string{"step"}))
	_, err = eng.Toggle("feat", 0, "ana")
	require.NoError(t, err)

	st2, err := store.Open(fs.NewReal(), path)
	require.NoError(t, err)

	f, err := verify.New(st2, fs.NewReal(), root).Feature("feat")
	require.NoError(t, err)

	assert.Equal(t, verify.StatusVerified, f.Status)
	assert.Equal(t, verify.ChecklistVerifier, f.VerifiedBy)
	assert.True(t, f.Checklist[0].Completed)
	require.Len(t, f.History, 2)
}
