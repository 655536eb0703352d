package verify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sitectl/internal/confdoc"
	"sitectl/internal/fs"
	"sitectl/internal/store"
)

// Engine drives the verification state machine. All transitions happen
// through explicit engine operations; nothing runs in the background.
type Engine struct {
	st   *store.Store
	fsys fs.FS

	// root is the directory tracked-file paths are relative to.
	root string

	now func() time.Time
}

// New creates an engine over the given verification store. Tracked-file
// paths resolve relative to root.
func New(st *store.Store, fsys fs.FS, root string) *Engine {
	return &Engine{st: st, fsys: fsys, root: root, now: time.Now}
}

// Store exposes the underlying verification store.
func (e *Engine) Store() *store.Store {
	return e.st
}

func (e *Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// IDs lists registered feature ids in document order.
func (e *Engine) IDs() ([]string, error) {
	if !e.st.Exists(featuresSection) {
		return nil, nil
	}

	return e.st.RecordNames(featuresSection)
}

// Feature loads the full state of one feature.
func (e *Engine) Feature(id string) (Feature, error) {
	return loadFeature(e.st, id)
}

// Register declares a new feature: status unverified, no fingerprint, all
// checklist items incomplete. The tracked file set is fixed here and not
// mutated afterwards. Fails with [store.ErrAlreadyExists] for a duplicate
// id.
func (e *Engine) Register(id string, trackedFiles, checklistTexts []string) error {
	files := append([]string(nil), trackedFiles...)
	sort.Strings(files)

	f := Feature{
		ID:           id,
		Status:       StatusUnverified,
		TrackedFiles: files,
	}

	for _, text := range checklistTexts {
		f.Checklist = append(f.Checklist, ChecklistItem{Text: text})
	}

	return e.st.Add(featuresSection, id, featureFields(f))
}

// ComputeHash recomputes the feature's fingerprint from the working tree
// without storing anything.
func (e *Engine) ComputeHash(id string) (string, error) {
	f, err := loadFeature(e.st, id)
	if err != nil {
		return "", err
	}

	combined, _, err := fingerprint(e.fsys, e.root, f.TrackedFiles)

	return combined, err
}

// Verify marks the feature trusted by actor: stores the current
// fingerprint and appends a verified event.
func (e *Engine) Verify(id, actor string) error {
	f, err := loadFeature(e.st, id)
	if err != nil {
		return err
	}

	combined, perFile, err := fingerprint(e.fsys, e.root, f.TrackedFiles)
	if err != nil {
		return err
	}

	f.Status = StatusVerified
	f.VerifiedBy = actor
	f.VerifiedAt = e.timestamp()
	f.FileHash = combined
	f.FileHashes = perFile
	f.History = append(f.History, HistoryEvent{
		Timestamp: e.timestamp(),
		EventType: EventVerified,
		Actor:     actor,
	})

	return e.save(f)
}

// Unverify withdraws trust: status back to unverified, verifier and
// fingerprint cleared, unverified event appended.
func (e *Engine) Unverify(id, actor string) error {
	f, err := loadFeature(e.st, id)
	if err != nil {
		return err
	}

	f.Status = StatusUnverified
	f.VerifiedBy = ""
	f.VerifiedAt = ""
	f.FileHash = ""
	f.FileHashes = nil
	f.History = append(f.History, HistoryEvent{
		Timestamp: e.timestamp(),
		EventType: EventUnverified,
		Actor:     actor,
	})

	return e.save(f)
}

// CheckResult reports the outcome of Check for one feature.
type CheckResult struct {
	ID          string
	Invalidated bool

	// Changed names the tracked files whose content changed, when the
	// feature was invalidated and per-file hashes were available.
	Changed []string

	// Err is set when this feature could not be checked. Other features
	// are still checked.
	Err error
}

// Check recomputes every verified feature's fingerprint and invalidates
// those whose tracked files changed: status back to unverified, verifier
// cleared, the new fingerprint stored, and an invalidated event naming the
// changed files. Features that are not currently verified are already
// untrusted and never transition here.
//
// One feature's failure does not stop the scan; it is reported in its
// CheckResult. All invalidations land in a single store write.
func (e *Engine) Check() ([]CheckResult, error) {
	ids, err := e.IDs()
	if err != nil {
		return nil, err
	}

	results := make([]CheckResult, 0, len(ids))
	invalidated := make([]Feature, 0)

	for _, id := range ids {
		result := CheckResult{ID: id}

		f, err := loadFeature(e.st, id)
		if err != nil {
			result.Err = err
			results = append(results, result)

			continue
		}

		if f.Status != StatusVerified {
			results = append(results, result)

			continue
		}

		combined, perFile, err := fingerprint(e.fsys, e.root, f.TrackedFiles)
		if err != nil {
			result.Err = err
			results = append(results, result)

			continue
		}

		if combined == f.FileHash {
			results = append(results, result)

			continue
		}

		changed := changedFiles(f.FileHashes, perFile)

		f.Status = StatusUnverified
		f.VerifiedBy = ""
		f.VerifiedAt = ""
		f.FileHash = combined
		f.FileHashes = perFile
		f.History = append(f.History, HistoryEvent{
			Timestamp: e.timestamp(),
			EventType: EventInvalidated,
			Actor:     "check",
			Detail:    invalidationDetail(changed),
		})

		result.Invalidated = true
		result.Changed = changed
		results = append(results, result)
		invalidated = append(invalidated, f)
	}

	if len(invalidated) > 0 {
		err = e.st.Apply(func(doc *confdoc.Document) error {
			for _, f := range invalidated {
				putErr := doc.PutRecord(featuresSection, f.ID, featureFields(f))
				if putErr != nil {
					return putErr
				}
			}

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

func invalidationDetail(changed []string) string {
	if len(changed) == 0 {
		return "tracked file fingerprint changed"
	}

	return "changed: " + strings.Join(changed, ", ")
}

// Toggle flips the completion state of exactly one checklist item,
// addressed by zero-based index, then applies the derived-status rule.
// Returns the feature's state after the toggle.
func (e *Engine) Toggle(id string, index int, actor string) (Feature, error) {
	f, err := loadFeature(e.st, id)
	if err != nil {
		return Feature{}, err
	}

	if index < 0 || index >= len(f.Checklist) {
		return Feature{}, fmt.Errorf("%w: feature %s has no checklist item %d", store.ErrNotFound, id, index+1)
	}

	item := &f.Checklist[index]
	item.Completed = !item.Completed

	if item.Completed {
		item.CompletedBy = actor
		item.CompletedAt = e.timestamp()
	} else {
		item.CompletedBy = ""
		item.CompletedAt = ""
	}

	state := "uncompleted"
	if item.Completed {
		state = "completed"
	}

	f.History = append(f.History, HistoryEvent{
		Timestamp: e.timestamp(),
		EventType: EventToggled,
		Actor:     actor,
		Detail:    fmt.Sprintf("item %d %s: %s", index+1, state, item.Text),
	})

	err = e.applyChecklistRule(&f)
	if err != nil {
		return Feature{}, err
	}

	err = e.save(f)
	if err != nil {
		return Feature{}, err
	}

	return f, nil
}

// applyChecklistRule is the single place the derived-status rule lives, so
// the invariant "status is a pure function of checklist and hash" stays
// auditable:
//
//   - all items completed (and there is at least one): the feature
//     auto-verifies with verified_by "checklist" and a fresh fingerprint;
//   - a feature that was auto-verified via checklist loses an item: it
//     drops back to unverified.
//
// A feature verified by a named actor is not downgraded by unticking a
// checklist item, and a feature with no checklist never auto-verifies.
func (e *Engine) applyChecklistRule(f *Feature) error {
	completed := completedCount(f.Checklist)

	if len(f.Checklist) > 0 && completed == len(f.Checklist) {
		if f.Status == StatusVerified {
			return nil
		}

		combined, perFile, err := fingerprint(e.fsys, e.root, f.TrackedFiles)
		if err != nil {
			return err
		}

		f.Status = StatusVerified
		f.VerifiedBy = ChecklistVerifier
		f.VerifiedAt = e.timestamp()
		f.FileHash = combined
		f.FileHashes = perFile
		f.History = append(f.History, HistoryEvent{
			Timestamp: e.timestamp(),
			EventType: EventVerified,
			Actor:     ChecklistVerifier,
			Detail:    "auto-verified via checklist",
		})

		return nil
	}

	if f.Status == StatusVerified && f.VerifiedBy == ChecklistVerifier && completed < len(f.Checklist) {
		f.Status = StatusUnverified
		f.VerifiedBy = ""
		f.VerifiedAt = ""
		f.History = append(f.History, HistoryEvent{
			Timestamp: e.timestamp(),
			EventType: EventUnverified,
			Actor:     ChecklistVerifier,
			Detail:    "checklist item uncompleted",
		})
	}

	return nil
}

// SetNote replaces the feature's free-form note and records the change.
func (e *Engine) SetNote(id, note, actor string) error {
	f, err := loadFeature(e.st, id)
	if err != nil {
		return err
	}

	f.Notes = note
	f.History = append(f.History, HistoryEvent{
		Timestamp: e.timestamp(),
		EventType: EventNoteUpdated,
		Actor:     actor,
	})

	return e.save(f)
}

func (e *Engine) save(f Feature) error {
	return e.st.Apply(func(doc *confdoc.Document) error {
		return doc.PutRecord(featuresSection, f.ID, featureFields(f))
	})
}
