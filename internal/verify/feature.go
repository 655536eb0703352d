// Package verify implements the feature verification state machine.
//
// Each declared feature tracks a set of repository files, a content-hash
// fingerprint of those files, and a checklist of human-verifiable steps.
// The engine derives an overall status per feature and keeps an
// append-only history of every transition. State is persisted through the
// configuration store under the features section of the verification
// document, so every engine operation inherits the store's locked,
// backed-up, atomic write cycle.
package verify

import (
	"fmt"
	"strconv"

	"sitectl/internal/confdoc"
	"sitectl/internal/store"
)

// Status is the stored trust state of a feature. Only unverified and
// verified are ever persisted; partial is a display value computed from
// the checklist (see [DisplayStatus]).
type Status string

// Stored status values.
const (
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
)

// StatusPartial is the computed display status for a feature with some but
// not all checklist items completed. Never persisted, and never considered
// by hash invalidation.
const StatusPartial = "partial"

// ChecklistVerifier is the actor recorded when a feature auto-verifies by
// completing its whole checklist.
const ChecklistVerifier = "checklist"

// EventType classifies history events.
type EventType string

// EventType values.
const (
	EventVerified    EventType = "verified"
	EventUnverified  EventType = "unverified"
	EventInvalidated EventType = "invalidated"
	EventToggled     EventType = "checklist_item_toggled"
	EventNoteUpdated EventType = "note_updated"
)

// ChecklistItem is one independently completable verification step.
type ChecklistItem struct {
	Text        string
	Completed   bool
	CompletedBy string
	CompletedAt string
}

// HistoryEvent is one entry in a feature's append-only history.
type HistoryEvent struct {
	Timestamp string
	EventType EventType
	Actor     string
	Detail    string
}

// Feature is the full verification state of one declared feature.
type Feature struct {
	ID           string
	Status       Status
	VerifiedBy   string
	VerifiedAt   string
	FileHash     string
	TrackedFiles []string
	Notes        string

	// FileHashes holds one "hash  path" line per tracked file, recorded
	// alongside FileHash so an invalidation can name the files that
	// actually changed.
	FileHashes []string

	Checklist []ChecklistItem
	History   []HistoryEvent
}

// Section under which features persist in the verification document.
const featuresSection = "features"

func featurePath(id string) string {
	return featuresSection + "." + id
}

// loadFeature reads a feature record out of the store. Fails with
// [store.ErrNotFound] if the id is unregistered.
func loadFeature(st *store.Store, id string) (Feature, error) {
	base := featurePath(id)
	if !st.Exists(base) {
		return Feature{}, fmt.Errorf("%w: feature %s", store.ErrNotFound, id)
	}

	f := Feature{ID: id, Status: StatusUnverified}

	status, err := st.Get(base + ".status")
	if err == nil && Status(status) == StatusVerified {
		f.Status = StatusVerified
	}

	f.VerifiedBy, _ = st.Get(base + ".verified_by")
	f.VerifiedAt, _ = st.Get(base + ".verified_at")
	f.FileHash, _ = st.Get(base + ".file_hash")
	f.Notes, _ = st.Get(base + ".notes")

	f.TrackedFiles, err = st.GetArray(base + ".tracked_files")
	if err != nil {
		return Feature{}, fmt.Errorf("feature %s: tracked_files: %w", id, err)
	}

	f.FileHashes, _ = st.GetArray(base + ".file_hashes")

	f.Checklist, err = loadChecklist(st, base)
	if err != nil {
		return Feature{}, err
	}

	f.History, err = loadHistory(st, base)
	if err != nil {
		return Feature{}, err
	}

	return f, nil
}

func loadChecklist(st *store.Store, base string) ([]ChecklistItem, error) {
	path := base + ".checklist"
	if !st.Exists(path) {
		return nil, nil
	}

	if entries, err := st.GetArray(path); err == nil && len(entries) > 0 {
		// A flat scalar list is the pre-migration layout.
		return nil, fmt.Errorf("%w: %s uses the flat checklist layout, run migrate first", store.ErrMalformed, path)
	}

	keys, err := st.RecordNames(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	items := make([]ChecklistItem, 0, len(keys))

	for _, key := range keys {
		item := ChecklistItem{}
		item.Text, _ = st.Get(path + "." + key + ".text")

		completed, _ := st.Get(path + "." + key + ".completed")
		item.Completed = completed == "true"
		item.CompletedBy, _ = st.Get(path + "." + key + ".completed_by")
		item.CompletedAt, _ = st.Get(path + "." + key + ".completed_at")

		items = append(items, item)
	}

	return items, nil
}

func loadHistory(st *store.Store, base string) ([]HistoryEvent, error) {
	path := base + ".history"
	if !st.Exists(path) {
		return nil, nil
	}

	keys, err := st.RecordNames(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	events := make([]HistoryEvent, 0, len(keys))

	for _, key := range keys {
		event := HistoryEvent{}
		event.Timestamp, _ = st.Get(path + "." + key + ".timestamp")

		eventType, _ := st.Get(path + "." + key + ".event_type")
		event.EventType = EventType(eventType)
		event.Actor, _ = st.Get(path + "." + key + ".actor")
		event.Detail, _ = st.Get(path + "." + key + ".detail")

		events = append(events, event)
	}

	return events, nil
}

// featureFields renders a feature into the record shape written back to
// the document. Field order is fixed so diffs of the verification file
// stay readable.
func featureFields(f Feature) []confdoc.Field {
	fields := []confdoc.Field{
		{Key: "status", Value: confdoc.StringValue(string(f.Status))},
		{Key: "verified_by", Value: confdoc.StringValue(f.VerifiedBy)},
		{Key: "verified_at", Value: confdoc.StringValue(f.VerifiedAt)},
		{Key: "file_hash", Value: confdoc.StringValue(f.FileHash)},
	}

	if f.Notes != "" {
		fields = append(fields, confdoc.Field{Key: "notes", Value: confdoc.StringValue(f.Notes)})
	}

	fields = append(fields,
		confdoc.Field{Key: "tracked_files", Value: confdoc.ListValue(f.TrackedFiles)},
		confdoc.Field{Key: "file_hashes", Value: confdoc.ListValue(f.FileHashes)},
		confdoc.Field{Key: "checklist", Value: confdoc.RecordValue(checklistFields(f.Checklist))},
		confdoc.Field{Key: "history", Value: confdoc.RecordValue(historyFields(f.History))},
	)

	return fields
}

func checklistFields(items []ChecklistItem) []confdoc.Field {
	fields := make([]confdoc.Field, 0, len(items))

	for idx, item := range items {
		fields = append(fields, confdoc.Field{
			Key: "item_" + strconv.Itoa(idx),
			Value: confdoc.RecordValue([]confdoc.Field{
				{Key: "text", Value: confdoc.StringValue(item.Text)},
				{Key: "completed", Value: confdoc.StringValue(strconv.FormatBool(item.Completed))},
				{Key: "completed_by", Value: confdoc.StringValue(item.CompletedBy)},
				{Key: "completed_at", Value: confdoc.StringValue(item.CompletedAt)},
			}),
		})
	}

	return fields
}

func historyFields(events []HistoryEvent) []confdoc.Field {
	fields := make([]confdoc.Field, 0, len(events))

	for idx, event := range events {
		fields = append(fields, confdoc.Field{
			Key: "event_" + strconv.Itoa(idx),
			Value: confdoc.RecordValue([]confdoc.Field{
				{Key: "timestamp", Value: confdoc.StringValue(event.Timestamp)},
				{Key: "event_type", Value: confdoc.StringValue(string(event.EventType))},
				{Key: "actor", Value: confdoc.StringValue(event.Actor)},
				{Key: "detail", Value: confdoc.StringValue(event.Detail)},
			}),
		})
	}

	return fields
}
