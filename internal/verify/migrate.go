package verify

import (
	"errors"
	"fmt"
	"strings"

	"sitectl/internal/confdoc"
)

// Schema versioning for the verification document. Version 1 stored each
// checklist as a flat scalar list of "[x] step" / "[ ] step" lines with no
// record of who completed a step or when. Version 2 stores one nested
// record per item.
const (
	metaSection      = "meta"
	schemaVersionKey = "meta.schema_version"
	schemaVersion    = "2"
)

const (
	checkedPrefix   = "[x] "
	uncheckedPrefix = "[ ] "
)

// Migrate upgrades the verification document to the current schema in one
// store write: every flat checklist becomes nested item records, and the
// schema version marker is stamped. Running it on an already current
// document changes nothing. Returns the number of features whose
// checklist was rewritten.
func (e *Engine) Migrate() (int, error) {
	if version, err := e.st.Get(schemaVersionKey); err == nil && version == schemaVersion {
		return 0, nil
	}

	migrated := 0

	err := e.st.Apply(func(doc *confdoc.Document) error {
		migrated = 0

		var ids []string
		if doc.Exists(featuresSection) {
			var err error

			ids, err = doc.ChildKeys(featuresSection)
			if err != nil {
				return err
			}
		}

		for _, id := range ids {
			changed, err := migrateChecklist(doc, id)
			if err != nil {
				return err
			}

			if changed {
				migrated++
			}
		}

		return stampSchemaVersion(doc)
	})
	if err != nil {
		return 0, err
	}

	return migrated, nil
}

func migrateChecklist(doc *confdoc.Document, id string) (bool, error) {
	path := featurePath(id) + ".checklist"
	if !doc.Exists(path) {
		return false, nil
	}

	entries, err := doc.GetArray(path)
	if errors.Is(err, confdoc.ErrTypeMismatch) {
		// Already the nested layout.
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("migrating %s: %w", path, err)
	}

	items := make([]ChecklistItem, 0, len(entries))

	for _, entry := range entries {
		item := ChecklistItem{Text: entry}

		switch {
		case strings.HasPrefix(entry, checkedPrefix):
			item.Text = entry[len(checkedPrefix):]
			item.Completed = true
		case strings.HasPrefix(entry, uncheckedPrefix):
			item.Text = entry[len(uncheckedPrefix):]
		}

		items = append(items, item)
	}

	err = doc.PutRecord(featurePath(id), "checklist", checklistFields(items))
	if err != nil {
		return false, fmt.Errorf("migrating %s: %w", path, err)
	}

	return true, nil
}

func stampSchemaVersion(doc *confdoc.Document) error {
	if doc.Exists(metaSection) {
		return doc.SetField(schemaVersionKey, schemaVersion)
	}

	return doc.AppendRecord("", metaSection, []confdoc.Field{
		{Key: "schema_version", Value: confdoc.StringValue(schemaVersion)},
	})
}
