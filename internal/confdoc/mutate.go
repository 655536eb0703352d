package confdoc

import (
	"errors"
	"fmt"
	"strings"
)

// recordIndentStep is the indentation added per nesting level when the
// document gives no existing children to infer from.
const recordIndentStep = 2

// ValueKind describes the shapes a record field can hold.
type ValueKind uint8

// ValueKind values enumerate the supported field shapes.
const (
	ValueScalar ValueKind = iota
	ValueList
	ValueRecord
)

// Value is one field value inside a record being written.
type Value struct {
	Kind   ValueKind // Kind describes which member is populated.
	Scalar string    // Scalar holds the value when Kind == ValueScalar.
	List   []string  // List holds the items when Kind == ValueList.
	Record []Field   // Record holds the nested fields when Kind == ValueRecord.
}

// Field pairs a key with its value. Fields keep their order when written.
type Field struct {
	Key   string
	Value Value
}

// StringValue creates a scalar field value.
func StringValue(s string) Value {
	return Value{Kind: ValueScalar, Scalar: s}
}

// ListValue creates a block-sequence field value.
func ListValue(items []string) Value {
	return Value{Kind: ValueList, List: items}
}

// RecordValue creates a nested record field value.
func RecordValue(fields []Field) Value {
	return Value{Kind: ValueRecord, Record: fields}
}

// SetField writes a scalar at path, creating the field if its parent record
// exists (upsert at field granularity). Fails with [ErrNotFound] if the
// parent record is absent and [ErrTypeMismatch] if the field currently
// holds a record or list. Rewriting a field replaces only its own line;
// any inline comment on that line is dropped.
func (d *Document) SetField(path, value string) error {
	parentPath, field, err := splitParent(path)
	if err != nil {
		return err
	}

	parent, err := d.resolve(parentPath)
	if err != nil {
		return err
	}

	if d.hasScalarValue(parent) {
		return fmt.Errorf("%w: %s is a scalar, not a record", ErrTypeMismatch, parentPath)
	}

	child, ok := d.findChild(parent, field)
	if ok {
		if !d.hasScalarValue(child) {
			if _, kind := d.blockKind(child); kind != blockEmpty {
				return fmt.Errorf("%w: %s is not a scalar field", ErrTypeMismatch, path)
			}
		}

		d.splice(child.key, child.key+1, []string{
			strings.Repeat(" ", child.indent) + field + ": " + EncodeScalar(value),
		})

		return nil
	}

	indent := d.childIndent(parent)
	if indent < 0 {
		indent = parent.indent + recordIndentStep
	}

	at := d.insertionPoint(parent)
	d.splice(at, at, []string{
		strings.Repeat(" ", indent) + field + ": " + EncodeScalar(value),
	})

	return nil
}

// AppendListItems appends items to the block sequence at path, creating the
// list if it is absent (the parent record must exist). Items already in the
// list are skipped, so re-applying the same call is idempotent. Returns the
// number of items actually added.
func (d *Document) AppendListItems(path string, items []string) (int, error) {
	parentPath, field, err := splitParent(path)
	if err != nil {
		return 0, err
	}

	parent, err := d.resolve(parentPath)
	if err != nil {
		return 0, err
	}

	if d.hasScalarValue(parent) {
		return 0, fmt.Errorf("%w: %s is a scalar, not a record", ErrTypeMismatch, parentPath)
	}

	child, ok := d.findChild(parent, field)
	if !ok {
		indent := d.childIndent(parent)
		if indent < 0 {
			indent = parent.indent + recordIndentStep
		}

		lines := []string{strings.Repeat(" ", indent) + field + ":"}
		for _, item := range items {
			lines = append(lines, strings.Repeat(" ", indent+recordIndentStep)+"- "+EncodeScalar(item))
		}

		at := d.insertionPoint(parent)
		d.splice(at, at, lines)

		return len(items), nil
	}

	if d.hasScalarValue(child) {
		raw := strings.TrimSpace(rawValueOf(d.lines[child.key]))
		if idx := commentStart(raw); idx >= 0 {
			raw = strings.TrimSpace(raw[:idx])
		}

		if raw != "[]" {
			return 0, fmt.Errorf("%w: %s is a scalar, not a list", ErrTypeMismatch, path)
		}

		// Expand the empty marker into block form.
		d.splice(child.key, child.key+1, []string{
			strings.Repeat(" ", child.indent) + field + ":",
		})
		child.end = child.key + 1
	}

	if _, kind := d.blockKind(child); kind == blockRecord {
		return 0, fmt.Errorf("%w: %s is a record, not a list", ErrTypeMismatch, path)
	}

	existing, err := d.GetArray(path)
	if err != nil {
		return 0, err
	}

	present := make(map[string]bool, len(existing))
	for _, item := range existing {
		present[item] = true
	}

	itemIndent := d.childIndent(child)
	if itemIndent < 0 {
		itemIndent = child.indent + recordIndentStep
	}

	lines := []string{}

	for _, item := range items {
		if present[item] {
			continue
		}

		present[item] = true

		lines = append(lines, strings.Repeat(" ", itemIndent)+"- "+EncodeScalar(item))
	}

	if len(lines) == 0 {
		return 0, nil
	}

	at := d.insertionPoint(child)
	d.splice(at, at, lines)

	return len(lines), nil
}

// AppendRecord adds a named record under sectionPath. A missing top-level
// section is created; a missing nested parent is [ErrNotFound]. Fails with
// [ErrAlreadyExists] if the name is already taken; existing records are
// never silently overwritten.
func (d *Document) AppendRecord(sectionPath, name string, fields []Field) error {
	section, err := d.ensureSection(sectionPath)
	if err != nil {
		return err
	}

	if _, ok := d.findChild(section, name); ok {
		return fmt.Errorf("%w: %s.%s", ErrAlreadyExists, sectionPath, name)
	}

	indent := d.childIndent(section)
	if indent < 0 {
		indent = section.indent + recordIndentStep
	}

	at := d.insertionPoint(section)
	d.splice(at, at, renderRecord(name, fields, indent))

	return nil
}

// PutRecord writes a named record under sectionPath, replacing an existing
// record of the same name in place (its position in the section is kept).
// A missing record is appended as with [Document.AppendRecord].
func (d *Document) PutRecord(sectionPath, name string, fields []Field) error {
	section, err := d.ensureSection(sectionPath)
	if err != nil {
		return err
	}

	child, ok := d.findChild(section, name)
	if !ok {
		indent := d.childIndent(section)
		if indent < 0 {
			indent = section.indent + recordIndentStep
		}

		at := d.insertionPoint(section)
		d.splice(at, at, renderRecord(name, fields, indent))

		return nil
	}

	d.splice(child.key, d.insertionPoint(child), renderRecord(name, fields, child.indent))

	return nil
}

// RemoveRecord deletes the named record under sectionPath, including its
// nested block and any trailing blank line left behind. Fails with
// [ErrNotFound] if the record is absent.
func (d *Document) RemoveRecord(sectionPath, name string) error {
	section, err := d.resolve(sectionPath)
	if err != nil {
		return err
	}

	child, ok := d.findChild(section, name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrNotFound, sectionPath, name)
	}

	d.splice(child.key, child.end, nil)

	return nil
}

// ensureSection resolves sectionPath, creating it at the end of the
// document when it is a missing top-level section.
func (d *Document) ensureSection(sectionPath string) (span, error) {
	section, err := d.resolve(sectionPath)
	if err == nil {
		if d.hasScalarValue(section) {
			return span{}, fmt.Errorf("%w: %s is a scalar, not a record", ErrTypeMismatch, sectionPath)
		}

		return section, nil
	}

	if !strings.Contains(sectionPath, ".") && sectionPath != "" && errors.Is(err, ErrNotFound) {
		at := len(d.lines)
		d.splice(at, at, []string{sectionPath + ":"})

		return span{key: at, indent: 0, end: len(d.lines)}, nil
	}

	return span{}, err
}

// insertionPoint returns the line index just past the last structural line
// of the node's block, keeping trailing blank or comment lines after the
// inserted content.
func (d *Document) insertionPoint(s span) int {
	last := s.key

	for idx := s.key + 1; idx < s.end; idx++ {
		line := d.lines[idx]
		if isBlank(line) || isComment(line) {
			continue
		}

		last = idx
	}

	return last + 1
}

func renderRecord(name string, fields []Field, indent int) []string {
	lines := []string{strings.Repeat(" ", indent) + name + ":"}

	return append(lines, renderFields(fields, indent+recordIndentStep)...)
}

func renderFields(fields []Field, indent int) []string {
	pad := strings.Repeat(" ", indent)
	itemPad := strings.Repeat(" ", indent+recordIndentStep)

	lines := []string{}

	for _, field := range fields {
		switch field.Value.Kind {
		case ValueScalar:
			lines = append(lines, pad+field.Key+": "+EncodeScalar(field.Value.Scalar))
		case ValueList:
			lines = append(lines, pad+field.Key+":")
			for _, item := range field.Value.List {
				lines = append(lines, itemPad+"- "+EncodeScalar(item))
			}
		case ValueRecord:
			lines = append(lines, pad+field.Key+":")
			lines = append(lines, renderFields(field.Value.Record, indent+recordIndentStep)...)
		}
	}

	return lines
}

func splitParent(path string) (string, string, error) {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		if path == "" {
			return "", "", fmt.Errorf("%w: empty path", ErrMalformed)
		}

		return "", path, nil
	}

	parent := path[:idx]
	field := path[idx+1:]

	if parent == "" || field == "" {
		return "", "", fmt.Errorf("%w: empty segment in path %q", ErrMalformed, path)
	}

	return parent, field, nil
}
