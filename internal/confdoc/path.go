package confdoc

import (
	"fmt"
	"strings"
)

// span locates one node inside the document. key is the index of the key
// line (-1 for the virtual root), indent its indentation, and end the
// exclusive index of the first line after the node's block.
type span struct {
	key    int
	indent int
	end    int
}

func (d *Document) root() span {
	return span{key: -1, indent: -1, end: len(d.lines)}
}

// blockEnd finds the exclusive end of the block belonging to the key line
// at keyLine. The block runs until the first non-blank line (structural or
// comment) indented at or above the key's own level. Trailing blank lines
// before that terminator belong to the block.
func (d *Document) blockEnd(keyLine, indent int) int {
	for idx := keyLine + 1; idx < len(d.lines); idx++ {
		line := d.lines[idx]
		if isBlank(line) {
			continue
		}

		li, _ := indentWidth(line)
		if li <= indent {
			return idx
		}
	}

	return len(d.lines)
}

// childIndent returns the indentation of the first structural line in the
// node's block, or -1 if the block holds no structural lines.
func (d *Document) childIndent(s span) int {
	for idx := s.key + 1; idx < s.end; idx++ {
		line := d.lines[idx]
		if isBlank(line) || isComment(line) {
			continue
		}

		li, _ := indentWidth(line)

		return li
	}

	return -1
}

// findChild locates the direct child key of s. Commented-out lines and
// deeper-nested lines are skipped.
func (d *Document) findChild(s span, key string) (span, bool) {
	childIndent := d.childIndent(s)
	if childIndent < 0 {
		return span{}, false
	}

	for idx := s.key + 1; idx < s.end; idx++ {
		line := d.lines[idx]
		if isBlank(line) || isComment(line) {
			continue
		}

		li, _ := indentWidth(line)
		if li != childIndent {
			continue
		}

		if keyOf(line) != key {
			continue
		}

		return span{key: idx, indent: li, end: d.blockEnd(idx, li)}, true
	}

	return span{}, false
}

// hasScalarValue reports whether the node's key line carries a scalar value
// (anything after the colon that is not just an inline comment).
func (d *Document) hasScalarValue(s span) bool {
	if s.key < 0 {
		return false
	}

	raw := strings.TrimSpace(rawValueOf(d.lines[s.key]))

	return raw != "" && raw[0] != '#'
}

// resolve walks a dotted path from the document root.
//
// Returns [ErrNotFound] if any segment is absent and [ErrTypeMismatch] if
// an intermediate segment is a scalar rather than a record.
func (d *Document) resolve(path string) (span, error) {
	cur := d.root()
	if path == "" {
		return cur, nil
	}

	segments := strings.Split(path, ".")
	for i, segment := range segments {
		if segment == "" {
			return span{}, fmt.Errorf("%w: empty segment in path %q", ErrMalformed, path)
		}

		if d.hasScalarValue(cur) {
			return span{}, fmt.Errorf("%w: %s is a scalar, not a record", ErrTypeMismatch, strings.Join(segments[:i], "."))
		}

		child, ok := d.findChild(cur, segment)
		if !ok {
			return span{}, fmt.Errorf("%w: %s", ErrNotFound, strings.Join(segments[:i+1], "."))
		}

		cur = child
	}

	return cur, nil
}

// Get returns the decoded scalar at path.
//
// Fails with [ErrNotFound] if any segment is absent, and [ErrTypeMismatch]
// if the path traverses a scalar or terminates on a record or list.
func (d *Document) Get(path string) (string, error) {
	s, err := d.resolve(path)
	if err != nil {
		return "", err
	}

	if d.hasScalarValue(s) {
		return DecodeScalar(rawValueOf(d.lines[s.key])), nil
	}

	if _, kind := d.blockKind(s); kind != blockEmpty {
		return "", fmt.Errorf("%w: %s is not a scalar", ErrTypeMismatch, path)
	}

	// Key present with no value and no children: an empty scalar.
	return "", nil
}

// GetArray returns the decoded items of the block sequence at path.
//
// A key that is present with no items (or the explicit empty marker [])
// yields an empty, non-nil slice, distinct from [ErrNotFound].
func (d *Document) GetArray(path string) ([]string, error) {
	s, err := d.resolve(path)
	if err != nil {
		return nil, err
	}

	if d.hasScalarValue(s) {
		raw := strings.TrimSpace(rawValueOf(d.lines[s.key]))
		if commentStart(raw) >= 0 {
			raw = strings.TrimSpace(raw[:commentStart(raw)])
		}

		if raw == "[]" {
			return []string{}, nil
		}

		return nil, fmt.Errorf("%w: %s is a scalar, not a list", ErrTypeMismatch, path)
	}

	_, kind := d.blockKind(s)
	if kind == blockRecord {
		return nil, fmt.Errorf("%w: %s is a record, not a list", ErrTypeMismatch, path)
	}

	items := []string{}
	childIndent := d.childIndent(s)

	for idx := s.key + 1; idx < s.end; idx++ {
		line := d.lines[idx]
		if isBlank(line) || isComment(line) {
			continue
		}

		li, _ := indentWidth(line)
		if li != childIndent {
			continue
		}

		body := line[li:]
		if !isListItemBody(body) {
			continue
		}

		items = append(items, DecodeScalar(strings.TrimPrefix(body, "-")))
	}

	return items, nil
}

// ChildKeys enumerates the direct child keys of the record at path, in
// document order. Commented-out lines are skipped. Pass "" for the
// top-level sections.
func (d *Document) ChildKeys(path string) ([]string, error) {
	s, err := d.resolve(path)
	if err != nil {
		return nil, err
	}

	if d.hasScalarValue(s) {
		return nil, fmt.Errorf("%w: %s is a scalar, not a record", ErrTypeMismatch, path)
	}

	keys := []string{}
	childIndent := d.childIndent(s)

	for idx := s.key + 1; idx < s.end; idx++ {
		line := d.lines[idx]
		if isBlank(line) || isComment(line) {
			continue
		}

		li, _ := indentWidth(line)
		if li != childIndent {
			continue
		}

		key := keyOf(line)
		if key == "" {
			continue
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// Exists reports whether path resolves to any node. It never fails:
// malformed traversal (a scalar used as a record) simply reports false.
func (d *Document) Exists(path string) bool {
	_, err := d.resolve(path)

	return err == nil
}

type blockKindT uint8

const (
	blockEmpty blockKindT = iota
	blockRecord
	blockList
)

// blockKind inspects the first structural line of the node's block.
func (d *Document) blockKind(s span) (int, blockKindT) {
	for idx := s.key + 1; idx < s.end; idx++ {
		line := d.lines[idx]
		if isBlank(line) || isComment(line) {
			continue
		}

		li, _ := indentWidth(line)
		if isListItemBody(line[li:]) {
			return idx, blockList
		}

		return idx, blockRecord
	}

	return -1, blockEmpty
}
