// Package confdoc implements the line-oriented document model behind the
// site configuration store.
//
// The format is a restricted YAML subset, kept deliberately small so that
// parsing stays deterministic and hand-edited files survive round-trips
// byte for byte:
//
//	settings:
//	  email:
//	    domain: example.org   # inline comment
//	sites:
//	  mysite:
//	    directory: /var/www/mysite
//	    installed_modules:
//	      - pathauto
//	      - redirect
//
// Scalars may be unquoted, single-quoted, or double-quoted, optionally
// followed by an inline comment. Lists are block sequences of scalars.
// Records nest by indentation (spaces only, no tabs).
//
// Explicitly not supported: flow collections other than the empty list
// marker [], anchors, aliases, multi-line strings, and multi-document
// streams.
//
// The document keeps every physical line it was parsed from. Reads walk the
// line structure; mutations splice the smallest possible range of lines, so
// untouched content (formatting, comments, commented-out entries) is
// re-emitted exactly as it was read.
package confdoc

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by document operations. Callers match with
// [errors.Is]; every error carries the offending path or line as context.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrMalformed     = errors.New("malformed document")
)

// Document is the in-memory representation of one configuration file.
//
// The zero value is not usable; obtain a Document from [Parse] or [New].
type Document struct {
	lines        []string
	finalNewline bool
}

// New returns an empty document.
func New() *Document {
	return &Document{finalNewline: true}
}

// Parse validates src and returns its document model.
//
// Validation is structural only: tabs in indentation, key lines without a
// colon, content before the first top-level key, and inconsistent sibling
// indentation are rejected with [ErrMalformed]. Whether a given node is a
// scalar, record, or list is decided lazily by the accessor that touches
// it, mirroring how the documents are consumed.
func Parse(src []byte) (*Document, error) {
	doc := &Document{}

	if len(src) == 0 {
		return doc, nil
	}

	text := string(src)
	if strings.HasSuffix(text, "\n") {
		doc.finalNewline = true
		text = text[:len(text)-1]
	}

	doc.lines = strings.Split(text, "\n")

	err := doc.validate()
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// Bytes serializes the document. For an unmodified document the output is
// byte-identical to the input of [Parse].
func (d *Document) Bytes() []byte {
	if len(d.lines) == 0 {
		return nil
	}

	joined := strings.Join(d.lines, "\n")
	if d.finalNewline {
		joined += "\n"
	}

	return []byte(joined)
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	return &Document{
		lines:        append([]string(nil), d.lines...),
		finalNewline: d.finalNewline,
	}
}

func (d *Document) validate() error {
	// Stack of open block indents. A dedent must land exactly on one of
	// them; a sibling indented between two levels would be skipped by
	// traversal and could shadow an existing key.
	indents := []int{}

	for num, line := range d.lines {
		if isBlank(line) {
			continue
		}

		indent, hasTab := indentWidth(line)
		if hasTab {
			return malformedErr(num, "tabs are not allowed in indentation")
		}

		body := line[indent:]
		if body[0] == '#' {
			continue
		}

		if len(indents) == 0 && indent != 0 {
			return malformedErr(num, "unexpected indentation before first key")
		}

		popped := false
		for len(indents) > 0 && indent < indents[len(indents)-1] {
			indents = indents[:len(indents)-1]
			popped = true
		}

		if popped && indent != indents[len(indents)-1] {
			return malformedErr(num, "inconsistent indentation")
		}

		if len(indents) == 0 || indent > indents[len(indents)-1] {
			indents = append(indents, indent)
		}

		if isListItemBody(body) {
			continue
		}

		colon := strings.IndexByte(body, ':')
		if colon < 0 {
			return malformedErr(num, "missing ':'")
		}

		if strings.TrimSpace(body[:colon]) == "" {
			return malformedErr(num, "empty key")
		}
	}

	return nil
}

func malformedErr(lineIdx int, msg string) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, lineIdx+1, msg)
}

// indentWidth counts leading spaces. The bool reports whether a tab was
// found in the indentation.
func indentWidth(line string) (int, bool) {
	count := 0

	for _, r := range line {
		if r == ' ' {
			count++

			continue
		}

		if r == '\t' {
			return count, true
		}

		break
	}

	return count, false
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// isComment reports whether the line is a full-line comment (possibly
// indented). Commented-out entries are preserved but never enumerated.
func isComment(line string) bool {
	trimmed := strings.TrimLeft(line, " ")

	return trimmed != "" && trimmed[0] == '#'
}

// isListItemBody reports whether body (a line with indentation removed) is a
// block sequence item.
func isListItemBody(body string) bool {
	return body == "-" || strings.HasPrefix(body, "- ")
}

// keyOf extracts the key from a key line, or "" if the line is not a key
// line (list item, comment, blank).
func keyOf(line string) string {
	indent, _ := indentWidth(line)
	body := line[indent:]

	if body == "" || body[0] == '#' || isListItemBody(body) {
		return ""
	}

	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		return ""
	}

	return strings.TrimSpace(body[:colon])
}

// rawValueOf returns the raw text after the colon of a key line, untrimmed.
func rawValueOf(line string) string {
	indent, _ := indentWidth(line)
	body := line[indent:]

	colon := strings.IndexByte(body, ':')
	if colon < 0 {
		return ""
	}

	return body[colon+1:]
}

// splice replaces lines[from:to] with repl.
func (d *Document) splice(from, to int, repl []string) {
	out := make([]string, 0, len(d.lines)-(to-from)+len(repl))
	out = append(out, d.lines[:from]...)
	out = append(out, repl...)
	out = append(out, d.lines[to:]...)
	d.lines = out

	if len(d.lines) > 0 {
		d.finalNewline = true
	}
}
