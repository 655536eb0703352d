package confdoc

import "strings"

// DecodeScalar decodes a raw scalar as written after a key's colon or a
// list dash. The rules match the hand-written documents the store must stay
// compatible with:
//
//  1. strip one layer of matching '...' or "..." quoting; the quoted
//     content is taken verbatim, including '#' characters,
//  2. strip a trailing comment introduced by '#' preceded by at least one
//     space (only outside quotes),
//  3. trim surrounding whitespace.
func DecodeScalar(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if s[0] == '"' || s[0] == '\'' {
		quote := s[0]

		closing := strings.IndexByte(s[1:], quote)
		if closing >= 0 {
			rest := strings.TrimSpace(s[closing+2:])
			if rest == "" || rest[0] == '#' {
				return s[1 : closing+1]
			}
		}
	}

	if idx := commentStart(s); idx >= 0 {
		s = strings.TrimSpace(s[:idx])
	} else {
		s = strings.TrimSpace(s)
	}

	return s
}

// commentStart returns the index of an inline comment marker in an
// unquoted scalar: a '#' that either starts the value or follows a space.
// Returns -1 if the value has no comment.
func commentStart(s string) int {
	if s == "" {
		return -1
	}

	if s[0] == '#' {
		return 0
	}

	for idx := 1; idx < len(s); idx++ {
		if s[idx] == '#' && (s[idx-1] == ' ' || s[idx-1] == '\t') {
			return idx
		}
	}

	return -1
}

// EncodeScalar renders a value for writing after a key's colon. Values that
// would be mangled by [DecodeScalar] (empty strings, embedded comment
// markers, surrounding whitespace, a leading quote or list dash) are
// wrapped in one layer of quotes.
func EncodeScalar(value string) string {
	if !needsQuoting(value) {
		return value
	}

	if !strings.Contains(value, `"`) {
		return `"` + value + `"`
	}

	if !strings.Contains(value, "'") {
		return "'" + value + "'"
	}

	// Contains both quote kinds; the format has no escaping, so the
	// best available rendering is double quotes around the raw text.
	return `"` + value + `"`
}

func needsQuoting(value string) bool {
	if value == "" {
		return true
	}

	if value != strings.TrimSpace(value) {
		return true
	}

	if strings.Contains(value, "#") {
		return true
	}

	first := value[0]
	if first == '"' || first == '\'' {
		return true
	}

	if value == "-" || strings.HasPrefix(value, "- ") {
		return true
	}

	return false
}
