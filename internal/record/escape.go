// Package record implements the line-oriented plain-text format used by
// task files, the list marker file and the attachment ledger: a reversible
// escape codec for single-line storage of multi-line values, a blank-line
// paragraph splitter, and an ordered key-value paragraph parser.
package record

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEscape reports a backslash sequence that is not one of the four
// defined escapes. Decoding fails rather than passing the bytes through.
var ErrInvalidEscape = errors.New("invalid escape sequence")

// Escape encodes text for storage on a single line. Exactly four characters
// are rewritten: tab, carriage return, line feed and backslash. Everything
// else passes through byte for byte, so input that is not valid UTF-8 still
// round-trips through [Unescape] unchanged.
func Escape(text string) string {
	if text == "" {
		return ""
	}

	var builder strings.Builder

	builder.Grow(len(text))

	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '\t':
			builder.WriteString(`\t`)
		case '\r':
			builder.WriteString(`\r`)
		case '\n':
			builder.WriteString(`\n`)
		case '\\':
			builder.WriteString(`\\`)
		default:
			builder.WriteByte(c)
		}
	}

	return builder.String()
}

// Unescape reverses [Escape]. A backslash followed by anything other than
// t, r, n or another backslash is an error, as is a trailing lone backslash.
func Unescape(text string) (string, error) {
	if !strings.ContainsRune(text, '\\') {
		return text, nil
	}

	var builder strings.Builder

	builder.Grow(len(text))

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\\' {
			builder.WriteByte(c)

			continue
		}

		if i+1 >= len(text) {
			return "", fmt.Errorf("%w: trailing backslash", ErrInvalidEscape)
		}

		i++

		switch text[i] {
		case 't':
			builder.WriteByte('\t')
		case 'r':
			builder.WriteByte('\r')
		case 'n':
			builder.WriteByte('\n')
		case '\\':
			builder.WriteByte('\\')
		default:
			return "", fmt.Errorf("%w: \\%c", ErrInvalidEscape, text[i])
		}
	}

	return builder.String(), nil
}
