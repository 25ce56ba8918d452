package record

import "strings"

// utf8BOM is tolerated at the start of any stored file and never written.
const utf8BOM = "\uFEFF"

// StripBOM removes a leading UTF-8 byte-order mark, if present.
func StripBOM(text string) string {
	return strings.TrimPrefix(text, utf8BOM)
}

// SplitParagraphs partitions raw file text into blank-line-delimited
// paragraphs. Lines are split on LF with a trailing CR stripped, so both
// CRLF and bare LF files parse identically. Consecutive non-blank lines form
// one paragraph joined by LF; one or more blank lines end it. The result
// never contains empty paragraphs.
func SplitParagraphs(text string) []string {
	text = StripBOM(text)

	var (
		paragraphs []string
		current    []string
	)

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if strings.TrimSpace(line) == "" {
			flush()

			continue
		}

		current = append(current, line)
	}

	flush()

	return paragraphs
}

// Fields is an ordered mapping of field name to raw string value, as parsed
// from one paragraph. Keys preserve first-occurrence order; a repeated key
// keeps its original position but takes the later value.
type Fields struct {
	keys   []string
	values map[string]string
}

// Get returns the raw value for key and whether the key was present.
func (f *Fields) Get(key string) (string, bool) {
	value, ok := f.values[key]

	return value, ok
}

// Keys returns the field names in first-occurrence order.
func (f *Fields) Keys() []string {
	return f.keys
}

// Len returns the number of distinct keys.
func (f *Fields) Len() int {
	return len(f.keys)
}

// ParseFields parses one paragraph into key-value fields. Each line is split
// at its first colon; a line with no colon, or a colon at index zero, is not
// a field and is ignored. Keys are case-sensitive; values may be empty.
func ParseFields(paragraph string) *Fields {
	fields := &Fields{values: make(map[string]string)}

	for _, line := range strings.Split(paragraph, "\n") {
		idx := strings.IndexByte(line, ':')
		if idx <= 0 {
			continue
		}

		key := line[:idx]
		value := line[idx+1:]

		if _, seen := fields.values[key]; !seen {
			fields.keys = append(fields.keys, key)
		}

		fields.values[key] = value
	}

	return fields
}
