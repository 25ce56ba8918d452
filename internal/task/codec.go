package task

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tasklight/tasklight/internal/record"
)

// FormatTag is the expected value of the Format header field. Files carrying
// any other value fail to decode.
const FormatTag = "1"

// activeMarker is written to the State field for tasks in any active state.
// The real active state lives in the override store so that routine state
// flips between Later/Soon/Now never touch the content file.
const activeMarker = "Active"

// Header and note field names.
const (
	fieldFormat       = "Format"
	fieldGuid         = "Guid"
	fieldCreationUtc  = "CreationUtc"
	fieldContent      = "Content"
	fieldState        = "State"
	fieldHandlingUtc  = "HandlingUtc"
	fieldRepeatedGuid = "RepeatedGuid"
	fieldOrderingUtc  = "OrderingUtc"
)

// Decode errors.
var (
	// ErrFormatTag reports a missing or unexpected Format field. Fatal for
	// the file.
	ErrFormatTag = errors.New("unsupported format tag")

	// ErrGuidMismatch reports a task whose embedded Guid does not match its
	// file's base name. Callers skip such files rather than failing the
	// whole load.
	ErrGuidMismatch = errors.New("guid does not match file name")

	errEmptyFile    = errors.New("no header paragraph")
	errMissingField = errors.New("missing required field")
	errInvalidField = errors.New("invalid field value")
)

// Overrides carries the per-task override file values, already read and
// parsed by the caller. Nil fields mean the override file is absent or
// unparseable, falling through to the embedded field.
type Overrides struct {
	State    *State
	Ordering *int64
}

// DecodeTask decodes one task file. fileBase is the file's base name
// without extension; text is the raw file content. The returned task has
// State and OrderingUtc resolved through the override-first, embedded-field,
// default fallback chain, and Notes sorted by CreationUtc ascending.
func DecodeTask(fileBase, text string, overrides Overrides) (*Task, error) {
	paragraphs := record.SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, errEmptyFile
	}

	header := record.ParseFields(paragraphs[0])

	format, _ := header.Get(fieldFormat)
	if format != FormatTag {
		return nil, fmt.Errorf("%w: %q", ErrFormatTag, format)
	}

	rawGuid, ok := header.Get(fieldGuid)
	if !ok || rawGuid == "" {
		return nil, fmt.Errorf("%w: %s", errMissingField, fieldGuid)
	}

	if !strings.EqualFold(rawGuid, fileBase) {
		return nil, fmt.Errorf("%w: %s", ErrGuidMismatch, rawGuid)
	}

	decoded := &Task{Guid: strings.ToLower(rawGuid)}

	creation, err := requiredInt(header, fieldCreationUtc)
	if err != nil {
		return nil, err
	}

	decoded.CreationUtc = creation

	rawContent, _ := header.Get(fieldContent)

	decoded.Content, err = record.Unescape(rawContent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fieldContent, err)
	}

	decoded.State, err = resolveState(header, overrides)
	if err != nil {
		return nil, err
	}

	if raw, present := header.Get(fieldHandlingUtc); present {
		handling, parseErr := parseTicks(fieldHandlingUtc, raw)
		if parseErr != nil {
			return nil, parseErr
		}

		decoded.HandlingUtc = &handling
	}

	if raw, present := header.Get(fieldRepeatedGuid); present && raw != "" {
		decoded.RepeatedGuid = strings.ToLower(raw)
	}

	decoded.OrderingUtc, err = resolveOrdering(header, overrides)
	if err != nil {
		return nil, err
	}

	decoded.IsSpecial = decoded.OrderingUtc < 0

	for _, paragraph := range paragraphs[1:] {
		note, noteErr := decodeNote(paragraph)
		if noteErr != nil {
			return nil, noteErr
		}

		decoded.Notes = append(decoded.Notes, note)
	}

	SortNotes(decoded.Notes)

	return decoded, nil
}

// resolveState applies the three-tier fallback chain: override file,
// embedded field (unless it is the active marker), default Later.
func resolveState(header *record.Fields, overrides Overrides) (State, error) {
	if overrides.State != nil {
		return *overrides.State, nil
	}

	raw, ok := header.Get(fieldState)
	if !ok || raw == activeMarker {
		return StateLater, nil
	}

	state, valid := ParseState(raw)
	if !valid {
		return "", fmt.Errorf("%w: %s %q", errInvalidField, fieldState, raw)
	}

	return state, nil
}

// resolveOrdering applies override file, legacy embedded field, then the
// unassigned sentinel.
func resolveOrdering(header *record.Fields, overrides Overrides) (int64, error) {
	if overrides.Ordering != nil {
		return *overrides.Ordering, nil
	}

	raw, ok := header.Get(fieldOrderingUtc)
	if !ok {
		return UnassignedOrdering, nil
	}

	return parseTicks(fieldOrderingUtc, raw)
}

func decodeNote(paragraph string) (Note, error) {
	fields := record.ParseFields(paragraph)

	guid, ok := fields.Get(fieldGuid)
	if !ok || guid == "" {
		return Note{}, fmt.Errorf("note: %w: %s", errMissingField, fieldGuid)
	}

	creation, err := requiredInt(fields, fieldCreationUtc)
	if err != nil {
		return Note{}, fmt.Errorf("note %s: %w", guid, err)
	}

	rawContent, _ := fields.Get(fieldContent)

	content, err := record.Unescape(rawContent)
	if err != nil {
		return Note{}, fmt.Errorf("note %s: %s: %w", guid, fieldContent, err)
	}

	return Note{Guid: strings.ToLower(guid), CreationUtc: creation, Content: content}, nil
}

func requiredInt(fields *record.Fields, name string) (int64, error) {
	raw, ok := fields.Get(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", errMissingField, name)
	}

	return parseTicks(name, raw)
}

func parseTicks(name, raw string) (int64, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", errInvalidField, name, raw)
	}

	return value, nil
}

// EncodeTask serializes a task and its notes to file content. The header
// paragraph carries the fields in a stable order; active states are stored
// as the active marker because the concrete active state lives in the
// override store, and OrderingUtc is never written here at all. Lines use
// CRLF endings; paragraphs are separated by one blank line.
func EncodeTask(t *Task) string {
	lines := []string{
		fieldFormat + ":" + FormatTag,
		fieldGuid + ":" + strings.ToLower(t.Guid),
		fieldCreationUtc + ":" + strconv.FormatInt(t.CreationUtc, 10),
		fieldContent + ":" + record.Escape(t.Content),
		fieldState + ":" + storageState(t.State),
	}

	if t.HandlingUtc != nil {
		lines = append(lines, fieldHandlingUtc+":"+strconv.FormatInt(*t.HandlingUtc, 10))
	}

	if t.RepeatedGuid != "" {
		lines = append(lines, fieldRepeatedGuid+":"+strings.ToLower(t.RepeatedGuid))
	}

	for _, note := range t.Notes {
		lines = append(lines,
			"",
			fieldGuid+":"+strings.ToLower(note.Guid),
			fieldCreationUtc+":"+strconv.FormatInt(note.CreationUtc, 10),
			fieldContent+":"+record.Escape(note.Content),
		)
	}

	return strings.Join(lines, "\r\n") + "\r\n"
}

func storageState(s State) string {
	if s.IsActive() {
		return activeMarker
	}

	return string(s)
}
