// Package ledger implements the append-only attachment metadata file and
// the attach operation that copies payload files into storage.
//
// The ledger is an ordered sequence of sections, each introduced by a
// bracketed storage-relative path header and followed by key-value lines.
// Normal operation only ever appends: existing sections are never rewritten
// or reordered, which keeps the file stable under version control.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tasklight/tasklight/internal/fs"
	"github.com/tasklight/tasklight/internal/record"
)

// LedgerFileName is the reserved metadata file name inside the files
// directory. Payloads are never placed at this name.
const LedgerFileName = "Info.txt"

// maxConflictDirs bounds the numbered-subdirectory search for a free target
// path. Beyond it Attach gives up with [ErrTooManyCollisions] instead of
// looping unboundedly.
const maxConflictDirs = 10000

// Ledger field names.
const (
	fieldGuid       = "Guid"
	fieldParentGuid = "ParentGuid"
	fieldAttachedAt = "AttachedAt"
	fieldModifiedAt = "ModifiedAt"
	fieldDeleted    = "Deleted"
)

// timeLayout is the absolute round-trippable wall-clock format used for
// ledger timestamps.
const timeLayout = time.RFC3339Nano

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// Ledger errors.
var (
	ErrTooManyCollisions  = errors.New("too many attachment name collisions")
	ErrAttachmentNotFound = errors.New("attachment not found")
	errMalformedSection   = errors.New("malformed ledger section")
)

// Attachment is one recorded file attachment. RelativePath is storage-root
// relative with forward-slash separators. An empty ParentGuid means the
// attachment belongs to the task list as a whole rather than to a task or
// note.
type Attachment struct {
	Guid          string
	RelativePath  string
	ParentGuid    string
	AttachedAtUtc time.Time
	ModifiedAtUtc time.Time

	// Deleted marks a soft-deleted entry (tombstone section appended later
	// for the same path). List filters these out.
	Deleted bool
}

// Warning reports one ledger section that failed to parse. The remaining
// sections still load.
type Warning struct {
	Path string
	Err  error
}

// Ledger manages the metadata file and payload tree under one files
// directory.
type Ledger struct {
	fsys     fs.FS
	root     string
	filesDir string
	now      func() time.Time
	newID    func() (string, error)
}

// New creates a Ledger rooted at root with payloads under root/filesDir.
// The clock and id generator are injected by the caller.
func New(fsys fs.FS, root, filesDir string, now func() time.Time, newID func() (string, error)) *Ledger {
	return &Ledger{fsys: fsys, root: root, filesDir: filesDir, now: now, newID: newID}
}

func (l *Ledger) ledgerPath() string {
	return filepath.Join(l.root, l.filesDir, LedgerFileName)
}

// Parse decodes ledger text into attachments, one per section in file
// order. Sections that cannot be decoded become warnings, not errors.
func Parse(text string) ([]Attachment, []Warning) {
	var (
		attachments []Attachment
		warnings    []Warning

		currentPath string
		currentBody []string
		inSection   bool
	)

	flush := func() {
		if !inSection {
			return
		}

		attachment, err := decodeSection(currentPath, currentBody)
		if err != nil {
			warnings = append(warnings, Warning{Path: currentPath, Err: err})
		} else {
			attachments = append(attachments, attachment)
		}

		currentBody = nil
	}

	for _, line := range strings.Split(record.StripBOM(text), "\n") {
		line = strings.TrimSuffix(line, "\r")

		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			flush()

			currentPath = line[1 : len(line)-1]
			inSection = true

			continue
		}

		if inSection {
			currentBody = append(currentBody, line)
		}
	}

	flush()

	return attachments, warnings
}

func decodeSection(relPath string, body []string) (Attachment, error) {
	fields := record.ParseFields(strings.Join(body, "\n"))

	attachment := Attachment{RelativePath: relPath}

	guid, ok := fields.Get(fieldGuid)
	if !ok || guid == "" {
		return Attachment{}, fmt.Errorf("%w: missing %s", errMalformedSection, fieldGuid)
	}

	attachment.Guid = strings.ToLower(guid)

	// Empty value means list-level attachment, not an error.
	if parent, present := fields.Get(fieldParentGuid); present && parent != "" {
		attachment.ParentGuid = strings.ToLower(parent)
	}

	if raw, present := fields.Get(fieldDeleted); present {
		deleted, err := strconv.ParseBool(raw)
		if err != nil {
			return Attachment{}, fmt.Errorf("%w: %s %q", errMalformedSection, fieldDeleted, raw)
		}

		attachment.Deleted = deleted
	}

	// Tombstones carry no timestamps.
	if attachment.Deleted {
		return attachment, nil
	}

	var err error

	attachment.AttachedAtUtc, err = requiredTime(fields, fieldAttachedAt)
	if err != nil {
		return Attachment{}, err
	}

	attachment.ModifiedAtUtc, err = requiredTime(fields, fieldModifiedAt)
	if err != nil {
		return Attachment{}, err
	}

	return attachment, nil
}

func requiredTime(fields *record.Fields, name string) (time.Time, error) {
	raw, ok := fields.Get(name)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing %s", errMalformedSection, name)
	}

	value, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", errMalformedSection, name, raw)
	}

	return value.UTC(), nil
}

// List returns the live attachments: sections in file order, with later
// sections for the same relative path superseding earlier ones and
// soft-deleted entries filtered out.
func (l *Ledger) List() ([]Attachment, []Warning, error) {
	data, err := l.fsys.ReadFile(l.ledgerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []Attachment{}, nil, nil
		}

		return nil, nil, fmt.Errorf("reading ledger: %w", err)
	}

	parsed, warnings := Parse(string(data))

	byPath := make(map[string]int)

	var live []Attachment

	for _, attachment := range parsed {
		if idx, seen := byPath[attachment.RelativePath]; seen {
			live[idx] = attachment

			continue
		}

		byPath[attachment.RelativePath] = len(live)
		live = append(live, attachment)
	}

	result := make([]Attachment, 0, len(live))

	for _, attachment := range live {
		if !attachment.Deleted {
			result = append(result, attachment)
		}
	}

	return result, warnings, nil
}

// Attach copies the source file into storage and appends one ledger section
// recording it. The source is never moved and existing targets are never
// overwritten: on a name collision the payload goes into the first free
// numbered subdirectory. parentGuid may be empty for a list-level
// attachment.
func (l *Ledger) Attach(srcPath, parentGuid string) (Attachment, error) {
	info, err := l.fsys.Stat(srcPath)
	if err != nil {
		return Attachment{}, fmt.Errorf("stat source file: %w", err)
	}

	relPath, err := l.resolveTarget(filepath.Base(srcPath))
	if err != nil {
		return Attachment{}, err
	}

	err = l.copyPayload(srcPath, relPath)
	if err != nil {
		return Attachment{}, err
	}

	id, err := l.newID()
	if err != nil {
		return Attachment{}, err
	}

	attachment := Attachment{
		Guid:          id,
		RelativePath:  relPath,
		ParentGuid:    strings.ToLower(parentGuid),
		AttachedAtUtc: l.now().UTC(),
		ModifiedAtUtc: info.ModTime().UTC(),
	}

	lines := []string{
		"[" + relPath + "]",
		fieldGuid + ":" + attachment.Guid,
		fieldParentGuid + ":" + attachment.ParentGuid,
		fieldAttachedAt + ":" + attachment.AttachedAtUtc.Format(timeLayout),
		fieldModifiedAt + ":" + attachment.ModifiedAtUtc.Format(timeLayout),
	}

	err = l.appendSection(lines)
	if err != nil {
		return Attachment{}, err
	}

	return attachment, nil
}

// Detach soft-deletes an attachment by appending a tombstone section for
// its path. The payload file and all existing ledger bytes stay untouched.
func (l *Ledger) Detach(guid string) error {
	live, _, err := l.List()
	if err != nil {
		return err
	}

	guid = strings.ToLower(guid)

	for _, attachment := range live {
		if attachment.Guid == guid {
			return l.appendSection([]string{
				"[" + attachment.RelativePath + "]",
				fieldGuid + ":" + attachment.Guid,
				fieldDeleted + ":true",
			})
		}
	}

	return fmt.Errorf("%w: %s", ErrAttachmentNotFound, guid)
}

// resolveTarget picks a non-colliding storage-relative path for a payload
// named base: the bare name first, then numbered subdirectories. The bare
// slot is off-limits when base is the reserved ledger filename.
func (l *Ledger) resolveTarget(base string) (string, error) {
	if base != LedgerFileName {
		rel := path.Join(l.filesDir, base)

		ok, err := l.targetTaken(rel)
		if err != nil {
			return "", err
		}

		if !ok {
			return rel, nil
		}
	}

	for n := 1; n <= maxConflictDirs; n++ {
		rel := path.Join(l.filesDir, strconv.Itoa(n), base)

		ok, err := l.targetTaken(rel)
		if err != nil {
			return "", err
		}

		if !ok {
			return rel, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrTooManyCollisions, base)
}

func (l *Ledger) targetTaken(rel string) (bool, error) {
	ok, err := l.fsys.Exists(filepath.Join(l.root, filepath.FromSlash(rel)))
	if err != nil {
		return false, fmt.Errorf("checking target path: %w", err)
	}

	return ok, nil
}

func (l *Ledger) copyPayload(srcPath, rel string) error {
	target := filepath.Join(l.root, filepath.FromSlash(rel))

	err := l.fsys.MkdirAll(filepath.Dir(target), dirPerms)
	if err != nil {
		return fmt.Errorf("creating attachment directory: %w", err)
	}

	src, err := l.fsys.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening source file: %w", err)
	}

	defer func() { _ = src.Close() }()

	// O_EXCL: a collision here means the resolved path raced with another
	// writer; never overwrite.
	dst, err := l.fsys.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerms)
	if err != nil {
		return fmt.Errorf("creating attachment file: %w", err)
	}

	_, copyErr := io.Copy(dst, src)
	if copyErr == nil {
		copyErr = dst.Sync()
	}

	closeErr := dst.Close()

	if copyErr != nil {
		return fmt.Errorf("copying attachment: %w", copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("closing attachment file: %w", closeErr)
	}

	return nil
}

func (l *Ledger) appendSection(lines []string) error {
	err := l.fsys.MkdirAll(filepath.Join(l.root, l.filesDir), dirPerms)
	if err != nil {
		return fmt.Errorf("creating files directory: %w", err)
	}

	file, err := l.fsys.OpenFile(l.ledgerPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerms)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}

	_, writeErr := io.WriteString(file, strings.Join(lines, "\r\n")+"\r\n\r\n")
	if writeErr == nil {
		writeErr = file.Sync()
	}

	closeErr := file.Close()

	if writeErr != nil {
		return fmt.Errorf("appending to ledger: %w", writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("closing ledger: %w", closeErr)
	}

	return nil
}
