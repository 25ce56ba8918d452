// Package store implements the task-list directory: one plain-text file per
// task under Tasks/, single-value override files under States/ and
// Ordering/, and the attachment subtree under Files/. A directory is a
// task-list root iff it carries the marker file.
package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tasklight/tasklight/internal/fs"
	"github.com/tasklight/tasklight/internal/ledger"
	"github.com/tasklight/tasklight/internal/record"
)

// On-disk layout of a task-list root.
const (
	MarkerFileName  = "TaskList.txt"
	tasksDirName    = "Tasks"
	statesDirName   = "States"
	orderingDirName = "Ordering"
	filesDirName    = "Files"
	taskFileExt     = ".txt"

	dirPerms  = 0o755
	filePerms = 0o644
)

// Clock supplies the current time. The engine never calls time.Now itself.
type Clock interface {
	Now() time.Time
}

// IDSource generates new unique identifiers in canonical hyphenated
// lowercase UUID form.
type IDSource interface {
	NewID() (string, error)
}

// SystemClock is the production [Clock].
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// UUIDSource generates time-ordered UUIDv7 identifiers so task files created
// later sort later by name.
type UUIDSource struct{}

func (UUIDSource) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuidv7: %w", err)
	}

	return strings.ToLower(id.String()), nil
}

// Ticks converts a wall-clock time to the integer tick representation used
// by CreationUtc, OrderingUtc and HandlingUtc: UTC nanoseconds since the
// Unix epoch.
func Ticks(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// Store is one open task-list root. Single-writer semantics: callers must
// serialize access to a given root themselves.
type Store struct {
	fsys  fs.FS
	clock Clock
	ids   IDSource
	root  string

	overrides *OverrideStore
	ledger    *ledger.Ledger
}

// Open opens an existing task-list root. The directory must carry the
// marker file; otherwise [ErrNotTaskList] is returned.
func Open(fsys fs.FS, clock Clock, ids IDSource, root string) (*Store, error) {
	ok, err := fsys.Exists(filepath.Join(root, MarkerFileName))
	if err != nil {
		return nil, fmt.Errorf("checking marker file: %w", err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTaskList, root)
	}

	return newStore(fsys, clock, ids, root), nil
}

// Init creates a new task-list root at dir: the marker file carrying the
// title and the Tasks/States/Ordering/Files subtrees. Fails if dir is
// already a task-list root.
func Init(fsys fs.FS, clock Clock, ids IDSource, root, title string) (*Store, error) {
	ok, err := fsys.Exists(filepath.Join(root, MarkerFileName))
	if err != nil {
		return nil, fmt.Errorf("checking marker file: %w", err)
	}

	if ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyTaskList, root)
	}

	for _, sub := range []string{tasksDirName, statesDirName, orderingDirName, filesDirName} {
		mkdirErr := fsys.MkdirAll(filepath.Join(root, sub), dirPerms)
		if mkdirErr != nil {
			return nil, fmt.Errorf("creating %s directory: %w", sub, mkdirErr)
		}
	}

	marker := "Title:" + record.Escape(title) + "\r\n"

	writeErr := fsys.WriteFileAtomic(filepath.Join(root, MarkerFileName), []byte(marker), filePerms)
	if writeErr != nil {
		return nil, fmt.Errorf("writing marker file: %w", writeErr)
	}

	return newStore(fsys, clock, ids, root), nil
}

func newStore(fsys fs.FS, clock Clock, ids IDSource, root string) *Store {
	s := &Store{fsys: fsys, clock: clock, ids: ids, root: root}

	s.overrides = &OverrideStore{
		fsys:        fsys,
		statesDir:   filepath.Join(root, statesDirName),
		orderingDir: filepath.Join(root, orderingDirName),
	}

	s.ledger = ledger.New(fsys, root, filesDirName, clock.Now, ids.NewID)

	return s
}

// Root returns the task-list root directory.
func (s *Store) Root() string {
	return s.root
}

// NowTicks returns the current time of the injected clock in ticks.
func (s *Store) NowTicks() int64 {
	return Ticks(s.clock.Now())
}

// Overrides exposes the auxiliary override store for this root.
func (s *Store) Overrides() *OverrideStore {
	return s.overrides
}

// Ledger exposes the attachment ledger for this root.
func (s *Store) Ledger() *ledger.Ledger {
	return s.ledger
}

// Title reads the title from the marker file.
func (s *Store) Title() (string, error) {
	data, err := s.fsys.ReadFile(filepath.Join(s.root, MarkerFileName))
	if err != nil {
		return "", fmt.Errorf("reading marker file: %w", err)
	}

	paragraphs := record.SplitParagraphs(string(data))
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("%w: empty marker file", ErrNotTaskList)
	}

	raw, ok := record.ParseFields(paragraphs[0]).Get("Title")
	if !ok {
		return "", fmt.Errorf("%w: marker file has no title", ErrNotTaskList)
	}

	title, err := record.Unescape(raw)
	if err != nil {
		return "", fmt.Errorf("marker file title: %w", err)
	}

	return title, nil
}

func (s *Store) taskPath(id string) string {
	return filepath.Join(s.root, tasksDirName, strings.ToLower(id)+taskFileExt)
}
