package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tasklight/tasklight/internal/task"
)

// LoadOptions configures LoadAll behavior.
type LoadOptions struct {
	// Strict turns the first structural decode error into a hard failure
	// instead of a collected warning. Identity mismatches are still skipped.
	Strict bool

	// ActiveOnly drops Done and Cancelled tasks from the result.
	ActiveOnly bool
}

// Warning reports one record that failed to decode during a bulk load.
type Warning struct {
	Path string
	Guid string
	Err  error
}

// LoadAll enumerates the Tasks/ directory and decodes every task file.
// Files whose embedded Guid does not match the file name are skipped
// silently; files with structural format errors become warnings (or abort
// the load in strict mode). Tasks with unassigned ordering are routed
// through reconciliation, in memory only. The result is sorted by resolved
// OrderingUtc ascending. Cancellation is honored between files; a canceled
// load returns ctx.Err with no partial application.
func (s *Store) LoadAll(ctx context.Context, opts LoadOptions) ([]*task.Task, []Warning, error) {
	entries, err := s.fsys.ReadDir(filepath.Join(s.root, tasksDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return []*task.Task{}, nil, nil
		}

		return nil, nil, fmt.Errorf("reading tasks directory: %w", err)
	}

	var (
		tasks    []*task.Task
		warnings []Warning
	)

	for _, entry := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}

		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, taskFileExt) {
			continue
		}

		base := strings.TrimSuffix(name, taskFileExt)

		decoded, decodeErr := s.loadOne(base)
		if decodeErr != nil {
			// Identity mismatch: silent exclusion, other records still load.
			if errors.Is(decodeErr, task.ErrGuidMismatch) {
				continue
			}

			if opts.Strict {
				return nil, nil, decodeErr
			}

			warnings = append(warnings, Warning{
				Path: s.taskPath(base),
				Guid: base,
				Err:  decodeErr,
			})

			continue
		}

		tasks = append(tasks, decoded)
	}

	reconcileOrdering(tasks, Ticks(s.clock.Now()))

	if opts.ActiveOnly {
		tasks = slices.DeleteFunc(tasks, func(t *task.Task) bool {
			return t.State.IsTerminal()
		})
	}

	sortTasks(tasks)

	return tasks, warnings, nil
}

// Load reads one task by id. Returns [ErrTaskNotFound] if the file does not
// exist, and keeps the decoded sentinel ordering as-is: reconciliation is a
// full-list concern.
func (s *Store) Load(id string) (*task.Task, error) {
	if id == "" {
		return nil, ErrIDRequired
	}

	return s.loadOne(strings.ToLower(id))
}

func (s *Store) loadOne(base string) (*task.Task, error) {
	path := s.taskPath(base)

	data, err := s.fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, base)
		}

		return nil, fmt.Errorf("reading task file: %w", err)
	}

	decoded, err := task.DecodeTask(base, string(data), s.overrides.lookup(base))
	if err != nil {
		if errors.Is(err, task.ErrGuidMismatch) {
			return nil, err
		}

		return nil, fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}

	return decoded, nil
}

// sortTasks orders by resolved OrderingUtc ascending, breaking ties by
// CreationUtc then Guid so load output is deterministic.
func sortTasks(tasks []*task.Task) {
	slices.SortStableFunc(tasks, func(a, b *task.Task) int {
		switch {
		case a.OrderingUtc != b.OrderingUtc:
			if a.OrderingUtc < b.OrderingUtc {
				return -1
			}

			return 1
		case a.CreationUtc != b.CreationUtc:
			if a.CreationUtc < b.CreationUtc {
				return -1
			}

			return 1
		default:
			return strings.Compare(a.Guid, b.Guid)
		}
	})
}
