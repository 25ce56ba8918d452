package store

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tasklight/tasklight/internal/fs"
	"github.com/tasklight/tasklight/internal/record"
	"github.com/tasklight/tasklight/internal/task"
)

// OverrideStore reads and writes the per-task single-value override files
// under States/ and Ordering/. These keep the high-churn fields out of the
// main content file so that routine reordering and state flips produce
// minimal diffs against it. An override file, when present and parseable,
// always wins over the field embedded in the task file.
type OverrideStore struct {
	fsys        fs.FS
	statesDir   string
	orderingDir string
}

// ReadState returns the state override for a task, or nil if the override
// file is absent or does not parse as an active state. Parse failures are
// never errors; they fall through to the next-priority source.
func (o *OverrideStore) ReadState(id string) *task.State {
	raw, ok := o.readValue(o.statesDir, id)
	if !ok {
		return nil
	}

	state, valid := task.ParseState(raw)
	if !valid || !state.IsActive() {
		return nil
	}

	return &state
}

// WriteState records an active state in the override file, or deletes the
// override file for terminal states: Done and Cancelled tasks have no
// override file at all.
func (o *OverrideStore) WriteState(id string, state task.State) error {
	path := filepath.Join(o.statesDir, strings.ToLower(id)+taskFileExt)

	if state.IsTerminal() {
		err := o.fsys.Remove(path)
		if err != nil {
			ok, existsErr := o.fsys.Exists(path)
			if existsErr == nil && !ok {
				return nil
			}

			return fmt.Errorf("removing state override: %w", err)
		}

		return nil
	}

	err := o.writeValue(o.statesDir, id, string(state))
	if err != nil {
		return fmt.Errorf("writing state override: %w", err)
	}

	return nil
}

// ReadOrdering returns the ordering override for a task, or nil if the
// override file is absent or does not parse as a signed integer.
func (o *OverrideStore) ReadOrdering(id string) *int64 {
	raw, ok := o.readValue(o.orderingDir, id)
	if !ok {
		return nil
	}

	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}

	return &value
}

// WriteOrdering records the ordering value, overwriting any existing
// override. Unlike state, ordering is written on every update regardless of
// the task's state.
func (o *OverrideStore) WriteOrdering(id string, value int64) error {
	err := o.writeValue(o.orderingDir, id, strconv.FormatInt(value, 10))
	if err != nil {
		return fmt.Errorf("writing ordering override: %w", err)
	}

	return nil
}

// remove deletes both override files for a task, tolerating absence.
func (o *OverrideStore) remove(id string) error {
	for _, dir := range []string{o.statesDir, o.orderingDir} {
		path := filepath.Join(dir, strings.ToLower(id)+taskFileExt)

		err := o.fsys.Remove(path)
		if err != nil {
			ok, existsErr := o.fsys.Exists(path)
			if existsErr == nil && !ok {
				continue
			}

			return fmt.Errorf("removing override file: %w", err)
		}
	}

	return nil
}

// lookup reads both override files for one task, for injection into the
// task codec.
func (o *OverrideStore) lookup(id string) task.Overrides {
	return task.Overrides{
		State:    o.ReadState(id),
		Ordering: o.ReadOrdering(id),
	}
}

func (o *OverrideStore) readValue(dir, id string) (string, bool) {
	data, err := o.fsys.ReadFile(filepath.Join(dir, strings.ToLower(id)+taskFileExt))
	if err != nil {
		return "", false
	}

	// Single line: strip BOM and line ending, nothing else.
	value := record.StripBOM(string(data))
	value = strings.TrimSuffix(value, "\n")
	value = strings.TrimSuffix(value, "\r")

	if value == "" {
		return "", false
	}

	return value, true
}

func (o *OverrideStore) writeValue(dir, id, value string) error {
	err := o.fsys.MkdirAll(dir, dirPerms)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, strings.ToLower(id)+taskFileExt)

	return o.fsys.WriteFileAtomic(path, []byte(value+"\r\n"), filePerms)
}
