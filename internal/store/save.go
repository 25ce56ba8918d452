package store

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tasklight/tasklight/internal/task"
)

// NewTask constructs an unsaved task with a fresh Guid, creation time from
// the injected clock, default Later state, and ordering equal to its
// creation ticks so new tasks sort after existing ones.
func (s *Store) NewTask(content string) (*task.Task, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return nil, err
	}

	now := Ticks(s.clock.Now())

	return &task.Task{
		Guid:        id,
		CreationUtc: now,
		Content:     content,
		State:       task.StateLater,
		OrderingUtc: now,
	}, nil
}

// Create writes a new task file plus its override files. Fails with
// [ErrTaskExists] if the task file is already present.
func (s *Store) Create(t *task.Task) error {
	if t.Guid == "" {
		return ErrIDRequired
	}

	path := s.taskPath(t.Guid)

	ok, err := s.fsys.Exists(path)
	if err != nil {
		return fmt.Errorf("checking task file: %w", err)
	}

	if ok {
		return fmt.Errorf("%w: %s", ErrTaskExists, path)
	}

	return s.write(t)
}

// Update re-encodes an existing task to its single file and commits the
// override files: ordering is always written, the state override is written
// or deleted per the task's state. This is the point where a reconciled
// ordering value becomes persistent.
func (s *Store) Update(t *task.Task) error {
	if t.Guid == "" {
		return ErrIDRequired
	}

	path := s.taskPath(t.Guid)

	ok, err := s.fsys.Exists(path)
	if err != nil {
		return fmt.Errorf("checking task file: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, t.Guid)
	}

	return s.write(t)
}

func (s *Store) write(t *task.Task) error {
	err := s.fsys.MkdirAll(filepath.Join(s.root, tasksDirName), dirPerms)
	if err != nil {
		return fmt.Errorf("creating tasks directory: %w", err)
	}

	content := task.EncodeTask(t)

	err = s.fsys.WriteFileAtomic(s.taskPath(t.Guid), []byte(content), filePerms)
	if err != nil {
		return fmt.Errorf("writing task file: %w", err)
	}

	err = s.overrides.WriteOrdering(t.Guid, t.OrderingUtc)
	if err != nil {
		return err
	}

	return s.overrides.WriteState(t.Guid, t.State)
}

// Delete removes the task file and both override files. Notes die with the
// file; attachment payloads are left alone.
func (s *Store) Delete(id string) error {
	if id == "" {
		return ErrIDRequired
	}

	id = strings.ToLower(id)
	path := s.taskPath(id)

	err := s.fsys.Remove(path)
	if err != nil {
		ok, existsErr := s.fsys.Exists(path)
		if existsErr == nil && !ok {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}

		return fmt.Errorf("removing task file: %w", err)
	}

	return s.overrides.remove(id)
}

// SetState transitions a task's state, stamping HandlingUtc for terminal
// states and clearing it when the task goes active again.
func (s *Store) SetState(id string, state task.State) (*task.Task, error) {
	t, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	t.State = state

	if state.IsTerminal() {
		handled := Ticks(s.clock.Now())
		t.HandlingUtc = &handled
	} else {
		t.HandlingUtc = nil
	}

	err = s.Update(t)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// SetOrdering moves a task to a new sort position.
func (s *Store) SetOrdering(id string, ordering int64) (*task.Task, error) {
	t, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	t.OrderingUtc = ordering
	t.IsSpecial = false

	err = s.Update(t)
	if err != nil {
		return nil, err
	}

	return t, nil
}

// AddNote appends a new note to a task, rewriting the owning file.
func (s *Store) AddNote(taskID, content string) (task.Note, error) {
	t, err := s.Load(taskID)
	if err != nil {
		return task.Note{}, err
	}

	id, err := s.ids.NewID()
	if err != nil {
		return task.Note{}, err
	}

	note := task.Note{
		Guid:        id,
		CreationUtc: Ticks(s.clock.Now()),
		Content:     content,
	}

	t.Notes = append(t.Notes, note)

	err = s.Update(t)
	if err != nil {
		return task.Note{}, err
	}

	return note, nil
}

// UpdateNote replaces the content of an existing note.
func (s *Store) UpdateNote(taskID, noteID, content string) error {
	t, err := s.Load(taskID)
	if err != nil {
		return err
	}

	noteID = strings.ToLower(noteID)

	for i := range t.Notes {
		if t.Notes[i].Guid == noteID {
			t.Notes[i].Content = content

			return s.Update(t)
		}
	}

	return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
}

// DeleteNote removes a note from its task, rewriting the owning file.
func (s *Store) DeleteNote(taskID, noteID string) error {
	t, err := s.Load(taskID)
	if err != nil {
		return err
	}

	noteID = strings.ToLower(noteID)

	for i := range t.Notes {
		if t.Notes[i].Guid == noteID {
			t.Notes = append(t.Notes[:i], t.Notes[i+1:]...)

			return s.Update(t)
		}
	}

	return fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
}
