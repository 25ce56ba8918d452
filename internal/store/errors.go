package store

import "errors"

// Error variables for store operations.
var (
	ErrNotTaskList     = errors.New("not a task list directory")
	ErrAlreadyTaskList = errors.New("already a task list directory")
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskExists      = errors.New("task file already exists")
	ErrNoteNotFound    = errors.New("note not found")
	ErrIDRequired      = errors.New("task ID is required")
	ErrDecode          = errors.New("decoding task file")
)
