package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tasklight/tasklight/internal/fs"
	"github.com/tasklight/tasklight/internal/store"
	"github.com/tasklight/tasklight/internal/task"
)

var (
	errTitleRequired   = errors.New("title is required (-t)")
	errIDRequired      = errors.New("task ID is required")
	errNoteIDRequired  = errors.New("note ID is required")
	errFileRequired    = errors.New("file path is required")
	errInvalidState    = errors.New("invalid state")
	errContentRequired = errors.New("content cannot be empty")
	errMoveMode        = errors.New("must specify --top or --ordering")
)

func newFlags(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	return flags
}

func cmdInit(o *IO, rootAbs string, args []string) error {
	flags := newFlags("init")
	title := flags.StringP("title", "t", "", "task list title")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	if *title == "" {
		return errTitleRequired
	}

	_, err = store.Init(fs.NewReal(), store.SystemClock{}, store.UUIDSource{}, rootAbs, *title)
	if err != nil {
		return err
	}

	o.Println("initialized task list:", rootAbs)

	return nil
}

func cmdAdd(o *IO, rootAbs string, args []string) error {
	flags := newFlags("add")
	message := flags.StringP("message", "m", "", "task content")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	content := *message
	if content == "" {
		content, err = promptContent("task")
		if err != nil {
			return err
		}
	}

	if content == "" {
		return errContentRequired
	}

	t, err := s.NewTask(content)
	if err != nil {
		return err
	}

	err = s.Create(t)
	if err != nil {
		return err
	}

	o.Println("created", t.Guid)

	return nil
}

func cmdLs(ctx context.Context, o *IO, cfg Config, rootAbs string, args []string) error {
	flags := newFlags("ls")
	all := flags.Bool("all", false, "include done and cancelled tasks")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	tasks, warnings, err := s.LoadAll(ctx, store.LoadOptions{
		Strict:     cfg.Strict,
		ActiveOnly: !*all,
	})
	if err != nil {
		return err
	}

	for _, w := range warnings {
		o.Warn("%s: %v", w.Path, w.Err)
	}

	for _, t := range tasks {
		marker := " "
		if t.IsSpecial {
			marker = "*"
		}

		o.Printf("%s %-9s %s  %s\n", marker, t.State, t.Guid, firstLine(t.Content))
	}

	return nil
}

func cmdShow(o *IO, rootAbs string, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	t, err := s.Load(args[0])
	if err != nil {
		return err
	}

	o.Println("Guid:     ", t.Guid)
	o.Println("State:    ", t.State)
	o.Println("Created:  ", formatTicks(t.CreationUtc))

	if t.HandlingUtc != nil {
		o.Println("Handled:  ", formatTicks(*t.HandlingUtc))
	}

	if t.RepeatedGuid != "" {
		o.Println("Repeats:  ", t.RepeatedGuid)
	}

	o.Println()
	o.Println(t.Content)

	for _, note := range t.Notes {
		o.Println()
		o.Printf("-- note %s (%s)\n", note.Guid, formatTicks(note.CreationUtc))
		o.Println(note.Content)
	}

	return nil
}

func cmdNote(o *IO, rootAbs string, args []string) error {
	flags := newFlags("note")
	message := flags.StringP("message", "m", "", "note content")
	remove := flags.String("rm", "", "delete the note with this ID")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	if flags.NArg() < 1 {
		return errIDRequired
	}

	taskID := flags.Arg(0)

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	if *remove != "" {
		return s.DeleteNote(taskID, *remove)
	}

	content := *message
	if content == "" {
		content, err = promptContent("note")
		if err != nil {
			return err
		}
	}

	if content == "" {
		return errContentRequired
	}

	note, err := s.AddNote(taskID, content)
	if err != nil {
		return err
	}

	o.Println("added note", note.Guid)

	return nil
}

func cmdSetState(o *IO, rootAbs string, args []string, stateName string) error {
	return setState(o, rootAbs, args, stateName)
}

func cmdState(o *IO, rootAbs string, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: state <id> <state>", errIDRequired)
	}

	return setState(o, rootAbs, args[:1], args[1])
}

func setState(o *IO, rootAbs string, args []string, stateName string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	state, ok := task.ParseState(stateName)
	if !ok {
		return fmt.Errorf("%w: %q", errInvalidState, stateName)
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	t, err := s.SetState(args[0], state)
	if err != nil {
		return err
	}

	o.Println(t.Guid, "->", t.State)

	return nil
}

func cmdMove(ctx context.Context, o *IO, rootAbs string, args []string) error {
	flags := newFlags("move")
	top := flags.Bool("top", false, "move before all other tasks")
	ordering := flags.Int64("ordering", 0, "explicit sort position")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	if flags.NArg() < 1 {
		return errIDRequired
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	var value int64

	switch {
	case flags.Changed("ordering"):
		value = *ordering
	case *top:
		tasks, _, loadErr := s.LoadAll(ctx, store.LoadOptions{})
		if loadErr != nil {
			return loadErr
		}

		value = s.NowTicks()
		if len(tasks) > 0 {
			value = tasks[0].OrderingUtc - 1
		}
	default:
		return errMoveMode
	}

	t, err := s.SetOrdering(flags.Arg(0), value)
	if err != nil {
		return err
	}

	o.Println(t.Guid, "->", t.OrderingUtc)

	return nil
}

func cmdRm(o *IO, rootAbs string, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	err = s.Delete(args[0])
	if err != nil {
		return err
	}

	o.Println("deleted", strings.ToLower(args[0]))

	return nil
}

func cmdAttach(o *IO, rootAbs string, args []string) error {
	flags := newFlags("attach")
	parent := flags.StringP("parent", "p", "", "owning task or note ID (empty = list-level)")

	err := flags.Parse(args)
	if err != nil {
		return err
	}

	if flags.NArg() < 1 {
		return errFileRequired
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	attachment, err := s.Ledger().Attach(flags.Arg(0), *parent)
	if err != nil {
		return err
	}

	o.Println("attached", attachment.RelativePath, "as", attachment.Guid)

	return nil
}

func cmdDetach(o *IO, rootAbs string, args []string) error {
	if len(args) < 1 {
		return errIDRequired
	}

	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	return s.Ledger().Detach(args[0])
}

func cmdFiles(o *IO, rootAbs string, args []string) error {
	s, err := openStore(rootAbs)
	if err != nil {
		return err
	}

	attachments, warnings, err := s.Ledger().List()
	if err != nil {
		return err
	}

	for _, w := range warnings {
		o.Warn("ledger [%s]: %v", w.Path, w.Err)
	}

	for _, a := range attachments {
		parent := a.ParentGuid
		if parent == "" {
			parent = "(list)"
		}

		o.Printf("%s  %s  %s\n", a.Guid, parent, a.RelativePath)
	}

	return nil
}

func cmdPrintConfig(o *IO, cfg Config, sources ConfigSources) error {
	o.Println("list_dir:", cfg.ListDir)
	o.Println("strict:  ", cfg.Strict)

	if sources.Global != "" {
		o.Println("global config:", sources.Global)
	}

	if sources.Project != "" {
		o.Println("project config:", sources.Project)
	}

	return nil
}

func firstLine(content string) string {
	line, _, _ := strings.Cut(content, "\n")

	return line
}

func formatTicks(ticks int64) string {
	return time.Unix(0, ticks).UTC().Format(time.RFC3339)
}
