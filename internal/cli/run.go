// Package cli implements the tl command shell over the storage engine.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/tasklight/tasklight/internal/fs"
	"github.com/tasklight/tasklight/internal/store"
)

// Run is the main entry point. Returns exit code.
func Run(ctx context.Context, out, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) < 2 {
		printUsage(out)

		return 0
	}

	globals := flag.NewFlagSet("tl", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(io.Discard)

	listDir := globals.String("dir", "", "task list directory (defaults to config list_dir)")
	strict := globals.Bool("strict", false, "treat per-record decode errors as fatal")

	err := globals.Parse(args[1:])
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(errOut, "error: cannot get working directory:", err)

		return 1
	}

	cfg, sources, err := LoadConfig(workDir, env)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	if *listDir != "" {
		cfg.ListDir = *listDir
	}

	if *strict {
		cfg.Strict = true
	}

	rootAbs := cfg.ListDir
	if !filepath.IsAbs(rootAbs) {
		rootAbs = filepath.Join(workDir, rootAbs)
	}

	remaining := globals.Args()
	if len(remaining) == 0 {
		printUsage(out)

		return 0
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]

	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage(out)

		return 0
	}

	ioCtx := NewIO(out, errOut)

	var cmdErr error

	switch cmd {
	case "init":
		cmdErr = cmdInit(ioCtx, rootAbs, cmdArgs)
	case "add":
		cmdErr = cmdAdd(ioCtx, rootAbs, cmdArgs)
	case "ls":
		cmdErr = cmdLs(ctx, ioCtx, cfg, rootAbs, cmdArgs)
	case "show":
		cmdErr = cmdShow(ioCtx, rootAbs, cmdArgs)
	case "note":
		cmdErr = cmdNote(ioCtx, rootAbs, cmdArgs)
	case "done":
		cmdErr = cmdSetState(ioCtx, rootAbs, cmdArgs, "Done")
	case "cancel":
		cmdErr = cmdSetState(ioCtx, rootAbs, cmdArgs, "Cancelled")
	case "state":
		cmdErr = cmdState(ioCtx, rootAbs, cmdArgs)
	case "move":
		cmdErr = cmdMove(ctx, ioCtx, rootAbs, cmdArgs)
	case "rm":
		cmdErr = cmdRm(ioCtx, rootAbs, cmdArgs)
	case "attach":
		cmdErr = cmdAttach(ioCtx, rootAbs, cmdArgs)
	case "detach":
		cmdErr = cmdDetach(ioCtx, rootAbs, cmdArgs)
	case "files":
		cmdErr = cmdFiles(ioCtx, rootAbs, cmdArgs)
	case "print-config":
		cmdErr = cmdPrintConfig(ioCtx, cfg, sources)
	default:
		fmt.Fprintln(errOut, "error: unknown command:", cmd)
		printUsage(errOut)

		return 1
	}

	if cmdErr != nil {
		fmt.Fprintln(errOut, "error:", cmdErr)

		return 1
	}

	return ioCtx.Finish()
}

// openStore opens the task-list root with production collaborators.
func openStore(rootAbs string) (*store.Store, error) {
	return store.Open(fs.NewReal(), store.SystemClock{}, store.UUIDSource{}, rootAbs)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: tl [--dir <path>] [--strict] <command> [args]

Commands:
  init -t <title>            create a task list in the target directory
  add [-m <content>]         create a task (prompts without -m)
  ls [--all]                 list tasks in sort order
  show <id>                  print one task with its notes
  note <id> [-m <content>]   add a note (prompts without -m)
  note <id> --rm <note-id>   delete a note
  done <id>                  mark a task done
  cancel <id>                cancel a task
  state <id> <state>         set state (Later|Soon|Now|Done|Cancelled)
  move <id> --top            move a task before all others
  move <id> --ordering <n>   set an explicit sort position
  rm <id>                    delete a task and its notes
  attach <file> [-p <id>]    copy a file into storage and record it
  detach <id>                soft-delete an attachment record
  files                      list attachments
  print-config               show effective configuration
`)
}
