package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"
)

var errPromptAborted = errors.New("aborted")

// promptContent reads multi-line task or note content interactively.
// A blank line finishes the input; Ctrl-C aborts.
func promptContent(label string) (string, error) {
	line := liner.NewLiner()
	defer func() { _ = line.Close() }()

	line.SetCtrlCAborts(true)

	var lines []string

	prompt := label + "> "

	for {
		text, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return "", errPromptAborted
			}

			if errors.Is(err, io.EOF) {
				break
			}

			return "", err
		}

		if text == "" {
			break
		}

		lines = append(lines, text)
		prompt = strings.Repeat(" ", len(label)) + "> "
	}

	return strings.Join(lines, "\n"), nil
}
