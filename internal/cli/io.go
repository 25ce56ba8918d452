package cli

import (
	"fmt"
	"io"
)

// IO handles command output and collected warnings.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
}

// NewIO creates a new IO instance.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn collects a warning. Warnings are printed to stderr by Finish and
// force a non-zero exit code without suppressing normal output.
func (o *IO) Warn(format string, a ...any) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, a...))
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish prints collected warnings to stderr and returns the exit code:
// 1 if any warnings, 0 otherwise.
func (o *IO) Finish() int {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}
