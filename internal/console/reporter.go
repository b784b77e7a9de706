package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"simplecom/util"
)

// Reporter shows a fatal error to the operator.
type Reporter interface {
	Report(err error)
}

// TerminalReporter writes a plain "<app>: message" block for a person
// at a terminal.
type TerminalReporter struct {
	App string
	W   io.Writer
}

// Report writes err, one line per message line.
func (r *TerminalReporter) Report(err error) {
	if err == nil {
		return
	}
	lines := strings.Split(err.Error(), "\n")
	fmt.Fprintf(r.W, "%s: %s\n", r.App, lines[0])
	for _, l := range lines[1:] {
		fmt.Fprintln(r.W, l)
	}
}

// LogReporter routes errors through the levelled logger, for runs whose
// stderr goes to a file or a supervisor.
type LogReporter struct {
	Logger *util.Logger
}

// Report logs err at error level.
func (r *LogReporter) Report(err error) {
	if err == nil {
		return
	}
	r.Logger.Error("%v", err)
}

// NewReporter picks the reporter for w once, at startup.
func NewReporter(app string, w *os.File, logger *util.Logger) Reporter {
	if term.IsTerminal(int(w.Fd())) {
		return &TerminalReporter{App: app, W: w}
	}
	return &LogReporter{Logger: logger}
}
