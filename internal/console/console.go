// Package console is the operator side of a session: raw keyboard
// input with escape sequences passed through, VT output, the window
// title, exit confirmation and error reporting.
package console

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	scerr "simplecom/internal/errors"
)

// Console bundles the streams a session talks to.
type Console struct {
	In  io.Reader
	Out io.Writer // shared by both data paths, see SyncWriter
	Err io.Writer
}

// Std returns a Console on the process standard streams.
func Std() *Console {
	return &Console{
		In:  os.Stdin,
		Out: NewSyncWriter(os.Stdout),
		Err: os.Stderr,
	}
}

// Interactive reports whether input comes from a terminal an operator
// can answer prompts on.
func (c *Console) Interactive() bool {
	f, ok := c.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Enter switches a terminal console into raw mode: no line buffering,
// no signal keys, escape sequences delivered as typed.  Output is
// switched to VT processing where the platform needs it.  The returned
// function restores the previous modes.  Non-terminal streams are left
// alone.
func (c *Console) Enter() (restore func(), err error) {
	restoreOut, err := enableVTOutput(c.Out)
	if err != nil {
		return nil, &scerr.IOInitError{Op: "console output mode", Err: err}
	}

	if !c.Interactive() {
		return restoreOut, nil
	}

	fd := int(c.In.(*os.File).Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		restoreOut()
		return nil, &scerr.IOInitError{Op: "console raw mode", Err: err}
	}
	return func() {
		term.Restore(fd, old) //nolint:errcheck
		restoreOut()
	}, nil
}

// SetTitle sets the terminal window title with an OSC 0 sequence.
func (c *Console) SetTitle(title string) error {
	_, err := fmt.Fprintf(c.Out, "\x1b]0;%s\x07", title)
	return err
}

// SyncWriter serialises writes from the two data paths so that a title
// update never lands in the middle of device output.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Unwrap returns the underlying writer.
func (s *SyncWriter) Unwrap() io.Writer { return s.w }
