//go:build windows

package console

import (
	"io"
	"os"

	"golang.org/x/sys/windows"
)

// enableVTOutput turns on ENABLE_VIRTUAL_TERMINAL_PROCESSING so ANSI
// sequences from the device reach the console untouched.
func enableVTOutput(w io.Writer) (func(), error) {
	f, ok := underlyingFile(w)
	if !ok {
		return func() {}, nil
	}
	h := windows.Handle(f.Fd())

	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		// Redirected output: nothing to configure.
		return func() {}, nil
	}
	if err := windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING); err != nil {
		return nil, err
	}
	return func() { windows.SetConsoleMode(h, mode) }, nil //nolint:errcheck
}

func underlyingFile(w io.Writer) (*os.File, bool) {
	if s, ok := w.(*SyncWriter); ok {
		w = s.Unwrap()
	}
	f, ok := w.(*os.File)
	return f, ok
}
