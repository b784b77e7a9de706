//go:build !windows

package console

import "io"

// enableVTOutput is a no-op: Unix terminals interpret VT sequences
// without being asked to.
func enableVTOutput(io.Writer) (func(), error) {
	return func() {}, nil
}
