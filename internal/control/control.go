// Package control recognises the in-band commands an operator can type
// during a session.  Only two fixed sequences carry meaning: the F1 key
// requests session exit and the F8 key toggles pause.  Everything else,
// including unknown escape sequences, is payload.
package control

import "bytes"

// Classification is the result of inspecting one console input chunk.
type Classification int

const (
	None Classification = iota
	ExitRequested
	TogglePause
)

func (c Classification) String() string {
	switch c {
	case None:
		return "none"
	case ExitRequested:
		return "exit"
	case TogglePause:
		return "pause"
	default:
		return "unknown"
	}
}

// Sequences emitted by a VT-mode console for the two function keys.
var (
	ExitSequence  = []byte{0x1b, 'O', 'P'}           // F1
	PauseSequence = []byte{0x1b, '[', '1', '9', '~'} // F8
)

// Classify inspects a chunk as delivered by a single console read.
// Matching is exact: a command is recognised only when the chunk holds
// the whole sequence and nothing else.
func Classify(chunk []byte) Classification {
	if len(chunk) < 2 || chunk[0] != 0x1b {
		return None
	}
	switch {
	case bytes.Equal(chunk, ExitSequence):
		return ExitRequested
	case bytes.Equal(chunk, PauseSequence):
		return TogglePause
	default:
		return None
	}
}
