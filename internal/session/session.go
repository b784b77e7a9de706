// Package session holds the state shared by the two data paths of a
// serial session: the termination flag, the pause flag, the port name
// and the lifecycle phase.
//
// Both redirectors consult a State on every iteration, so every field
// that is written after construction is accessed atomically.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Phase is a step of the session lifecycle.
type Phase int32

const (
	Configuring Phase = iota
	Connected
	ExitRequested
	Draining
	Closed
)

func (p Phase) String() string {
	switch p {
	case Configuring:
		return "configuring"
	case Connected:
		return "connected"
	case ExitRequested:
		return "exit-requested"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// State is the process-wide view of one session.
type State struct {
	port string

	terminated atomic.Bool
	paused     atomic.Bool
	held       atomic.Bool
	phase      atomic.Int32

	done     chan struct{}
	doneOnce sync.Once
}

// New returns a State for port in the Configuring phase.
func New(port string) *State {
	return &State{port: port, done: make(chan struct{})}
}

// Port returns the name of the device the session is bound to.
func (s *State) Port() string { return s.port }

// Terminated reports whether either data path asked the session to end.
func (s *State) Terminated() bool { return s.terminated.Load() }

// Terminate marks the session as ending.  Safe to call from both
// redirectors and more than once.
func (s *State) Terminate() {
	s.terminated.Store(true)
	s.doneOnce.Do(func() { close(s.done) })
}

// Done is closed by the first call to Terminate.
func (s *State) Done() <-chan struct{} { return s.done }

// Paused reports whether forwarding is currently suppressed.
func (s *State) Paused() bool { return s.paused.Load() }

// TogglePause flips the pause flag and returns the new value.
func (s *State) TogglePause() bool {
	for {
		old := s.paused.Load()
		if s.paused.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Hold mutes device output while the console is busy with a prompt.
// It leaves the pause flag and the title alone.
func (s *State) Hold() { s.held.Store(true) }

// Release ends a Hold.
func (s *State) Release() { s.held.Store(false) }

// Muted reports whether device output is discarded: while paused or
// held.
func (s *State) Muted() bool { return s.paused.Load() || s.held.Load() }

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase { return Phase(s.phase.Load()) }

// Advance moves the session to the next phase.  Phases only move
// forward one step at a time; anything else is rejected.
func (s *State) Advance(to Phase) error {
	from := Phase(to - 1)
	if to <= Configuring || to > Closed || !s.phase.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("session: illegal transition %s -> %s", s.Phase(), to)
	}
	return nil
}

// Title is the console title for the session: "<app>: <port>", with a
// " [PAUSE]" suffix while paused.
func (s *State) Title(app string) string {
	title := app + ": " + s.port
	if s.Paused() {
		title += " [PAUSE]"
	}
	return title
}
