// Package core is the orchestration layer.  It composes a device
// channel, the console and the session state into complete operational
// modes and provides a builder that selects the right mode from a
// Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  device  →  session/console  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete operational mode of simplecom: an interactive
// serial session or a port listing.  Each mode owns its full lifecycle.
type Mode interface {
	Run(ctx context.Context) error
}
