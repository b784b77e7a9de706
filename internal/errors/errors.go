// Package errors provides domain-specific error types for simplecom.
//
// The types follow the lifecycle of a serial session: configuration
// problems and device-open failures happen before anything is running,
// I/O initialisation failures happen while the session is being wired
// up, and fatal I/O errors end a running redirector.  ExitCode maps
// each class onto a distinct process exit status.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrCancelled is returned by a device read or write whose context
	// was cancelled.  The output redirector treats it as a clean stop.
	ErrCancelled = errors.New("operation cancelled")

	// ErrDeviceClosed is returned by a read on a device that reached
	// end of stream: the port was closed or the server hung up.
	ErrDeviceClosed = errors.New("device closed")
)

// ── Exit codes ───────────────────────────────────────────────────────

const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitConfig     = 2
	ExitIOInit     = 3
	ExitDeviceOpen = 4
)

// ── Structured error types ───────────────────────────────────────────

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
	Err     error       // underlying cause (optional)
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Field != "" {
		msg += ": --" + e.Field
		if e.Value != nil {
			msg += fmt.Sprintf("=%v", e.Value)
		}
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DeviceError represents a failure to open or configure a device.
type DeviceError struct {
	Op     string // "open", "configure", "purge", "dial"
	Device string
	Reason string // short classification: "busy", "not found", ...
	Err    error
}

func (e *DeviceError) Error() string {
	s := fmt.Sprintf("%s serial %s", e.Op, e.Device)
	if e.Reason != "" {
		s += " (" + e.Reason + ")"
	}
	return s + ": " + e.Err.Error()
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IOInitError reports that a primitive needed by one of the data
// paths (read timeout, console mode) could not be set up.
type IOInitError struct {
	Op  string
	Err error
}

func (e *IOInitError) Error() string {
	return fmt.Sprintf("initialise %s: %v", e.Op, e.Err)
}

func (e *IOInitError) Unwrap() error { return e.Err }

// FatalIOError ends the redirector that owns the failing direction.
type FatalIOError struct {
	Direction string // "read" or "write"
	Device    string
	Err       error
}

func (e *FatalIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Direction, e.Device, e.Err)
}

func (e *FatalIOError) Unwrap() error { return e.Err }

// NetworkError represents a failure talking to a network serial server.
type NetworkError struct {
	Op        string // operation: "dial", "write", "read"
	Addr      string // network address involved
	Err       error  // underlying error
	Retryable bool   // whether the condition is transient
}

func (e *NetworkError) Error() string {
	s := fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *NetworkError) Unwrap() error { return e.Err }

// SSHError represents an SSH-specific failure with host context.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "forward"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// ── Constructors ─────────────────────────────────────────────────────

// Wrap creates a NetworkError, detecting retryability from err.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{
		Op:        op,
		Addr:      addr,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// WrapSSH creates an SSHError.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// ExitCode maps err onto the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		ce *ConfigError
		ie *IOInitError
		de *DeviceError
	)
	switch {
	case errors.As(err, &ce):
		return ExitConfig
	case errors.As(err, &ie):
		return ExitIOInit
	case errors.As(err, &de):
		return ExitDeviceOpen
	default:
		return ExitFailure
	}
}

// IsCancelled reports whether err stems from a cancelled operation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsRetryable reports whether err describes a transient condition.
// Nothing in a running session is retried; this only feeds diagnostics.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable inspects standard library error types.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Temporary() //nolint:staticcheck // Temporary is deprecated but still useful
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() //nolint:staticcheck
	}
	return false
}

// ── Re-exports for convenience ───────────────────────────────────────

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
