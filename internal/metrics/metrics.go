// Package metrics provides lightweight, lock-free counters for tracking
// the traffic of a serial session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a serial session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	bytesToDevice   atomic.Int64
	bytesFromDevice atomic.Int64
	bytesDropped    atomic.Int64
	pauseToggles    atomic.Int64
	errorsTotal     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Traffic ──────────────────────────────────────────────────────────

// Sent records n console bytes written to the device.
func (c *Collector) Sent(n int) {
	if c == nil {
		return
	}
	c.bytesToDevice.Add(int64(n))
}

// Received records n device bytes forwarded to the console.
func (c *Collector) Received(n int) {
	if c == nil {
		return
	}
	c.bytesFromDevice.Add(int64(n))
}

// Dropped records n bytes discarded because the session was paused.
func (c *Collector) Dropped(n int) {
	if c == nil {
		return
	}
	c.bytesDropped.Add(int64(n))
}

// BytesToDevice returns total bytes written to the device.
func (c *Collector) BytesToDevice() int64 {
	if c == nil {
		return 0
	}
	return c.bytesToDevice.Load()
}

// BytesFromDevice returns total bytes shown on the console.
func (c *Collector) BytesFromDevice() int64 {
	if c == nil {
		return 0
	}
	return c.bytesFromDevice.Load()
}

// BytesDropped returns total bytes suppressed while paused.
func (c *Collector) BytesDropped() int64 {
	if c == nil {
		return 0
	}
	return c.bytesDropped.Load()
}

// ── Control ──────────────────────────────────────────────────────────

// PauseToggled records one F8 press.
func (c *Collector) PauseToggled() {
	if c == nil {
		return
	}
	c.pauseToggles.Add(1)
}

// PauseToggles returns how often pause was toggled.
func (c *Collector) PauseToggles() int64 {
	if c == nil {
		return 0
	}
	return c.pauseToggles.Load()
}

// ── Errors ───────────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Duration         string `json:"duration"`
	BytesToDevice    int64  `json:"bytes_to_device"`
	BytesFromDevice  int64  `json:"bytes_from_device"`
	BytesDropped     int64  `json:"bytes_dropped"`
	PauseToggles     int64  `json:"pause_toggles"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Duration:        time.Since(c.startTime).Truncate(time.Second).String(),
		BytesToDevice:   c.bytesToDevice.Load(),
		BytesFromDevice: c.bytesFromDevice.Load(),
		BytesDropped:    c.bytesDropped.Load(),
		PauseToggles:    c.pauseToggles.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
