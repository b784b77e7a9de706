// Package device is the I/O channel to the serial device.
//
// A Channel exposes context-cancellable Read and Write.  Each direction
// has exactly one owning goroutine, and a caller waits for an operation
// to complete before issuing the next one on the same direction.
// Cancelling the context of a pending Read makes it return an error
// wrapping errors.ErrCancelled within a bounded time.
package device

import "context"

// Channel is an open, exclusively owned device.
type Channel interface {
	// Name is the device as the operator named it ("COM3",
	// "/dev/ttyUSB0", "tcp://host:4001").
	Name() string

	// Read blocks until at least one byte arrives, ctx is cancelled or
	// the device fails.
	Read(ctx context.Context, p []byte) (int, error)

	// Write sends all of p.
	Write(ctx context.Context, p []byte) (int, error)

	// Close releases the device.  Only the first call has an effect.
	Close() error
}

// Opener opens a Channel from a finalized configuration.
type Opener interface {
	Open(ctx context.Context) (Channel, error)
}
