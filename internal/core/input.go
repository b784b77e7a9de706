package core

import (
	"context"
	"errors"
	"fmt"
	"io"

	"simplecom/internal/console"
	"simplecom/internal/control"
	"simplecom/internal/device"
	scerr "simplecom/internal/errors"
	"simplecom/internal/metrics"
	"simplecom/internal/session"
	"simplecom/util"
)

// ChunkSize is the largest console read forwarded as one write.
const ChunkSize = 2048

// errStopped ends the input loop because the other data path asked the
// session to terminate or the context was cancelled.
var errStopped = errors.New("input stopped")

// chunk is one console read.
type chunk struct {
	data []byte
	err  error
}

// pumpConsole performs blocking reads on r and hands each chunk over in
// order.  It returns after the first read error or once stop is closed.
// A read that is blocked when stop closes stays blocked until input
// arrives; the console cannot be interrupted portably.
func pumpConsole(r io.Reader, out chan<- chunk, stop <-chan struct{}) {
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case out <- chunk{data: append([]byte(nil), buf[:n]...)}:
			case <-stop:
				return
			}
		}
		if err != nil {
			select {
			case out <- chunk{err: err}:
			case <-stop:
			}
			return
		}
	}
}

// inputRedirector forwards console input to the device and interprets
// the F1/F8 commands.  It is the path that decides when a session ends.
type inputRedirector struct {
	dev      device.Channel
	state    *session.State
	chunks   <-chan chunk
	confirm  console.Confirmer
	setTitle func()
	metrics  *metrics.Collector
	logger   *util.Logger
}

// run loops until exit is requested, the console ends, the session is
// terminated from the other side, or a device write fails.  Only the
// last case is an error.
func (in *inputRedirector) run(ctx context.Context) error {
	for !in.state.Terminated() {
		data, err := in.next(ctx)
		if err != nil {
			return in.stop(err)
		}

		switch control.Classify(data) {
		case control.ExitRequested:
			in.state.Hold()
			ok, err := in.confirm.Confirm(console.ExitQuestion, func() ([]byte, error) {
				return in.next(ctx)
			})
			in.state.Release()
			if err != nil {
				return in.stop(err)
			}
			if ok {
				in.logger.Verbose("exit requested")
				return nil
			}
			continue

		case control.TogglePause:
			paused := in.state.TogglePause()
			in.metrics.PauseToggled()
			in.logger.Debug("pause = %v", paused)
			in.setTitle()
			continue
		}

		if in.state.Paused() {
			in.metrics.Dropped(len(data))
			continue
		}

		// Console input arrives as bytes and is forwarded unchanged.
		// On Windows the runtime reads the console as UTF-16 and hands
		// over UTF-8, so a non-ASCII key becomes several bytes rather
		// than one code-page byte.
		n, err := in.dev.Write(ctx, data)
		in.metrics.Sent(n)
		if err != nil {
			if scerr.IsCancelled(err) {
				return nil
			}
			return &scerr.FatalIOError{Direction: "write", Device: in.dev.Name(), Err: err}
		}
	}
	return nil
}

// next returns the next console chunk.
func (in *inputRedirector) next(ctx context.Context) ([]byte, error) {
	select {
	case c := <-in.chunks:
		return c.data, c.err
	case <-in.state.Done():
		return nil, errStopped
	case <-ctx.Done():
		return nil, errStopped
	}
}

// stop maps the reason the console stopped producing input onto the
// result of run.
func (in *inputRedirector) stop(err error) error {
	switch {
	case errors.Is(err, errStopped):
		return nil
	case errors.Is(err, io.EOF):
		in.logger.Verbose("console input closed")
		return nil
	default:
		return fmt.Errorf("read console: %w", err)
	}
}
