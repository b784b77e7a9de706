package core

import (
	"context"
	"fmt"
	"io"

	"simplecom/internal/device"
	scerr "simplecom/internal/errors"
	"simplecom/internal/metrics"
	"simplecom/internal/session"
	"simplecom/util"
)

// outputRedirector copies device bytes to the console until its read is
// cancelled.
type outputRedirector struct {
	dev     device.Channel
	state   *session.State
	out     io.Writer
	metrics *metrics.Collector
	logger  *util.Logger
}

// run forwards whatever each read returns, in arrival order and without
// holding anything back.  While paused, or while an exit prompt is on
// screen, the bytes are read and dropped.
// Any failure other than cancellation terminates the whole session.
func (o *outputRedirector) run(ctx context.Context) error {
	buf := make([]byte, ChunkSize)
	for !o.state.Terminated() {
		n, err := o.dev.Read(ctx, buf)
		if n > 0 {
			if o.state.Muted() {
				o.metrics.Dropped(n)
			} else if _, werr := o.out.Write(buf[:n]); werr != nil {
				o.state.Terminate()
				return fmt.Errorf("write console: %w", werr)
			} else {
				o.metrics.Received(n)
			}
		}
		if err != nil {
			if scerr.IsCancelled(err) {
				o.logger.Debug("device read cancelled")
				return nil
			}
			o.state.Terminate()
			return &scerr.FatalIOError{Direction: "read", Device: o.dev.Name(), Err: err}
		}
	}
	return nil
}
