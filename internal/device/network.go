package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	scerr "simplecom/internal/errors"
	"simplecom/internal/transport"
)

// NetOpener connects to a network serial server that exposes the port
// as a raw TCP stream.
type NetOpener struct {
	Name    string // as shown to the operator, e.g. "tcp://ser2net:4001"
	Address string // host:port
	Dialer  transport.Dialer
}

// Open dials the server.  There is no driver buffer to purge on this
// side of the connection.
func (o *NetOpener) Open(ctx context.Context) (Channel, error) {
	conn, err := o.Dialer.Dial(ctx, "tcp", o.Address)
	if err != nil {
		o.Dialer.Close()
		return nil, &scerr.DeviceError{Op: "dial", Device: o.Name, Err: err}
	}
	return &netChannel{name: o.Name, conn: conn, dialer: o.Dialer}, nil
}

type netChannel struct {
	name   string
	conn   net.Conn
	dialer transport.Dialer

	aborted   atomic.Bool // conn closed to wake a cancelled call
	closeOnce sync.Once
	closeErr  error
}

func (c *netChannel) Name() string { return c.name }

// past is any deadline already expired; setting it wakes a blocked call.
var past = time.Unix(1, 0)

// interrupt wakes a Read or Write whose context was cancelled.  Conns
// without deadline support, such as channels of an SSH tunnel, are
// closed instead.
func (c *netChannel) interrupt(setDeadline func(time.Time) error) {
	if err := setDeadline(past); err != nil {
		c.aborted.Store(true)
		c.conn.Close() //nolint:errcheck
	}
}

func (c *netChannel) Read(ctx context.Context, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, fmt.Errorf("read %s: %w", c.name, scerr.ErrCancelled)
	}
	stop := context.AfterFunc(ctx, func() { c.interrupt(c.conn.SetReadDeadline) })
	defer stop()

	n, err := c.conn.Read(p)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return n, fmt.Errorf("read %s: %w", c.name, scerr.ErrCancelled)
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return n, fmt.Errorf("read %s: %w", c.name, scerr.ErrDeviceClosed)
		}
		return n, scerr.Wrap("read", c.conn.RemoteAddr().String(), err)
	}
	return n, nil
}

func (c *netChannel) Write(ctx context.Context, p []byte) (int, error) {
	if ctx.Err() != nil {
		return 0, fmt.Errorf("write %s: %w", c.name, scerr.ErrCancelled)
	}
	stop := context.AfterFunc(ctx, func() { c.interrupt(c.conn.SetWriteDeadline) })
	defer stop()

	n, err := c.conn.Write(p)
	if err != nil {
		if ctx.Err() != nil {
			return n, fmt.Errorf("write %s: %w", c.name, scerr.ErrCancelled)
		}
		return n, scerr.Wrap("write", c.conn.RemoteAddr().String(), err)
	}
	return n, nil
}

func (c *netChannel) Close() error {
	c.closeOnce.Do(func() {
		err := c.conn.Close()
		if c.aborted.Load() {
			err = nil
		}
		c.closeErr = errors.Join(err, c.dialer.Close())
	})
	return c.closeErr
}
