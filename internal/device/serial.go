package device

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"go.bug.st/serial"

	"simplecom/config"
	scerr "simplecom/internal/errors"
)

// SerialOpener opens a local serial port.
type SerialOpener struct {
	Name     string
	BaudRate int
	DataBits int
	Parity   config.Parity
	StopBits config.StopBits

	// PollInterval bounds how long a cancelled Read may keep running.
	PollInterval time.Duration
}

// Open opens the port exclusively, applies the line settings and
// discards anything left in the driver buffers.
func (o *SerialOpener) Open(ctx context.Context) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port, err := serial.Open(o.Name, o.mode())
	if err != nil {
		return nil, &scerr.DeviceError{Op: "open", Device: o.Name, Reason: openFailureReason(err), Err: err}
	}

	if err := port.SetReadTimeout(o.PollInterval); err != nil {
		port.Close()
		return nil, &scerr.IOInitError{Op: "read timeout on " + o.Name, Err: err}
	}

	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, &scerr.DeviceError{Op: "purge", Device: o.Name, Err: err}
	}
	if err := port.ResetOutputBuffer(); err != nil {
		port.Close()
		return nil, &scerr.DeviceError{Op: "purge", Device: o.Name, Err: err}
	}

	return &serialChannel{name: o.Name, port: port}, nil
}

func (o *SerialOpener) mode() *serial.Mode {
	m := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch o.Parity {
	case config.ParityOdd:
		m.Parity = serial.OddParity
	case config.ParityEven:
		m.Parity = serial.EvenParity
	case config.ParityMark:
		m.Parity = serial.MarkParity
	case config.ParitySpace:
		m.Parity = serial.SpaceParity
	}
	switch o.StopBits {
	case config.Stop1Half:
		m.StopBits = serial.OnePointFiveStopBits
	case config.Stop2:
		m.StopBits = serial.TwoStopBits
	}
	return m
}

// openFailureReason condenses the driver error into a word or two the
// operator can act on.
func openFailureReason(err error) string {
	code, ok := portErrorCode(err)
	if ok {
		switch code {
		case serial.PortBusy:
			return "busy"
		case serial.PortNotFound:
			return "not found"
		case serial.PermissionDenied:
			return "access denied"
		case serial.InvalidSerialPort:
			return "not a serial port"
		case serial.InvalidSpeed, serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits:
			return "unsupported setting"
		}
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "not found"
	case errors.Is(err, fs.ErrPermission):
		return "access denied"
	}
	return ""
}

func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var pp *serial.PortError
	if errors.As(err, &pp) {
		return pp.Code(), true
	}
	var pv serial.PortError
	if errors.As(err, &pv) {
		return pv.Code(), true
	}
	return 0, false
}

type serialChannel struct {
	name string
	port serial.Port

	closeOnce sync.Once
	closeErr  error
}

func (c *serialChannel) Name() string { return c.name }

// Read waits in PollInterval slices so that a cancelled ctx is noticed
// without closing the port underneath the reader.
func (c *serialChannel) Read(ctx context.Context, p []byte) (int, error) {
	for {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("read %s: %w", c.name, scerr.ErrCancelled)
		}
		n, err := c.port.Read(p)
		if err != nil {
			if code, ok := portErrorCode(err); ok && code == serial.PortClosed {
				return n, fmt.Errorf("read %s: %w", c.name, scerr.ErrDeviceClosed)
			}
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (c *serialChannel) Write(ctx context.Context, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if ctx.Err() != nil {
			return written, fmt.Errorf("write %s: %w", c.name, scerr.ErrCancelled)
		}
		n, err := c.port.Write(p[written:])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (c *serialChannel) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.port.Close() })
	return c.closeErr
}
