package core

import (
	"context"
	"fmt"

	"simplecom/internal/console"
	"simplecom/internal/device"
	scerr "simplecom/internal/errors"
	"simplecom/internal/metrics"
	"simplecom/internal/session"
	"simplecom/util"
)

// BridgeMode runs one interactive session between the console and a
// serial device: the default mode.
type BridgeMode struct {
	App     string // window title prefix
	Port    string // device name shown in the title
	Opener  device.Opener
	Console *console.Console
	Confirm console.Confirmer
	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Run opens the device, forwards data in both directions until the
// operator leaves or a data path fails, then shuts down in order:
// terminate, cancel the pending device read, join the output path,
// close the device.  The device is closed exactly once on every path
// that opened it.
func (m *BridgeMode) Run(ctx context.Context) error {
	m.Logger.Verbose("opening %s", m.Port)

	dev, err := m.Opener.Open(ctx)
	if err != nil {
		m.Metrics.RecordError(err.Error())
		return err
	}

	restore, err := m.Console.Enter()
	if err != nil {
		dev.Close() //nolint:errcheck
		m.Metrics.RecordError(err.Error())
		return err
	}
	defer restore()

	if m.Console.Interactive() {
		m.Logger.SetCRLF(true)
		defer m.Logger.SetCRLF(false)
	}

	state := session.New(m.Port)
	m.advance(state, session.Connected)
	m.Logger.Verbose("connected to %s", dev.Name())
	m.setTitle(state)

	outCtx, cancelOut := context.WithCancel(ctx)
	defer cancelOut()

	out := &outputRedirector{
		dev:     dev,
		state:   state,
		out:     m.Console.Out,
		metrics: m.Metrics,
		logger:  m.Logger,
	}
	outDone := make(chan error, 1)
	go func() { outDone <- out.run(outCtx) }()

	chunks := make(chan chunk)
	stopPump := make(chan struct{})
	defer close(stopPump)
	go pumpConsole(m.Console.In, chunks, stopPump)

	in := &inputRedirector{
		dev:      dev,
		state:    state,
		chunks:   chunks,
		confirm:  m.Confirm,
		setTitle: func() { m.setTitle(state) },
		metrics:  m.Metrics,
		logger:   m.Logger,
	}
	inErr := in.run(ctx)

	// Shutdown.  The output path is blocked in a device read at this
	// point at most; cancelling it is the only way to unblock it.
	state.Terminate()
	m.advance(state, session.ExitRequested)
	cancelOut()
	m.advance(state, session.Draining)
	outErr := <-outDone

	var closeErr error
	if err := dev.Close(); err != nil {
		closeErr = fmt.Errorf("close %s: %w", dev.Name(), err)
	}
	m.advance(state, session.Closed)

	err = scerr.Join(inErr, outErr, closeErr)
	if err != nil {
		m.Metrics.RecordError(err.Error())
		if scerr.IsRetryable(err) {
			m.Logger.Info("the failure looks transient; start a new session to reconnect")
		}
	}
	m.logSummary()
	return err
}

func (m *BridgeMode) advance(state *session.State, to session.Phase) {
	if err := state.Advance(to); err != nil {
		m.Logger.Warn("%v", err)
		return
	}
	m.Logger.Debug("session %s", to)
}

func (m *BridgeMode) setTitle(state *session.State) {
	if err := m.Console.SetTitle(state.Title(m.App)); err != nil {
		m.Logger.Debug("set title: %v", err)
	}
}

func (m *BridgeMode) logSummary() {
	if m.Metrics == nil {
		return
	}
	s := m.Metrics.Snapshot()
	m.Logger.Verbose("session closed after %s: %d bytes sent, %d received, %d dropped while paused",
		s.Duration, s.BytesToDevice, s.BytesFromDevice, s.BytesDropped)
	m.Logger.Debug("stats: %s", m.Metrics.JSON())
}
