package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"simplecom/internal/console"
	"simplecom/internal/device"
	scerr "simplecom/internal/errors"
	"simplecom/internal/metrics"
	"simplecom/internal/session"
	"simplecom/util"
)

const (
	keyF1 = "\x1bOP"
	keyF8 = "\x1b[19~"

	waitFor = 2 * time.Second
)

// ── fakes ────────────────────────────────────────────────────────────

// fakeDevice is an in-memory device.Channel.  Bytes sent on incoming
// are returned by Read; bytes written are published on written.
type fakeDevice struct {
	name     string
	incoming chan []byte
	readErr  chan error
	written  chan []byte
	writeErr error

	closes atomic.Int32
	mu     sync.Mutex
	events []string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		name:     "COM3",
		incoming: make(chan []byte),
		readErr:  make(chan error, 1),
		written:  make(chan []byte, 16),
	}
}

func (d *fakeDevice) record(e string) {
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
}

func (d *fakeDevice) history() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) Read(ctx context.Context, p []byte) (int, error) {
	select {
	case b := <-d.incoming:
		return copy(p, b), nil
	case err := <-d.readErr:
		d.record("read failed")
		return 0, err
	case <-ctx.Done():
		d.record("read cancelled")
		return 0, fmt.Errorf("read %s: %w", d.name, scerr.ErrCancelled)
	}
}

func (d *fakeDevice) Write(_ context.Context, p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.written <- append([]byte(nil), p...)
	return len(p), nil
}

func (d *fakeDevice) Close() error {
	d.closes.Add(1)
	d.record("close")
	return nil
}

type fakeOpener struct {
	dev *fakeDevice
	err error
}

func (o *fakeOpener) Open(context.Context) (device.Channel, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.dev, nil
}

// syncBuffer is a bytes.Buffer safe for the concurrent writer and the
// polling test goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ── harness ──────────────────────────────────────────────────────────

type harness struct {
	t       *testing.T
	dev     *fakeDevice
	keys    *io.PipeWriter
	out     *syncBuffer
	metrics *metrics.Collector
	done    chan error
}

func startSession(t *testing.T, ctx context.Context, dev *fakeDevice, prompt bool) *harness {
	t.Helper()
	r, w := io.Pipe()
	h := &harness{
		t:       t,
		dev:     dev,
		keys:    w,
		out:     &syncBuffer{},
		metrics: metrics.New(),
		done:    make(chan error, 1),
	}

	var confirm console.Confirmer = console.AutoConfirm{}
	if prompt {
		confirm = &console.Prompt{Out: h.out}
	}
	mode := &BridgeMode{
		App:     "SimpleCom",
		Port:    dev.name,
		Opener:  &fakeOpener{dev: dev},
		Console: &console.Console{In: r, Out: h.out, Err: io.Discard},
		Confirm: confirm,
		Metrics: h.metrics,
		Logger:  util.NewLogger(0),
	}
	go func() { h.done <- mode.Run(ctx) }()
	t.Cleanup(func() { w.Close() })
	return h
}

// press delivers s to the session as one console chunk.
func (h *harness) press(s string) {
	h.t.Helper()
	if _, err := h.keys.Write([]byte(s)); err != nil {
		h.t.Fatalf("console write: %v", err)
	}
}

func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(waitFor):
		h.t.Fatal("session did not end in time")
		return nil
	}
}

func (h *harness) expectWritten(want string) {
	h.t.Helper()
	select {
	case got := <-h.dev.written:
		if string(got) != want {
			h.t.Fatalf("device got %q, want %q", got, want)
		}
	case <-time.After(waitFor):
		h.t.Fatalf("device never received %q", want)
	}
}

// until polls cond until it holds.
func (h *harness) until(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.t.Fatalf("timed out waiting for %s; console output %q", what, h.out.String())
}

// eventually polls the console output until cond holds.
func (h *harness) eventually(what string, cond func(out string) bool) {
	h.t.Helper()
	h.until(what, func() bool { return cond(h.out.String()) })
}

func (h *harness) assertClosedAfterReadCancelled() {
	h.t.Helper()
	if n := h.dev.closes.Load(); n != 1 {
		h.t.Errorf("device closed %d times, want 1", n)
	}
	ev := h.dev.history()
	if len(ev) < 2 || ev[len(ev)-1] != "close" {
		h.t.Errorf("close should come last, events %v", ev)
	}
}

func title(s string) string { return "\x1b]0;" + s + "\x07" }

// ── tests ────────────────────────────────────────────────────────────

func TestBridge_ForwardsTypedBytes(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), false)

	h.press("AT\r\n")
	h.expectWritten("AT\r\n")

	h.press(keyF1)
	if err := h.wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h.assertClosedAfterReadCancelled()
	if ev := h.dev.history(); ev[0] != "read cancelled" {
		t.Errorf("output path should be cancelled before close, events %v", ev)
	}
	if got := h.metrics.BytesToDevice(); got != 4 {
		t.Errorf("BytesToDevice = %d, want 4", got)
	}
	select {
	case b := <-h.dev.written:
		t.Errorf("F1 must not reach the device, got %q", b)
	default:
	}
}

func TestBridge_DeviceOutputReachesConsole(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), false)

	h.dev.incoming <- []byte{0x41}
	h.eventually("device byte", func(out string) bool { return strings.HasSuffix(out, "A") })

	if out := h.out.String(); !strings.HasPrefix(out, title("SimpleCom: COM3")) {
		t.Errorf("initial title missing from %q", out)
	}

	h.press(keyF1)
	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	if got := h.metrics.BytesFromDevice(); got != 1 {
		t.Errorf("BytesFromDevice = %d, want 1", got)
	}
}

func TestBridge_PauseDropsBothDirections(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), false)
	paused := title("SimpleCom: COM3 [PAUSE]")
	running := title("SimpleCom: COM3")

	h.press(keyF8)
	h.eventually("paused title", func(out string) bool { return strings.Contains(out, paused) })

	h.press("x")
	h.dev.incoming <- []byte("hidden")
	h.until("both directions dropped", func() bool { return h.metrics.BytesDropped() == int64(len("x")+len("hidden")) })

	h.press(keyF8)
	h.eventually("restored title", func(out string) bool {
		return strings.Count(out, running) == 2 && strings.LastIndex(out, running) > strings.Index(out, paused)
	})

	h.dev.incoming <- []byte("shown")
	h.eventually("device output", func(out string) bool { return strings.HasSuffix(out, "shown") })
	h.press("y")
	h.expectWritten("y")

	h.press(keyF1)
	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(h.out.String(), "hidden") {
		t.Error("device output reached the console while paused")
	}
	if got := h.metrics.BytesDropped(); got != int64(len("x")+len("hidden")) {
		t.Errorf("BytesDropped = %d", got)
	}
	if got := h.metrics.PauseToggles(); got != 2 {
		t.Errorf("PauseToggles = %d, want 2", got)
	}
}

func TestBridge_UnrecognisedEscapesForwarded(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), false)

	for _, seq := range []string{"\x1b[A", "\x1bOPx", keyF8 + keyF8, "\x1bO"} {
		h.press(seq)
		h.expectWritten(seq)
	}

	h.press(keyF1)
	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
}

func TestBridge_ConfirmExit(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), true)
	question := console.ExitQuestion + " [y/N] "

	h.press(keyF1)
	h.eventually("exit prompt", func(out string) bool { return strings.HasSuffix(out, question) })
	h.press("n")

	h.press("AT")
	h.expectWritten("AT")

	h.press(keyF1)
	h.eventually("second prompt", func(out string) bool { return strings.Count(out, question) == 2 })
	h.press("Y")

	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	h.assertClosedAfterReadCancelled()
}

func TestBridge_PromptMutesDeviceOutput(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), true)
	question := console.ExitQuestion + " [y/N] "

	h.press(keyF1)
	h.eventually("exit prompt", func(out string) bool { return strings.HasSuffix(out, question) })
	h.dev.incoming <- []byte("noise")
	h.until("output dropped during prompt", func() bool { return h.metrics.BytesDropped() == int64(len("noise")) })
	h.press("n")

	h.press("AT")
	h.expectWritten("AT")
	h.dev.incoming <- []byte("later")
	h.eventually("output after prompt", func(out string) bool { return strings.HasSuffix(out, "later") })

	h.press(keyF1)
	h.eventually("second prompt", func(out string) bool { return strings.Count(out, question) == 2 })
	h.press("y")
	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(h.out.String(), "noise") {
		t.Error("device output was written over the exit prompt")
	}
}

func TestBridge_MultiByteInputForwardedUnchanged(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), false)

	h.press("é€")
	h.expectWritten("é€")

	h.press(keyF1)
	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	if got := h.metrics.BytesToDevice(); got != int64(len("é€")) {
		t.Errorf("BytesToDevice = %d, want %d", got, len("é€"))
	}
}

func TestBridge_WriteFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.writeErr = errors.New("device removed")
	h := startSession(t, context.Background(), dev, false)

	h.press("AT")
	err := h.wait()

	var fe *scerr.FatalIOError
	if !errors.As(err, &fe) || fe.Direction != "write" {
		t.Fatalf("expected write FatalIOError, got %v", err)
	}
	if scerr.ExitCode(err) != scerr.ExitFailure {
		t.Errorf("exit code = %d", scerr.ExitCode(err))
	}
	h.assertClosedAfterReadCancelled()
}

func TestBridge_ReadFailureEndsSession(t *testing.T) {
	dev := newFakeDevice()
	dev.readErr <- errors.New("device removed")
	h := startSession(t, context.Background(), dev, false)

	// No console input: the input path must notice the termination on
	// its own.
	err := h.wait()

	var fe *scerr.FatalIOError
	if !errors.As(err, &fe) || fe.Direction != "read" {
		t.Fatalf("expected read FatalIOError, got %v", err)
	}
	if n := dev.closes.Load(); n != 1 {
		t.Errorf("device closed %d times, want 1", n)
	}
	if got := h.metrics.ErrorCount(); got != 1 {
		t.Errorf("ErrorCount = %d, want 1", got)
	}
}

func TestBridge_ConsoleEOF(t *testing.T) {
	h := startSession(t, context.Background(), newFakeDevice(), true)

	h.press("AT")
	h.expectWritten("AT")
	h.keys.Close()

	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	h.assertClosedAfterReadCancelled()
}

func TestBridge_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := startSession(t, ctx, newFakeDevice(), true)

	h.eventually("initial title", func(out string) bool { return strings.Contains(out, title("SimpleCom: COM3")) })
	cancel()

	if err := h.wait(); err != nil {
		t.Fatal(err)
	}
	h.assertClosedAfterReadCancelled()
}

func TestBridge_OpenFailure(t *testing.T) {
	openErr := &scerr.DeviceError{Op: "open", Device: "COM3", Reason: "busy", Err: errors.New("access denied")}
	out := &syncBuffer{}
	mode := &BridgeMode{
		App:     "SimpleCom",
		Port:    "COM3",
		Opener:  &fakeOpener{err: openErr},
		Console: &console.Console{In: strings.NewReader(""), Out: out, Err: io.Discard},
		Confirm: console.AutoConfirm{},
		Logger:  util.NewLogger(0),
	}

	err := mode.Run(context.Background())
	if !errors.Is(err, openErr) {
		t.Fatalf("got %v, want %v", err, openErr)
	}
	if scerr.ExitCode(err) != scerr.ExitDeviceOpen {
		t.Errorf("exit code = %d", scerr.ExitCode(err))
	}
	if out.String() != "" {
		t.Errorf("nothing should be written before the device opens, got %q", out.String())
	}
}

// ── redirectors in isolation ─────────────────────────────────────────

func TestOutputRedirector_PausedDrops(t *testing.T) {
	dev := newFakeDevice()
	state := session.New("COM3")
	state.TogglePause()
	var out bytes.Buffer
	m := metrics.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	o := &outputRedirector{dev: dev, state: state, out: &out, metrics: m, logger: util.NewLogger(0)}
	go func() { done <- o.run(ctx) }()

	dev.incoming <- []byte("Z")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancelled read should end cleanly, got %v", err)
		}
	case <-time.After(waitFor):
		t.Fatal("output redirector did not stop")
	}
	if out.Len() != 0 {
		t.Errorf("paused output wrote %q", out.String())
	}
	if m.BytesDropped() != 1 {
		t.Errorf("BytesDropped = %d, want 1", m.BytesDropped())
	}
	if state.Terminated() {
		t.Error("a cancelled read must not terminate the session")
	}
}

func TestOutputRedirector_ConsoleWriteFailure(t *testing.T) {
	dev := newFakeDevice()
	state := session.New("COM3")
	o := &outputRedirector{dev: dev, state: state, out: errWriter{}, logger: util.NewLogger(0)}

	done := make(chan error, 1)
	go func() { done <- o.run(context.Background()) }()
	dev.incoming <- []byte("boom")

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected console write error")
		}
	case <-time.After(waitFor):
		t.Fatal("output redirector did not stop")
	}
	if !state.Terminated() {
		t.Error("console failure must terminate the session")
	}
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("console gone") }

func TestPumpConsole_PreservesOrder(t *testing.T) {
	chunks := make(chan chunk)
	stop := make(chan struct{})
	defer close(stop)
	go pumpConsole(iotest.OneByteReader(strings.NewReader("abc")), chunks, stop)

	var got []string
	for c := range chunks {
		if c.err != nil {
			if !errors.Is(c.err, io.EOF) {
				t.Fatalf("unexpected error %v", c.err)
			}
			break
		}
		got = append(got, string(c.data))
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("chunks = %v", got)
	}
}
