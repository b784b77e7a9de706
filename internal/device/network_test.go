package device

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	scerr "simplecom/internal/errors"
	"simplecom/internal/transport"
)

// serve starts a one-shot TCP server and hands the accepted connection
// to handle.
func serve(t *testing.T, handle func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		handle(conn)
	}()
	return ln.Addr().String()
}

func openNet(t *testing.T, addr string) Channel {
	t.Helper()
	o := &NetOpener{Name: "tcp://" + addr, Address: addr, Dialer: &transport.TCPDialer{Timeout: 2 * time.Second}}
	ch, err := o.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ch.Close() })
	return ch
}

func TestNetChannel_Duplex(t *testing.T) {
	received := make(chan string, 1)
	addr := serve(t, func(c net.Conn) {
		defer c.Close()
		c.Write([]byte("OK\r\n")) //nolint:errcheck
		buf := make([]byte, 4)
		if _, err := io.ReadFull(c, buf); err == nil {
			received <- string(buf)
		}
	})
	ch := openNet(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make([]byte, 0, 4)
	buf := make([]byte, 8)
	for len(got) < 4 {
		n, err := ch.Read(ctx, buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "OK\r\n" {
		t.Errorf("read %q", got)
	}

	if _, err := ch.Write(ctx, []byte("AT\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	select {
	case s := <-received:
		if s != "AT\r\n" {
			t.Errorf("server got %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive data")
	}
}

func TestNetChannel_CancelPendingRead(t *testing.T) {
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	addr := serve(t, func(c net.Conn) {
		defer c.Close()
		<-hold
	})
	ch := openNet(t, addr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ch.Read(ctx, make([]byte, 1))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !scerr.IsCancelled(err) {
			t.Fatalf("err = %v, want cancelled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled read did not return")
	}
}

func TestNetChannel_RemoteClose(t *testing.T) {
	addr := serve(t, func(c net.Conn) { c.Close() })
	ch := openNet(t, addr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := ch.Read(ctx, make([]byte, 1))
	if !scerr.Is(err, scerr.ErrDeviceClosed) {
		t.Fatalf("err = %v, want ErrDeviceClosed", err)
	}
}

func TestNetOpener_DialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	o := &NetOpener{Name: "tcp://" + addr, Address: addr, Dialer: &transport.TCPDialer{Timeout: time.Second}}
	_, err = o.Open(context.Background())
	if scerr.ExitCode(err) != scerr.ExitDeviceOpen {
		t.Fatalf("err = %v, want a device error", err)
	}
}
