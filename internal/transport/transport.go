// Package transport provides the dialers used to reach a network serial
// server (a ser2net-style raw TCP port).  A plain TCP dialer connects
// directly; an SSH dialer routes the connection through a bastion.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH client).  Stateless dialers return nil.
	Close() error
}
