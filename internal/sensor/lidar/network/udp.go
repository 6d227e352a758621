package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// readPoll bounds how long a read blocks before the context is rechecked.
const readPoll = 250 * time.Millisecond

// Listener receives LiDAR packets on a UDP socket.
type Listener struct {
	conn  *net.UDPConn
	Stats Stats
}

// Listen binds a UDP socket at address (host:port). An empty host listens on
// all interfaces.
func Listen(address string, rcvBuf int) (*Listener, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}
	if rcvBuf > 0 {
		if err := conn.SetReadBuffer(rcvBuf); err != nil {
			opsf("Warning: failed to set UDP receive buffer to %d bytes: %v", rcvBuf, err)
		}
	}
	diagf("Listening for lidar packets on %s", conn.LocalAddr())
	return &Listener{conn: conn}, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Serve reads packets until ctx is cancelled or the socket fails.
// Cancellation returns ctx.Err().
func (l *Listener) Serve(ctx context.Context, h Handler) error {
	buf := make([]byte, 65535)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.conn.SetReadDeadline(time.Now().Add(readPoll)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("UDP read failed: %w", err)
		}
		dispatch(&l.Stats, buf[:n], time.Now(), h)
	}
}

// Close closes the socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}
