package transport

import (
	"context"
	"net"
	"time"
)

func defaultDialer(timeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	return d.DialContext
}
