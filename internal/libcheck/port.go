package libcheck

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

const portConnectTimeout = 2 * time.Second

// PortValidator checks that something accepts TCP connections on a
// local port.
type PortValidator struct {
	Port int
}

func (v *PortValidator) Name() string {
	return fmt.Sprintf("server listening on port %d", v.Port)
}

func (v *PortValidator) Validate(ctx context.Context) (TestCase, error) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(v.Port))

	dialer := net.Dialer{Timeout: portConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return Failing(v.Name(), "connection timeout after 2 seconds"), nil
		}
		return Failing(v.Name(), fmt.Sprintf("connection failed: %v", err)), nil
	}
	conn.Close()
	return Passing(v.Name(), fmt.Sprintf("successfully connected to port %d", v.Port)), nil
}
