package session

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultPort is assumed when the configured address carries none.
const DefaultPort = "20002"

var ErrNoReachableEndpoint = errors.New("session: no reachable endpoint")

// Dial resolves address to its candidate endpoints and attempts each in
// turn with the given timeout, returning the first success. When every
// attempt fails the last observed error is returned; an address that
// resolves to nothing yields ErrNoReachableEndpoint. Recovery after a
// successful dial is the receiver loop's job, not the dialer's.
func Dial(address string, timeout time.Duration) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		host, port = address, DefaultPort
	}
	if port == "" {
		port = DefaultPort
	}

	ips, err := net.LookupHost(host)
	if err != nil {
		return nil, fmt.Errorf("session: resolve %q: %w", host, err)
	}

	var lastErr error
	for _, ip := range ips {
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(ip, port), timeout)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		return nil, ErrNoReachableEndpoint
	}
	return nil, lastErr
}
