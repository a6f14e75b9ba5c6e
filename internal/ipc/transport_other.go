//go:build !windows && !unix

package ipc

import (
	"errors"
	"net"
	"time"
)

var errUnsupported = errors.New("ipc is not supported on this platform")

func defaultEndpointFor(string) string { return "" }

func endpointAllowed(string) bool { return false }

func listen(string) (net.Listener, error) { return nil, errUnsupported }

func dial(string, time.Duration) (net.Conn, error) { return nil, errUnsupported }
