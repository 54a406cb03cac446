package canary

import (
	"fmt"
	"net"
)

// DialUnix connects to the Unix domain socket at path, performs the Noise
// handshake, and returns the resulting Channel.
func DialUnix(path string, opts ...Option) (*Channel, error) {
	cfg := applyConfig(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: dial unix %s: %v", ErrOther, path, err)
	}
	return newStreamChannel(conn, cfg)
}

// ListenUnix binds the Unix domain socket at path and returns a Listener
// that performs the Noise handshake on every accepted connection.
func ListenUnix(path string, opts ...Option) (*Listener, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: listen unix %s: %v", ErrOther, path, err)
	}
	l, err := listenStream(ln, opts)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return l, nil
}
