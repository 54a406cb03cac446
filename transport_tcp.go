package canary

import (
	"fmt"
	"net"
)

// DialTCP connects to address over TCP, performs the Noise handshake, and
// returns the resulting Channel ready for IntroduceBlocking/Send/Receive.
func DialTCP(address string, opts ...Option) (*Channel, error) {
	cfg := applyConfig(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial tcp %s: %v", ErrOther, address, err)
	}
	return newStreamChannel(conn, cfg)
}

// ListenTCP binds address and returns a Listener that performs the Noise
// handshake on every accepted connection, mirroring the teacher's
// scheme-keyed Listen entry point (aznet.go's Listen), generalized to
// plain TCP.
func ListenTCP(address string, opts ...Option) (*Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: listen tcp %s: %v", ErrOther, address, err)
	}
	l, err := listenStream(ln, opts)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return l, nil
}
