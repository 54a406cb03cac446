package canary

import (
	"fmt"
	"net"
)

// Listener accepts incoming byte-stream connections and performs the
// handshake on each before handing back a ready-to-use Channel, mirroring
// the teacher's net.Listener-returning Listen entry point (aznet.go's
// Listener/Accept), generalized from a single Azure Storage scheme to any
// net.Listener-backed transport (TCP, Unix domain sockets).
type Listener struct {
	ln  net.Listener
	cfg *Config
}

// listenStream wraps an already-bound net.Listener, applying opts.
func listenStream(ln net.Listener, opts []Option) (*Listener, error) {
	cfg := applyConfig(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Listener{ln: ln, cfg: cfg}, nil
}

// Accept blocks for the next incoming connection, performs the Noise
// handshake (unless disabled), and returns the resulting Channel. The
// caller is expected to follow with IntroduceBlocking or IntroduceSpawning
// against the service registry.
func (l *Listener) Accept() (*Channel, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return newStreamChannel(conn, l.cfg)
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections. Connections already handed out
// by Accept are unaffected.
func (l *Listener) Close() error { return l.ln.Close() }

// newStreamChannel performs the handshake (if enabled) over rw and builds
// the resulting Channel, shared by both Dial and Accept since the Noise
// coin-flip handshake is itself symmetric: neither side knows in advance
// whether it will end up Noise initiator.
func newStreamChannel(rw net.Conn, cfg *Config) (*Channel, error) {
	var n *Noise
	if cfg.noiseEnabled {
		var err error
		n, err = newNoiseHandshake(rw, cfg.cipherSuite, cfg.pattern)
		if err != nil {
			return nil, err
		}
	}
	return NewStreamChannel(rw, cfg.channelOptions(n)...), nil
}
