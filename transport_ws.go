package canary

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// wsStream adapts a *websocket.Conn to both recordReadWriter (for the
// handshake, which uses the length-prefixed framing helpers in record.go
// regardless of transport flavor, each 8-byte header and each payload
// landing in its own WebSocket message) and MessageStream (for the
// resulting Channel, where one binary WebSocket message is one record
// with no extra length prefix, per spec.md §4.2's message-stream framing
// rule). leftover buffers any bytes of a ReadMessage result not yet
// consumed by Read, so Read behaves like a normal io.Reader even when
// called with a buffer smaller than one WebSocket message.
type wsStream struct {
	conn     *websocket.Conn
	leftover []byte
}

func (s *wsStream) ReadMessage() ([]byte, error) {
	_, payload, err := s.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return payload, nil
}

func (s *wsStream) WriteMessage(payload []byte) error {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return nil
}

// Read and Write let wsStream satisfy recordReadWriter for the raw
// bincode exchanges the Noise handshake needs (flipCoin, key exchange,
// handshake messages). Each WriteMessage call from the peer is consumed
// across one or more Read calls, same as any streaming io.Reader.
func (s *wsStream) Read(p []byte) (int, error) {
	if len(s.leftover) == 0 {
		payload, err := s.ReadMessage()
		if err != nil {
			return 0, err
		}
		s.leftover = payload
	}
	n := copy(p, s.leftover)
	s.leftover = s.leftover[n:]
	return n, nil
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.WriteMessage(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

var wsDialer = websocket.DefaultDialer

// DialWS connects to a ws:// or wss:// URL, performs the Noise handshake,
// and returns the resulting message-stream Channel.
func DialWS(url string, opts ...Option) (*Channel, error) {
	cfg := applyConfig(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	conn, _, err := wsDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial ws %s: %v", ErrOther, url, err)
	}
	return newMessageChannel(&wsStream{conn: conn}, cfg)
}

// wsUpgrader is the shared upgrader used by WSHandler's HTTP handler. Origin
// checking is left to whatever reverse proxy or http.ServeMux middleware
// fronts the handler; this framework layer concerns itself only with
// framing and the Noise handshake.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler returns an http.Handler that upgrades every request to a
// WebSocket, performs the Noise handshake, and passes the resulting
// Channel to accept. accept is expected to call IntroduceBlocking or
// IntroduceSpawning; it runs in the HTTP handler's own goroutine, so a
// long-lived accept should spawn its own goroutine if it needs to return
// control to the HTTP server.
func WSHandler(accept func(*Channel), opts ...Option) (http.Handler, error) {
	cfg := applyConfig(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger().WithError(err).Warn("websocket upgrade failed")
			return
		}
		ch, err := newMessageChannel(&wsStream{conn: conn}, cfg)
		if err != nil {
			logger().WithError(err).Warn("websocket handshake failed")
			conn.Close()
			return
		}
		logger().WithField("channel", ch.ID()).Debug("websocket channel established")
		accept(ch)
	}), nil
}

// newMessageChannel performs the handshake (if enabled) over ws and
// builds the resulting message-stream Channel.
func newMessageChannel(ws *wsStream, cfg *Config) (*Channel, error) {
	var n *Noise
	if cfg.noiseEnabled {
		var err error
		n, err = newNoiseHandshake(ws, cfg.cipherSuite, cfg.pattern)
		if err != nil {
			return nil, err
		}
	}
	return NewMessageChannel(ws, cfg.channelOptions(n)...), nil
}
