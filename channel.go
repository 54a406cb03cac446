package canary

import "github.com/google/uuid"

// MessageStream is the message-stream transport flavor (WebSocket):
// discrete binary messages, each message *is* one record, with no
// separate length prefix.
type MessageStream interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
}

// Channel is a typed, bidirectional message stream over either a
// byte-stream or message-stream transport, optionally wrapping every
// record in a Noise session. It carries no application state between
// messages beyond what the chosen Format requires.
//
// A Channel is single-producer/single-consumer per direction: concurrent
// Send calls, or concurrent Receive calls, on the same Channel are
// undefined, matching spec.md §4.4.
type Channel struct {
	id            uuid.UUID
	stream        recordReadWriter // nil when backed by a message stream
	msgs          MessageStream    // nil when backed by a byte stream
	noise         *Noise           // nil when unencrypted
	maxRecordSize int
	metrics       Metrics // nil when unmetered
}

// NewStreamChannel builds a Channel over a byte-stream duplex (TCP, Unix
// domain socket, or any io.Reader+io.Writer pair).
func NewStreamChannel(rw recordReadWriter, opts ...ChannelOption) *Channel {
	c := &Channel{id: uuid.New(), stream: rw, maxRecordSize: DefaultMaxRecordSize}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewMessageChannel builds a Channel over a message-stream duplex
// (WebSocket).
func NewMessageChannel(ms MessageStream, opts ...ChannelOption) *Channel {
	c := &Channel{id: uuid.New(), msgs: ms, maxRecordSize: DefaultMaxRecordSize}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ID returns the Channel's process-local unique identifier, assigned at
// construction and stable for the Channel's lifetime. It has no meaning
// to the peer; it exists purely for this side's own logging and metrics
// attribution.
func (c *Channel) ID() string { return c.id.String() }

// ChannelOption configures a Channel at construction.
type ChannelOption func(*Channel)

// WithChannelNoise attaches a completed Noise session, encrypting every
// record sent or received from this point on.
func WithChannelNoise(n *Noise) ChannelOption {
	return func(c *Channel) { c.noise = n }
}

// WithMaxRecordSize overrides the record-size ceiling enforced on receive.
func WithMaxRecordSize(n int) ChannelOption {
	return func(c *Channel) { c.maxRecordSize = n }
}

// WithChannelMetrics attaches m so every SendRaw/ReceiveRaw call on the
// resulting Channel is counted.
func WithChannelMetrics(m Metrics) ChannelOption {
	return func(c *Channel) { c.metrics = m }
}

// Bare returns the untyped/unformatted handle used by the introduction
// protocol. The conversion is total and non-copying: it is the same
// Channel, just accessed through its raw byte operations.
func (c *Channel) Bare() *Channel { return c }

// SendRaw writes payload as one record, encrypting it first if a Noise
// session is attached.
func (c *Channel) SendRaw(payload []byte) error {
	if c.noise != nil {
		sealed, err := c.noise.Seal(payload)
		if err != nil {
			return err
		}
		payload = sealed
	}
	var err error
	if c.msgs != nil {
		err = c.msgs.WriteMessage(payload)
	} else {
		err = sendRecord(c.stream, payload)
	}
	if err == nil && c.metrics != nil {
		c.metrics.IncrementSend()
		c.metrics.IncrementBytesSent(int64(len(payload)))
	}
	return err
}

// ReceiveRaw reads one record, decrypting it first if a Noise session is
// attached.
func (c *Channel) ReceiveRaw() ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	if c.msgs != nil {
		payload, err = c.msgs.ReadMessage()
	} else {
		payload, err = receiveRecord(c.stream, c.maxRecordSize)
	}
	if err != nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.IncrementReceive()
		c.metrics.IncrementBytesReceived(int64(len(payload)))
	}
	if c.noise != nil {
		return c.noise.Open(payload)
	}
	return payload, nil
}

// Send serializes value with format and writes it as one record.
func Send[T any](c *Channel, format Format, value T) error {
	payload, err := format.marshal(value)
	if err != nil {
		return err
	}
	return c.SendRaw(payload)
}

// Receive reads one record and deserializes it into T with format.
func Receive[T any](c *Channel, format Format) (T, error) {
	var zero T
	payload, err := c.ReceiveRaw()
	if err != nil {
		return zero, err
	}
	var value T
	if err := format.unmarshal(payload, &value); err != nil {
		return zero, err
	}
	return value, nil
}
