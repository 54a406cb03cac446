package canary

import (
	"context"
	"time"

	"github.com/flynn/noise"
)

const (
	// DefaultFormat is the serialization format used when none is chosen.
	DefaultFormat = FormatBincode

	// DefaultConnectTimeout is the connect timeout a Config starts with;
	// see WithConnectTimeout.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultIdleTimeout is the idle timeout a Config starts with; see
	// WithIdleTimeout.
	DefaultIdleTimeout = 5 * time.Minute
)

// defaultHandshakePattern is the Noise pattern used unless overridden:
// NN, matching spec.md §4.3 (no static keys known in advance, the
// coin-flip alone decides roles).
var defaultHandshakePattern = noise.HandshakeNN

// Option defines a functional option for building a Channel or dialing/
// listening on a transport.
type Option func(*Config)

// Config holds runtime settings for a connection or listener. Zero value
// is not meaningful; use defaultConfig via applyConfig. Users modify it
// through functional options, never by constructing it directly.
type Config struct {
	ctx    context.Context
	cancel context.CancelFunc

	metrics Metrics

	format        Format
	maxRecordSize int

	noiseEnabled bool
	cipherSuite  noise.CipherSuite
	pattern      noise.HandshakePattern

	connectTimeout time.Duration
	idleTimeout    time.Duration
}

// Validate checks if the configuration is sane and valid.
func (c *Config) Validate() error {
	if c.maxRecordSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// defaultConfig returns config with library defaults.
func defaultConfig() *Config {
	ctx, cancel := context.WithCancel(context.Background())
	return &Config{
		ctx:            ctx,
		cancel:         cancel,
		metrics:        NewDefaultMetrics(),
		format:         DefaultFormat,
		maxRecordSize:  DefaultMaxRecordSize,
		noiseEnabled:   true,
		cipherSuite:    defaultCipherSuite,
		pattern:        defaultHandshakePattern,
		connectTimeout: DefaultConnectTimeout,
		idleTimeout:    DefaultIdleTimeout,
	}
}

// applyConfig builds a runtime config by applying the given options on
// top of defaults.
func applyConfig(opts []Option) *Config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// channelOptions translates a resolved Config, plus an optional completed
// Noise session, into the ChannelOption values NewStreamChannel/
// NewMessageChannel expect.
func (c *Config) channelOptions(n *Noise) []ChannelOption {
	opts := []ChannelOption{WithMaxRecordSize(c.maxRecordSize)}
	if n != nil {
		opts = append(opts, WithChannelNoise(n))
	}
	if c.metrics != nil {
		opts = append(opts, WithChannelMetrics(c.metrics))
	}
	return opts
}

// WithFormat sets the default serialization format new channels built
// from this Config are expected to use.
func WithFormat(f Format) Option {
	return func(c *Config) { c.format = f }
}

// WithRecordSizeLimit overrides the record-size ceiling enforced on
// receive by channels built from this Config. Non-positive values are
// ignored.
func WithRecordSizeLimit(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxRecordSize = n
		}
	}
}

// WithNoise enables or disables the Noise handshake. Disabling it yields
// a plaintext channel; only appropriate over a transport that supplies
// its own confidentiality (e.g. already-TLS-wrapped).
func WithNoise(enabled bool) Option {
	return func(c *Config) { c.noiseEnabled = enabled }
}

// WithCipherSuite overrides the Noise cipher suite, e.g. to switch away
// from the default Noise_NN_25519_ChaChaPoly_BLAKE2s.
func WithCipherSuite(suite noise.CipherSuite) Option {
	return func(c *Config) { c.cipherSuite = suite }
}

// WithHandshakePattern overrides the Noise handshake pattern.
func WithHandshakePattern(pattern noise.HandshakePattern) Option {
	return func(c *Config) { c.pattern = pattern }
}

// WithConnectTimeout records a connect timeout on the Config. Zero or
// negative values are ignored and the current value is kept. DialTCP,
// DialUnix and DialWS do not read it: dialing, the handshake and the
// introduction round trip run without a deadline.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// WithIdleTimeout records an idle timeout on the Config. Zero or negative
// values are ignored and the current value is kept. No listener or
// channel reads it: idle peers are neither detected nor closed.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithContext replaces the Config's base context with a cancellable child
// of ctx; a nil ctx is ignored. The dial and listen functions do not read
// this context, so cancelling it does not interrupt a dial or handshake.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		if ctx != nil {
			c.ctx, c.cancel = context.WithCancel(ctx)
		}
	}
}

// WithMetrics sets a custom metrics implementation for tracking channel
// statistics. If not provided, a default implementation with atomic
// counters is used.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		if metrics != nil {
			c.metrics = metrics
		}
	}
}
