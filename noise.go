package canary

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flynn/noise"
)

// noiseOverhead is the per-packet AEAD tag size.
const noiseOverhead = 16

// PacketLen is the maximum amount of plaintext encrypted under a single
// Noise transport message. Larger payloads are split into consecutive
// PacketLen-sized chunks, each sealed independently under nonce 0
// (stateless transport mode). The receiver recovers packet boundaries by
// consuming PacketLen+16-byte chunks until fewer bytes remain, since every
// packet but the last is exactly that size.
const PacketLen = 65519

// defaultCipherSuite is the Noise cipher suite used unless an alternative
// is selected via WithCipherSuite: Noise_NN_25519_ChaChaPoly_BLAKE2s.
var defaultCipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashBLAKE2s)

const maxHandshakeMessage = 256

// Noise wraps a completed, stateless Noise transport session: a pair of
// CipherStates with nonce reset to zero on every call, so packet order is
// governed entirely by record framing rather than a running sequence
// number.
type Noise struct {
	send        *noise.CipherState
	recv        *noise.CipherState
	isInitiator bool
}

// newNoiseHandshake performs the symmetric coin-flip handshake described
// in spec.md §4.3 over rw, an already-framed record reader/writer pair
// carrying no Noise of its own yet, and returns the resulting stateless
// transport session. Either side may call this; the coin-flip determines
// which one acts as Noise initiator.
func newNoiseHandshake(rw recordReadWriter, suite noise.CipherSuite, pattern noise.HandshakePattern) (*Noise, error) {
	isInitiator, err := flipCoin(rw)
	if err != nil {
		return nil, err
	}
	if isInitiator {
		return noiseInitiate(rw, suite, pattern)
	}
	return noiseRespond(rw, suite, pattern)
}

// exchangeBincodeRecord sends local and receives the peer's value
// concurrently. Both sides of the handshake run the identical "send mine,
// receive theirs" sequence, so over a fully synchronous duplex transport
// (net.Pipe, most notably) a plain send-then-receive would deadlock: each
// side's Write blocks until the peer's Read drains it, and neither side
// reaches its own Read until its Write returns. Running the send in its
// own goroutine lets it rendezvous with the peer's blocking receive while
// this side's receive rendezvous with the peer's goroutine.
func exchangeBincodeRecord[T any](rw recordReadWriter, local T) (T, error) {
	var peer T
	sendErr := make(chan error, 1)
	go func() { sendErr <- sendBincodeRecord(rw, local) }()

	recvErr := receiveBincodeRecord(rw, &peer)
	if err := <-sendErr; err != nil {
		return peer, err
	}
	if recvErr != nil {
		return peer, recvErr
	}
	return peer, nil
}

// flipCoin draws a uniform u64, exchanges it with the peer, and resolves
// which side is initiator. Ties cause both sides to redraw.
func flipCoin(rw recordReadWriter) (isInitiator bool, err error) {
	for {
		var buf [8]byte
		if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
			return false, fmt.Errorf("%w: %v", ErrOther, err)
		}
		local := binary.BigEndian.Uint64(buf[:])

		peer, err := exchangeBincodeRecord(rw, local)
		if err != nil {
			return false, err
		}
		if local == peer {
			continue
		}
		return local > peer, nil
	}
}

func noiseInitiate(rw recordReadWriter, suite noise.CipherSuite, pattern noise.HandshakePattern) (*Noise, error) {
	keypair, err := suite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate keypair: %v", ErrOther, err)
	}
	peerPublic, err := exchangeBincodeRecord(rw, keypair.Public)
	if err != nil {
		return nil, err
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   suite,
		Pattern:       pattern,
		Initiator:     true,
		StaticKeypair: keypair,
		PeerStatic:    peerPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init handshake: %v", ErrOther, err)
	}

	msg, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: write handshake message: %v", ErrOther, err)
	}
	if len(msg) > maxHandshakeMessage {
		return nil, fmt.Errorf("%w: handshake message exceeds %d bytes", ErrOther, maxHandshakeMessage)
	}
	if err := sendRawRecord(rw, msg); err != nil {
		return nil, err
	}

	reply, err := receiveRawRecord(rw)
	if err != nil {
		return nil, err
	}
	_, cs1, cs2, err := hs.ReadMessage(nil, reply)
	if err != nil {
		return nil, fmt.Errorf("%w: read handshake reply: %v", ErrOther, err)
	}
	if cs1 == nil || cs2 == nil {
		return nil, fmt.Errorf("%w: handshake did not complete", ErrOther)
	}
	return &Noise{send: cs1, recv: cs2, isInitiator: true}, nil
}

func noiseRespond(rw recordReadWriter, suite noise.CipherSuite, pattern noise.HandshakePattern) (*Noise, error) {
	keypair, err := suite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: generate keypair: %v", ErrOther, err)
	}
	peerPublic, err := exchangeBincodeRecord(rw, keypair.Public)
	if err != nil {
		return nil, err
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   suite,
		Pattern:       pattern,
		Initiator:     false,
		StaticKeypair: keypair,
		PeerStatic:    peerPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init handshake: %v", ErrOther, err)
	}

	msg, err := receiveRawRecord(rw)
	if err != nil {
		return nil, err
	}
	if _, _, _, err := hs.ReadMessage(nil, msg); err != nil {
		return nil, fmt.Errorf("%w: read handshake message: %v", ErrOther, err)
	}

	reply, cs1, cs2, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: write handshake reply: %v", ErrOther, err)
	}
	if err := sendRawRecord(rw, reply); err != nil {
		return nil, err
	}
	if cs1 == nil || cs2 == nil {
		return nil, fmt.Errorf("%w: handshake did not complete", ErrOther)
	}
	return &Noise{send: cs2, recv: cs1, isInitiator: false}, nil
}

// IsInitiator reports whether this side drew the winning coin-flip.
func (n *Noise) IsInitiator() bool { return n.isInitiator }

// Seal encrypts plaintext as one or more PacketLen-bounded packets,
// each under nonce 0, concatenated in order with no extra framing.
func (n *Noise) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, 0, len(plaintext)+noiseOverhead)
	if len(plaintext) == 0 {
		n.send.SetNonce(0)
		sealed, err := n.send.Encrypt(nil, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: encrypt packet: %v", ErrOther, err)
		}
		return append(out, sealed...), nil
	}
	for len(plaintext) > 0 {
		chunk := plaintext
		if len(chunk) > PacketLen {
			chunk = plaintext[:PacketLen]
		}
		plaintext = plaintext[len(chunk):]
		n.send.SetNonce(0)
		sealed, err := n.send.Encrypt(nil, nil, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: encrypt packet: %v", ErrOther, err)
		}
		out = append(out, sealed...)
	}
	return out, nil
}

// Open decrypts a concatenated sequence of Noise packets produced by
// Seal. Every packet but the last is exactly PacketLen+16 bytes, which is
// what lets the receiver recover packet boundaries without an explicit
// per-packet length prefix.
func (n *Noise) Open(ciphertext []byte) ([]byte, error) {
	const packetCiphertextLen = PacketLen + noiseOverhead
	out := make([]byte, 0, len(ciphertext))
	for len(ciphertext) > 0 {
		chunkLen := packetCiphertextLen
		if len(ciphertext) < chunkLen {
			chunkLen = len(ciphertext)
		}
		chunk := ciphertext[:chunkLen]
		ciphertext = ciphertext[chunkLen:]
		n.recv.SetNonce(0)
		plain, err := n.recv.Decrypt(nil, nil, chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt packet: %v", ErrOther, err)
		}
		out = append(out, plain...)
	}
	return out, nil
}
