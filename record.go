package canary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// RecordHeaderSize is the width of the length prefix on a byte-stream
// record: an 8-byte big-endian length, no type byte, no magic, no version.
const RecordHeaderSize = 8

// DefaultMaxRecordSize is the default ceiling on a single record's
// declared payload length (16 MiB).
const DefaultMaxRecordSize = 16 * 1024 * 1024

// sendRecord writes a single length-prefixed record to w: u64_be(len) ||
// payload. It performs no interpretation of payload.
func sendRecord(w io.Writer, payload []byte) error {
	var header [RecordHeaderSize]byte
	binary.BigEndian.PutUint64(header[:], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return wrapClosed(err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return wrapClosed(err)
	}
	return nil
}

// receiveRecord reads exactly one length-prefixed record from r, failing
// with ErrTooLarge if the declared length exceeds maxSize, and
// ErrConnectionClosed on a short read at EOF.
func receiveRecord(r io.Reader, maxSize int) ([]byte, error) {
	var header [RecordHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, wrapClosed(err)
	}
	length := binary.BigEndian.Uint64(header[:])
	if maxSize > 0 && length > uint64(maxSize) {
		return nil, fmt.Errorf("%w: record declares %d bytes, ceiling is %d", ErrTooLarge, length, maxSize)
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, wrapClosed(err)
		}
	}
	return payload, nil
}

// recordReadWriter is the minimal byte-stream surface the Noise handshake
// and the introduction protocol need: read and write discrete records.
type recordReadWriter interface {
	io.Reader
	io.Writer
}

// sendRawRecord writes payload as one record with no serialization.
func sendRawRecord(rw recordReadWriter, payload []byte) error {
	return sendRecord(rw, payload)
}

// receiveRawRecord reads one record with no deserialization.
func receiveRawRecord(rw recordReadWriter) ([]byte, error) {
	return receiveRecord(rw, DefaultMaxRecordSize)
}

// sendBincodeRecord serializes v with FormatBincode and writes it as one
// record. Used for the handshake's coin-flip and key-exchange messages,
// per spec.md §4.3.
func sendBincodeRecord(rw recordReadWriter, v any) error {
	payload, err := FormatBincode.marshal(v)
	if err != nil {
		return err
	}
	return sendRecord(rw, payload)
}

// receiveBincodeRecord reads one record and deserializes it into v with
// FormatBincode.
func receiveBincodeRecord(rw recordReadWriter, v any) error {
	payload, err := receiveRecord(rw, DefaultMaxRecordSize)
	if err != nil {
		return err
	}
	return FormatBincode.unmarshal(payload, v)
}

// wrapClosed normalizes EOF/unexpected-EOF and similar I/O failures into
// ErrConnectionClosed; any other error passes through unchanged.
func wrapClosed(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return err
}
