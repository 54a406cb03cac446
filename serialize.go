package canary

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"
)

// Format is the single-byte tag selecting a wire serialization. Peers
// must agree on a Format out of band; nothing on the wire self-describes
// which one was used.
type Format byte

const (
	// FormatBincode serializes with a compact, schemaless binary codec
	// (msgpack), the closest ecosystem analogue to Rust's bincode.
	FormatBincode Format = 1
	// FormatJSON serializes with the standard library's encoding/json.
	FormatJSON Format = 2
	// FormatBSON serializes with go.mongodb.org/mongo-driver/bson.
	FormatBSON Format = 3
	// FormatPostcard serializes with a compact, deterministic binary
	// codec (CBOR), the closest ecosystem analogue to Rust's postcard.
	FormatPostcard Format = 4
)

func (f Format) String() string {
	switch f {
	case FormatBincode:
		return "bincode"
	case FormatJSON:
		return "json"
	case FormatBSON:
		return "bson"
	case FormatPostcard:
		return "postcard"
	default:
		return fmt.Sprintf("format(%d)", byte(f))
	}
}

// marshal encodes v using f, returning ErrInvalidData on failure.
func (f Format) marshal(v any) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch f {
	case FormatBincode:
		b, err = msgpack.Marshal(v)
	case FormatJSON:
		b, err = json.Marshal(v)
	case FormatBSON:
		// mongo-driver's Marshal requires a document at the top level, so
		// arbitrary (possibly scalar) application values are wrapped in a
		// one-field envelope document and unwrapped again on decode.
		b, err = bson.Marshal(bson.D{{Key: "v", Value: v}})
	case FormatPostcard:
		b, err = cbor.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: unknown format tag %d", ErrInvalidData, byte(f))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s marshal: %v", ErrInvalidData, f, err)
	}
	return b, nil
}

// unmarshal decodes b into v using f, returning ErrInvalidData on
// failure.
func (f Format) unmarshal(b []byte, v any) error {
	var err error
	switch f {
	case FormatBincode:
		err = msgpack.Unmarshal(b, v)
	case FormatJSON:
		err = json.Unmarshal(b, v)
	case FormatBSON:
		var envelope struct {
			V bson.RawValue `bson:"v"`
		}
		if err = bson.Unmarshal(b, &envelope); err == nil {
			err = envelope.V.Unmarshal(v)
		}
	case FormatPostcard:
		err = cbor.Unmarshal(b, v)
	default:
		return fmt.Errorf("%w: unknown format tag %d", ErrInvalidData, byte(f))
	}
	if err != nil {
		return fmt.Errorf("%w: %s unmarshal: %v", ErrInvalidData, f, err)
	}
	return nil
}
