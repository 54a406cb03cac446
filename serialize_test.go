package canary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRoundTripString(t *testing.T) {
	for _, f := range []Format{FormatBincode, FormatJSON, FormatBSON, FormatPostcard} {
		t.Run(f.String(), func(t *testing.T) {
			payload, err := f.marshal("hello canary")
			require.NoError(t, err)

			var got string
			require.NoError(t, f.unmarshal(payload, &got))
			assert.Equal(t, "hello canary", got)
		})
	}
}

func TestFormatRoundTripStruct(t *testing.T) {
	type point struct {
		X int32
		Y int32
	}
	want := point{X: 3, Y: -7}

	for _, f := range []Format{FormatBincode, FormatJSON, FormatBSON, FormatPostcard} {
		t.Run(f.String(), func(t *testing.T) {
			payload, err := f.marshal(want)
			require.NoError(t, err)

			var got point
			require.NoError(t, f.unmarshal(payload, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestFormatRoundTripTuple(t *testing.T) {
	want := [2]uint32{42, 1000}

	for _, f := range []Format{FormatBincode, FormatJSON, FormatBSON, FormatPostcard} {
		t.Run(f.String(), func(t *testing.T) {
			payload, err := f.marshal(want)
			require.NoError(t, err)

			var got [2]uint32
			require.NoError(t, f.unmarshal(payload, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestFormatUnknownTag(t *testing.T) {
	_, err := Format(99).marshal("x")
	assert.ErrorIs(t, err, ErrInvalidData)

	var out string
	err = Format(99).unmarshal([]byte("x"), &out)
	assert.ErrorIs(t, err, ErrInvalidData)
}
