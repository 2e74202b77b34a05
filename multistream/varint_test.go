package multistream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 129, 16383, 16384, 1 << 20}
	for _, n := range cases {
		encoded := EncodeUvarint(n)
		decoded, err := ReadUvarint(bytes.NewReader(encoded))
		require.NoError(t, err)
		assert.Equal(t, n, decoded, "round trip for %d", n)
	}
}

func TestVarintSingleByteBoundary(t *testing.T) {
	assert.Equal(t, []byte{0x7f}, EncodeUvarint(127))
	assert.Equal(t, []byte{0x80, 0x01}, EncodeUvarint(128))
}

func TestReadUvarintMalformed(t *testing.T) {
	// All continuation bits set, never terminates.
	malformed := bytes.Repeat([]byte{0xff}, 11)
	_, err := ReadUvarint(bytes.NewReader(malformed))
	assert.Error(t, err)
}
