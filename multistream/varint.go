// Package multistream implements the pre-handshake protocol-name
// negotiation ("multistream-select") and the post-handshake length-prefixed
// record framing that the Noise transport ciphers run over.
package multistream

import (
	"fmt"
	"io"

	"github.com/nyxwire/noisewire/noisewireerr"
)

// EncodeUvarint encodes n as an unsigned LEB128 varint.
func EncodeUvarint(n uint64) []byte {
	var buf []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if n == 0 {
			break
		}
	}
	return buf
}

// maxVarintBytes bounds how many continuation bytes ReadUvarint will accept
// before concluding the prefix is malformed, guarding against an
// unterminated varint from a hostile or broken peer.
const maxVarintBytes = 10

// ReadUvarint reads a single unsigned LEB128 varint one byte at a time from
// r, matching the wire format EncodeUvarint produces.
func ReadUvarint(r io.Reader) (uint64, error) {
	var (
		result uint64
		shift  uint
		b      [1]byte
	)
	for i := 0; i < maxVarintBytes; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("%w: %v", noisewireerr.ErrIO, err)
		}
		result |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, fmt.Errorf("%w: varint exceeds %d bytes", noisewireerr.ErrVarint, maxVarintBytes)
}
