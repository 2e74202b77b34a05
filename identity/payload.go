package identity

import (
	"encoding/binary"
	"fmt"

	"github.com/nyxwire/noisewire/noisewireerr"
)

// SignaturePrefix is prepended to a peer's Noise static public key before
// signing it with the peer's identity key, binding the two together. It is
// exactly the 24 ASCII bytes from the libp2p noise spec, no separator, no
// trailing newline.
const SignaturePrefix = "noise-libp2p-static-key:"

// KeyTypeEd25519 is the only PublicKey.type value this dialer accepts.
const KeyTypeEd25519 = 1

// PublicKey mirrors the two-field protobuf message:
//
//	message PublicKey {
//	  required KeyType type = 1; // Ed25519 = 1
//	  required bytes   data = 2;
//	}
type PublicKey struct {
	Type uint64
	Data []byte
}

// NoiseHandshakePayload mirrors the two-field protobuf message:
//
//	message NoiseHandshakePayload {
//	  optional bytes identity_key = 1;
//	  optional bytes identity_sig = 2;
//	}
type NoiseHandshakePayload struct {
	IdentityKey []byte
	IdentitySig []byte
}

// Only two message shapes ever cross this wire, both with fixed,
// small field sets. Generating code from a .proto file needs a protoc
// invocation this environment cannot run, and neither
// google.golang.org/protobuf nor github.com/gogo/protobuf's generated
// structs can be hand-authored safely (their Marshal methods lean on
// descriptor reflection machinery produced by the generator, not on the
// struct alone) — so, exactly as spec.md section 9 allows, these two
// messages get a small hand-written encoder/decoder over the standard
// protobuf wire format (varint tags, length-delimited bytes fields).
// See DESIGN.md for the full justification.

func appendTag(buf []byte, fieldNum int, wireType byte) []byte {
	return binary.AppendUvarint(buf, uint64(fieldNum)<<3|uint64(wireType))
}

func appendBytesField(buf []byte, fieldNum int, data []byte) []byte {
	buf = appendTag(buf, fieldNum, 2)
	buf = binary.AppendUvarint(buf, uint64(len(data)))
	return append(buf, data...)
}

func appendVarintField(buf []byte, fieldNum int, value uint64) []byte {
	buf = appendTag(buf, fieldNum, 0)
	return binary.AppendUvarint(buf, value)
}

// Marshal encodes a PublicKey to its protobuf wire form.
func (pk *PublicKey) Marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, pk.Type)
	buf = appendBytesField(buf, 2, pk.Data)
	return buf
}

// Marshal encodes a NoiseHandshakePayload to its protobuf wire form,
// omitting either field if it is nil (both fields are optional).
func (p *NoiseHandshakePayload) Marshal() []byte {
	var buf []byte
	if p.IdentityKey != nil {
		buf = appendBytesField(buf, 1, p.IdentityKey)
	}
	if p.IdentitySig != nil {
		buf = appendBytesField(buf, 2, p.IdentitySig)
	}
	return buf
}

// field is one decoded (field number, wire type, payload) tuple.
type field struct {
	num      int
	wireType byte
	varint   uint64
	bytes    []byte
}

func decodeFields(buf []byte) ([]field, error) {
	var fields []field
	for len(buf) > 0 {
		tag, n := binary.Uvarint(buf)
		if n <= 0 {
			return nil, fmt.Errorf("%w: malformed field tag", noisewireerr.ErrMalformedPayload)
		}
		buf = buf[n:]

		fieldNum := int(tag >> 3)
		wireType := byte(tag & 0x7)

		switch wireType {
		case 0: // varint
			v, n := binary.Uvarint(buf)
			if n <= 0 {
				return nil, fmt.Errorf("%w: malformed varint field", noisewireerr.ErrMalformedPayload)
			}
			buf = buf[n:]
			fields = append(fields, field{num: fieldNum, wireType: wireType, varint: v})

		case 2: // length-delimited
			length, n := binary.Uvarint(buf)
			if n <= 0 {
				return nil, fmt.Errorf("%w: malformed length-delimited field", noisewireerr.ErrMalformedPayload)
			}
			buf = buf[n:]
			if uint64(len(buf)) < length {
				return nil, fmt.Errorf("%w: truncated length-delimited field", noisewireerr.ErrMalformedPayload)
			}
			data := buf[:length]
			buf = buf[length:]
			fields = append(fields, field{num: fieldNum, wireType: wireType, bytes: data})

		default:
			return nil, fmt.Errorf("%w: unsupported wire type %d", noisewireerr.ErrMalformedPayload, wireType)
		}
	}
	return fields, nil
}

// UnmarshalPublicKey decodes the protobuf wire form of a PublicKey.
func UnmarshalPublicKey(buf []byte) (*PublicKey, error) {
	fields, err := decodeFields(buf)
	if err != nil {
		return nil, err
	}

	pk := &PublicKey{}
	for _, f := range fields {
		switch f.num {
		case 1:
			pk.Type = f.varint
		case 2:
			pk.Data = f.bytes
		}
	}
	if pk.Data == nil {
		return nil, fmt.Errorf("%w: PublicKey missing required data field", noisewireerr.ErrMalformedPayload)
	}
	return pk, nil
}

// UnmarshalNoiseHandshakePayload decodes the protobuf wire form of a
// NoiseHandshakePayload.
func UnmarshalNoiseHandshakePayload(buf []byte) (*NoiseHandshakePayload, error) {
	fields, err := decodeFields(buf)
	if err != nil {
		return nil, err
	}

	p := &NoiseHandshakePayload{}
	for _, f := range fields {
		switch f.num {
		case 1:
			p.IdentityKey = f.bytes
		case 2:
			p.IdentitySig = f.bytes
		}
	}
	return p, nil
}
