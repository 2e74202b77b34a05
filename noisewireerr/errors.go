// Package noisewireerr defines the typed, fatal error kinds shared across the
// dialer. Protocol and I/O failures surfaced to a caller of
// Dial/Upgrade/Read/Write wrap one of these sentinels so callers can classify
// them with errors.Is; argument checks and key-generation failures return
// plain errors.
package noisewireerr

import "errors"

var (
	// ErrIO covers any TCP read/write failure or EOF encountered mid-record.
	ErrIO = errors.New("noisewire: io error")

	// ErrNegotiation is returned when the peer does not echo
	// /multistream/1.0.0 during the pre-handshake negotiation.
	ErrNegotiation = errors.New("noisewire: multistream negotiation failed")

	// ErrAuthProtocolUnsupported is returned when the peer does not accept
	// the /noise protocol name.
	ErrAuthProtocolUnsupported = errors.New("noisewire: peer does not support /noise")

	// ErrDecryptionFailure is returned on any AEAD tag mismatch. It is
	// always fatal to the session.
	ErrDecryptionFailure = errors.New("noisewire: decryption failure")

	// ErrUnsupportedPattern is returned when a handshake token outside the
	// implemented XX subset is requested.
	ErrUnsupportedPattern = errors.New("noisewire: unsupported handshake pattern token")

	// ErrMalformedPayload is returned when the Noise handshake payload
	// fails to parse or carries an unexpected key type.
	ErrMalformedPayload = errors.New("noisewire: malformed handshake payload")

	// ErrSignatureInvalid is returned when the peer's identity signature
	// fails to verify against its claimed static Noise key.
	ErrSignatureInvalid = errors.New("noisewire: identity signature invalid")

	// ErrVarint is returned on a malformed LEB128 length prefix.
	ErrVarint = errors.New("noisewire: malformed varint")

	// ErrConnectionClosed is returned when a short read on EOF prevents a
	// full record from being assembled.
	ErrConnectionClosed = errors.New("noisewire: connection closed mid-record")
)
