package upgrader

import (
	"crypto/ed25519"

	"github.com/sirupsen/logrus"

	"github.com/nyxwire/noisewire/noise"
)

// SecureChannel owns a framed connection plus the two transport
// CipherStates produced by a completed Noise handshake. Its Read/Write
// methods frame and (de)encrypt; associated data is always empty for
// transport records, per spec.md section 4.5.
//
// A SecureChannel consumes its underlying FrameConn: callers must not
// continue to read or write the raw connection once Upgrade has returned
// one of these, since doing so would desynchronize the cipher nonces.
type SecureChannel struct {
	conn FrameConn
	enc  *noise.CipherState
	dec  *noise.CipherState

	remoteIdentityKey ed25519.PublicKey

	log *logrus.Entry
}

// RemoteIdentity returns the verified Ed25519 identity public key of the
// peer this channel is connected to.
func (sc *SecureChannel) RemoteIdentity() ed25519.PublicKey {
	return sc.remoteIdentityKey
}

// Read decrypts and returns the next transport record.
func (sc *SecureChannel) Read() ([]byte, error) {
	ct, err := sc.conn.ReadFrame()
	if err != nil {
		return nil, err
	}
	return sc.dec.DecryptWithAd(nil, ct)
}

// Write encrypts pt and sends it as the next transport record.
func (sc *SecureChannel) Write(pt []byte) error {
	ct, err := sc.enc.EncryptWithAd(nil, pt)
	if err != nil {
		return err
	}
	return sc.conn.WriteFrame(ct)
}

// Close releases the underlying connection if it supports closing.
func (sc *SecureChannel) Close() error {
	if closer, ok := sc.conn.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
