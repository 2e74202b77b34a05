// Package noise implements the subset of the Noise Protocol Framework
// needed to drive a Noise_XX_25519_ChaChaPoly_SHA256 handshake as the
// initiating party: the CipherState, SymmetricState and HandshakeState
// objects from the Noise specification (https://noiseprotocol.org/noise.html),
// plus the HKDF and DH helper functions they're built on.
//
// The module's dialer only plays the initiator side of the XX pattern;
// HandshakeState also handles the responder role, which the tests use to
// drive the other end of an in-memory handshake. Tokens outside
// {E, S, EE, ES, SE} (and the SS token, which XX never uses) return
// ErrUnsupportedPattern rather than being silently accepted.
package noise

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/nyxwire/noisewire/noisewireerr"
)

// KeySize is the length in bytes of a CipherState symmetric key.
const KeySize = 32

// CipherState implements the CipherState object from the Noise spec: an
// AEAD key plus a strictly monotonic nonce. Before InitializeKey is called
// (k absent) EncryptWithAd/DecryptWithAd are the identity transform.
type CipherState struct {
	hasKey bool
	key    [KeySize]byte
	n      uint64

	log *logrus.Entry
}

// NewCipherState returns a CipherState with no key installed, matching
// InitializeKey(empty) from the Noise spec.
func NewCipherState() *CipherState {
	return &CipherState{
		log: logrus.WithFields(logrus.Fields{"package": "noise", "type": "CipherState"}),
	}
}

// InitializeKey installs k and resets the nonce to zero.
func (cs *CipherState) InitializeKey(k [KeySize]byte) {
	cs.key = k
	cs.hasKey = true
	cs.n = 0
}

// HasKey reports whether a key has been installed.
func (cs *CipherState) HasKey() bool {
	return cs.hasKey
}

// Nonce returns the current nonce value, exposed for tests asserting
// monotonicity.
func (cs *CipherState) Nonce() uint64 {
	return cs.n
}

// nonceBytes builds the 96-bit AEAD nonce: 4 zero bytes followed by n
// little-endian, per spec.md section 4.1.
func nonceBytes(n uint64) [chacha20poly1305.NonceSize]byte {
	var out [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(out[4:], n)
	return out
}

// EncryptWithAd encrypts plaintext under ad with the current key and nonce,
// then advances the nonce. If no key is installed it returns plaintext
// unchanged and does not touch the nonce.
func (cs *CipherState) EncryptWithAd(ad, plaintext []byte) ([]byte, error) {
	if !cs.hasKey {
		return plaintext, nil
	}

	aead, err := chacha20poly1305.New(cs.key[:])
	if err != nil {
		return nil, fmt.Errorf("noise: construct aead: %w", err)
	}

	nonce := nonceBytes(cs.n)
	ciphertext := aead.Seal(nil, nonce[:], plaintext, ad)
	cs.n++

	cs.log.WithFields(logrus.Fields{
		"nonce":     cs.n - 1,
		"plaintext": len(plaintext),
	}).Debug("encrypted transport record")

	return ciphertext, nil
}

// DecryptWithAd decrypts ciphertext under ad. On AEAD failure it returns
// ErrDecryptionFailure and does NOT advance the nonce, matching the
// documented deliberate simplification in spec.md: a failure here is always
// terminal for the session, so no future message will be decrypted with a
// stale nonce.
func (cs *CipherState) DecryptWithAd(ad, ciphertext []byte) ([]byte, error) {
	if !cs.hasKey {
		return ciphertext, nil
	}

	aead, err := chacha20poly1305.New(cs.key[:])
	if err != nil {
		return nil, fmt.Errorf("noise: construct aead: %w", err)
	}

	nonce := nonceBytes(cs.n)
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, ad)
	if err != nil {
		cs.log.WithField("nonce", cs.n).Warn("transport record failed to authenticate")
		return nil, fmt.Errorf("%w: %v", noisewireerr.ErrDecryptionFailure, err)
	}
	cs.n++

	return plaintext, nil
}
