package noise

import (
	"crypto/sha256"

	"github.com/sirupsen/logrus"
)

// HashSize is the output length of SHA-256, used throughout as both the
// chaining key and handshake hash length.
const HashSize = 32

// SymmetricState implements the SymmetricState object from the Noise spec:
// the rolling handshake hash h and chaining key ck, plus the CipherState
// they key. h accumulates every byte that crosses the wire in either
// direction; ck and h evolve in lockstep as MixHash/MixKey are called.
type SymmetricState struct {
	ck [HashSize]byte
	h  [HashSize]byte
	cs *CipherState

	log *logrus.Entry
}

// NewSymmetricState implements Initialize(protocol_name) from the spec: h is
// the protocol name, zero-padded to 32 bytes if it fits, else its SHA-256
// digest; ck starts equal to h.
func NewSymmetricState(protocolName []byte) *SymmetricState {
	ss := &SymmetricState{
		cs:  NewCipherState(),
		log: logrus.WithFields(logrus.Fields{"package": "noise", "type": "SymmetricState"}),
	}

	if len(protocolName) <= HashSize {
		copy(ss.h[:], protocolName)
	} else {
		ss.h = sha256.Sum256(protocolName)
	}
	ss.ck = ss.h

	return ss
}

// Cipher exposes the underlying CipherState so HandshakeState can ask
// whether a key has been installed (needed to size the S token window).
func (ss *SymmetricState) Cipher() *CipherState {
	return ss.cs
}

// Hash returns a copy of the current handshake hash, exposed for tests that
// assert hash-chain equality between two peers.
func (ss *SymmetricState) Hash() [HashSize]byte {
	return ss.h
}

// MixHash folds data into h: h = SHA256(h || data).
func (ss *SymmetricState) MixHash(data []byte) {
	hasher := sha256.New()
	hasher.Write(ss.h[:])
	hasher.Write(data)
	copy(ss.h[:], hasher.Sum(nil))
}

// MixKey derives a new chaining key and cipher key from ikm, and installs
// the cipher key into the CipherState.
func (ss *SymmetricState) MixKey(ikm []byte) {
	newCk, tempK, _ := HKDF(ss.ck[:], ikm, 2)
	ss.ck = newCk
	ss.cs.InitializeKey(tempK)
}

// MixKeyAndHash derives a chaining key, a hash-mixin, and a cipher key from
// ikm. Unused by the XX pattern but implemented for completeness per the
// Noise spec.
func (ss *SymmetricState) MixKeyAndHash(ikm []byte) {
	newCk, tempH, tempK := HKDF(ss.ck[:], ikm, 3)
	ss.ck = newCk
	ss.MixHash(tempH[:])
	ss.cs.InitializeKey(tempK)
}

// EncryptAndHash encrypts plaintext under the current hash as associated
// data, then mixes the resulting ciphertext into the hash.
func (ss *SymmetricState) EncryptAndHash(plaintext []byte) ([]byte, error) {
	ciphertext, err := ss.cs.EncryptWithAd(ss.h[:], plaintext)
	if err != nil {
		return nil, err
	}
	ss.MixHash(ciphertext)
	return ciphertext, nil
}

// DecryptAndHash decrypts ciphertext under the current hash as associated
// data, then mixes the wire bytes (not the plaintext) into the hash. On
// decryption failure h is left unmodified and the error is returned
// unchanged.
func (ss *SymmetricState) DecryptAndHash(ciphertext []byte) ([]byte, error) {
	plaintext, err := ss.cs.DecryptWithAd(ss.h[:], ciphertext)
	if err != nil {
		return nil, err
	}
	ss.MixHash(ciphertext)
	return plaintext, nil
}

// Split derives the two transport CipherStates from the final chaining key.
// Role assignment (which is send vs. receive) is the caller's
// responsibility, per spec.md section 4.3.
func (ss *SymmetricState) Split() (c1, c2 *CipherState) {
	k1, k2, _ := HKDF(ss.ck[:], nil, 2)

	c1 = NewCipherState()
	c1.InitializeKey(k1)

	c2 = NewCipherState()
	c2.InitializeKey(k2)

	ss.log.Debug("symmetric state split into transport cipher pair")

	return c1, c2
}
