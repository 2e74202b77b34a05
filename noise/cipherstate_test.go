package noise

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherStateIdentityBeforeKey(t *testing.T) {
	cs := NewCipherState()
	require.False(t, cs.HasKey())

	ct, err := cs.EncryptWithAd([]byte("ad"), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), ct)
	assert.Zero(t, cs.Nonce(), "nonce must not advance when no key is installed")

	pt, err := cs.DecryptWithAd([]byte("ad"), ct)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)
}

func TestCipherStateRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], bytes.Repeat([]byte{0x42}, 32))

	enc := NewCipherState()
	enc.InitializeKey(key)
	dec := NewCipherState()
	dec.InitializeKey(key)

	msg := []byte("the quick brown fox")
	ct, err := enc.EncryptWithAd(nil, msg)
	require.NoError(t, err)
	assert.Len(t, ct, len(msg)+16, "ciphertext is plaintext length plus a 16 byte tag")

	pt, err := dec.DecryptWithAd(nil, ct)
	require.NoError(t, err)
	assert.Equal(t, msg, pt)
}

func TestCipherStateNonceMonotonic(t *testing.T) {
	var key [32]byte
	cs := NewCipherState()
	cs.InitializeKey(key)

	seen := map[uint64]bool{}
	for i := 0; i < 50; i++ {
		n := cs.Nonce()
		require.False(t, seen[n], "nonce %d reused", n)
		seen[n] = true

		_, err := cs.EncryptWithAd(nil, []byte("x"))
		require.NoError(t, err)
	}
	assert.EqualValues(t, 50, cs.Nonce())
}

func TestCipherStateTamperEvidence(t *testing.T) {
	var key [32]byte
	enc := NewCipherState()
	enc.InitializeKey(key)
	dec := NewCipherState()
	dec.InitializeKey(key)

	ct, err := enc.EncryptWithAd(nil, []byte("message"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0x01

	_, err = dec.DecryptWithAd(nil, tampered)
	require.Error(t, err)

	nonceBefore := dec.Nonce()
	_, err = dec.DecryptWithAd(nil, tampered)
	require.Error(t, err)
	assert.Equal(t, nonceBefore, dec.Nonce(), "nonce must not advance on decryption failure")
}

func TestCipherStateDecryptFailureDoesNotAdvanceNonce(t *testing.T) {
	var key [32]byte
	cs := NewCipherState()
	cs.InitializeKey(key)

	_, err := cs.DecryptWithAd(nil, []byte("not a valid ciphertext"))
	require.Error(t, err)
	assert.Zero(t, cs.Nonce())
}
