package noise

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymmetricStateInitializePadsShortName(t *testing.T) {
	ss := NewSymmetricState([]byte("short"))
	h := ss.Hash()
	assert.True(t, bytes.HasPrefix(h[:], []byte("short")))
	assert.True(t, bytes.Equal(h[:], append([]byte("short"), make([]byte, HashSize-len("short"))...)))
}

func TestSymmetricStateInitializeHashesLongName(t *testing.T) {
	longName := "Noise_XX_25519_ChaChaPoly_BLAKE2b"
	ss := NewSymmetricState([]byte(longName))
	want := sha256.Sum256([]byte(longName))
	// longName is 33 bytes, over HashSize, so it must be hashed not padded.
	assert.Greater(t, len(longName), HashSize)
	assert.Equal(t, want, ss.Hash())
}

func TestSymmetricStateEncryptAndHashMixesCiphertext(t *testing.T) {
	ss := NewSymmetricState([]byte(ProtocolName))
	before := ss.Hash()

	ct, err := ss.EncryptAndHash([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), ct, "no key installed yet, so this is the identity transform")
	assert.NotEqual(t, before, ss.Hash())
}

func TestSymmetricStateSplitProducesDistinctKeys(t *testing.T) {
	ss := NewSymmetricState([]byte(ProtocolName))
	ss.MixKey([]byte("shared secret material"))

	c1, c2 := ss.Split()
	ct1, err := c1.EncryptWithAd(nil, []byte("a"))
	require.NoError(t, err)
	ct2, err := c2.EncryptWithAd(nil, []byte("a"))
	require.NoError(t, err)
	assert.NotEqual(t, ct1, ct2)
}
