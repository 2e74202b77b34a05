package noise

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runXX drives a full three-message XX handshake between two in-memory
// HandshakeState instances, with no sockets involved.
func runXX(t *testing.T) (alice, bob *HandshakeState) {
	t.Helper()

	aliceStatic, err := GenerateDHKeypair()
	require.NoError(t, err)
	bobStatic, err := GenerateDHKeypair()
	require.NoError(t, err)

	alice = NewHandshakeState(true, nil, aliceStatic)
	bob = NewHandshakeState(false, nil, bobStatic)

	msg1, err := alice.WriteMessage(nil, []Token{TokenE})
	require.NoError(t, err)
	_, err = bob.ReadMessage(msg1, []Token{TokenE})
	require.NoError(t, err)

	msg2, err := bob.WriteMessage([]byte("hello from bob"), []Token{TokenE, TokenEE, TokenS, TokenES})
	require.NoError(t, err)
	payload2, err := alice.ReadMessage(msg2, []Token{TokenE, TokenEE, TokenS, TokenES})
	require.NoError(t, err)
	assert.Equal(t, "hello from bob", string(payload2))

	msg3, err := alice.WriteMessage([]byte("hello from alice"), []Token{TokenS, TokenSE})
	require.NoError(t, err)
	payload3, err := bob.ReadMessage(msg3, []Token{TokenS, TokenSE})
	require.NoError(t, err)
	assert.Equal(t, "hello from alice", string(payload3))

	return alice, bob
}

func TestXXHandshakeHashChain(t *testing.T) {
	alice, bob := runXX(t)
	assert.Equal(t, alice.Hash(), bob.Hash(), "both peers must agree on the final handshake hash")
}

func TestXXHandshakeSplitSymmetricKeys(t *testing.T) {
	alice, bob := runXX(t)

	aliceSend, aliceRecv := alice.Finalize()
	bobSend, bobRecv := bob.Finalize()

	msg := []byte("hello")
	ct, err := aliceSend.EncryptWithAd(nil, msg)
	require.NoError(t, err)
	assert.Len(t, ct, len(msg)+16)

	pt, err := bobRecv.DecryptWithAd(nil, ct)
	require.NoError(t, err)
	assert.Equal(t, msg, pt)

	ct2, err := bobSend.EncryptWithAd(nil, []byte("hi alice"))
	require.NoError(t, err)
	pt2, err := aliceRecv.DecryptWithAd(nil, ct2)
	require.NoError(t, err)
	assert.Equal(t, "hi alice", string(pt2))
}

func TestXXHandshakeRemoteStaticLearned(t *testing.T) {
	alice, bob := runXX(t)

	bobStaticAsSeenByAlice, ok := alice.RemoteStatic()
	require.True(t, ok)

	aliceStaticAsSeenByBob, ok := bob.RemoteStatic()
	require.True(t, ok)

	assert.NotEqual(t, bobStaticAsSeenByAlice, aliceStaticAsSeenByBob)
}

func TestWriteMessageUnknownRemoteKeyErrors(t *testing.T) {
	local, err := GenerateDHKeypair()
	require.NoError(t, err)
	hs := NewHandshakeState(true, nil, local)

	_, err = hs.WriteMessage(nil, []Token{TokenEE})
	assert.Error(t, err, "EE before any E/S exchange must fail, not panic")
}

func TestReadMessageTruncatedMessage2(t *testing.T) {
	aliceStatic, err := GenerateDHKeypair()
	require.NoError(t, err)
	bobStatic, err := GenerateDHKeypair()
	require.NoError(t, err)

	alice := NewHandshakeState(true, nil, aliceStatic)
	bob := NewHandshakeState(false, nil, bobStatic)

	msg1, err := alice.WriteMessage(nil, []Token{TokenE})
	require.NoError(t, err)
	_, err = bob.ReadMessage(msg1, []Token{TokenE})
	require.NoError(t, err)

	msg2, err := bob.WriteMessage(nil, []Token{TokenE, TokenEE, TokenS, TokenES})
	require.NoError(t, err)

	truncated := msg2[:32+10] // shorter than 32 (E) + 48 (encrypted S)
	before := alice.Hash()

	_, err = alice.ReadMessage(truncated, []Token{TokenE, TokenEE, TokenS, TokenES})
	require.Error(t, err)
	assert.Equal(t, before, alice.Hash(), "a length failure must not mutate handshake state")
}

func TestReadMessageTruncatedMessage2JustBelowKeyedLength(t *testing.T) {
	// A buffer in [64, 79] bytes used to slip past the precheck's wrong
	// (keyless) 64-byte estimate for [E, EE, S, ES] and panic with a
	// slice-bounds-out-of-range when TokenS's actual 48-byte keyed read
	// ran against a too-short remainder. It must now be rejected cleanly.
	aliceStatic, err := GenerateDHKeypair()
	require.NoError(t, err)
	bobStatic, err := GenerateDHKeypair()
	require.NoError(t, err)

	alice := NewHandshakeState(true, nil, aliceStatic)
	bob := NewHandshakeState(false, nil, bobStatic)

	msg1, err := alice.WriteMessage(nil, []Token{TokenE})
	require.NoError(t, err)
	_, err = bob.ReadMessage(msg1, []Token{TokenE})
	require.NoError(t, err)

	msg2, err := bob.WriteMessage(nil, []Token{TokenE, TokenEE, TokenS, TokenES})
	require.NoError(t, err)
	require.Greater(t, len(msg2), 70, "full message 2 must exceed the truncation point under test")

	truncated := msg2[:70]
	before := alice.Hash()

	assert.NotPanics(t, func() {
		_, err = alice.ReadMessage(truncated, []Token{TokenE, TokenEE, TokenS, TokenES})
	})
	require.Error(t, err)
	assert.Equal(t, before, alice.Hash(), "a length failure must not mutate handshake state")
}

func TestSSTokenUnsupported(t *testing.T) {
	local, err := GenerateDHKeypair()
	require.NoError(t, err)
	hs := NewHandshakeState(true, nil, local)
	hs.e = &DHKeypair{}
	remote := [32]byte{1}
	hs.rs = &remote

	_, err = hs.WriteMessage(nil, []Token{TokenSS})
	require.Error(t, err)
}
