package upgrader

import (
	"crypto/ed25519"
	"fmt"

	"github.com/nyxwire/noisewire/identity"
	"github.com/nyxwire/noisewire/noise"
	"github.com/nyxwire/noisewire/noisewireerr"
)

// verifyRemoteIdentity parses pt (the decrypted payload from handshake
// round 2) as a NoiseHandshakePayload, extracts the peer's Ed25519 identity
// public key, and verifies that it signed the binding to the peer's Noise
// static key learned during this handshake. Returns the verified identity
// public key.
func verifyRemoteIdentity(hs *noise.HandshakeState, pt []byte) (ed25519.PublicKey, error) {
	payload, err := identity.UnmarshalNoiseHandshakePayload(pt)
	if err != nil {
		return nil, err
	}
	if payload.IdentityKey == nil || payload.IdentitySig == nil {
		return nil, fmt.Errorf("%w: payload missing identity_key or identity_sig", noisewireerr.ErrMalformedPayload)
	}

	keyProto, err := identity.UnmarshalPublicKey(payload.IdentityKey)
	if err != nil {
		return nil, err
	}
	if keyProto.Type != identity.KeyTypeEd25519 {
		return nil, fmt.Errorf("%w: unsupported identity key type %d", noisewireerr.ErrMalformedPayload, keyProto.Type)
	}
	if len(keyProto.Data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: identity key is %d bytes, want %d", noisewireerr.ErrMalformedPayload, len(keyProto.Data), ed25519.PublicKeySize)
	}

	remoteStatic, ok := hs.RemoteStatic()
	if !ok {
		return nil, fmt.Errorf("%w: remote static key not yet known", noisewireerr.ErrMalformedPayload)
	}

	signedMaterial := append([]byte(identity.SignaturePrefix), remoteStatic[:]...)
	remoteIdentityKey := ed25519.PublicKey(keyProto.Data)
	if !ed25519.Verify(remoteIdentityKey, signedMaterial, payload.IdentitySig) {
		return nil, noisewireerr.ErrSignatureInvalid
	}

	return remoteIdentityKey, nil
}

// buildAuthPayload constructs the local NoiseHandshakePayload sent in
// handshake round 3: the local identity public key plus a signature over
// the binding to the local Noise static public key.
func buildAuthPayload(id *identity.Identity, localStatic noise.DHKeypair) ([]byte, error) {
	keyProto := &identity.PublicKey{Type: identity.KeyTypeEd25519, Data: id.Public}

	signedMaterial := append([]byte(identity.SignaturePrefix), localStatic.Public[:]...)
	sig := id.Sign(signedMaterial)

	payload := &identity.NoiseHandshakePayload{
		IdentityKey: keyProto.Marshal(),
		IdentitySig: sig,
	}
	return payload.Marshal(), nil
}
