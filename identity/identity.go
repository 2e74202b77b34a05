// Package identity manages the long-lived Ed25519 identity keypair that
// signs the binding between a peer's network identity and its per-handshake
// Noise static key. Unlike the Noise static keypair (noise.DHKeypair, fresh
// every handshake), an Identity is meant to persist across dials.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrZeroKey is returned when a loaded private key is all zero bytes, which
// can never be a valid Ed25519 seed.
var ErrZeroKey = errors.New("identity: private key is all zeros")

const pemBlockType = "NOISEWIRE ED25519 PRIVATE KEY"

// Identity is a long-lived Ed25519 keypair identifying a peer on the
// network, distinct from the ephemeral Noise static keypair used within a
// single handshake.
type Identity struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Generate creates a fresh Identity using the OS CSPRNG.
func Generate() (*Identity, error) {
	log := logrus.WithFields(logrus.Fields{"package": "identity", "function": "Generate"})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.WithError(err).Error("failed to generate ed25519 identity keypair")
		return nil, fmt.Errorf("identity: generate: %w", err)
	}

	log.WithField("public_key_preview", fmt.Sprintf("%x", pub[:8])).Info("generated new identity keypair")

	return &Identity{Public: pub, Private: priv}, nil
}

// FromSeed reconstructs an Identity from a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if isZero(seed) {
		return nil, ErrZeroKey
	}

	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	return &Identity{Public: pub, Private: priv}, nil
}

// Save persists the identity's seed to path PEM-encoded, mode 0600.
func (id *Identity) Save(path string) error {
	seed := id.Private.Seed()
	block := &pem.Block{Type: pemBlockType, Bytes: seed}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("identity: open %s: %w", path, err)
	}
	defer f.Close()

	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("identity: encode %s: %w", path, err)
	}
	return nil
}

// Load reads an identity previously written by Save.
func Load(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("identity: %s is not a valid identity file", path)
	}

	return FromSeed(block.Bytes)
}

// Sign signs message with the identity's private key.
func (id *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(id.Private, message)
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
