package noise

import (
	"crypto/rand"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/curve25519"

	"github.com/nyxwire/noisewire/noisewireerr"
)

// ProtocolName is the Noise protocol name string this package implements.
// At exactly 32 bytes it fits in HashSize, so NewSymmetricState uses it
// directly as h (the zero-padding branch) rather than hashing it.
const ProtocolName = "Noise_XX_25519_ChaChaPoly_SHA256"

// Token identifies one element of a Noise message pattern.
type Token int

// The message pattern tokens. Only E, S, EE, ES, SE are ever requested by
// the XX pattern implemented here; SS is recognized but always rejected,
// matching spec.md's "return an error if requested" note.
const (
	TokenE Token = iota
	TokenS
	TokenEE
	TokenES
	TokenSE
	TokenSS
)

// DHKeypair is an X25519 keypair. The Noise spec calls this "static" even
// though, for XX, both parties generate a fresh one per handshake — it is
// never persisted to disk.
type DHKeypair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateDHKeypair creates a fresh X25519 keypair using the OS CSPRNG.
func GenerateDHKeypair() (DHKeypair, error) {
	var kp DHKeypair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return kp, fmt.Errorf("noise: generate ephemeral key: %w", err)
	}
	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return kp, fmt.Errorf("noise: derive public key: %w", err)
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// HandshakeState drives the XX message pattern. It owns the local static
// and (once generated) ephemeral keypairs, and tracks the remote party's
// static and ephemeral public keys as they are learned.
type HandshakeState struct {
	initiator bool
	ss        *SymmetricState

	s  DHKeypair  // local static
	e  *DHKeypair // local ephemeral, nil until the first E token
	rs *[32]byte  // remote static
	re *[32]byte  // remote ephemeral

	log *logrus.Entry
}

// NewHandshakeState implements Initialize(protocol_name, prologue,
// initiator, s, e, rs, re) from the Noise spec, specialized to the XX
// pattern: e, rs and re always start unknown for the initiator.
func NewHandshakeState(initiator bool, prologue []byte, s DHKeypair) *HandshakeState {
	ss := NewSymmetricState([]byte(ProtocolName))
	if len(prologue) > 0 {
		ss.MixHash(prologue)
	}

	return &HandshakeState{
		initiator: initiator,
		ss:        ss,
		s:         s,
		log:       logrus.WithFields(logrus.Fields{"package": "noise", "type": "HandshakeState"}),
	}
}

// Hash returns the current handshake hash, for hash-chain equality tests.
func (hs *HandshakeState) Hash() [HashSize]byte {
	return hs.ss.Hash()
}

// RemoteStatic returns the remote party's static public key, once learned.
func (hs *HandshakeState) RemoteStatic() ([32]byte, bool) {
	if hs.rs == nil {
		return [32]byte{}, false
	}
	return *hs.rs, true
}

func (hs *HandshakeState) dhToken(token Token) ([]byte, error) {
	switch token {
	case TokenEE:
		if hs.e == nil || hs.re == nil {
			return nil, fmt.Errorf("noise: EE requires both ephemeral keys")
		}
		out, err := DH(hs.e.Private, *hs.re)
		return out[:], err
	case TokenES:
		if hs.initiator {
			if hs.e == nil || hs.rs == nil {
				return nil, fmt.Errorf("noise: ES requires local ephemeral and remote static")
			}
			out, err := DH(hs.e.Private, *hs.rs)
			return out[:], err
		}
		if hs.re == nil {
			return nil, fmt.Errorf("noise: ES requires remote ephemeral")
		}
		out, err := DH(hs.s.Private, *hs.re)
		return out[:], err
	case TokenSE:
		if hs.initiator {
			if hs.re == nil {
				return nil, fmt.Errorf("noise: SE requires remote ephemeral")
			}
			out, err := DH(hs.s.Private, *hs.re)
			return out[:], err
		}
		if hs.e == nil || hs.rs == nil {
			return nil, fmt.Errorf("noise: SE requires local ephemeral and remote static")
		}
		out, err := DH(hs.e.Private, *hs.rs)
		return out[:], err
	case TokenSS:
		return nil, fmt.Errorf("%w: SS", noisewireerr.ErrUnsupportedPattern)
	default:
		return nil, fmt.Errorf("%w: token %d is not a DH token", noisewireerr.ErrUnsupportedPattern, token)
	}
}

// WriteMessage implements WriteMessage(payload, message_pattern) for the
// token subset used by XX. It mutates hs as tokens are processed and
// appends the encrypted payload at the end of the returned buffer.
func (hs *HandshakeState) WriteMessage(payload []byte, tokens []Token) ([]byte, error) {
	var buf []byte

	for _, token := range tokens {
		switch token {
		case TokenE:
			e, err := GenerateDHKeypair()
			if err != nil {
				return nil, err
			}
			hs.e = &e
			buf = append(buf, e.Public[:]...)
			hs.ss.MixHash(e.Public[:])

		case TokenS:
			enc, err := hs.ss.EncryptAndHash(hs.s.Public[:])
			if err != nil {
				return nil, err
			}
			buf = append(buf, enc...)

		case TokenEE, TokenES, TokenSE, TokenSS:
			ikm, err := hs.dhToken(token)
			if err != nil {
				return nil, err
			}
			hs.ss.MixKey(ikm)

		default:
			return nil, fmt.Errorf("%w: token %d", noisewireerr.ErrUnsupportedPattern, token)
		}
	}

	enc, err := hs.ss.EncryptAndHash(payload)
	if err != nil {
		return nil, err
	}
	buf = append(buf, enc...)

	hs.log.WithField("tokens", tokens).Debug("wrote handshake message")

	return buf, nil
}

// ReadMessage implements ReadMessage(message, message_pattern) for the
// token subset used by XX. It consumes buf left to right as tokens are
// processed; DH and decryption side effects only occur after the buffer has
// been confirmed long enough for every token that consumes bytes.
func (hs *HandshakeState) ReadMessage(buf []byte, tokens []Token) ([]byte, error) {
	// Validate length up front so a truncated message never causes partial
	// state mutation (spec.md scenario: truncated message 2 must error
	// before any DH or decryption side effect).
	need := 0
	hasKey := hs.ss.Cipher().HasKey()
	for _, token := range tokens {
		switch token {
		case TokenE:
			need += 32
		case TokenS:
			if hasKey {
				need += 48
			} else {
				need += 32
			}
			// Once S has been consumed, a key is always present for any
			// later S token in a longer pattern (not used by XX, but kept
			// correct for completeness).
			hasKey = true
		case TokenEE, TokenES, TokenSE, TokenSS:
			// Mirrors MixKey's effect on the real Cipher (symmetricstate.go),
			// which InitializeKeys the moment any of these run. Any S token
			// later in the same pattern is encrypted, so this precheck must
			// track hasKey the same way the real processing loop below does.
			hasKey = true
		}
	}
	if len(buf) < need {
		return nil, fmt.Errorf("%w: message too short for pattern (need %d, got %d)", noisewireerr.ErrIO, need, len(buf))
	}

	rest := buf
	for _, token := range tokens {
		switch token {
		case TokenE:
			var re [32]byte
			copy(re[:], rest[:32])
			rest = rest[32:]
			hs.re = &re
			hs.ss.MixHash(re[:])

		case TokenS:
			width := 32
			if hs.ss.Cipher().HasKey() {
				width = 48
			}
			plaintext, err := hs.ss.DecryptAndHash(rest[:width])
			if err != nil {
				return nil, err
			}
			rest = rest[width:]
			var rs [32]byte
			copy(rs[:], plaintext)
			hs.rs = &rs

		case TokenEE, TokenES, TokenSE, TokenSS:
			ikm, err := hs.dhToken(token)
			if err != nil {
				return nil, err
			}
			hs.ss.MixKey(ikm)

		default:
			return nil, fmt.Errorf("%w: token %d", noisewireerr.ErrUnsupportedPattern, token)
		}
	}

	payload, err := hs.ss.DecryptAndHash(rest)
	if err != nil {
		return nil, err
	}

	hs.log.WithField("tokens", tokens).Debug("read handshake message")

	return payload, nil
}

// Finalize implements Split() and assigns the resulting CipherState pair by
// role: the initiator sends with c1 and receives with c2; the responder is
// the mirror image. Only the initiator role is exercised by this dialer.
func (hs *HandshakeState) Finalize() (send, recv *CipherState) {
	c1, c2 := hs.ss.Split()
	if hs.initiator {
		return c1, c2
	}
	return c2, c1
}
