// Package upgrader drives the three-message Noise_XX handshake against an
// already multistream-negotiated connection and, on success, produces a
// SecureChannel: an authenticated, encrypted, length-framed bidirectional
// channel. Only the initiator (client) role is implemented.
package upgrader

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nyxwire/noisewire/identity"
	"github.com/nyxwire/noisewire/noise"
	"github.com/nyxwire/noisewire/noisewireerr"
)

// FrameReader reads one post-handshake length-prefixed record.
type FrameReader interface {
	ReadFrame() ([]byte, error)
}

// FrameWriter writes one post-handshake length-prefixed record.
type FrameWriter interface {
	WriteFrame([]byte) error
}

// FrameConn is the narrow boundary between raw socket I/O and the
// handshake/transport framing: "read one framed record" and "write one
// framed record", supplied by the transport layer. Keeping the handshake
// parameterised over this interface (rather than a concrete net.Conn) keeps
// the Noise state machine decoupled from TCP and enables in-memory test
// doubles, per spec.md section 9.
type FrameConn interface {
	FrameReader
	FrameWriter
}

// Upgrade runs the client side of the Noise_XX_25519_ChaChaPoly_SHA256
// handshake over conn and returns a SecureChannel on success. id signs the
// binding between the local network identity and the freshly generated
// Noise static key, per spec.md section 4.5.
func Upgrade(conn FrameConn, id *identity.Identity) (*SecureChannel, error) {
	log := logrus.WithFields(logrus.Fields{"package": "upgrader", "function": "Upgrade"})

	localStatic, err := noise.GenerateDHKeypair()
	if err != nil {
		return nil, fmt.Errorf("upgrader: generate static keypair: %w", err)
	}

	hs := noise.NewHandshakeState(true, nil, localStatic)

	// Round 1: -> e
	msg1, err := hs.WriteMessage(nil, []noise.Token{noise.TokenE})
	if err != nil {
		return nil, fmt.Errorf("upgrader: round 1 write: %w", err)
	}
	if err := conn.WriteFrame(msg1); err != nil {
		return nil, fmt.Errorf("%w: round 1 send: %v", noisewireerr.ErrIO, err)
	}

	// Round 2: <- e, ee, s, es
	msg2, err := conn.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("%w: round 2 receive: %v", noisewireerr.ErrIO, err)
	}
	pt2, err := hs.ReadMessage(msg2, []noise.Token{noise.TokenE, noise.TokenEE, noise.TokenS, noise.TokenES})
	if err != nil {
		return nil, fmt.Errorf("upgrader: round 2 read: %w", err)
	}

	remoteIdentityKey, err := verifyRemoteIdentity(hs, pt2)
	if err != nil {
		return nil, err
	}
	log.WithField("remote_identity", fmt.Sprintf("%x", remoteIdentityKey[:8])).Debug("verified remote identity binding")

	// Round 3: -> s, se
	authPayload, err := buildAuthPayload(id, localStatic)
	if err != nil {
		return nil, err
	}
	msg3, err := hs.WriteMessage(authPayload, []noise.Token{noise.TokenS, noise.TokenSE})
	if err != nil {
		return nil, fmt.Errorf("upgrader: round 3 write: %w", err)
	}
	if err := conn.WriteFrame(msg3); err != nil {
		return nil, fmt.Errorf("%w: round 3 send: %v", noisewireerr.ErrIO, err)
	}

	send, recv := hs.Finalize()

	return &SecureChannel{
		conn:              conn,
		enc:               send,
		dec:               recv,
		remoteIdentityKey: remoteIdentityKey,
		log:               logrus.WithFields(logrus.Fields{"package": "upgrader", "type": "SecureChannel"}),
	}, nil
}
