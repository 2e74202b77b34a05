// Package identify implements a thin post-handshake metadata exchange over
// an already-established SecureChannel: each side sends its list of
// supported protocol name strings and receives the peer's list in return.
// It is a consumer of upgrader.SecureChannel, not a handshake participant,
// and has no bearing on the Noise invariants.
package identify

import (
	"bytes"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/nyxwire/noisewire/multistream"
)

// Channel is the subset of upgrader.SecureChannel that Exchange needs,
// letting callers (and tests) supply any framed read/write pair.
type Channel interface {
	Read() ([]byte, error)
	Write([]byte) error
}

// Info describes what a peer advertised during the exchange.
type Info struct {
	Protocols []string
}

// Exchange writes localProtocols as a single varint-framed record over ch,
// then reads back the peer's own record and decodes it into an Info. Both
// sides of a connection must call Exchange to avoid deadlocking on the
// read half.
func Exchange(ch Channel, localProtocols []string) (*Info, error) {
	log := logrus.WithFields(logrus.Fields{"package": "identify", "function": "Exchange"})

	encoded := encodeProtocolList(localProtocols)
	if err := ch.Write(encoded); err != nil {
		return nil, fmt.Errorf("identify: send protocol list: %w", err)
	}

	raw, err := ch.Read()
	if err != nil {
		return nil, fmt.Errorf("identify: receive protocol list: %w", err)
	}
	protocols, err := decodeProtocolList(raw)
	if err != nil {
		return nil, err
	}

	log.WithField("remote_protocol_count", len(protocols)).Debug("identify exchange complete")
	return &Info{Protocols: protocols}, nil
}

func encodeProtocolList(protocols []string) []byte {
	var buf bytes.Buffer
	buf.Write(multistream.EncodeUvarint(uint64(len(protocols))))
	for _, p := range protocols {
		buf.Write(multistream.EncodeUvarint(uint64(len(p))))
		buf.WriteString(p)
	}
	return buf.Bytes()
}

func decodeProtocolList(raw []byte) ([]string, error) {
	r := bytes.NewReader(raw)
	count, err := multistream.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("identify: decode protocol count: %w", err)
	}

	protocols := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		l, err := multistream.ReadUvarint(r)
		if err != nil {
			return nil, fmt.Errorf("identify: decode protocol %d length: %w", i, err)
		}
		name := make([]byte, l)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("identify: decode protocol %d name: %w", i, err)
		}
		protocols = append(protocols, string(name))
	}
	return protocols, nil
}
