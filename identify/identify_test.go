package identify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackChannel is an in-memory Channel test double wiring two peers'
// Write calls to each other's Read calls via buffered channels.
type loopbackChannel struct {
	out chan []byte
	in  chan []byte
}

func newLoopbackPair() (a, b *loopbackChannel) {
	ab := make(chan []byte, 1)
	ba := make(chan []byte, 1)
	a = &loopbackChannel{out: ab, in: ba}
	b = &loopbackChannel{out: ba, in: ab}
	return a, b
}

func (c *loopbackChannel) Write(b []byte) error {
	c.out <- append([]byte(nil), b...)
	return nil
}

func (c *loopbackChannel) Read() ([]byte, error) {
	return <-c.in, nil
}

func TestExchangeRoundTrip(t *testing.T) {
	a, b := newLoopbackPair()

	var infoA, infoB *Info
	var errA, errB error
	done := make(chan struct{})

	go func() {
		defer close(done)
		infoB, errB = Exchange(b, []string{"/identify/1.0.0", "/ping/1.0.0"})
	}()

	infoA, errA = Exchange(a, []string{"/noise/1.0.0"})
	<-done

	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, []string{"/identify/1.0.0", "/ping/1.0.0"}, infoA.Protocols)
	assert.Equal(t, []string{"/noise/1.0.0"}, infoB.Protocols)
}

func TestExchangeEmptyProtocolList(t *testing.T) {
	a, b := newLoopbackPair()

	done := make(chan struct{})
	var infoB *Info
	go func() {
		defer close(done)
		infoB, _ = Exchange(b, nil)
	}()

	infoA, err := Exchange(a, []string{})
	<-done

	require.NoError(t, err)
	assert.Empty(t, infoA.Protocols)
	assert.Empty(t, infoB.Protocols)
}

func TestDecodeProtocolListRejectsTruncatedName(t *testing.T) {
	// count=1, length=10, but no name bytes follow.
	raw := append(append([]byte{}, 1), 10)
	_, err := decodeProtocolList(raw)
	assert.Error(t, err)
}
