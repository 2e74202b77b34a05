// Command noisedial dials a peer, negotiates multistream-select and the
// Noise_XX handshake, and pipes stdin/stdout over the resulting
// SecureChannel.
//
// Usage:
//
//	noisedial -peer host:port -identity path/to/key.pem
//	noisedial -gen-identity -identity path/to/key.pem
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nyxwire/noisewire/config"
	"github.com/nyxwire/noisewire/identity"
)

func main() {
	peer := flag.String("peer", "", "address of the peer to dial, host:port")
	identityPath := flag.String("identity", "", "path to a PEM-encoded Ed25519 identity key")
	genIdentity := flag.Bool("gen-identity", false, "generate a new identity at -identity and exit")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *identityPath == "" {
		log.Fatal("noisedial: -identity is required")
	}

	if *genIdentity {
		if err := generateAndSaveIdentity(*identityPath); err != nil {
			log.Fatalf("noisedial: generate identity: %v", err)
		}
		fmt.Printf("wrote new identity to %s\n", *identityPath)
		return
	}

	if *peer == "" {
		log.Fatal("noisedial: -peer is required unless -gen-identity is set")
	}

	id, err := identity.Load(*identityPath)
	if err != nil {
		log.Fatalf("noisedial: load identity: %v", err)
	}

	cfg := config.NewConfig()
	cfg.Address = *peer
	cfg.Identity = id

	channel, err := config.Dial(context.Background(), cfg)
	if err != nil {
		log.Fatalf("noisedial: dial %s: %v", *peer, err)
	}
	defer channel.Close()

	fmt.Fprintf(os.Stderr, "connected to %s, remote identity %x\n", *peer, channel.RemoteIdentity())

	errCh := make(chan error, 2)
	go pipeStdinToChannel(channel, errCh)
	go pipeChannelToStdout(channel, errCh)

	if err := <-errCh; err != nil && err != io.EOF {
		log.Fatalf("noisedial: %v", err)
	}
}

func generateAndSaveIdentity(path string) error {
	id, err := identity.Generate()
	if err != nil {
		return err
	}
	return id.Save(path)
}

type channelWriter interface {
	Write([]byte) error
}

type channelReader interface {
	Read() ([]byte, error)
}

func pipeStdinToChannel(w channelWriter, errCh chan<- error) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := w.Write(scanner.Bytes()); err != nil {
			errCh <- err
			return
		}
	}
	errCh <- scanner.Err()
}

func pipeChannelToStdout(r channelReader, errCh chan<- error) {
	for {
		msg, err := r.Read()
		if err != nil {
			errCh <- err
			return
		}
		os.Stdout.Write(msg)
		os.Stdout.Write([]byte("\n"))
	}
}
