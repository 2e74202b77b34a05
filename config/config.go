// Package config collects the knobs needed to dial and upgrade a single
// peer connection, following the same defaults-struct convention as the
// teacher's toxcore.Options: a plain struct constructed via NewConfig and
// then mutated by the caller, rather than functional-option closures.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nyxwire/noisewire/identity"
	"github.com/nyxwire/noisewire/multistream"
	"github.com/nyxwire/noisewire/upgrader"
)

// Config holds everything Dial needs to reach a peer and complete the
// handshake.
type Config struct {
	// Address is the TCP host:port of the remote peer.
	Address string

	// Identity signs the binding between the local network identity and
	// the per-connection Noise static key. Required.
	Identity *identity.Identity

	// DialTimeout bounds multistream negotiation and the Noise handshake
	// combined.
	DialTimeout time.Duration

	// Logger, if set, receives lifecycle events; defaults to the
	// standard logrus logger otherwise.
	Logger *logrus.Logger
}

// NewConfig returns a Config populated with the defaults used by
// cmd/noisedial: a five-second dial timeout and the standard logger.
func NewConfig() *Config {
	return &Config{
		DialTimeout: 5 * time.Second,
		Logger:      logrus.StandardLogger(),
	}
}

// Dial connects to cfg.Address, negotiates multistream-select, performs the
// Noise_XX handshake, and returns a ready-to-use SecureChannel.
func Dial(ctx context.Context, cfg *Config) (*upgrader.SecureChannel, error) {
	if cfg.Identity == nil {
		return nil, fmt.Errorf("config: Dial requires a non-nil Identity")
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if cfg.DialTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	log := cfg.Logger.WithFields(logrus.Fields{"package": "config", "function": "Dial", "address": cfg.Address})

	conn, err := multistream.Dial(dialCtx, cfg.Address)
	if err != nil {
		log.WithError(err).Error("multistream negotiation failed")
		return nil, err
	}

	channel, err := upgrader.Upgrade(conn, cfg.Identity)
	if err != nil {
		log.WithError(err).Error("noise handshake failed")
		conn.Close()
		return nil, err
	}

	// multistream.Dial put the dial deadline on the socket; clear it so the
	// timeout does not also cut off I/O on the established channel.
	_ = conn.RawConn().SetDeadline(time.Time{})

	log.Info("secure channel established")
	return channel, nil
}
