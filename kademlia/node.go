// Package kademlia implements an auxiliary DHT routing table, carried over
// from the original implementation's kad package sketch. It is not used by
// the Noise handshake or transport core: nothing in package noise, upgrader,
// or multistream imports it.
//
// The distance metric here deliberately reproduces a simplification present
// in the original source: XOR distance between two node IDs is truncated to
// its first 8 bytes before becoming a uint64 bucket key, discarding the
// remaining bytes of a longer ID. For the 32-byte IDs used here, two nodes
// that differ only past byte 8 collide on distance. This is preserved
// on purpose, not silently corrected.
package kademlia

import (
	"crypto/sha256"
	"time"
)

// IDSize is the length in bytes of a Node identifier.
const IDSize = 32

// NodeID identifies a peer in the routing table's keyspace.
type NodeID [IDSize]byte

// NodeIDFromPublicKey derives a NodeID by hashing a peer's public key bytes,
// mirroring the original's peer_id-derived Ipfs_id without its non-terminating
// proof-of-work search (see distance.go for the preserved unsoundness this
// package does carry over).
func NodeIDFromPublicKey(pub []byte) NodeID {
	return sha256.Sum256(pub)
}

// Node is a routing table entry: an identifier plus enough metadata to
// attempt a connection and judge liveness.
type Node struct {
	ID       NodeID
	Address  string
	LastSeen time.Time
}

// NewNode constructs a Node observed just now.
func NewNode(id NodeID, address string) *Node {
	return &Node{ID: id, Address: address, LastSeen: time.Now()}
}
