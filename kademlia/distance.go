package kademlia

// Distance computes the XOR-metric distance between two node IDs, truncated
// to a uint64 built from only the first 8 bytes of the 32-byte XOR result.
// This mirrors the original's xor_distance/assume_u64 pair: the full XOR
// byte string is computed, then only its leading 8 bytes are folded into a
// uint64, silently ignoring the remaining 24. Two IDs that agree on their
// first 8 bytes but differ afterward are indistinguishable under this
// metric. That is an inherited limitation of the keyspace this package
// models, not a bug introduced here.
func Distance(a, b NodeID) uint64 {
	var xor [IDSize]byte
	for i := range xor {
		xor[i] = a[i] ^ b[i]
	}

	var d uint64
	for i := 0; i < 8; i++ {
		d = d<<8 | uint64(xor[i])
	}
	return d
}

// bucketIndex returns the position of the highest set bit in distance,
// determining which k-bucket a node at that distance belongs in. A zero
// distance (only possible for the local node itself) maps to bucket 0.
func bucketIndex(distance uint64) int {
	for i := 63; i >= 0; i-- {
		if distance&(1<<uint(i)) != 0 {
			return i
		}
	}
	return 0
}
