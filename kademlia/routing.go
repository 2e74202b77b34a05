package kademlia

import (
	"sort"
	"sync"
)

// numBuckets matches the 64 possible bit positions of the truncated uint64
// distance metric this package uses, not the full 256-bit keyspace of the
// underlying IDs.
const numBuckets = 64

// KBucket stores up to maxSize nodes falling into one distance range from
// the local node. Node replacement follows the same newest-replaces-oldest
// rule once the bucket is full, without any separate liveness tracking.
type KBucket struct {
	nodes   []*Node
	maxSize int
	mu      sync.RWMutex
}

// NewKBucket creates an empty bucket with room for maxSize nodes.
func NewKBucket(maxSize int) *KBucket {
	return &KBucket{nodes: make([]*Node, 0, maxSize), maxSize: maxSize}
}

// Add inserts or refreshes node in the bucket. If the node's ID is already
// present it is moved to the end (most recently seen); otherwise it is
// appended if there is room, or evicts the oldest entry if the bucket is
// full. Returns true if the node ends up stored.
func (kb *KBucket) Add(node *Node) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	for i, existing := range kb.nodes {
		if existing.ID == node.ID {
			kb.nodes = append(kb.nodes[:i], kb.nodes[i+1:]...)
			kb.nodes = append(kb.nodes, node)
			return true
		}
	}

	if len(kb.nodes) < kb.maxSize {
		kb.nodes = append(kb.nodes, node)
		return true
	}

	kb.nodes = append(kb.nodes[1:], node)
	return true
}

// Nodes returns a copy of the bucket's current contents.
func (kb *KBucket) Nodes() []*Node {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	out := make([]*Node, len(kb.nodes))
	copy(out, kb.nodes)
	return out
}

// RoutingTable is a Kademlia-style routing table keyed by the truncated
// XOR distance metric in distance.go.
type RoutingTable struct {
	self    NodeID
	buckets [numBuckets]*KBucket
	mu      sync.RWMutex
}

// NewRoutingTable creates a routing table for self, with each bucket able
// to hold up to maxBucketSize nodes.
func NewRoutingTable(self NodeID, maxBucketSize int) *RoutingTable {
	rt := &RoutingTable{self: self}
	for i := range rt.buckets {
		rt.buckets[i] = NewKBucket(maxBucketSize)
	}
	return rt
}

// AddNode places node into the bucket matching its distance from self.
// Adding the local node itself is rejected.
func (rt *RoutingTable) AddNode(node *Node) bool {
	if node.ID == rt.self {
		return false
	}

	idx := bucketIndex(Distance(rt.self, node.ID))

	rt.mu.RLock()
	bucket := rt.buckets[idx]
	rt.mu.RUnlock()

	return bucket.Add(node)
}

// FindClosestNodes returns up to count nodes ordered by increasing distance
// to target, scanning every bucket.
func (rt *RoutingTable) FindClosestNodes(target NodeID, count int) []*Node {
	rt.mu.RLock()
	buckets := rt.buckets
	rt.mu.RUnlock()

	var all []*Node
	for _, b := range buckets {
		all = append(all, b.Nodes()...)
	}

	sort.Slice(all, func(i, j int) bool {
		return Distance(all[i].ID, target) < Distance(all[j].ID, target)
	})

	if len(all) > count {
		all = all[:count]
	}
	return all
}

// BucketNodes returns the contents of a specific bucket, for inspection and
// testing.
func (rt *RoutingTable) BucketNodes(index int) []*Node {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if index < 0 || index >= numBuckets {
		return nil
	}
	return rt.buckets[index].Nodes()
}
