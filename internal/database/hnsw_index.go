package database

import (
	"fmt"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/securebase/internal/facematch"
)

// DescriptorIndex wraps an HNSW graph for approximate nearest-descriptor
// search under Euclidean distance.
//
// Graph nodes are never removed: hnsw.Graph.Delete leaves the graph unusable
// for later searches. Replaced and deleted descriptors stay in the graph as
// dead nodes and are filtered out through the live map. The graph is rebuilt
// from the live set once dead nodes exceed HNSWMaxDeadNodes or the number of
// live nodes.
type DescriptorIndex struct {
	graph   *hnsw.Graph[uint64]
	live    map[string]indexEntry // user ID -> current node
	owners  map[uint64]string     // live node key -> user ID
	nextKey uint64
	dead    int
	mu      sync.RWMutex
}

type indexEntry struct {
	key        uint64
	descriptor facematch.Descriptor
}

// NewDescriptorIndex creates a new empty index.
func NewDescriptorIndex() *DescriptorIndex {
	x := &DescriptorIndex{}
	x.resetLocked()
	return x
}

func newDescriptorGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.EuclideanDistance
	return g
}

func (x *DescriptorIndex) resetLocked() {
	x.graph = newDescriptorGraph()
	x.live = make(map[string]indexEntry)
	x.owners = make(map[uint64]string)
	x.dead = 0
}

// Build replaces the index contents with faces. Invalid descriptors are skipped.
func (x *DescriptorIndex) Build(faces []StoredFace) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.resetLocked()
	for _, f := range faces {
		if !f.Descriptor.Valid() {
			continue
		}
		x.retireLocked(f.UserID)
		x.insertLocked(f.UserID, f.Descriptor)
	}
	x.compactIfNeededLocked()
}

// Add inserts or replaces the descriptor for a user.
func (x *DescriptorIndex) Add(face StoredFace) {
	if !face.Descriptor.Valid() {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	x.retireLocked(face.UserID)
	x.insertLocked(face.UserID, face.Descriptor)
	x.compactIfNeededLocked()
}

// Delete removes a user's descriptor if present.
func (x *DescriptorIndex) Delete(userID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.retireLocked(userID)
	x.compactIfNeededLocked()
}

func (x *DescriptorIndex) insertLocked(userID string, d facematch.Descriptor) {
	key := x.nextKey
	x.nextKey++
	vec := make([]float32, len(d))
	copy(vec, d)
	x.graph.Add(hnsw.MakeNode(key, vec))
	x.live[userID] = indexEntry{key: key, descriptor: facematch.Descriptor(vec)}
	x.owners[key] = userID
}

// retireLocked turns the user's current node, if any, into a dead node.
func (x *DescriptorIndex) retireLocked(userID string) {
	e, ok := x.live[userID]
	if !ok {
		return
	}
	delete(x.live, userID)
	delete(x.owners, e.key)
	x.dead++
}

func (x *DescriptorIndex) compactIfNeededLocked() {
	if x.dead == 0 {
		return
	}
	if len(x.live) > 0 && x.dead <= HNSWMaxDeadNodes && x.dead <= len(x.live) {
		return
	}

	live := x.live
	x.resetLocked()
	for userID, e := range live {
		x.insertLocked(userID, e.descriptor)
	}
}

// Search returns up to k nearest live candidates for query. Distances are not
// returned: callers re-rank candidates exactly with facematch.FindBestMatch.
// An error means the graph could not be searched and the caller should fall
// back to an exhaustive comparison.
func (x *DescriptorIndex) Search(query facematch.Descriptor, k int) (out []facematch.Candidate, err error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.live) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != facematch.DescriptorDim {
		return nil, facematch.ErrDimensionMismatch
	}

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("hnsw search: %v", r)
		}
	}()

	// Dead nodes may take result slots, so ask for enough to cover them.
	nodes := x.graph.Search([]float32(query), k+x.dead)
	out = make([]facematch.Candidate, 0, k)
	for _, n := range nodes {
		userID, ok := x.owners[n.Key]
		if !ok {
			continue
		}
		out = append(out, facematch.Candidate{UserID: userID, Descriptor: x.live[userID].descriptor})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// Count returns the number of live descriptors.
func (x *DescriptorIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.live)
}
