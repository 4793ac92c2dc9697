package database

// HNSW index parameters for 128-dim face descriptors
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 64

	// HNSWSearchCandidates is how many neighbours are pulled from the graph
	// before exact re-ranking picks the best one.
	HNSWSearchCandidates = 8

	// HNSWMaxDeadNodes bounds how many replaced or deleted nodes the graph
	// keeps before it is rebuilt from the live descriptors.
	HNSWMaxDeadNodes = 256
)

// DefaultListLimit caps List queries when no limit is given.
const DefaultListLimit = 100
