// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Embedding constants
const (
	// FaceEmbeddingDim is the fixed dimension for face embeddings (512 for buffalo_l/ResNet100)
	FaceEmbeddingDim = 512
)

// Similarity graph constants
const (
	// DefaultGraphDistanceThreshold is the maximum cosine distance for an edge in the similarity graph
	DefaultGraphDistanceThreshold = 0.4

	// ComponentDistanceThreshold is the maximum face distance that links two components as neighbors
	ComponentDistanceThreshold = 0.3

	// WorkerPoolSize is the default number of parallel workers for the dense neighbor scan
	WorkerPoolSize = 8
)

// Incremental clustering constants
const (
	// DefaultClusterK is the number of nearest faces (self included) inspected per face
	DefaultClusterK = 10

	// DefaultClusterSizeThreshold is the size at which a cluster stops being auto-mergeable
	// with another cluster of the same or larger size
	DefaultClusterSizeThreshold = 10
)

// Similarity search bucketing constants
const (
	// SimilarBucketWidth is the width of one distance bucket
	SimilarBucketWidth = 0.1

	// SimilarBucketCount is the number of buckets covering (0.1, 1.0]
	SimilarBucketCount = 9

	// SimilarMinDistance drops near duplicates and the query itself
	SimilarMinDistance = 0.1

	// SimilarMaxDistance drops faces too far to be useful for verification
	SimilarMaxDistance = 0.6
)

// Person search constants
const (
	// PrefixMatchScore is assigned to names starting with the query
	PrefixMatchScore = 100

	// InitialsMatchScore is assigned to names whose initials start with the query initials
	InitialsMatchScore = 90

	// FuzzyMatchMinScore is the exclusive lower bound for fuzzy matches
	FuzzyMatchMinScore = 60

	// MinInitialsQueryLength is the shortest query that triggers initials matching
	MinInitialsQueryLength = 2
)
