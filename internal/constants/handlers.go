// Package constants provides shared constants used across the codebase.
package constants

// Handler default constants
const (
	// DefaultRandomFaceCount is the default number of random faces returned
	DefaultRandomFaceCount = 20

	// DefaultSimilarCount is the default number of similar faces returned
	DefaultSimilarCount = 20

	// DefaultSimilarPerBucket is the default sample size per distance bucket
	DefaultSimilarPerBucket = 5

	// DefaultComparePairs is the default number of closest cross-component pairs
	DefaultComparePairs = 5

	// DefaultPersonSearchLimit is the default number of person search results
	DefaultPersonSearchLimit = 10

	// MaxRequestCount caps count-like query parameters
	MaxRequestCount = 1000
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// ProgressEventInterval is the number of processed faces between progress events
	ProgressEventInterval = 500
)
