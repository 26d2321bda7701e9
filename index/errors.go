package index

import "errors"

// Sentinel errors shared by LexicalIndex, DenseIndex, and Corpus. The root
// retrieval package re-exports these under its own names so callers never
// need to import index directly just to compare errors.
var (
	// ErrInvalidInput covers length mismatches and unknown enum values.
	ErrInvalidInput = errors.New("index: invalid input")
	// ErrModelUnavailable signals the encoder or reader failed to load.
	ErrModelUnavailable = errors.New("index: model unavailable")
	// ErrTransientEncoder signals a single passage or query failed to encode.
	ErrTransientEncoder = errors.New("index: transient encoder failure")
	// ErrIndexCorrupt signals invariant 1 (passages/dense rows/metadata all
	// equal in length) was violated, typically on load from persistence.
	ErrIndexCorrupt = errors.New("index: corrupt index")
)
