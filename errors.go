package retrieval

import "github.com/corvid-labs/hybridqa/index"

// Sentinel errors re-exported from index so callers never need to import
// index directly just to compare errors with errors.Is (§7 error kinds).
var (
	// ErrInvalidInput covers length mismatches, unknown bm25_variant or
	// fusion_method values, and other malformed requests.
	ErrInvalidInput = index.ErrInvalidInput
	// ErrModelUnavailable signals the encoder or reader failed to load.
	ErrModelUnavailable = index.ErrModelUnavailable
	// ErrTransientEncoder signals a single passage or query failed to
	// encode; fatal on the ingestion path, logged-and-skipped during QA.
	ErrTransientEncoder = index.ErrTransientEncoder
	// ErrIndexCorrupt signals invariant 1 (passages/dense rows/metadata
	// all equal in length) was violated, typically on load from persistence.
	ErrIndexCorrupt = index.ErrIndexCorrupt
)
