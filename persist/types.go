// Package persist implements the optional serialization path described in
// §3 Lifecycle and §6 Persistent state: a retriever may be snapshotted as
// its passages, metadata, and dense matrix; on load, the lexical index is
// rebuilt from the passages rather than restored (it is cheap to recompute
// and persisting it would risk drifting out of sync with the passages).
package persist

import "github.com/corvid-labs/hybridqa/index"

// Snapshot is the serializable state of a retriever: enough to reconstruct
// a Corpus and DenseIndex without re-running the encoder. DenseRows[i]
// corresponds to Passages[i]; LexicalStats are intentionally absent, as
// §3 specifies they are rebuilt on load.
type Snapshot struct {
	Passages  []index.Passage
	DenseRows [][]float32
}

// Store is implemented by every persistence backend: a local Gob file, an
// embedded chromem-go collection, or a write-behind Milvus collection.
// None of these sit on the live query path (§4 Domain stack); DenseIndex
// search stays exhaustive and in-process regardless of which Store, if
// any, a host application configures.
type Store interface {
	Save(snapshot Snapshot) error
	Load() (Snapshot, error)
}
