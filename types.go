package retrieval

import (
	"strings"

	"github.com/corvid-labs/hybridqa/index"
)

// Metadata is an opaque mapping from string keys to scalar values, carried
// at least filename/chunk_id/document_id/upload_timestamp (§3).
type Metadata = index.Metadata

// FusionMethod selects how HybridRetriever combines lexical and dense
// scores.
type FusionMethod string

const (
	FusionWeightedSum FusionMethod = "weighted_sum"
	FusionRRF         FusionMethod = "rrf"
)

// FusionWeights is a (w_bm25, w_dense) pair. Weights are relative and need
// not sum to 1 (invariant 5).
type FusionWeights struct {
	BM25  float64
	Dense float64
}

// FusedResult is one ranked passage returned by Search (§3 Data model).
type FusedResult struct {
	DocIndex      int
	Passage       string
	Metadata      Metadata
	BM25Score     float64
	DenseScore    float64
	FusedScore    float64
	FusionWeights FusionWeights
}

// mode-conditioned fusion weights (§4.5).
var (
	modeNormal = FusionWeights{BM25: 0.7, Dense: 0.3}
	modePro    = FusionWeights{BM25: 0.3, Dense: 0.7}
)

// weightsForMode resolves a case-insensitive mode tag against the table in
// §4.5, falling back to instance defaults for any other value.
func weightsForMode(mode string, instanceDefault FusionWeights) FusionWeights {
	switch strings.ToLower(mode) {
	case "normal":
		return modeNormal
	case "pro":
		return modePro
	default:
		return instanceDefault
	}
}
