package index

import (
	"fmt"
	"math"
	"sort"
)

// ErrLengthMismatch is returned by WeightedSum when its two score slices
// differ in length. It always wraps ErrInvalidInput (§7: weighted_sum
// "fails with InvalidInput" on a length mismatch).
var ErrLengthMismatch = fmt.Errorf("%w: score slices must have equal length", ErrInvalidInput)

// MinMaxNormalize rescales scores into [0, 1]. A slice of length <= 1 is
// returned unchanged; a slice whose values are all equal is returned as all
// 1.0 (there is no spread to normalize against, and leaving it at 0 would
// make every passage look irrelevant).
func MinMaxNormalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) <= 1 {
		copy(out, scores)
		return out
	}

	min, max := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}

	if max == min {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}

	for i, s := range scores {
		out[i] = (s - min) / (max - min)
	}
	return out
}

// ZScoreNormalize rescales scores to zero mean, unit variance. A zero
// standard deviation (including the empty slice) yields all zeros rather
// than dividing by zero.
func ZScoreNormalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	var mean float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))
	std := math.Sqrt(variance)

	if std == 0 {
		return out
	}
	for i, s := range scores {
		out[i] = (s - mean) / std
	}
	return out
}

// WeightedSum combines two equal-length score vectors elementwise as
// w1*s1 + w2*s2. When normalize is true each side is min-max normalized
// before the weighted sum (the two score distributions otherwise live on
// incomparable scales — BM25 is unbounded, cosine similarity is in
// [-1, 1]). Returns ErrLengthMismatch if the inputs disagree in length.
func WeightedSum(s1, s2 []float64, w1, w2 float64, normalize bool) ([]float64, error) {
	if len(s1) != len(s2) {
		return nil, fmt.Errorf("index: weighted sum: %w (%d != %d)", ErrLengthMismatch, len(s1), len(s2))
	}

	a, b := s1, s2
	if normalize {
		a = MinMaxNormalize(s1)
		b = MinMaxNormalize(s2)
	}

	out := make([]float64, len(a))
	for i := range a {
		out[i] = w1*a[i] + w2*b[i]
	}
	return out, nil
}

// DefaultRRFK is the constant from the original RRF paper, used when a
// caller passes k <= 0.
const DefaultRRFK = 60.0

// RRFResult is one row of an RRF-fused ranking.
type RRFResult struct {
	DocIndex int
	Score    float64
}

// RRF fuses two rankings — each a slice of doc_index ordered best-first —
// via Reciprocal Rank Fusion: score(d) = sum of 1/(k + rank) over every
// list containing d, 1-indexed rank. A doc_index present in only one list
// still gets a well-defined single-list contribution (the source material
// this is adapted from drops such docs when the two lists disagree on
// membership; this implementation includes the union of both, per spec).
// Results are sorted by score descending, ties broken by doc_index
// ascending for determinism.
func RRF(ranking1, ranking2 []int, k float64) []RRFResult {
	if k <= 0 {
		k = DefaultRRFK
	}

	rank1 := make(map[int]int, len(ranking1))
	for i, d := range ranking1 {
		rank1[d] = i + 1
	}
	rank2 := make(map[int]int, len(ranking2))
	for i, d := range ranking2 {
		rank2[d] = i + 1
	}

	seen := make(map[int]struct{}, len(rank1)+len(rank2))
	for d := range rank1 {
		seen[d] = struct{}{}
	}
	for d := range rank2 {
		seen[d] = struct{}{}
	}

	results := make([]RRFResult, 0, len(seen))
	for d := range seen {
		var score float64
		if r, ok := rank1[d]; ok {
			score += 1.0 / (k + float64(r))
		}
		if r, ok := rank2[d]; ok {
			score += 1.0 / (k + float64(r))
		}
		results = append(results, RRFResult{DocIndex: d, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocIndex < results[j].DocIndex
	})
	return results
}
