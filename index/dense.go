package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Encoder is the external bi-encoder capability DenseIndex delegates to. It
// is expected to be read-only and safely shared across goroutines once
// loaded (§5 Shared resources).
type Encoder interface {
	// EncodeQuery embeds a single query string into a D-dimensional vector.
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	// EncodePassages embeds a batch of passage strings into an N×D matrix,
	// one row per input in order. Callers are responsible for splitting
	// large inputs into the batch-of-8 policy (§4.3); EncodePassages itself
	// embeds whatever it is given.
	EncodePassages(ctx context.Context, texts []string) ([][]float32, error)
}

// passageBatchSize is the encoding batch size for append (§4.3: "Batching
// policy for passage encoding: 8 at a time").
const passageBatchSize = 8

// DenseResult is one row of a DenseIndex.Search result.
type DenseResult struct {
	DocIndex int
	Score    float64
}

// DenseIndex holds the N×D passage-embedding matrix and answers exhaustive
// cosine-similarity queries against it. It never performs approximate
// nearest-neighbor search (§1 Non-goals).
type DenseIndex struct {
	encoder Encoder
	dim     int
	matrix  *mat.Dense // rows = passages, row i = DocIndex i
	norms   []float64  // cached L2 norm per row, parallel to matrix rows
}

// NewDenseIndex creates an empty index backed by the given encoder. The
// embedding dimension is fixed by the first Append call.
func NewDenseIndex(encoder Encoder) *DenseIndex {
	return &DenseIndex{encoder: encoder}
}

// Len returns the number of embedded rows.
func (d *DenseIndex) Len() int {
	if d.matrix == nil {
		return 0
	}
	r, _ := d.matrix.Dims()
	return r
}

// Dim returns the embedding dimension, or 0 if nothing has been embedded yet.
func (d *DenseIndex) Dim() int { return d.dim }

// Append encodes passages in batches of passageBatchSize and stacks the
// resulting rows onto the matrix, reallocating as needed. It returns the
// encoded rows without mutating the index if encoding fails partway (§7:
// stage the encoded matrix first, then commit), so callers can roll back
// the rest of a mutation (corpus, lexical index) atomically with this one.
func (d *DenseIndex) Append(ctx context.Context, passages []string) ([][]float32, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	rows := make([][]float32, 0, len(passages))
	for start := 0; start < len(passages); start += passageBatchSize {
		end := start + passageBatchSize
		if end > len(passages) {
			end = len(passages)
		}
		batch, err := d.encoder.EncodePassages(ctx, passages[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: encode passages [%d:%d]: %v", ErrTransientEncoder, start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: encoder returned %d rows for %d passages", ErrIndexCorrupt, len(batch), end-start)
		}
		rows = append(rows, batch...)
	}

	if err := d.commit(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// commit vertically stacks pre-encoded rows onto the matrix.
func (d *DenseIndex) commit(rows [][]float32) error {
	if len(rows) == 0 {
		return nil
	}

	dim := len(rows[0])
	if d.dim == 0 {
		d.dim = dim
	}
	for _, r := range rows {
		if len(r) != d.dim {
			return fmt.Errorf("%w: embedding dimension mismatch: got %d, want %d", ErrIndexCorrupt, len(r), d.dim)
		}
	}

	existing := d.Len()
	total := existing + len(rows)
	next := mat.NewDense(total, d.dim, nil)
	if d.matrix != nil {
		next.Slice(0, existing, 0, d.dim).(*mat.Dense).Copy(d.matrix)
	}
	for i, r := range rows {
		next.SetRow(existing+i, toFloat64(r))
	}
	d.matrix = next

	d.norms = append(d.norms[:existing], make([]float64, len(rows))...)
	for i := 0; i < len(rows); i++ {
		d.norms[existing+i] = rowNorm(next, existing+i)
	}
	return nil
}

// Reset discards all rows, restoring the index to its empty state.
func (d *DenseIndex) Reset() {
	d.matrix = nil
	d.norms = nil
}

// Search encodes query and returns the top_k rows ranked by cosine
// similarity, both sides L2-normalized. An empty index returns an empty
// result without error (§4.3 failure semantics).
func (d *DenseIndex) Search(ctx context.Context, query string, topK int) ([]DenseResult, error) {
	n := d.Len()
	if n == 0 {
		return nil, nil
	}

	qvec, err := d.encoder.EncodeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrTransientEncoder, err)
	}
	if len(qvec) != d.dim {
		return nil, fmt.Errorf("%w: query embedding dimension %d, want %d", ErrIndexCorrupt, len(qvec), d.dim)
	}

	q := toFloat64(qvec)
	qNorm := math.Sqrt(dot(q, q))

	results := make([]DenseResult, n)
	for i := 0; i < n; i++ {
		row := mat.Row(nil, i, d.matrix)
		var score float64
		if qNorm > 0 && d.norms[i] > 0 {
			score = dot(q, row) / (qNorm * d.norms[i])
		}
		results[i] = DenseResult{DocIndex: i, Score: score}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocIndex < results[j].DocIndex
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Scatter maps a ranked Search result onto a length-n dense_scores vector,
// indexed by DocIndex, zero-filled for unreferenced rows (§4.5 step 3).
func Scatter(n int, results []DenseResult) []float64 {
	out := make([]float64, n)
	for _, r := range results {
		if r.DocIndex >= 0 && r.DocIndex < n {
			out[r.DocIndex] = r.Score
		}
	}
	return out
}

func rowNorm(m *mat.Dense, row int) float64 {
	r := mat.Row(nil, row, m)
	return math.Sqrt(dot(r, r))
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
