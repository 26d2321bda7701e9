package index

import "math"

// Variant selects which BM25 scoring formula LexicalIndex applies.
type Variant string

const (
	// BM25Plus adds delta inside the IDF-weighted product.
	BM25Plus Variant = "bm25_plus"
	// BM25L normalizes term frequency by document length first and adds
	// delta outside the IDF factor.
	BM25L Variant = "bm25l"
)

// Params holds the tunable BM25 constants. Delta's default depends on the
// variant: 1.0 for BM25+, 0.5 for BM25L (see DefaultParams).
type Params struct {
	K1    float64
	B     float64
	Delta float64
}

// DefaultParams returns the canonical constants for the given variant.
// Unknown variants fall back to the BM25+ defaults; callers validate the
// variant separately before indexing.
func DefaultParams(variant Variant) Params {
	if variant == BM25L {
		return Params{K1: 1.2, B: 0.75, Delta: 0.5}
	}
	return Params{K1: 1.2, B: 0.75, Delta: 1.0}
}

// LexicalIndex maintains per-document term frequencies, document lengths,
// and a global IDF table for a BM25 variant. It is rebuilt wholesale on
// every mutation (§4.2): at the corpus sizes this core targets, a full
// rebuild is cheap and sidesteps the bookkeeping an incremental index would
// need to keep IDF/avgdl consistent.
type LexicalIndex struct {
	variant Variant
	params  Params

	docFreqs []map[string]int // term frequency per doc_index
	docLen   []int
	idf      map[string]float64
	avgdl    float64
	corpus   int
}

// NewLexicalIndex creates an empty index for the given variant with default
// parameters. Call Build once passages exist.
func NewLexicalIndex(variant Variant) *LexicalIndex {
	return &LexicalIndex{
		variant: variant,
		params:  DefaultParams(variant),
	}
}

// SetParams overrides the BM25 constants.
func (l *LexicalIndex) SetParams(p Params) {
	l.params = p
}

// Build recomputes doc_freqs, doc_len, idf, and avgdl from scratch for the
// given tokenized documents, indexed by DocIndex. It is the only mutation
// path; there is no incremental-update variant (§4.2).
func (l *LexicalIndex) Build(tokenizedDocs [][]string) {
	n := len(tokenizedDocs)
	l.corpus = n
	l.docFreqs = make([]map[string]int, n)
	l.docLen = make([]int, n)
	l.idf = make(map[string]float64)

	if n == 0 {
		l.avgdl = 0
		return
	}

	df := make(map[string]int)
	totalLen := 0
	for i, tokens := range tokenizedDocs {
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		l.docFreqs[i] = tf
		l.docLen[i] = len(tokens)
		totalLen += len(tokens)
		for term := range tf {
			df[term]++
		}
	}
	l.avgdl = float64(totalLen) / float64(n)

	for term, count := range df {
		l.idf[term] = math.Log((float64(n)-float64(count)+0.5)/(float64(count)+0.5))
	}
}

// Score returns a length-N vector of BM25 scores, one per DocIndex, summing
// each query token's per-document contribution in ascending doc_index order
// for deterministic floating-point summation (§5 Determinism). An empty
// corpus yields an empty vector; an empty query yields all zeros.
func (l *LexicalIndex) Score(queryTokens []string) []float64 {
	scores := make([]float64, l.corpus)
	if l.corpus == 0 || len(queryTokens) == 0 {
		return scores
	}

	for i := 0; i < l.corpus; i++ {
		docFreqs := l.docFreqs[i]
		docLen := float64(l.docLen[i])
		var sum float64
		for _, term := range queryTokens {
			tf, ok := docFreqs[term]
			if !ok {
				continue
			}
			sum += l.termScore(l.idf[term], float64(tf), docLen)
		}
		scores[i] = sum
	}
	return scores
}

// termScore computes a single query token's contribution to one document's
// score, dispatching on the configured variant. The two formulas place
// delta differently on purpose (see DESIGN.md's Open Question note): BM25+
// sums delta inside the IDF-weighted product, BM25L adds it outside.
func (l *LexicalIndex) termScore(idf, tf, docLen float64) float64 {
	p := l.params
	switch l.variant {
	case BM25L:
		ctd := tf / (1 - p.B + p.B*(docLen/l.avgdl))
		return idf*((p.K1+1)*ctd/(p.K1+ctd)) + p.Delta
	default: // BM25Plus
		num := tf * (p.K1 + 1)
		den := tf + p.K1*(1-p.B+p.B*(docLen/l.avgdl))
		return idf * (num/den + p.Delta)
	}
}

// Len returns the number of documents currently indexed.
func (l *LexicalIndex) Len() int { return l.corpus }

// AvgDocLength returns the current mean token length across passages.
func (l *LexicalIndex) AvgDocLength() float64 { return l.avgdl }
