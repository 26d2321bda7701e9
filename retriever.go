package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corvid-labs/hybridqa/index"
	"github.com/corvid-labs/hybridqa/qa"
)

// HybridRetriever is the central coordinator (C5): it owns a corpus, the
// lexical index, and the dense index, and answers top-k queries with
// mode-conditioned fusion weights. A single instance is safe for
// concurrent Search/GetRetrieverInfo calls; AddDocuments/Clear/UpdateWeights take an
// exclusive lock, matching the read-write discipline of §5.
type HybridRetriever struct {
	mu sync.RWMutex

	corpus  *index.Corpus
	lexical *index.LexicalIndex
	dense   *index.DenseIndex

	bm25Variant     index.Variant
	fusionMethod    FusionMethod
	normalizeScores bool
	defaultWeights  FusionWeights
	rrfK            float64

	extractor *qa.Extractor
	logger    Logger
}

// RetrieverOption configures a HybridRetriever via the functional-options
// pattern.
type RetrieverOption func(*retrieverConfig)

type retrieverConfig struct {
	bm25Variant     index.Variant
	fusionMethod    FusionMethod
	normalizeScores bool
	defaultWeights  FusionWeights
	rrfK            float64
	encoder         index.Encoder
	reader          qa.Reader
	logger          Logger
	extractorOpts   []qa.ExtractorOption
}

func defaultRetrieverConfig() *retrieverConfig {
	return &retrieverConfig{
		bm25Variant:     index.BM25Plus,
		fusionMethod:    FusionWeightedSum,
		normalizeScores: true,
		defaultWeights:  FusionWeights{BM25: 0.7, Dense: 0.3},
		rrfK:            index.DefaultRRFK,
		logger:          index.GlobalLogger,
	}
}

// WithBM25Variant selects bm25_plus (default) or bm25l.
func WithBM25Variant(v index.Variant) RetrieverOption {
	return func(c *retrieverConfig) { c.bm25Variant = v }
}

// WithFusionMethod selects weighted_sum (default) or rrf.
func WithFusionMethod(m FusionMethod) RetrieverOption {
	return func(c *retrieverConfig) { c.fusionMethod = m }
}

// WithNormalizeScores toggles min-max normalization before weighted_sum
// fusion. Default true.
func WithNormalizeScores(normalize bool) RetrieverOption {
	return func(c *retrieverConfig) { c.normalizeScores = normalize }
}

// WithDefaultWeights sets the instance-default fusion weights used for any
// mode outside the {"normal", "pro"} table (§4.5).
func WithDefaultWeights(w FusionWeights) RetrieverOption {
	return func(c *retrieverConfig) { c.defaultWeights = w }
}

// WithRRFK overrides the RRF k constant (default 60).
func WithRRFK(k float64) RetrieverOption {
	return func(c *retrieverConfig) { c.rrfK = k }
}

// WithEncoder supplies the Encoder capability backing the dense index.
// Required.
func WithEncoder(e index.Encoder) RetrieverOption {
	return func(c *retrieverConfig) { c.encoder = e }
}

// WithReader supplies the Reader capability backing extract_spans/
// search_with_qa. Optional: a retriever without a reader still serves
// search, but SearchWithQA falls back to retrieval-only results.
func WithReader(r qa.Reader, opts ...qa.ExtractorOption) RetrieverOption {
	return func(c *retrieverConfig) {
		c.reader = r
		c.extractorOpts = opts
	}
}

// WithRetrieverLogger overrides the logger, defaulting to index.GlobalLogger.
func WithRetrieverLogger(l Logger) RetrieverOption {
	return func(c *retrieverConfig) { c.logger = l }
}

// NewHybridRetriever builds a HybridRetriever with empty indices. An
// Encoder must be supplied via WithEncoder.
func NewHybridRetriever(opts ...RetrieverOption) (*HybridRetriever, error) {
	cfg := defaultRetrieverConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.encoder == nil {
		return nil, fmt.Errorf("%w: WithEncoder is required", ErrInvalidInput)
	}
	if cfg.bm25Variant != index.BM25Plus && cfg.bm25Variant != index.BM25L {
		return nil, fmt.Errorf("%w: unknown bm25_variant %q", ErrInvalidInput, cfg.bm25Variant)
	}
	if cfg.fusionMethod != FusionWeightedSum && cfg.fusionMethod != FusionRRF {
		return nil, fmt.Errorf("%w: unknown fusion_method %q", ErrInvalidInput, cfg.fusionMethod)
	}

	lexical := index.NewLexicalIndex(cfg.bm25Variant)
	dense := index.NewDenseIndex(cfg.encoder)

	r := &HybridRetriever{
		corpus:          index.NewCorpus(lexical, dense),
		lexical:         lexical,
		dense:           dense,
		bm25Variant:     cfg.bm25Variant,
		fusionMethod:    cfg.fusionMethod,
		normalizeScores: cfg.normalizeScores,
		defaultWeights:  cfg.defaultWeights,
		rrfK:            cfg.rrfK,
		logger:          cfg.logger,
	}
	if cfg.reader != nil {
		opts := append([]qa.ExtractorOption{qa.WithLogger(cfg.logger)}, cfg.extractorOpts...)
		r.extractor = qa.NewExtractor(cfg.reader, opts...)
	}
	return r, nil
}

// AddDocuments appends texts (with parallel metadata, or nil to synthesize
// one per passage) to the corpus, rebuilding the lexical index and
// appending to the dense index. The mutation is atomic: an encoder
// failure leaves the retriever in its pre-call state (§7). Returns
// ErrInvalidInput if metadata is non-nil and its length does not match
// texts.
func (r *HybridRetriever) AddDocuments(ctx context.Context, texts []string, metadata []Metadata) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.corpus.Add(ctx, texts, metadata)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Search tokenizes query, scores it against both indices, fuses per
// fusionMethod with mode-conditioned weights, and returns the top_k
// results sorted by fused score descending (ties broken by DocIndex
// ascending). An empty corpus returns [] without error (§4.5).
func (r *HybridRetriever) Search(ctx context.Context, query string, topK int, documentIDs []string, mode string) ([]FusedResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.corpus.Len()
	if n == 0 {
		return nil, nil
	}

	weights := weightsForMode(mode, r.defaultWeights)

	qt := index.Tokenize(query)
	lexScores := r.lexical.Score(qt)

	denseResults, err := r.dense.Search(ctx, query, n)
	if err != nil {
		return nil, err
	}
	denseScores := index.Scatter(n, denseResults)

	var fused []FusedResult
	switch r.fusionMethod {
	case FusionRRF:
		fused, err = r.fuseRRF(lexScores, denseScores, weights)
	default:
		fused, err = r.fuseWeightedSum(lexScores, denseScores, weights)
	}
	if err != nil {
		return nil, err
	}

	if allowed := r.corpus.FilterByDocumentIDs(documentIDs); allowed != nil {
		fused = filterResults(fused, allowed)
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].DocIndex < fused[j].DocIndex
	})
	if topK > 0 && topK < len(fused) {
		fused = fused[:topK]
	}
	return fused, nil
}

func (r *HybridRetriever) fuseWeightedSum(lex, dense []float64, weights FusionWeights) ([]FusedResult, error) {
	combined, err := index.WeightedSum(lex, dense, weights.BM25, weights.Dense, r.normalizeScores)
	if err != nil {
		return nil, err
	}
	results := make([]FusedResult, len(combined))
	for i := range combined {
		results[i] = r.buildResult(i, lex[i], dense[i], combined[i], weights)
	}
	return results, nil
}

func (r *HybridRetriever) fuseRRF(lex, dense []float64, weights FusionWeights) ([]FusedResult, error) {
	lexRanking := rankByScoreDesc(lex)
	denseRanking := rankByScoreDesc(dense)
	rrf := index.RRF(lexRanking, denseRanking, r.rrfK)

	results := make([]FusedResult, len(rrf))
	for i, row := range rrf {
		results[i] = r.buildResult(row.DocIndex, lex[row.DocIndex], dense[row.DocIndex], row.Score, weights)
	}
	return results, nil
}

func (r *HybridRetriever) buildResult(docIndex int, bm25, dense, fusedScore float64, weights FusionWeights) FusedResult {
	passage, _ := r.corpus.Passage(docIndex)
	return FusedResult{
		DocIndex:      docIndex,
		Passage:       passage.Text,
		Metadata:      passage.Metadata,
		BM25Score:     bm25,
		DenseScore:    dense,
		FusedScore:    fusedScore,
		FusionWeights: weights,
	}
}

// rankByScoreDesc returns doc indices ordered by descending score, ties
// broken by doc_index ascending, for RRF's list-of-lists input.
func rankByScoreDesc(scores []float64) []int {
	ranking := make([]int, len(scores))
	for i := range ranking {
		ranking[i] = i
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		a, b := ranking[i], ranking[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})
	return ranking
}

func filterResults(results []FusedResult, allowed []int) []FusedResult {
	allow := make(map[int]struct{}, len(allowed))
	for _, i := range allowed {
		allow[i] = struct{}{}
	}
	out := make([]FusedResult, 0, len(results))
	for _, r := range results {
		if _, ok := allow[r.DocIndex]; ok {
			out = append(out, r)
		}
	}
	return out
}

// SearchWithQAResult composes retrieval and extractive QA in one call
// (§6 search_with_qa, §5 supplemented feature).
type SearchWithQAResult struct {
	RetrievalResults []FusedResult
	QAResults        []qa.AnswerSpan
	EnhancedContext  qa.SynthesizedContext
}

// SearchWithQA runs Search, then re-reads the top passages with the
// configured Extractor and synthesizes a context summary. If no reader
// was configured, QAResults is empty and EnhancedContext reflects the
// no-answer-found fallback, matching the documented degraded behavior.
func (r *HybridRetriever) SearchWithQA(ctx context.Context, query string, topK int, documentIDs []string, mode string) (SearchWithQAResult, error) {
	results, err := r.Search(ctx, query, topK, documentIDs, mode)
	if err != nil {
		return SearchWithQAResult{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	extractor := r.extractor

	if extractor == nil || len(results) == 0 {
		return SearchWithQAResult{
			RetrievalResults: results,
			EnhancedContext:  qa.SynthesizedContext{Question: query, ContextSummary: "No relevant answer spans found."},
		}, nil
	}

	passages := make([]string, len(results))
	scores := make([]float64, len(results))
	for i, res := range results {
		passages[i] = res.Passage
		scores[i] = res.FusedScore
	}

	spans := extractor.ExtractSpans(ctx, query, passages, scores)
	enhanced := extractor.SynthesizeContext(query, spans)

	return SearchWithQAResult{
		RetrievalResults: results,
		QAResults:        spans,
		EnhancedContext:  enhanced,
	}, nil
}

// RemoveDocument deletes every passage with the given document_id and
// rebuilds both indices from the remainder (§5 supplemented feature,
// adapted from vector_store.py's document_id-filtered deletion path).
// Returns the number of passages removed.
func (r *HybridRetriever) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.corpus.RemoveDocument(ctx, documentID)
}

// Clear empties the corpus and both indices.
func (r *HybridRetriever) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.corpus.Clear()
}

// UpdateWeights sets the instance-default fusion weights used for modes
// outside the {"normal", "pro"} table.
func (r *HybridRetriever) UpdateWeights(bm25, dense float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultWeights = FusionWeights{BM25: bm25, Dense: dense}
}

// SetConfidenceThreshold forwards to the configured Extractor, if any.
func (r *HybridRetriever) SetConfidenceThreshold(t float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extractor != nil {
		r.extractor.SetConfidenceThreshold(t)
	}
}

// Stats summarizes the retriever's current state (§6 get_retriever_info,
// §5 supplemented feature, adapted from AdvancedHybridRetriever.get_retriever_stats).
type Stats struct {
	RetrieverType   string
	CorpusSize      int
	AvgDocLength    float64
	BM25Variant     index.Variant
	FusionMethod    FusionMethod
	DefaultWeights  FusionWeights
	HasQA           bool
	NeuralQAInfo    *qa.ModelInfo
}

// GetRetrieverInfo returns the current retriever configuration and corpus
// statistics.
func (r *HybridRetriever) GetRetrieverInfo() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		RetrieverType:  "hybrid_bm25_dense",
		CorpusSize:     r.corpus.Len(),
		AvgDocLength:   r.lexical.AvgDocLength(),
		BM25Variant:    r.bm25Variant,
		FusionMethod:   r.fusionMethod,
		DefaultWeights: r.defaultWeights,
		HasQA:          r.extractor != nil,
	}
	if r.extractor != nil {
		info := r.extractor.GetModelInfo()
		stats.NeuralQAInfo = &info
	}
	return stats
}
