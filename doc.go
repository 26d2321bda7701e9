// Package retrieval implements a document retrieval core for a
// question-answering application: given a query and a corpus of ingested
// text passages, it returns the top-k passages most likely to contain the
// answer, together with optional extracted answer spans.
//
// The core combines a BM25 lexical scorer (index.LexicalIndex), a dense
// bi-encoder scorer (index.DenseIndex), a score-fusion stage
// (index.MinMaxNormalize, index.WeightedSum, index.RRF), and an extractive
// question-answering stage (qa.Extractor) that re-reads the top passages
// and emits candidate answer spans. HybridRetriever coordinates all four
// against a single logical corpus (index.Corpus).
//
// Encoding and reading are delegated to external collaborators (the
// index.Encoder and qa.Reader interfaces, with encode.DPREncoder as one
// concrete implementation); this package never loads or runs a model
// itself.
package retrieval
