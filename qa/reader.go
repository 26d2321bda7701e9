// Package qa implements the extractive question-answering layer (C6): it
// re-reads the top retrieved passages through an external Reader and
// produces ranked answer spans with retrieval-weighted confidence.
package qa

import "context"

// ReaderResult is one answer a Reader proposes for a single (question,
// context) pair.
type ReaderResult struct {
	AnswerText string
	Confidence float64 // in [0,1]
	StartChar  int
	EndChar    int
}

// Reader is the external extractive-QA capability (§6): given a question
// and a context passage, it selects a contiguous answer span. Models are
// read-only and safely shared across goroutines once loaded (§5).
type Reader interface {
	Read(ctx context.Context, question, context_ string, maxLen int) (ReaderResult, error)
}
