package qa

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenOffset maps one reader token to its character range [Start, End) in
// the original passage, so a token index pair can be decoded back to text.
type TokenOffset struct {
	Start, End int
}

// SpanCandidate is one (start, end) pair reported by a LogitsReader.
type SpanCandidate struct {
	StartToken int
	EndToken   int
}

// LogitsReader is the optional extension of Reader that exposes raw
// per-token start/end logits (§4.6 extract_multiple_spans_per_passage).
// Readers that only support single-span extraction need not implement it;
// ExtractMultipleSpansPerPassage reports ErrModelUnavailable when it is
// missing.
type LogitsReader interface {
	Reader
	// Logits returns the question-length offset (tokens belonging to the
	// question, which are not valid answer starts), per-token start/end
	// logits over the full (question, passage) encoding, and the char
	// offsets of each passage token.
	Logits(ctx context.Context, question, passage string) (questionTokens int, startLogits, endLogits []float64, offsets []TokenOffset, err error)
}

// ErrModelUnavailable is returned when the configured reader does not
// implement LogitsReader.
var ErrModelUnavailable = fmt.Errorf("qa: reader does not support multi-span extraction")

// topK is the number of candidate start/end positions considered on each
// side (§4.6: "top-20 start and top-20 end positions").
const topK = 20

// tiktokenEncoding is used only by truncateToTokenBudget, which cuts the
// passage to maxAnswerLength tokens before it is handed to the reader; span
// widths are measured in the reader's own tokens, as reported by Logits.
const tiktokenEncoding = "cl100k_base"

// ExtractMultipleSpansPerPassage enumerates the reader's top-20 start and
// top-20 end token positions, keeps valid (start < end, within
// maxAnswerLength tokens, start past the question tokens) pairs, scores
// each as softmax(start)*softmax(end), deduplicates by lowercased answer
// text, and returns up to maxSpans spans sorted by confidence descending.
func (e *Extractor) ExtractMultipleSpansPerPassage(ctx context.Context, question, passage string, maxSpans int) ([]AnswerSpan, error) {
	logitsReader, ok := e.reader.(LogitsReader)
	if !ok {
		return nil, ErrModelUnavailable
	}

	passage, err := truncateToTokenBudget(passage, e.maxAnswerLength)
	if err != nil {
		return nil, err
	}

	questionTokens, startLogits, endLogits, offsets, err := logitsReader.Logits(ctx, question, passage)
	if err != nil {
		return nil, fmt.Errorf("qa: logits: %w", err)
	}

	startProbs := softmax(startLogits)
	endProbs := softmax(endLogits)

	startCandidates := topIndices(startProbs, topK)
	endCandidates := topIndices(endProbs, topK)

	type scored struct {
		span       SpanCandidate
		confidence float64
	}
	var candidates []scored

	for _, s := range startCandidates {
		if s < questionTokens {
			continue
		}
		for _, en := range endCandidates {
			if s >= en {
				continue
			}
			if e.maxAnswerLength > 0 && en-s > e.maxAnswerLength {
				continue
			}
			candidates = append(candidates, scored{
				span:       SpanCandidate{StartToken: s, EndToken: en},
				confidence: startProbs[s] * endProbs[en],
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].confidence > candidates[j].confidence
	})

	spans := make([]AnswerSpan, 0, maxSpans)
	seen := make(map[string]struct{})
	for _, c := range candidates {
		if c.confidence < e.confidenceThreshold {
			continue
		}
		if c.span.StartToken >= len(offsets) || c.span.EndToken >= len(offsets) {
			continue
		}
		start := offsets[c.span.StartToken].Start
		end := offsets[c.span.EndToken].End
		if start >= end || end > len(passage) {
			continue
		}

		text := strings.TrimSpace(passage[start:end])
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		spans = append(spans, AnswerSpan{
			AnswerText:    text,
			Confidence:    c.confidence,
			CombinedScore: c.confidence,
			StartPos:      start,
			EndPos:        end,
			ContextWindow: contextWindow(passage, start, end),
		})
		if len(spans) >= maxSpans {
			break
		}
	}
	return spans, nil
}

// topIndices returns the indices of the n largest values in probs,
// descending.
func topIndices(probs []float64, n int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return probs[idx[i]] > probs[idx[j]] })
	if n < len(idx) {
		idx = idx[:n]
	}
	return idx
}

// truncateToTokenBudget trims text to at most maxTokens tokens under
// tiktokenEncoding, enforcing max_answer_length as a real token budget
// (§4.6) rather than a character count. maxTokens <= 0 disables truncation.
func truncateToTokenBudget(text string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		return text, nil
	}
	enc, err := tiktoken.GetEncoding(tiktokenEncoding)
	if err != nil {
		return "", fmt.Errorf("qa: load tiktoken encoding: %w", err)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, nil
	}
	return enc.Decode(tokens[:maxTokens]), nil
}
