package qa

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// AnswerSpan is a single extracted answer with retrieval-weighted confidence
// and the surrounding context window (§3 Data model).
type AnswerSpan struct {
	AnswerText     string
	Confidence     float64
	RetrievalScore float64
	CombinedScore  float64
	StartPos       int
	EndPos         int
	PassageIndex   int
	ContextWindow  string
}

// contextWindowSize is the number of characters expanded on each side of an
// answer span before snapping to word boundaries (§4.6).
const contextWindowSize = 100

// Extractor wraps a Reader with the filtering, scoring, and context-window
// logic described in §4.6. It is safe for concurrent use; its only mutable
// state is the confidence threshold, guarded implicitly by the single-
// writer discipline the surrounding HybridRetriever already applies to
// mutation operations.
type Extractor struct {
	reader Reader

	modelName           string
	confidenceThreshold float64
	maxAnswerLength     int
	topKAnswers         int
	logger              Logger
}

// Logger is the minimal logging capability Extractor needs; retrieval.Logger
// and index.Logger both satisfy it.
type Logger interface {
	Warn(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...interface{}) {}

// ExtractorOption configures an Extractor at construction.
type ExtractorOption func(*Extractor)

// WithModelName records the reader model's name for GetModelInfo.
func WithModelName(name string) ExtractorOption {
	return func(e *Extractor) { e.modelName = name }
}

// WithConfidenceThreshold sets the minimum confidence an answer span must
// clear to survive ExtractSpans. Default 0.1 (§4.6).
func WithConfidenceThreshold(t float64) ExtractorOption {
	return func(e *Extractor) { e.confidenceThreshold = t }
}

// WithMaxAnswerLength sets the token budget for ExtractMultipleSpansPerPassage.
// Default 512 (§4.6).
func WithMaxAnswerLength(n int) ExtractorOption {
	return func(e *Extractor) { e.maxAnswerLength = n }
}

// WithTopKAnswers caps the number of spans ExtractSpans returns. Default 3.
func WithTopKAnswers(k int) ExtractorOption {
	return func(e *Extractor) { e.topKAnswers = k }
}

// WithLogger overrides the logger used to report skipped passages.
func WithLogger(l Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor builds an Extractor around reader with spec defaults,
// overridden by opts.
func NewExtractor(reader Reader, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		reader:              reader,
		modelName:           "deepset/roberta-base-squad2",
		confidenceThreshold: 0.1,
		maxAnswerLength:     512,
		topKAnswers:         3,
		logger:              noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetConfidenceThreshold updates the minimum confidence for future
// ExtractSpans calls (adapted from NeuralQALayer.update_confidence_threshold).
func (e *Extractor) SetConfidenceThreshold(t float64) {
	e.confidenceThreshold = t
}

// ExtractSpans runs the reader against each passage, drops low-confidence or
// empty spans, scores survivors by retrieval-weighted confidence, and
// returns up to topKAnswers spans sorted by combined_score descending.
// Reader errors on an individual passage are logged and skipped, never
// failing the batch (§4.6, §7). An empty passage list returns an empty
// slice without error.
func (e *Extractor) ExtractSpans(ctx context.Context, question string, passages []string, passageScores []float64) []AnswerSpan {
	if len(passages) == 0 {
		return nil
	}

	spans := make([]AnswerSpan, 0, len(passages))
	for i, passage := range passages {
		result, err := e.reader.Read(ctx, question, passage, e.maxAnswerLength)
		if err != nil {
			e.logger.Warn("qa: reader failed on passage", "index", i, "error", err)
			continue
		}

		answer := strings.TrimSpace(result.AnswerText)
		if answer == "" || result.Confidence < e.confidenceThreshold {
			continue
		}

		retrievalScore := 1.0
		if passageScores != nil && i < len(passageScores) {
			retrievalScore = passageScores[i]
		}
		combined := result.Confidence * (1 + retrievalScore)

		spans = append(spans, AnswerSpan{
			AnswerText:     answer,
			Confidence:     result.Confidence,
			RetrievalScore: retrievalScore,
			CombinedScore:  combined,
			StartPos:       result.StartChar,
			EndPos:         result.EndChar,
			PassageIndex:   i,
			ContextWindow:  contextWindow(passage, result.StartChar, result.EndChar),
		})
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].CombinedScore > spans[j].CombinedScore
	})
	if e.topKAnswers > 0 && len(spans) > e.topKAnswers {
		spans = spans[:e.topKAnswers]
	}
	return spans
}

// contextWindow expands [start, end) by contextWindowSize characters on
// each side, widens outward to the next space, and prefixes/suffixes "..."
// when the window stops short of the passage's start or end.
func contextWindow(passage string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(passage) {
		end = len(passage)
	}

	winStart := start - contextWindowSize
	if winStart < 0 {
		winStart = 0
	}
	winEnd := end + contextWindowSize
	if winEnd > len(passage) {
		winEnd = len(passage)
	}

	for winStart > 0 && passage[winStart] != ' ' {
		winStart--
	}
	for winEnd < len(passage) && passage[winEnd] != ' ' {
		winEnd++
	}

	window := strings.TrimSpace(passage[winStart:winEnd])
	if winStart > 0 {
		window = "..." + window
	}
	if winEnd < len(passage) {
		window = window + "..."
	}
	return window
}

// SynthesizedContext is the summary structure SynthesizeContext assembles
// for a generative stage downstream of this core (adapted from
// NeuralQALayer.synthesize_qa_context).
type SynthesizedContext struct {
	Question       string
	RankedAnswers  []AnswerSpan
	TopAnswer      string
	MeanConfidence float64
	Count          int
	ContextSummary string
}

// SynthesizeContext produces SynthesizedContext from a set of already-
// extracted spans. An empty span list yields a context with a fixed
// "no answer found" summary rather than an error.
func (e *Extractor) SynthesizeContext(question string, spans []AnswerSpan) SynthesizedContext {
	if len(spans) == 0 {
		return SynthesizedContext{
			Question:       question,
			ContextSummary: "No relevant answer spans found.",
		}
	}

	var sum float64
	for _, s := range spans {
		sum += s.Confidence
	}
	mean := sum / float64(len(spans))

	return SynthesizedContext{
		Question:       question,
		RankedAnswers:  spans,
		TopAnswer:      spans[0].AnswerText,
		MeanConfidence: mean,
		Count:          len(spans),
		ContextSummary: fmt.Sprintf(
			"Found %d potential answer(s). Top answer: '%s' (confidence: %.3f). Average confidence: %.3f.",
			len(spans), spans[0].AnswerText, spans[0].Confidence, mean,
		),
	}
}

// ModelInfo describes the configured reader for get_retriever_info (§6).
type ModelInfo struct {
	ModelName           string
	ConfidenceThreshold float64
	MaxAnswerLength     int
	TopKAnswers         int
}

// GetModelInfo returns the extractor's current configuration.
func (e *Extractor) GetModelInfo() ModelInfo {
	return ModelInfo{
		ModelName:           e.modelName,
		ConfidenceThreshold: e.confidenceThreshold,
		MaxAnswerLength:     e.maxAnswerLength,
		TopKAnswers:         e.topKAnswers,
	}
}

// softmax normalizes a slice of logits into a probability distribution.
func softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
