package qa

import (
	"context"
	"errors"
	"testing"
)

type fakeLogitsReader struct {
	fakeReader
	questionTokens int
	startLogits    []float64
	endLogits      []float64
	offsets        []TokenOffset
	logitsErr      error
}

func (f *fakeLogitsReader) Logits(ctx context.Context, question, passage string) (int, []float64, []float64, []TokenOffset, error) {
	if f.logitsErr != nil {
		return 0, nil, nil, nil, f.logitsErr
	}
	return f.questionTokens, f.startLogits, f.endLogits, f.offsets, nil
}

func TestExtractMultipleSpansRequiresLogitsReader(t *testing.T) {
	ex := NewExtractor(&fakeReader{})
	_, err := ex.ExtractMultipleSpansPerPassage(context.Background(), "q", "passage text", 3)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for a plain Reader, got %v", err)
	}
}

func TestExtractMultipleSpansPicksBestPair(t *testing.T) {
	// passage tokens: "the", "cat", "sat", "down" -> offsets into "the cat sat down"
	passage := "the cat sat down"
	reader := &fakeLogitsReader{
		questionTokens: 0,
		startLogits:    []float64{0.1, 5.0, 0.2, 0.1},
		endLogits:      []float64{0.1, 0.2, 5.0, 0.1},
		offsets: []TokenOffset{
			{Start: 0, End: 3},  // the
			{Start: 4, End: 7},  // cat
			{Start: 8, End: 11}, // sat
			{Start: 12, End: 16}, // down
		},
	}
	ex := NewExtractor(reader, WithConfidenceThreshold(0.01), WithMaxAnswerLength(0))

	spans, err := ex.ExtractMultipleSpansPerPassage(context.Background(), "q", passage, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) == 0 {
		t.Fatal("expected at least one span")
	}
	if spans[0].AnswerText != "cat sat" {
		t.Errorf("expected top span \"cat sat\", got %q", spans[0].AnswerText)
	}
}

func TestExtractMultipleSpansRespectsQuestionTokenOffset(t *testing.T) {
	passage := "the cat sat down"
	reader := &fakeLogitsReader{
		questionTokens: 2, // first two tokens belong to the question, not valid starts
		startLogits:    []float64{5.0, 5.0, 0.2, 0.1},
		endLogits:      []float64{0.1, 0.2, 5.0, 0.1},
		offsets: []TokenOffset{
			{Start: 0, End: 3},
			{Start: 4, End: 7},
			{Start: 8, End: 11},
			{Start: 12, End: 16},
		},
	}
	ex := NewExtractor(reader, WithConfidenceThreshold(0.0), WithMaxAnswerLength(0))
	spans, err := ex.ExtractMultipleSpansPerPassage(context.Background(), "q", passage, 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range spans {
		if s.AnswerText == "the" || s.AnswerText == "the cat" {
			t.Errorf("span %q should have been excluded: its start token falls within the question offset", s.AnswerText)
		}
	}
}

func TestExtractMultipleSpansDedupesByText(t *testing.T) {
	passage := "cat cat"
	reader := &fakeLogitsReader{
		questionTokens: 0,
		startLogits:    []float64{3.0, 3.0},
		endLogits:      []float64{3.0, 3.0},
		offsets: []TokenOffset{
			{Start: 0, End: 3},
			{Start: 4, End: 7},
		},
	}
	ex := NewExtractor(reader, WithConfidenceThreshold(0.0), WithMaxAnswerLength(0))
	spans, err := ex.ExtractMultipleSpansPerPassage(context.Background(), "q", passage, 5)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]int)
	for _, s := range spans {
		seen[s.AnswerText]++
	}
	for text, count := range seen {
		if count > 1 {
			t.Errorf("answer text %q appeared %d times, expected dedup", text, count)
		}
	}
}

func TestExtractMultipleSpansPropagatesLogitsError(t *testing.T) {
	reader := &fakeLogitsReader{logitsErr: errors.New("model offline")}
	ex := NewExtractor(reader)
	_, err := ex.ExtractMultipleSpansPerPassage(context.Background(), "q", "passage", 3)
	if err == nil {
		t.Fatal("expected error to propagate from Logits")
	}
}
