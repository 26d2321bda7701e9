package index

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
)

// fakeEncoder deterministically maps text to a small embedding so tests can
// reason about cosine similarity without a real model. Each known keyword
// contributes a unit vector along its own axis; unknown text embeds near
// the origin.
type fakeEncoder struct {
	dim    int
	failOn map[string]bool
}

func newFakeEncoder(dim int) *fakeEncoder {
	return &fakeEncoder{dim: dim}
}

func (f *fakeEncoder) vector(text string) []float32 {
	v := make([]float32, f.dim)
	lower := strings.ToLower(text)
	for i := 0; i < f.dim; i++ {
		if strings.Contains(lower, fmt.Sprintf("kw%d", i)) {
			v[i] = 1
		}
	}
	if allZero(v) {
		v[0] = 0.01
	}
	return v
}

func allZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func (f *fakeEncoder) EncodeQuery(ctx context.Context, text string) ([]float32, error) {
	if f.failOn[text] {
		return nil, fmt.Errorf("fake encoder failure")
	}
	return f.vector(text), nil
}

func (f *fakeEncoder) EncodePassages(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failOn[t] {
			return nil, fmt.Errorf("fake encoder failure on %q", t)
		}
		out[i] = f.vector(t)
	}
	return out, nil
}

func TestDenseIndexEmptySearch(t *testing.T) {
	d := NewDenseIndex(newFakeEncoder(4))
	results, err := d.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty results on empty index, got %v", results)
	}
}

func TestDenseIndexAppendAndSearch(t *testing.T) {
	enc := newFakeEncoder(4)
	d := NewDenseIndex(enc)
	ctx := context.Background()

	if _, err := d.Append(ctx, []string{"kw0 document", "kw1 document"}); err != nil {
		t.Fatal(err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}

	results, err := d.Search(ctx, "kw0 query", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].DocIndex != 0 {
		t.Errorf("expected doc 0 to rank first for kw0 query, got %v", results)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("expected strictly better score for matching doc: %v", results)
	}
}

func TestDenseIndexAppendFailureLeavesIndexUnchanged(t *testing.T) {
	enc := newFakeEncoder(4)
	enc.failOn = map[string]bool{"bad": true}
	d := NewDenseIndex(enc)
	ctx := context.Background()

	if _, err := d.Append(ctx, []string{"kw0 good"}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Append(ctx, []string{"bad"}); err == nil {
		t.Fatal("expected error from failing encoder")
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d after failed append, want 1 (unchanged)", d.Len())
	}
}

func TestDenseIndexCosineSimilarityBounds(t *testing.T) {
	enc := newFakeEncoder(3)
	d := NewDenseIndex(enc)
	ctx := context.Background()
	if _, err := d.Append(ctx, []string{"kw0", "kw1", "kw2"}); err != nil {
		t.Fatal(err)
	}
	results, err := d.Search(ctx, "kw0", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Score < -1-1e-9 || r.Score > 1+1e-9 {
			t.Errorf("cosine similarity %f out of [-1,1]", r.Score)
		}
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("expected exact self-match score ~1, got %f", results[0].Score)
	}
}
