package index

import (
	"context"
	"testing"
)

func newTestCorpus(enc Encoder) *Corpus {
	return NewCorpus(NewLexicalIndex(BM25Plus), NewDenseIndex(enc))
}

func TestCorpusAddAssignsDocumentID(t *testing.T) {
	c := newTestCorpus(newFakeEncoder(4))
	n, err := c.Add(context.Background(), []string{"kw0 one", "kw1 two"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || c.Len() != 2 {
		t.Fatalf("Add returned %d, Len() = %d, want 2/2", n, c.Len())
	}
	for i, p := range c.Passages() {
		if p.Metadata.DocumentID() == "" {
			t.Errorf("passage %d missing synthesized document_id", i)
		}
	}
}

func TestCorpusAddAtomicOnEncoderFailure(t *testing.T) {
	enc := newFakeEncoder(4)
	enc.failOn = map[string]bool{"c": true}
	c := newTestCorpus(enc)

	// seed with two good passages first
	if _, err := c.Add(context.Background(), []string{"kw0 a", "kw1 b"}, nil); err != nil {
		t.Fatal(err)
	}

	// a batch of 5 where the 3rd fails: whole batch must fail and leave
	// the corpus exactly as it was (scenario: add_documents atomicity).
	_, err := c.Add(context.Background(), []string{"kw0 x", "kw1 y", "c", "kw2 z", "kw3 w"}, nil)
	if err == nil {
		t.Fatal("expected error from failing encoder mid-batch")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d after failed Add, want 2 (unchanged)", c.Len())
	}

	results, err := c.dense.Search(context.Background(), "kw2", 5)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.DocIndex >= 2 {
			t.Errorf("search surfaced a doc index %d from the failed batch", r.DocIndex)
		}
	}
}

func TestCorpusClear(t *testing.T) {
	c := newTestCorpus(newFakeEncoder(4))
	if _, err := c.Add(context.Background(), []string{"kw0 a", "kw1 b"}, nil); err != nil {
		t.Fatal(err)
	}
	c.Clear()
	if c.Len() != 0 || c.dense.Len() != 0 || c.lexical.Len() != 0 {
		t.Errorf("Clear left nonempty state: passages=%d dense=%d lexical=%d", c.Len(), c.dense.Len(), c.lexical.Len())
	}
}

func TestCorpusRemoveDocumentRenumbersDocIndex(t *testing.T) {
	c := newTestCorpus(newFakeEncoder(4))
	md := []Metadata{{"document_id": "a"}, {"document_id": "b"}, {"document_id": "c"}}
	if _, err := c.Add(context.Background(), []string{"kw0 a", "kw1 b", "kw2 c"}, md); err != nil {
		t.Fatal(err)
	}

	removed, err := c.RemoveDocument(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	p, ok := c.Passage(1)
	if !ok || p.Metadata.DocumentID() != "c" {
		t.Errorf("expected doc 'c' renumbered to index 1, got %+v ok=%v", p, ok)
	}
	if c.dense.Len() != 2 {
		t.Errorf("dense index len = %d, want 2 after removal", c.dense.Len())
	}
}

func TestCorpusRemoveDocumentNotFound(t *testing.T) {
	c := newTestCorpus(newFakeEncoder(4))
	if _, err := c.Add(context.Background(), []string{"kw0 a"}, nil); err != nil {
		t.Fatal(err)
	}
	removed, err := c.RemoveDocument(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 || c.Len() != 1 {
		t.Errorf("removing unknown document_id should be a no-op, got removed=%d len=%d", removed, c.Len())
	}
}

func TestCorpusFilterByDocumentIDs(t *testing.T) {
	c := newTestCorpus(newFakeEncoder(4))
	md := []Metadata{{"document_id": "a"}, {"document_id": "b"}, {"document_id": "c"}}
	if _, err := c.Add(context.Background(), []string{"kw0", "kw1", "kw2"}, md); err != nil {
		t.Fatal(err)
	}
	got := c.FilterByDocumentIDs([]string{"a", "c"})
	want := map[int]bool{0: true, 2: true}
	if len(got) != 2 {
		t.Fatalf("FilterByDocumentIDs = %v, want 2 entries", got)
	}
	for _, idx := range got {
		if !want[idx] {
			t.Errorf("unexpected doc index %d in filter result", idx)
		}
	}
	if got := c.FilterByDocumentIDs(nil); got != nil {
		t.Errorf("FilterByDocumentIDs(nil) = %v, want nil", got)
	}
}
