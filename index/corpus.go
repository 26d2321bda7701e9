package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Metadata is an opaque mapping from string keys to scalar values. The HTTP
// boundary that surrounds this core serializes it to JSON; the core itself
// never interprets keys beyond the document_id convention used for
// per-document deletion and filtering.
type Metadata map[string]any

// DocumentID returns the "document_id" key of m as a string, or "" if
// absent or not a string.
func (m Metadata) DocumentID() string {
	if m == nil {
		return ""
	}
	v, _ := m["document_id"].(string)
	return v
}

// Passage is one immutable text blob with its metadata, keyed by its
// DocIndex (the passage's position in Corpus.passages).
type Passage struct {
	Text     string
	Metadata Metadata
}

// Corpus is the single source of truth for (passage, metadata) pairs: it
// assigns contiguous DocIndex values in insertion order and coordinates
// add/clear against a LexicalIndex and DenseIndex so the three never
// disagree on length (invariant 1, §3).
type Corpus struct {
	passages []Passage
	lexical  *LexicalIndex
	dense    *DenseIndex
}

// NewCorpus creates an empty corpus backed by the given indices.
func NewCorpus(lexical *LexicalIndex, dense *DenseIndex) *Corpus {
	return &Corpus{lexical: lexical, dense: dense}
}

// Len returns the number of passages currently stored.
func (c *Corpus) Len() int { return len(c.passages) }

// Passages returns the current passages in DocIndex order. The returned
// slice is owned by the caller; mutating it does not affect the corpus.
func (c *Corpus) Passages() []Passage {
	out := make([]Passage, len(c.passages))
	copy(out, c.passages)
	return out
}

// Passage returns the passage at the given DocIndex.
func (c *Corpus) Passage(docIndex int) (Passage, bool) {
	if docIndex < 0 || docIndex >= len(c.passages) {
		return Passage{}, false
	}
	return c.passages[docIndex], true
}

// Add appends texts (with parallel metadata, or nil to synthesize a
// document_id per passage) and rebuilds the LexicalIndex and DenseIndex to
// match. It is atomic: the dense encoding is staged first, and only
// committed to the corpus and lexical index once it succeeds, so an
// encoder failure leaves all three structures exactly as they were before
// the call (§7, invariant 4).
//
// Returns ErrInvalidInput if metadata is non-nil and its length does not
// match texts.
func (c *Corpus) Add(ctx context.Context, texts []string, metadata []Metadata) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	if metadata != nil && len(metadata) != len(texts) {
		return 0, fmt.Errorf("%w: metadata length %d != texts length %d", ErrInvalidInput, len(metadata), len(texts))
	}

	rows, err := c.dense.Append(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(rows) != len(texts) {
		return 0, fmt.Errorf("%w: encoder returned %d rows for %d passages", ErrIndexCorrupt, len(rows), len(texts))
	}

	start := len(c.passages)
	newPassages := make([]Passage, len(texts))
	for i, text := range texts {
		var md Metadata
		if metadata != nil {
			md = metadata[i]
		}
		if md == nil {
			md = Metadata{}
		}
		if _, ok := md["document_id"]; !ok {
			md["document_id"] = uuid.New().String()
		}
		if _, ok := md["doc_id"]; !ok {
			md["doc_id"] = start + i
		}
		newPassages[i] = Passage{Text: text, Metadata: md}
	}

	// commit: dense rows already staged above via Append; commit the
	// corpus and rebuild the lexical index together so a reader never
	// observes one updated without the other (invariant 4).
	c.passages = append(c.passages, newPassages...)
	c.rebuildLexical()

	return len(texts), nil
}

// Clear empties the corpus and both indices.
func (c *Corpus) Clear() {
	c.passages = nil
	c.dense.Reset()
	c.rebuildLexical()
}

// RemoveDocument deletes every passage whose metadata document_id equals
// documentID and rebuilds both indices from the remainder. Returns the
// number of passages removed. DocIndex values are renumbered contiguously
// for the surviving passages (invariant 2), so any previously cached
// DocIndex for this corpus is invalidated by this call (§3: "deletion of a
// document invalidates its indices").
func (c *Corpus) RemoveDocument(ctx context.Context, documentID string) (int, error) {
	kept := make([]Passage, 0, len(c.passages))
	removed := 0
	for _, p := range c.passages {
		if p.Metadata.DocumentID() == documentID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed == 0 {
		return 0, nil
	}

	texts := make([]string, len(kept))
	for i, p := range kept {
		texts[i] = p.Text
	}

	rebuilt := NewDenseIndex(c.dense.encoder)
	if len(texts) > 0 {
		if _, err := rebuilt.Append(ctx, texts); err != nil {
			return 0, err
		}
	}

	*c.dense = *rebuilt
	c.passages = kept
	c.rebuildLexical()
	return removed, nil
}

// FilterByDocumentIDs returns the DocIndex values whose metadata
// document_id is in ids. A nil or empty ids means no filter.
func (c *Corpus) FilterByDocumentIDs(ids []string) []int {
	if len(ids) == 0 {
		return nil
	}
	allow := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allow[id] = struct{}{}
	}
	out := make([]int, 0, len(c.passages))
	for i, p := range c.passages {
		if _, ok := allow[p.Metadata.DocumentID()]; ok {
			out = append(out, i)
		}
	}
	return out
}

func (c *Corpus) rebuildLexical() {
	docs := make([][]string, len(c.passages))
	for i, p := range c.passages {
		docs[i] = Tokenize(p.Text)
	}
	c.lexical.Build(docs)
}
