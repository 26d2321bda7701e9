package persist

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/corvid-labs/hybridqa/index"
)

const chromemCollection = "hybridqa_passages"

// ChromemStore persists a Snapshot into a local chromem-go collection.
// Embeddings are already computed by the time a Snapshot exists, so
// documents are inserted with their embedding attached directly; no
// embedding function is invoked at save or load time.
type ChromemStore struct {
	db *chromem.DB
}

// NewChromemStore opens (or creates) a persistent chromem-go database at
// path. An empty path uses an in-memory database, useful for tests.
func NewChromemStore(path string) (*ChromemStore, error) {
	if path == "" {
		return &ChromemStore{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("persist: open chromem db: %w", err)
	}
	return &ChromemStore{db: db}, nil
}

// noopEmbeddingFunc satisfies chromem's embedding-function requirement
// without ever being called: every document in a Snapshot already carries
// its embedding.
func noopEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("persist: chromem store never re-embeds documents")
}

func (s *ChromemStore) collection() (*chromem.Collection, error) {
	col := s.db.GetCollection(chromemCollection, noopEmbeddingFunc)
	if col != nil {
		return col, nil
	}
	return s.db.CreateCollection(chromemCollection, nil, noopEmbeddingFunc)
}

// Save truncates and rewrites the collection with the given snapshot.
func (s *ChromemStore) Save(snapshot Snapshot) error {
	if len(snapshot.Passages) != len(snapshot.DenseRows) {
		return fmt.Errorf("persist: %w: %d passages, %d dense rows", index.ErrIndexCorrupt, len(snapshot.Passages), len(snapshot.DenseRows))
	}

	if _, err := s.db.CreateCollection(chromemCollection, nil, noopEmbeddingFunc); err != nil {
		return fmt.Errorf("persist: reset chromem collection: %w", err)
	}
	col, err := s.collection()
	if err != nil {
		return err
	}

	ctx := context.Background()
	for i, p := range snapshot.Passages {
		metadata := make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			metadata[k] = fmt.Sprintf("%v", v)
		}
		doc := chromem.Document{
			ID:        fmt.Sprintf("%d", i),
			Content:   p.Text,
			Metadata:  metadata,
			Embedding: snapshot.DenseRows[i],
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("persist: add document %d: %w", i, err)
		}
	}
	return nil
}

// Load reads every document back out of the collection in ID order,
// reconstructing passages and dense rows. The lexical index is not
// touched here; callers rebuild it from the returned passages (§3).
func (s *ChromemStore) Load() (Snapshot, error) {
	col := s.db.GetCollection(chromemCollection, noopEmbeddingFunc)
	if col == nil {
		return Snapshot{}, nil
	}

	count := col.Count()
	passages := make([]index.Passage, count)
	rows := make([][]float32, count)

	for i := 0; i < count; i++ {
		doc, err := col.GetByID(context.Background(), fmt.Sprintf("%d", i))
		if err != nil {
			return Snapshot{}, fmt.Errorf("persist: get document %d: %w", i, err)
		}
		md := make(index.Metadata, len(doc.Metadata))
		for k, v := range doc.Metadata {
			md[k] = v
		}
		passages[i] = index.Passage{Text: doc.Content, Metadata: md}
		rows[i] = doc.Embedding
	}

	return Snapshot{Passages: passages, DenseRows: rows}, nil
}
