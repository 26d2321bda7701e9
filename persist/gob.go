package persist

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/corvid-labs/hybridqa/index"
)

// gobSnapshot is the on-disk shape for GobStore: Metadata values are
// narrowed to strings because encoding/gob requires concrete registered
// types for interface values, and metadata in this core is always
// JSON-originated scalars serialized at the HTTP boundary anyway.
type gobSnapshot struct {
	Texts     []string
	Metadata  []map[string]string
	DenseRows [][]float32
}

// GobStore persists a Snapshot to a single binary file using encoding/gob,
// the same mechanism the pack's own BM25 index backend uses for
// SaveIndex/LoadIndex. It is the simplest of the three Store
// implementations: no server, no schema, just a file.
type GobStore struct {
	path string
}

// NewGobStore returns a Store backed by the file at path.
func NewGobStore(path string) *GobStore {
	return &GobStore{path: path}
}

// Save serializes snapshot to the store's file, truncating any prior
// contents.
func (s *GobStore) Save(snapshot Snapshot) error {
	if len(snapshot.Passages) != len(snapshot.DenseRows) {
		return fmt.Errorf("persist: %w: %d passages, %d dense rows", index.ErrIndexCorrupt, len(snapshot.Passages), len(snapshot.DenseRows))
	}

	out := gobSnapshot{
		Texts:     make([]string, len(snapshot.Passages)),
		Metadata:  make([]map[string]string, len(snapshot.Passages)),
		DenseRows: snapshot.DenseRows,
	}
	for i, p := range snapshot.Passages {
		out.Texts[i] = p.Text
		md := make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			md[k] = fmt.Sprintf("%v", v)
		}
		out.Metadata[i] = md
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("persist: create %s: %w", s.path, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(out); err != nil {
		return fmt.Errorf("persist: encode snapshot: %w", err)
	}
	return nil
}

// Load deserializes the file at path. A missing file is not an error; it
// returns an empty Snapshot, matching an index created fresh with nothing
// to restore.
func (s *GobStore) Load() (Snapshot, error) {
	file, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("persist: open %s: %w", s.path, err)
	}
	defer file.Close()

	var in gobSnapshot
	if err := gob.NewDecoder(file).Decode(&in); err != nil {
		return Snapshot{}, fmt.Errorf("persist: decode snapshot: %w", err)
	}

	passages := make([]index.Passage, len(in.Texts))
	for i, text := range in.Texts {
		md := make(index.Metadata, len(in.Metadata[i]))
		for k, v := range in.Metadata[i] {
			md[k] = v
		}
		passages[i] = index.Passage{Text: text, Metadata: md}
	}

	if len(passages) != len(in.DenseRows) {
		return Snapshot{}, fmt.Errorf("persist: %w: %d passages, %d dense rows", index.ErrIndexCorrupt, len(passages), len(in.DenseRows))
	}

	return Snapshot{Passages: passages, DenseRows: in.DenseRows}, nil
}
