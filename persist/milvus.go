package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/corvid-labs/hybridqa/index"
)

// MilvusStore is a write-behind persistence backend (§4 Domain stack):
// it snapshots (passages, metadata, dense matrix) into a Milvus collection
// a host application already runs for other collections. It is never
// consulted by DenseIndex.Search, which stays exhaustive and in-process;
// this store exists purely so a long-lived corpus survives a restart
// without re-encoding every passage.
type MilvusStore struct {
	client         client.Client
	collectionName string
	dimension      int
}

const (
	fieldID       = "id"
	fieldText     = "text"
	fieldMetadata = "metadata_json"
	fieldEmbed    = "embedding"
)

// NewMilvusStore connects to the Milvus instance at address and targets
// collectionName, creating it (with a flat L2 index, adequate for the
// write-behind role this store plays) if it does not already exist.
// dimension must match the configured encoder's output width.
func NewMilvusStore(ctx context.Context, address, collectionName string, dimension int) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("persist: connect milvus: %w", err)
	}

	s := &MilvusStore{client: c, collectionName: collectionName, dimension: dimension}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("persist: has collection: %w", err)
	}
	if has {
		return s.client.LoadCollection(ctx, s.collectionName, false)
	}

	schema := entity.NewSchema().WithName(s.collectionName).WithDescription("hybridqa retrieval snapshot")
	schema.WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeInt64).WithIsPrimaryKey(true).WithIsAutoID(false))
	schema.WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
	schema.WithField(entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
	schema.WithField(entity.NewField().WithName(fieldEmbed).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dimension)))

	if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("persist: create collection: %w", err)
	}

	idx, err := entity.NewIndexFlat(entity.L2)
	if err != nil {
		return fmt.Errorf("persist: build index spec: %w", err)
	}
	if err := s.client.CreateIndex(ctx, s.collectionName, fieldEmbed, idx, false); err != nil {
		return fmt.Errorf("persist: create index: %w", err)
	}
	return s.client.LoadCollection(ctx, s.collectionName, false)
}

// Save drops and repopulates the collection with snapshot, then flushes.
func (s *MilvusStore) Save(snapshot Snapshot) error {
	if len(snapshot.Passages) != len(snapshot.DenseRows) {
		return fmt.Errorf("persist: %w: %d passages, %d dense rows", index.ErrIndexCorrupt, len(snapshot.Passages), len(snapshot.DenseRows))
	}

	ctx := context.Background()
	if err := s.client.DropCollection(ctx, s.collectionName); err != nil {
		return fmt.Errorf("persist: drop collection before resave: %w", err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	if len(snapshot.Passages) == 0 {
		return nil
	}

	ids := make([]int64, len(snapshot.Passages))
	texts := make([]string, len(snapshot.Passages))
	metadataJSON := make([]string, len(snapshot.Passages))
	for i, p := range snapshot.Passages {
		ids[i] = int64(i)
		texts[i] = p.Text
		raw, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("persist: marshal metadata %d: %w", i, err)
		}
		metadataJSON[i] = string(raw)
	}

	columns := []entity.Column{
		entity.NewColumnInt64(fieldID, ids),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldMetadata, metadataJSON),
		entity.NewColumnFloatVector(fieldEmbed, s.dimension, snapshot.DenseRows),
	}

	if _, err := s.client.Insert(ctx, s.collectionName, "", columns...); err != nil {
		return fmt.Errorf("persist: insert: %w", err)
	}
	return s.client.Flush(ctx, s.collectionName, false)
}

// Load queries every row out of the collection, ordered by id, and
// reconstructs a Snapshot.
func (s *MilvusStore) Load() (Snapshot, error) {
	ctx := context.Background()
	result, err := s.client.Query(ctx, s.collectionName, nil, fmt.Sprintf("%s >= 0", fieldID),
		[]string{fieldID, fieldText, fieldMetadata, fieldEmbed})
	if err != nil {
		return Snapshot{}, fmt.Errorf("persist: query: %w", err)
	}

	var idCol *entity.ColumnInt64
	var textCol *entity.ColumnVarChar
	var metaCol *entity.ColumnVarChar
	var embedCol *entity.ColumnFloatVector
	for _, col := range result {
		switch col.Name() {
		case fieldID:
			idCol = col.(*entity.ColumnInt64)
		case fieldText:
			textCol = col.(*entity.ColumnVarChar)
		case fieldMetadata:
			metaCol = col.(*entity.ColumnVarChar)
		case fieldEmbed:
			embedCol = col.(*entity.ColumnFloatVector)
		}
	}
	if idCol == nil {
		return Snapshot{}, nil
	}

	type row struct {
		id   int64
		text string
		meta string
		vec  []float32
	}
	rows := make([]row, idCol.Len())
	for i := range rows {
		id, _ := idCol.ValueByIdx(i)
		text, _ := textCol.ValueByIdx(i)
		meta, _ := metaCol.ValueByIdx(i)
		vec, _ := embedCol.ValueByIdx(i)
		rows[i] = row{id: id, text: text, meta: meta, vec: vec}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })

	passages := make([]index.Passage, len(rows))
	denseRows := make([][]float32, len(rows))
	for i, r := range rows {
		var md index.Metadata
		if err := json.Unmarshal([]byte(r.meta), &md); err != nil {
			return Snapshot{}, fmt.Errorf("persist: unmarshal metadata row %d: %w", i, err)
		}
		passages[i] = index.Passage{Text: r.text, Metadata: md}
		denseRows[i] = r.vec
	}
	return Snapshot{Passages: passages, DenseRows: denseRows}, nil
}

// Close releases the underlying Milvus client connection.
func (s *MilvusStore) Close() error {
	return s.client.Close()
}
