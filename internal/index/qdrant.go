/**
 * Qdrant vector store for processed document text
 *
 * Uses Qdrant's native gRPC API. Each point carries the cache key of the
 * result it was derived from so search hits can be resolved back to
 * cached OCR output.
 */

package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantStore handles vector persistence and search
type QdrantStore struct {
	points         qdrant.PointsClient
	collections    qdrant.CollectionsClient
	conn           *grpc.ClientConn
	collectionName string
}

// SearchHit is one semantic search result
type SearchHit struct {
	CacheKey string
	Score    float32
	Snippet  string
}

// NewQdrantStore connects to Qdrant and ensures the collection exists
func NewQdrantStore(address string, collectionName string) (*QdrantStore, error) {
	if address == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if collectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	store := &QdrantStore{
		points:         qdrant.NewPointsClient(conn),
		collections:    qdrant.NewCollectionsClient(conn),
		conn:           conn,
		collectionName: collectionName,
	}

	if err := store.ensureCollection(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return store, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	listResp, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, c := range listResp.Collections {
		if c.Name == s.collectionName {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     EmbeddingDimensions,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// Upsert stores an embedding tagged with its cache key and a text snippet
func (s *QdrantStore) Upsert(ctx context.Context, cacheKey string, vector []float32, snippet string) error {
	if len(vector) != EmbeddingDimensions {
		return fmt.Errorf("unexpected vector dimensions: got %d, want %d", len(vector), EmbeddingDimensions)
	}

	point := &qdrant.PointStruct{
		Id: &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Uuid{
				Uuid: uuid.NewSHA1(uuid.NameSpaceURL, []byte(cacheKey)).String(),
			},
		},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: vector},
			},
		},
		Payload: map[string]*qdrant.Value{
			"cache_key": {Kind: &qdrant.Value_StringValue{StringValue: cacheKey}},
			"snippet":   {Kind: &qdrant.Value_StringValue{StringValue: snippet}},
			"timestamp": {Kind: &qdrant.Value_IntegerValue{IntegerValue: time.Now().Unix()}},
		},
	}

	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

// Search returns the closest indexed documents to queryVector
func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collectionName,
		Vector:         queryVector,
		Limit:          uint64(limit),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := SearchHit{Score: r.Score}
		if v, ok := r.Payload["cache_key"]; ok {
			hit.CacheKey = v.GetStringValue()
		}
		if v, ok := r.Payload["snippet"]; ok {
			hit.Snippet = v.GetStringValue()
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// Close releases the gRPC connection
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}
