/**
 * Search indexer - embeds processed text into Qdrant
 *
 * Indexing runs after a result is already cached and returned, so
 * failures here must never fail the OCR request itself.
 */

package index

import (
	"context"
	"strings"

	"github.com/pagelens/ocr-gateway/internal/logging"
)

// snippetLength bounds the preview stored alongside each vector
const snippetLength = 400

// Indexer embeds document text and stores it for semantic search
type Indexer struct {
	embeddings *EmbeddingClient
	store      *QdrantStore
	logger     *logging.Logger
}

// NewIndexer wires the embedding client to the vector store
func NewIndexer(embeddings *EmbeddingClient, store *QdrantStore) *Indexer {
	return &Indexer{
		embeddings: embeddings,
		store:      store,
		logger:     logging.NewLogger("indexer"),
	}
}

// Index embeds text and upserts it under the result's cache key. Empty
// or sentinel-only text is skipped.
func (i *Indexer) Index(ctx context.Context, key string, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || trimmed == "No text found in the document." {
		i.logger.Debug("Skipping index for empty result", "key", key)
		return nil
	}

	vector, err := i.embeddings.GenerateEmbedding(ctx, trimmed)
	if err != nil {
		return err
	}

	snippet := trimmed
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}

	if err := i.store.Upsert(ctx, key, vector, snippet); err != nil {
		return err
	}

	i.logger.Debug("Indexed document", "key", key, "chars", len(trimmed))
	return nil
}

// Search embeds query and returns the closest indexed documents
func (i *Indexer) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	vector, err := i.embeddings.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	return i.store.Search(ctx, vector, limit)
}
