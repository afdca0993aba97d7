package usecase

import (
	"context"
	"log/slog"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

// SemanticEngine searches pre-computed passage vectors by embedding the
// query. Similarity is 1 - distance so ordering matches the lexical engine's
// higher-is-better convention.
type SemanticEngine struct {
	embedder ports.Embedder
	store    ports.VectorStore
}

func NewSemanticEngine(embedder ports.Embedder, store ports.VectorStore) *SemanticEngine {
	return &SemanticEngine{
		embedder: embedder,
		store:    store,
	}
}

// Search returns up to limit nearest passages. Embedding-service or store
// errors degrade to an empty result, mirroring the lexical engine.
func (e *SemanticEngine) Search(ctx context.Context, query string, limit int) []domain.SearchResult {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("semantic_embed_failed", "error", err)
		return nil
	}

	hits, err := e.store.NearestNeighbors(ctx, vector, limit)
	if err != nil {
		slog.Warn("semantic_search_failed", "error", err)
		return nil
	}

	out := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		out = append(out, domain.SearchResult{
			Content:   hit.Passage.Text,
			SourceURL: hit.Passage.SourceURL,
			PageTitle: hit.Passage.PageTitle,
			Score:     domain.Score{Source: domain.ScoreSemantic, Value: 1 - hit.Distance},
		})
	}
	return out
}
