package usecase

import (
	"context"
	"sync"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

// searchEngine is the shape shared by the lexical and semantic engines.
// Both fail open: an engine error surfaces as an empty slice.
type searchEngine interface {
	Search(ctx context.Context, query string, limit int) []domain.SearchResult
}

// HybridRetriever runs both engines for every query variant and returns the
// deduplicated union. Output order carries no relevance meaning; ranking is
// the reranker's job.
type HybridRetriever struct {
	lexical  searchEngine
	semantic searchEngine
}

func NewHybridRetriever(lexical, semantic searchEngine) *HybridRetriever {
	return &HybridRetriever{
		lexical:  lexical,
		semantic: semantic,
	}
}

// Search fans out lexical+semantic per variant concurrently, then merges in
// a fixed order: variants as given, lexical before semantic. Dedup keeps the
// first-seen entry per fingerprint key, so for a passage found by both
// engines the lexical score wins.
func (h *HybridRetriever) Search(ctx context.Context, variants []string, perQueryLimit int) []domain.SearchResult {
	lexicalHits := make([][]domain.SearchResult, len(variants))
	semanticHits := make([][]domain.SearchResult, len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(2)
		go func() {
			defer wg.Done()
			lexicalHits[i] = h.lexical.Search(ctx, variant, perQueryLimit)
		}()
		go func() {
			defer wg.Done()
			semanticHits[i] = h.semantic.Search(ctx, variant, perQueryLimit)
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{})
	merged := make([]domain.SearchResult, 0, 2*perQueryLimit*len(variants))
	appendUnique := func(results []domain.SearchResult) {
		for _, r := range results {
			key := domain.FingerprintKey(r)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
		}
	}
	for i := range variants {
		appendUnique(lexicalHits[i])
		appendUnique(semanticHits[i])
	}
	return merged
}
