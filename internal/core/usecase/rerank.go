package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

// Reranker orders the merged candidate set with an external cross-encoder.
// The ORIGINAL user query is scored against each candidate, never a
// reformulated variant.
type Reranker struct {
	crossEncoder ports.CrossEncoder
}

func NewReranker(crossEncoder ports.CrossEncoder) *Reranker {
	return &Reranker{crossEncoder: crossEncoder}
}

// Rerank returns the topK candidates descending by relevance in [0,1]. An
// empty candidate list returns empty without a remote call. On service
// failure the candidates are ordered by their stage-local score instead:
// degraded ranking, never a failed request.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.SearchResult, topK int) []domain.RankedResult {
	if len(candidates) == 0 {
		return nil
	}

	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Content
	}

	hits, err := r.crossEncoder.Rerank(ctx, query, documents, topK)
	if err != nil {
		slog.Warn("rerank_failed_falling_back", "error", err)
		return fallbackRanking(candidates, topK)
	}

	out := make([]domain.RankedResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(candidates) {
			continue
		}
		out = append(out, domain.RankedResult{
			SearchResult: candidates[hit.Index],
			Relevance:    hit.Relevance,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Relevance > out[j].Relevance })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// fallbackRanking sorts by the candidates' own stage-local scores. The
// values come from mixed stages and are not mutually comparable; this is a
// best-effort ordering for the degraded path only.
func fallbackRanking(candidates []domain.SearchResult, topK int) []domain.RankedResult {
	out := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RankedResult{SearchResult: c}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score.Value > out[j].Score.Value })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
