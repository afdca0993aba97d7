package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

type crossEncoderFake struct {
	hits  []domain.RelevanceHit
	err   error
	calls int
	query string
}

func (f *crossEncoderFake) Rerank(_ context.Context, query string, _ []string, _ int) ([]domain.RelevanceHit, error) {
	f.calls++
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func rerankCandidates() []domain.SearchResult {
	return []domain.SearchResult{
		lexicalResult("https://kkuc.dk/a", "a", 5.0),
		semanticResult("https://kkuc.dk/b", "b", 0.9),
		lexicalResult("https://kkuc.dk/c", "c", 1.1),
	}
}

func TestRerankOrdersByRelevanceDescending(t *testing.T) {
	encoder := &crossEncoderFake{hits: []domain.RelevanceHit{
		{Index: 0, Relevance: 0.2},
		{Index: 1, Relevance: 0.95},
		{Index: 2, Relevance: 0.5},
	}}
	reranker := NewReranker(encoder)

	ranked := reranker.Rerank(context.Background(), "spørgsmål", rerankCandidates(), 3)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked results, got %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Relevance > ranked[i-1].Relevance {
			t.Fatalf("relevance must be non-increasing at %d", i)
		}
	}
	if ranked[0].SourceURL != "https://kkuc.dk/b" {
		t.Fatalf("expected most relevant candidate first, got %s", ranked[0].SourceURL)
	}
	if encoder.query != "spørgsmål" {
		t.Fatalf("reranker must score against the original query, got %q", encoder.query)
	}
}

func TestRerankEmptyCandidatesSkipsRemoteCall(t *testing.T) {
	encoder := &crossEncoderFake{}
	reranker := NewReranker(encoder)

	ranked := reranker.Rerank(context.Background(), "q", nil, 10)
	if len(ranked) != 0 {
		t.Fatalf("expected empty output, got %d", len(ranked))
	}
	if encoder.calls != 0 {
		t.Fatalf("expected no remote call for empty candidates, got %d", encoder.calls)
	}
}

func TestRerankServiceFailureFallsBackToStageScores(t *testing.T) {
	encoder := &crossEncoderFake{err: errors.New("reranker down")}
	reranker := NewReranker(encoder)

	ranked := reranker.Rerank(context.Background(), "q", rerankCandidates(), 2)
	if len(ranked) != 2 {
		t.Fatalf("expected truncation to topK, got %d", len(ranked))
	}
	if ranked[0].SourceURL != "https://kkuc.dk/a" {
		t.Fatalf("expected fallback sort by stage-local score, got %s first", ranked[0].SourceURL)
	}
	if ranked[1].SourceURL != "https://kkuc.dk/c" {
		t.Fatalf("expected second-highest stage score next, got %s", ranked[1].SourceURL)
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	encoder := &crossEncoderFake{hits: []domain.RelevanceHit{
		{Index: 0, Relevance: 0.9},
		{Index: 1, Relevance: 0.8},
		{Index: 2, Relevance: 0.7},
	}}
	reranker := NewReranker(encoder)

	ranked := reranker.Rerank(context.Background(), "q", rerankCandidates(), 2)
	if len(ranked) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(ranked))
	}
}

func TestRerankIgnoresOutOfRangeIndices(t *testing.T) {
	encoder := &crossEncoderFake{hits: []domain.RelevanceHit{
		{Index: 7, Relevance: 0.9},
		{Index: 1, Relevance: 0.6},
	}}
	reranker := NewReranker(encoder)

	ranked := reranker.Rerank(context.Background(), "q", rerankCandidates(), 5)
	if len(ranked) != 1 {
		t.Fatalf("expected malformed index to be dropped, got %d results", len(ranked))
	}
	if ranked[0].SourceURL != "https://kkuc.dk/b" {
		t.Fatalf("expected the valid hit to survive, got %s", ranked[0].SourceURL)
	}
}
