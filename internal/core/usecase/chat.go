package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

// PipelineFailedText is the apology produced when the pipeline itself blows
// up. The caller always receives a well-formed answer, never an error.
const PipelineFailedText = "Beklager, der opstod en fejl. Prøv venligst igen."

// PipelineLimits is the fixed per-request configuration of the chat
// pipeline. Zero values fall back to the defaults the corpus was tuned with.
type PipelineLimits struct {
	SearchLimit   int // per-variant limit for each engine
	RerankTopN    int // candidates kept after cross-encoding
	SynthesisTopK int // candidates shown to the generation model
}

func (l PipelineLimits) normalize() PipelineLimits {
	if l.SearchLimit <= 0 {
		l.SearchLimit = 15
	}
	if l.RerankTopN <= 0 {
		l.RerankTopN = 15
	}
	if l.SynthesisTopK <= 0 {
		l.SynthesisTopK = 10
	}
	return l
}

// ChatUseCase sequences the four pipeline stages: reformulate, hybrid
// retrieval, rerank, synthesize. Data flows strictly forward; no stage
// writes back to an earlier one.
type ChatUseCase struct {
	reformulator *QueryReformulator
	retriever    *HybridRetriever
	reranker     *Reranker
	synthesizer  *Synthesizer
	limits       PipelineLimits
}

func NewChatUseCase(
	reformulator *QueryReformulator,
	retriever *HybridRetriever,
	reranker *Reranker,
	synthesizer *Synthesizer,
	limits PipelineLimits,
) *ChatUseCase {
	return &ChatUseCase{
		reformulator: reformulator,
		retriever:    retriever,
		reranker:     reranker,
		synthesizer:  synthesizer,
		limits:       limits.normalize(),
	}
}

// Answer runs the full pipeline for one request. This is the single point
// where any remaining failure becomes a user-facing result: a panic or an
// empty query yields the fixed apology, never a raised error.
func (uc *ChatUseCase) Answer(ctx context.Context, query string, history []domain.ConversationTurn) (answer *domain.Answer) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("chat_pipeline_panic", "panic", r)
			answer = &domain.Answer{
				Text:        PipelineFailedText,
				HasCitation: false,
				Outcome:     domain.OutcomeFailed,
			}
		}
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return &domain.Answer{
			Text:        PipelineFailedText,
			HasCitation: false,
			Outcome:     domain.OutcomeFailed,
		}
	}

	variants := uc.reformulator.Reformulate(ctx, query, history)
	candidates := uc.retriever.Search(ctx, variants, uc.limits.SearchLimit)

	// Rerank and ground against the original query, not a rewrite.
	ranked := uc.reranker.Rerank(ctx, query, candidates, uc.limits.RerankTopN)
	if len(ranked) > uc.limits.SynthesisTopK {
		ranked = ranked[:uc.limits.SynthesisTopK]
	}

	answer = uc.synthesizer.Synthesize(ctx, query, ranked, history)
	answer.SourceCount = len(ranked)

	slog.Info("chat_pipeline_done",
		"variants", len(variants),
		"candidates", len(candidates),
		"ranked", len(ranked),
		"outcome", string(answer.Outcome),
		"has_citation", answer.HasCitation,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return answer
}
