package ports

import (
	"context"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

// ChatService is the caller-facing surface of the RAG pipeline. It always
// returns a well-formed answer; failures anywhere in the pipeline are
// converted into a fixed apology rather than surfaced as errors.
type ChatService interface {
	Answer(ctx context.Context, query string, history []domain.ConversationTurn) *domain.Answer
}

// SiteCrawler is the inbound contract for triggering a crawl run.
type SiteCrawler interface {
	Crawl(ctx context.Context) (*domain.CrawlReport, error)
}

// PageProcessor is the inbound contract for asynchronous page indexing.
type PageProcessor interface {
	ProcessByID(ctx context.Context, pageID string) error
}
