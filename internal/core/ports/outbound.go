package ports

import (
	"context"
	"io"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

// Embedder builds dense vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes passages and serves nearest-neighbor and bulk reads.
// NearestNeighbors returns raw distances; converting distance to similarity
// is the retrieval layer's job. FetchAll feeds the lexical index build.
type VectorStore interface {
	IndexPassages(ctx context.Context, page *domain.Page, chunks []string, vectors [][]float32) error
	NearestNeighbors(ctx context.Context, vector []float32, limit int) ([]domain.VectorHit, error)
	FetchAll(ctx context.Context, limit int) ([]domain.Passage, error)
}

// CrossEncoder scores query/document pairs for fine-grained relevance.
// Relevance values are in [0,1], higher is better.
type CrossEncoder interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RelevanceHit, error)
}

// TextGenerator produces the final text for one prompt pair. Streaming is a
// transport concern; the core only consumes the complete response.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PageRepository persists crawled page state.
type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetByID(ctx context.Context, id string) (*domain.Page, error)
	GetByURL(ctx context.Context, url string) (*domain.Page, error)
	UpdateStatus(ctx context.Context, id string, status domain.PageStatus, errMessage string) error
	UpdateTitle(ctx context.Context, id string, title string) error
}

// ObjectStorage stores raw fetched page bodies.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes page-crawled events.
type MessageQueue interface {
	PublishPageCrawled(ctx context.Context, pageID string) error
	SubscribePageCrawled(ctx context.Context, handler func(context.Context, string) error) error
}

// FetchedPage is one raw crawl result plus the same-host links found in it.
type FetchedPage struct {
	URL         string
	ContentType string
	Body        []byte
	Links       []string
}

// PageFetcher retrieves a single URL. Implementations own politeness
// (rate limiting, timeouts); the crawl use case owns the frontier.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedPage, error)
}

// PageExtractor turns a stored raw page into a title and plain text.
type PageExtractor interface {
	Extract(ctx context.Context, page *domain.Page) (title, text string, err error)
}

// Chunker splits extracted text into indexable chunks.
type Chunker interface {
	Split(text string) []string
}
