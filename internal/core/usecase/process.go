package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

// ProcessPageUseCase turns one stored raw page into indexed passages:
// extract, chunk, embed, index. Runs on the worker, one page per queue
// message.
type ProcessPageUseCase struct {
	repo      ports.PageRepository
	extractor ports.PageExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	store     ports.VectorStore
}

func NewProcessPageUseCase(
	repo ports.PageRepository,
	extractor ports.PageExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.VectorStore,
) *ProcessPageUseCase {
	return &ProcessPageUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
	}
}

func (uc *ProcessPageUseCase) ProcessByID(ctx context.Context, pageID string) error {
	if err := uc.repo.UpdateStatus(ctx, pageID, domain.PageStatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.process(ctx, pageID); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, pageID, domain.PageStatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, pageID, domain.PageStatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *ProcessPageUseCase) process(ctx context.Context, pageID string) error {
	page, err := uc.repo.GetByID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("fetch page by id: %w", err)
	}

	title, text, err := uc.extractor.Extract(ctx, page)
	if err != nil {
		return fmt.Errorf("extract page text: %w", err)
	}
	if text == "" {
		return domain.WrapError(domain.ErrInvalidInput, "extract page text", errors.New("empty extracted text"))
	}

	if title != "" && title != page.Title {
		page.Title = title
		if err := uc.repo.UpdateTitle(ctx, page.ID, title); err != nil {
			return fmt.Errorf("update page title: %w", err)
		}
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk page", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.store.IndexPassages(ctx, page, chunks, vectors); err != nil {
		return fmt.Errorf("index passages: %w", err)
	}
	return nil
}
