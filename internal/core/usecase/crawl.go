package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

// CrawlSiteUseCase walks the target site breadth-first, stores each raw page
// and hands it to the worker queue for indexing. The fetcher owns politeness
// (rate limiting); this use case owns the frontier and the page budget.
type CrawlSiteUseCase struct {
	fetcher  ports.PageFetcher
	repo     ports.PageRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	startURL string
	maxPages int
}

func NewCrawlSiteUseCase(
	fetcher ports.PageFetcher,
	repo ports.PageRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	startURL string,
	maxPages int,
) *CrawlSiteUseCase {
	if maxPages <= 0 {
		maxPages = 100
	}
	return &CrawlSiteUseCase{
		fetcher:  fetcher,
		repo:     repo,
		storage:  storage,
		queue:    queue,
		startURL: startURL,
		maxPages: maxPages,
	}
}

func (uc *CrawlSiteUseCase) Crawl(ctx context.Context) (*domain.CrawlReport, error) {
	if strings.TrimSpace(uc.startURL) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "crawl site", fmt.Errorf("start url is empty"))
	}

	report := &domain.CrawlReport{}
	frontier := []string{uc.startURL}
	visited := map[string]struct{}{uc.startURL: {}}

	for len(frontier) > 0 && report.PagesFetched < uc.maxPages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		url := frontier[0]
		frontier = frontier[1:]

		fetched, err := uc.fetcher.Fetch(ctx, url)
		if err != nil {
			slog.Warn("crawl_fetch_failed", "url", url, "error", err)
			report.PagesSkipped++
			continue
		}
		report.PagesFetched++

		for _, link := range fetched.Links {
			if _, ok := visited[link]; ok {
				continue
			}
			visited[link] = struct{}{}
			frontier = append(frontier, link)
		}

		if err := uc.ingestPage(ctx, fetched); err != nil {
			slog.Warn("crawl_ingest_failed", "url", url, "error", err)
			report.PagesSkipped++
			continue
		}
		report.PagesPublished++
	}

	slog.Info("crawl_done",
		"fetched", report.PagesFetched,
		"published", report.PagesPublished,
		"skipped", report.PagesSkipped,
	)
	return report, nil
}

func (uc *CrawlSiteUseCase) ingestPage(ctx context.Context, fetched *ports.FetchedPage) error {
	if existing, err := uc.repo.GetByURL(ctx, fetched.URL); err == nil && existing != nil {
		return fmt.Errorf("already ingested as %s", existing.ID)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeURLKey(fetched.URL))
	if err := uc.storage.Save(ctx, storageKey, bytes.NewReader(fetched.Body)); err != nil {
		return fmt.Errorf("save raw page: %w", err)
	}

	now := time.Now().UTC()
	page := &domain.Page{
		ID:          id,
		URL:         fetched.URL,
		ContentType: fetched.ContentType,
		StoragePath: storageKey,
		Status:      domain.PageStatusCrawled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, page); err != nil {
		return fmt.Errorf("create page record: %w", err)
	}

	if err := uc.queue.PublishPageCrawled(ctx, page.ID); err != nil {
		return fmt.Errorf("publish page crawled: %w", err)
	}
	return nil
}

func sanitizeURLKey(url string) string {
	key := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, url)
	const maxKeyLen = 120
	if len(key) > maxKeyLen {
		key = key[:maxKeyLen]
	}
	if key == "" {
		return "page.bin"
	}
	return key
}
