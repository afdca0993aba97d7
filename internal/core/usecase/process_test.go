package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

type pageRepoFake struct {
	pages    map[string]*domain.Page
	statuses []domain.PageStatus
	titles   map[string]string
}

func newPageRepoFake(pages ...*domain.Page) *pageRepoFake {
	f := &pageRepoFake{
		pages:  make(map[string]*domain.Page),
		titles: make(map[string]string),
	}
	for _, p := range pages {
		f.pages[p.ID] = p
	}
	return f
}

func (f *pageRepoFake) Create(_ context.Context, page *domain.Page) error {
	f.pages[page.ID] = page
	return nil
}

func (f *pageRepoFake) GetByID(_ context.Context, id string) (*domain.Page, error) {
	page, ok := f.pages[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrPageNotFound, "get page", errors.New(id))
	}
	return page, nil
}

func (f *pageRepoFake) GetByURL(_ context.Context, url string) (*domain.Page, error) {
	for _, p := range f.pages {
		if p.URL == url {
			return p, nil
		}
	}
	return nil, domain.WrapError(domain.ErrPageNotFound, "get page by url", errors.New(url))
}

func (f *pageRepoFake) UpdateStatus(_ context.Context, id string, status domain.PageStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	if page, ok := f.pages[id]; ok {
		page.Status = status
		page.Error = errMessage
	}
	return nil
}

func (f *pageRepoFake) UpdateTitle(_ context.Context, id, title string) error {
	f.titles[id] = title
	return nil
}

type extractorFake struct {
	title string
	text  string
	err   error
}

func (f *extractorFake) Extract(context.Context, *domain.Page) (string, string, error) {
	return f.title, f.text, f.err
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

type embedderFake struct {
	err error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func TestProcessPageHappyPathIndexesAndMarksReady(t *testing.T) {
	repo := newPageRepoFake(&domain.Page{ID: "p1", URL: "https://kkuc.dk/behandling", Status: domain.PageStatusCrawled})
	store := &vectorStoreFake{}
	uc := NewProcessPageUseCase(
		repo,
		&extractorFake{title: "Behandling", text: "noget indhold"},
		&chunkerFake{chunks: []string{"noget indhold"}},
		&embedderFake{},
		store,
	)

	if err := uc.ProcessByID(context.Background(), "p1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if got := repo.pages["p1"].Status; got != domain.PageStatusIndexed {
		t.Fatalf("expected indexed status, got %s", got)
	}
	if repo.titles["p1"] != "Behandling" {
		t.Fatalf("expected extracted title persisted, got %q", repo.titles["p1"])
	}
}

func TestProcessPageEmptyTextMarksFailed(t *testing.T) {
	repo := newPageRepoFake(&domain.Page{ID: "p1", Status: domain.PageStatusCrawled})
	uc := NewProcessPageUseCase(repo, &extractorFake{text: ""}, &chunkerFake{}, &embedderFake{}, &vectorStoreFake{})

	err := uc.ProcessByID(context.Background(), "p1")
	if err == nil {
		t.Fatalf("expected error for empty extraction")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := repo.pages["p1"].Status; got != domain.PageStatusFailed {
		t.Fatalf("expected failed status, got %s", got)
	}
}

func TestProcessPageEmbedErrorMarksFailed(t *testing.T) {
	repo := newPageRepoFake(&domain.Page{ID: "p1", Status: domain.PageStatusCrawled})
	uc := NewProcessPageUseCase(
		repo,
		&extractorFake{title: "T", text: "tekst"},
		&chunkerFake{chunks: []string{"tekst"}},
		&embedderFake{err: errors.New("embed down")},
		&vectorStoreFake{},
	)

	if err := uc.ProcessByID(context.Background(), "p1"); err == nil {
		t.Fatalf("expected error from embedding failure")
	}
	if got := repo.pages["p1"].Status; got != domain.PageStatusFailed {
		t.Fatalf("expected failed status, got %s", got)
	}
	if repo.pages["p1"].Error == "" {
		t.Fatalf("expected failure reason recorded on the page")
	}
}
