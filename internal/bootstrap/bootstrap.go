// Package bootstrap wires configuration, infrastructure adapters and
// use cases into a runnable application for both binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kkucdk/assistant-backend/internal/config"
	"github.com/kkucdk/assistant-backend/internal/core/ports"
	"github.com/kkucdk/assistant-backend/internal/core/usecase"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/chunking"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/crawler"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/embed/cohere"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/extractor/webpage"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/llm/openrouter"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/queue/nats"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/repository/postgres"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/storage/localfs"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/vector/weaviate"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.PageRepository

	ChatUC    ports.ChatService
	CrawlUC   ports.SiteCrawler
	ProcessUC ports.PageProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewPageRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llmClient := openrouter.New(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, logger)
	answerGen := openrouter.NewGenerator(llmClient, cfg.OpenRouterGenModel, cfg.GenTemperature)
	rewriteGen := openrouter.NewGenerator(llmClient, cfg.OpenRouterRewriteModel, 0)

	cohereClient := cohere.New(cfg.CohereURL, cfg.CohereAPIKey, cfg.CohereEmbedModel, cfg.CohereRerankModel, logger)
	vectorStore := weaviate.New(cfg.WeaviateURL, cfg.WeaviateAPIKey, cfg.WeaviateClass, logger)

	fetcher, err := crawler.NewFetcher(cfg.CrawlStartURL, cfg.CrawlRate)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	extractor := webpage.NewExtractor(storage)

	lexical := usecase.NewLexicalEngine(vectorStore, cfg.RAGLexicalFetchLimit)
	semantic := usecase.NewSemanticEngine(cohereClient, vectorStore)
	retriever := usecase.NewHybridRetriever(lexical, semantic)
	reformulator := usecase.NewQueryReformulator(rewriteGen, cfg.RAGHistoryWindow)
	reranker := usecase.NewReranker(cohereClient)
	synthesizer := usecase.NewSynthesizer(answerGen, cfg.RAGHistoryWindow)

	chatUC := usecase.NewChatUseCase(reformulator, retriever, reranker, synthesizer, usecase.PipelineLimits{
		SearchLimit:   cfg.RAGSearchLimit,
		RerankTopN:    cfg.RAGRerankTopN,
		SynthesisTopK: cfg.RAGSynthesisTopK,
	})
	crawlUC := usecase.NewCrawlSiteUseCase(fetcher, repo, storage, queue, cfg.CrawlStartURL, cfg.CrawlMaxPages)
	processUC := usecase.NewProcessPageUseCase(repo, extractor, chunker, cohereClient, vectorStore)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		ChatUC:    chatUC,
		CrawlUC:   crawlUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
