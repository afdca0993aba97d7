// Package cohere implements embedding and cross-encoder reranking on
// the Cohere API. Documents and queries are embedded with different
// input types, which matters for retrieval quality on their models.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/resilience"
)

type Client struct {
	baseURL     string
	apiKey      string
	embedModel  string
	rerankModel string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, apiKey, embedModel, rerankModel string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		embedModel:  embedModel,
		rerankModel: rerankModel,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		executor: resilience.NewExecutor("cohere", resilience.Policy{
			Classify: resilience.ClassifyHTTP,
		}, logger),
	}
}

type embedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed vectorizes passages for indexing.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, texts, "search_document")
}

// EmbedQuery vectorizes a user query for nearest-neighbor search.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text}, "search_query")
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cohere embed: no embedding returned for query")
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	request := embedRequest{Model: c.embedModel, Texts: texts, InputType: inputType}

	var response embedResponse
	err := c.executor.Execute(ctx, "embed", func(ctx context.Context) error {
		response = embedResponse{}
		return c.postJSON(ctx, "/v1/embed", request, &response, "embed")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("cohere embed: got %d embeddings for %d texts", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores documents against the query with the rerank model and
// returns hits in the API's relevance order.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RelevanceHit, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	request := rerankRequest{Model: c.rerankModel, Query: query, Documents: documents, TopN: topN}

	var response rerankResponse
	err := c.executor.Execute(ctx, "rerank", func(ctx context.Context) error {
		response = rerankResponse{}
		return c.postJSON(ctx, "/v1/rerank", request, &response, "rerank")
	})
	if err != nil {
		return nil, err
	}

	hits := make([]domain.RelevanceHit, 0, len(response.Results))
	for _, result := range response.Results {
		hits = append(hits, domain.RelevanceHit{Index: result.Index, Relevance: result.RelevanceScore})
	}
	return hits, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cohere %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Service:    "cohere",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
