// Package weaviate stores passage vectors in a Weaviate class and
// serves nearest-neighbor search over them. Objects are stored with
// an external vector; Weaviate's own vectorizer is disabled.
package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
	"github.com/kkucdk/assistant-backend/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	class      string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu      sync.Mutex
	ensuredSchema bool
}

func New(baseURL, apiKey, class string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		class:      class,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor: resilience.NewExecutor("weaviate", resilience.Policy{
			Classify: resilience.ClassifyHTTP,
		}, logger),
	}
}

// IndexPassages writes the chunks of one page as vectorized objects.
func (c *Client) IndexPassages(ctx context.Context, page *domain.Page, chunks []string, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("weaviate index: %d chunks for %d vectors", len(chunks), len(vectors))
	}
	if err := c.ensureSchema(ctx); err != nil {
		return err
	}

	type object struct {
		ID         string         `json:"id"`
		Class      string         `json:"class"`
		Vector     []float32      `json:"vector"`
		Properties map[string]any `json:"properties"`
	}

	objects := make([]object, 0, len(chunks))
	for i := range chunks {
		objects = append(objects, object{
			ID:     uuid.NewString(),
			Class:  c.class,
			Vector: vectors[i],
			Properties: map[string]any{
				"content":     chunks[i],
				"source_url":  page.URL,
				"page_title":  page.Title,
				"page_id":     page.ID,
				"chunk_index": i,
			},
		})
	}

	payload := map[string]any{"objects": objects}
	return c.executor.Execute(ctx, "batch", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPost, "/v1/batch/objects", payload, nil, "batch")
	})
}

type graphQLResponse struct {
	Data struct {
		Get map[string][]struct {
			Content    string `json:"content"`
			SourceURL  string `json:"source_url"`
			PageTitle  string `json:"page_title"`
			Additional struct {
				Distance float64 `json:"distance"`
			} `json:"_additional"`
		} `json:"Get"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NearestNeighbors runs a nearVector GraphQL query and returns hits
// with the store's reported distance.
func (c *Client) NearestNeighbors(ctx context.Context, vector []float32, limit int) ([]domain.VectorHit, error) {
	encoded, err := json.Marshal(vector)
	if err != nil {
		return nil, fmt.Errorf("marshal query vector: %w", err)
	}
	query := fmt.Sprintf(
		`{ Get { %s(nearVector: {vector: %s}, limit: %d) { content source_url page_title _additional { distance } } } }`,
		c.class, encoded, limit,
	)

	var response graphQLResponse
	err = c.executor.Execute(ctx, "search", func(ctx context.Context) error {
		response = graphQLResponse{}
		return c.doJSON(ctx, http.MethodPost, "/v1/graphql", map[string]any{"query": query}, &response, "search")
	})
	if err != nil {
		return nil, err
	}
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("weaviate search: %s", response.Errors[0].Message)
	}

	rows := response.Data.Get[c.class]
	hits := make([]domain.VectorHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, domain.VectorHit{
			Passage: domain.Passage{
				Text:      row.Content,
				SourceURL: row.SourceURL,
				PageTitle: row.PageTitle,
			},
			Distance: row.Additional.Distance,
		})
	}
	return hits, nil
}

type objectsResponse struct {
	Objects []struct {
		Properties struct {
			Content   string `json:"content"`
			SourceURL string `json:"source_url"`
			PageTitle string `json:"page_title"`
		} `json:"properties"`
	} `json:"objects"`
}

// FetchAll pages through the stored objects up to limit, for building
// the lexical index.
func (c *Client) FetchAll(ctx context.Context, limit int) ([]domain.Passage, error) {
	const pageSize = 100

	passages := make([]domain.Passage, 0, limit)
	for offset := 0; offset < limit; offset += pageSize {
		remaining := limit - offset
		if remaining > pageSize {
			remaining = pageSize
		}
		path := fmt.Sprintf("/v1/objects?class=%s&limit=%d&offset=%d",
			url.QueryEscape(c.class), remaining, offset)

		var response objectsResponse
		err := c.executor.Execute(ctx, "fetch", func(ctx context.Context) error {
			response = objectsResponse{}
			return c.doJSON(ctx, http.MethodGet, path, nil, &response, "fetch")
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range response.Objects {
			passages = append(passages, domain.Passage{
				Text:      obj.Properties.Content,
				SourceURL: obj.Properties.SourceURL,
				PageTitle: obj.Properties.PageTitle,
			})
		}
		if len(response.Objects) < remaining {
			break
		}
	}
	return passages, nil
}

func (c *Client) ensureSchema(ctx context.Context) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredSchema {
		return nil
	}

	payload := map[string]any{
		"class":      c.class,
		"vectorizer": "none",
		"properties": []map[string]any{
			{"name": "content", "dataType": []string{"text"}},
			{"name": "source_url", "dataType": []string{"text"}},
			{"name": "page_title", "dataType": []string{"text"}},
			{"name": "page_id", "dataType": []string{"text"}},
			{"name": "chunk_index", "dataType": []string{"int"}},
		},
	}
	err := c.doJSON(ctx, http.MethodPost, "/v1/schema", payload, nil, "schema")
	if err != nil {
		// 422 means the class already exists.
		var statusErr *resilience.HTTPStatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnprocessableEntity {
			return err
		}
	}
	c.ensuredSchema = true
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weaviate %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.HTTPStatusError{
			Service:    "weaviate",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
