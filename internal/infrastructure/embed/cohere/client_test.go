package cohere

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEmbedUsesDocumentInputType(t *testing.T) {
	var captured embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embed" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", "embed-m", "rerank-m", testLogger())
	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}
	if captured.InputType != "search_document" {
		t.Fatalf("input_type = %q, want search_document", captured.InputType)
	}
	if captured.Model != "embed-m" {
		t.Fatalf("model = %q", captured.Model)
	}
}

func TestEmbedQueryUsesQueryInputType(t *testing.T) {
	var captured embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.6]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", "embed-m", "rerank-m", testLogger())
	vector, err := client.EmbedQuery(context.Background(), "hvad er KKUC?")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 2 {
		t.Fatalf("len(vector) = %d, want 2", len(vector))
	}
	if captured.InputType != "search_query" {
		t.Fatalf("input_type = %q, want search_query", captured.InputType)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", "embed-m", "rerank-m", testLogger())
	if _, err := client.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("Embed() = nil error, want count mismatch")
	}
}

func TestRerankMapsResults(t *testing.T) {
	var captured rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"results":[{"index":2,"relevance_score":0.91},{"index":0,"relevance_score":0.12}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "k", "embed-m", "rerank-m", testLogger())
	hits, err := client.Rerank(context.Background(), "åbningstider", []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(hits) != 2 || hits[0].Index != 2 || hits[0].Relevance != 0.91 {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if captured.TopN != 2 || captured.Query != "åbningstider" || captured.Model != "rerank-m" {
		t.Fatalf("unexpected request: %+v", captured)
	}
}

func TestRerankSkipsRemoteCallWithoutDocuments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request for empty document list")
	}))
	defer server.Close()

	client := New(server.URL, "k", "embed-m", "rerank-m", testLogger())
	hits, err := client.Rerank(context.Background(), "q", nil, 5)
	if err != nil || hits != nil {
		t.Fatalf("Rerank() = (%v, %v), want (nil, nil)", hits, err)
	}
}
