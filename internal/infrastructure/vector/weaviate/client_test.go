package weaviate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNearestNeighborsParsesGraphQLHits(t *testing.T) {
	var capturedQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/graphql" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedQuery = payload["query"]
		_, _ = w.Write([]byte(`{"data":{"Get":{"KkucPassage":[
			{"content":"KKUC tilbyder behandling.","source_url":"https://kkuc.dk/behandling","page_title":"Behandling","_additional":{"distance":0.12}}
		]}}}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "KkucPassage", testLogger())
	hits, err := client.NearestNeighbors(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
	hit := hits[0]
	if hit.Passage.SourceURL != "https://kkuc.dk/behandling" || hit.Distance != 0.12 {
		t.Fatalf("unexpected hit: %+v", hit)
	}
	if !strings.Contains(capturedQuery, "nearVector") || !strings.Contains(capturedQuery, "limit: 5") {
		t.Fatalf("unexpected query: %s", capturedQuery)
	}
}

func TestNearestNeighborsSurfacesGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"class not found"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "KkucPassage", testLogger())
	_, err := client.NearestNeighbors(context.Background(), []float32{0.1}, 3)
	if err == nil || !strings.Contains(err.Error(), "class not found") {
		t.Fatalf("NearestNeighbors() error = %v, want graphql message", err)
	}
}

func TestIndexPassagesCreatesSchemaOnce(t *testing.T) {
	schemaCalls := 0
	batchCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/schema":
			schemaCalls++
			w.WriteHeader(http.StatusOK)
		case "/v1/batch/objects":
			batchCalls++
			var payload struct {
				Objects []struct {
					Class      string         `json:"class"`
					Vector     []float32      `json:"vector"`
					Properties map[string]any `json:"properties"`
				} `json:"objects"`
			}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode batch: %v", err)
			}
			if len(payload.Objects) != 2 {
				t.Fatalf("len(objects) = %d, want 2", len(payload.Objects))
			}
			if payload.Objects[0].Properties["source_url"] != "https://kkuc.dk/om" {
				t.Fatalf("unexpected properties: %+v", payload.Objects[0].Properties)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "", "KkucPassage", testLogger())
	page := &domain.Page{ID: "p1", URL: "https://kkuc.dk/om", Title: "Om KKUC"}
	chunks := []string{"chunk one", "chunk two"}
	vectors := [][]float32{{0.1}, {0.2}}

	for i := 0; i < 2; i++ {
		if err := client.IndexPassages(context.Background(), page, chunks, vectors); err != nil {
			t.Fatalf("IndexPassages() error = %v", err)
		}
	}
	if schemaCalls != 1 {
		t.Fatalf("schemaCalls = %d, want 1", schemaCalls)
	}
	if batchCalls != 2 {
		t.Fatalf("batchCalls = %d, want 2", batchCalls)
	}
}

func TestIndexPassagesTreatsExistingClassAsOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/schema" {
			http.Error(w, `{"error":[{"message":"class already exists"}]}`, http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "", "KkucPassage", testLogger())
	page := &domain.Page{ID: "p1", URL: "https://kkuc.dk/om"}
	err := client.IndexPassages(context.Background(), page, []string{"a"}, [][]float32{{0.1}})
	if err != nil {
		t.Fatalf("IndexPassages() error = %v", err)
	}
}

func TestFetchAllPagesThroughObjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/objects" {
			http.NotFound(w, r)
			return
		}
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			_, _ = w.Write([]byte(`{"objects":[{"properties":{"content":"first","source_url":"https://kkuc.dk/a","page_title":"A"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"objects":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "KkucPassage", testLogger())
	passages, err := client.FetchAll(context.Background(), 250)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(passages) != 1 || passages[0].Text != "first" {
		t.Fatalf("unexpected passages: %+v", passages)
	}
}
